package auth

import (
	"fmt"
	"strings"

	"github.com/jrsteele09/go-session-auth/internal/config"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

// Validator holds the input and account checks shared by login and registration.
type Validator struct {
	passwordPolicy string
}

func NewValidator(passwordPolicy string) *Validator {
	return &Validator{passwordPolicy: passwordPolicy}
}

func (v *Validator) ValidateUserCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return apperrors.ErrMissingCredentials
	}
	return nil
}

// ValidatePassword applies the configured password policy.
func (v *Validator) ValidatePassword(password string) error {
	if v.passwordPolicy != config.PasswordPolicyStrict {
		return nil
	}
	if err := users.ValidatePasswordStrength(password); err != nil {
		return fmt.Errorf("%w: %s", WeakPasswordErr, err.Error())
	}
	return nil
}

func (v *Validator) ValidateUserState(user *users.User) error {
	if user == nil {
		return apperrors.ErrUserNotFound
	}
	if !user.IsActive {
		return apperrors.ErrUserInactive
	}
	return nil
}

// ValidateEmail accepts an empty email. Anything else needs a local part and a domain.
func (v *Validator) ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return InvalidEmailErr
	}
	return nil
}
