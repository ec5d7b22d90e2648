package auth

import (
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

var (
	RegistrationForbiddenErr = fmt.Errorf("only admin can create new users: %w", apperrors.ErrForbidden)
	WeakPasswordErr          = errors.New("password does not meet policy")
	InvalidEmailErr          = errors.New("invalid email format")
	AdminDeletionErr         = fmt.Errorf("the admin user cannot be deleted: %w", apperrors.ErrForbidden)
)
