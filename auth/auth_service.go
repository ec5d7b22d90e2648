package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/jrsteele09/go-session-auth/internal/config"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/users"
	"github.com/pkg/errors"
)

const (
	DefaultAdminUsername = "admin"
	TokenTypeBearer      = "bearer"
)

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users users.Repo
}

// AccessToken is the result of a successful login.
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"-"`
}

// Service authenticates users, registers new ones and resolves bearer tokens.
type Service struct {
	repos            Repos
	tokens           *token.Manager
	validator        *Validator
	registrationMode string
	adminUsername    string
}

type ServiceOption func(*Service)

// WithRegistrationMode selects config.RegistrationOpen or config.RegistrationAdminOnly.
func WithRegistrationMode(mode string) ServiceOption {
	return func(s *Service) {
		s.registrationMode = mode
	}
}

func WithPasswordPolicy(policy string) ServiceOption {
	return func(s *Service) {
		s.validator = NewValidator(policy)
	}
}

func WithAdminUsername(username string) ServiceOption {
	return func(s *Service) {
		if username != "" {
			s.adminUsername = username
		}
	}
}

func NewService(repos Repos, tokens *token.Manager, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}

	s := &Service{
		repos:            repos,
		tokens:           tokens,
		validator:        NewValidator(config.PasswordPolicyNone),
		registrationMode: config.RegistrationOpen,
		adminUsername:    DefaultAdminUsername,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Service) RegistrationMode() string {
	return s.registrationMode
}

func (s *Service) AdminUsername() string {
	return s.adminUsername
}

// Authenticate checks the credentials and issues an access token. Unknown
// users and wrong passwords both return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*AccessToken, error) {
	if err := s.validator.ValidateUserCredentials(username, password); err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "Service.Authenticate GetByUsername")
	}
	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := s.validator.ValidateUserState(user); err != nil {
		return nil, err
	}

	raw, expiresAt, err := s.tokens.Create(user.Username)
	if err != nil {
		return nil, errors.Wrap(err, "Service.Authenticate Create")
	}
	return &AccessToken{
		AccessToken: raw,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   int(s.tokens.Expiry().Seconds()),
		ExpiresAt:   expiresAt,
	}, nil
}

// Register creates a user. actor is the authenticated caller and may be nil
// in open registration mode. In admin-only mode only the admin user may
// register others.
func (s *Service) Register(ctx context.Context, actor *users.User, username, password, email string) (*users.User, error) {
	if s.registrationMode == config.RegistrationAdminOnly {
		if actor == nil || actor.Username != s.adminUsername {
			return nil, RegistrationForbiddenErr
		}
	}
	if err := s.validator.ValidateUserCredentials(username, password); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := s.validator.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "Service.Register HashPassword")
	}

	user := &users.User{
		Username:     username,
		Email:        utils.NonEmpty(email),
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repos.Users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrUserExists) {
			return nil, apperrors.ErrUserExists
		}
		return nil, errors.Wrap(err, "Service.Register Create")
	}
	return user, nil
}

// UserFromToken resolves a bearer token to an active user.
func (s *Service) UserFromToken(ctx context.Context, raw string) (*users.User, error) {
	username, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, errors.Wrap(err, "Service.UserFromToken GetByUsername")
	}
	if err := s.validator.ValidateUserState(user); err != nil {
		return nil, err
	}
	return user, nil
}

// AdminBootstrap reports what EnsureAdmin changed.
type AdminBootstrap struct {
	Created bool
	// PasswordReset is set when an existing admin was brought back in line
	// with the configured password.
	PasswordReset bool
	// GeneratedPassword is only set when the admin was created without a
	// configured password.
	GeneratedPassword string
}

// EnsureAdmin creates the admin user when it does not exist, generating a
// random password when none is configured. When the admin exists and a
// password is configured, a differing password or an inactive account is
// reset to match.
func (s *Service) EnsureAdmin(ctx context.Context, password string) (AdminBootstrap, error) {
	var result AdminBootstrap

	existing, err := s.repos.Users.GetByUsername(ctx, s.adminUsername)
	switch {
	case err == nil:
		if password == "" || (existing.CheckPassword(password) && existing.IsActive) {
			return result, nil
		}
		result.PasswordReset = true
	case errors.Is(err, apperrors.ErrUserNotFound):
		result.Created = true
		existing = &users.User{Username: s.adminUsername}
	default:
		return result, errors.Wrap(err, "Service.EnsureAdmin GetByUsername")
	}

	if password == "" {
		passwordBytes := make([]byte, 16)
		if _, err := rand.Read(passwordBytes); err != nil {
			return AdminBootstrap{}, errors.Wrap(err, "Service.EnsureAdmin rand.Read")
		}
		password = base64.URLEncoding.EncodeToString(passwordBytes)
		result.GeneratedPassword = password
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return AdminBootstrap{}, errors.Wrap(err, "Service.EnsureAdmin HashPassword")
	}
	existing.PasswordHash = hash
	existing.IsActive = true
	if err := s.repos.Users.Upsert(ctx, existing); err != nil {
		return AdminBootstrap{}, errors.Wrap(err, "Service.EnsureAdmin Upsert")
	}
	return result, nil
}

// UserByID returns the user with id, or ErrUserNotFound.
func (s *Service) UserByID(ctx context.Context, id int64) (*users.User, error) {
	return s.repos.Users.GetByID(ctx, id)
}

// DeleteUser removes username. The admin account itself is protected.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	if username == s.adminUsername {
		return AdminDeletionErr
	}
	return s.repos.Users.Delete(ctx, username)
}
