package config

import "time"

// Registration modes
const (
	RegistrationOpen      = "open"
	RegistrationAdminOnly = "admin"
)

// Password policies
const (
	PasswordPolicyNone   = "none"
	PasswordPolicyStrict = "strict"
)

type SecurityConfig interface {
	GetSecretKey() string
	GetAccessTokenExpiry() time.Duration
	GetRegistrationMode() string
	GetPasswordPolicy() string
	GetAdminUsername() string
	GetAdminPassword() string
	GetTokenIssuer() string
}

type Security struct {
	SecretKey                string `env:"SECRET_KEY" envDefault:"change-me-in-production"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	RegistrationMode         string `env:"REGISTRATION_MODE" envDefault:"open"`
	PasswordPolicy           string `env:"PASSWORD_POLICY" envDefault:"none"`
	AdminUsername            string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword            string `env:"ADMIN_PASSWORD"`
	TokenIssuer              string `env:"TOKEN_ISSUER"`
}

var _ SecurityConfig = Security{}

func (s Security) GetSecretKey() string {
	return s.SecretKey
}

func (s Security) GetAccessTokenExpiry() time.Duration {
	if s.AccessTokenExpireMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(s.AccessTokenExpireMinutes) * time.Minute
}

// GetRegistrationMode is either RegistrationOpen or RegistrationAdminOnly.
// Admin-only means only the admin user may register new accounts.
func (s Security) GetRegistrationMode() string {
	if s.RegistrationMode == RegistrationAdminOnly {
		return RegistrationAdminOnly
	}
	return RegistrationOpen
}

func (s Security) GetPasswordPolicy() string {
	if s.PasswordPolicy == PasswordPolicyStrict {
		return PasswordPolicyStrict
	}
	return PasswordPolicyNone
}

func (s Security) GetAdminUsername() string {
	return s.AdminUsername
}

// GetAdminPassword returns the configured admin password. Empty means one is generated at bootstrap.
func (s Security) GetAdminPassword() string {
	return s.AdminPassword
}

// GetTokenIssuer is the "iss" claim stamped on and required of access tokens. Empty disables it.
func (s Security) GetTokenIssuer() string {
	return s.TokenIssuer
}
