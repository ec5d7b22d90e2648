package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const DefaultExpiry = 30 * time.Minute

// Claims are the verified contents of an access token.
type Claims struct {
	Subject   string
	ID        string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager issues and verifies signed bearer access tokens. The subject of
// every token is the username it was issued to.
type Manager struct {
	signer Signer
	expiry time.Duration
	issuer string
}

type ManagerOption func(*Manager)

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

// NewManager creates an HS256 token manager. A non-positive expiry falls back to DefaultExpiry.
func NewManager(secret string, expiry time.Duration, options ...ManagerOption) (*Manager, error) {
	m := &Manager{
		expiry: expiry,
	}
	for _, opt := range options {
		opt(m)
	}

	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token.NewManager secret is required")
	}
	m.signer = NewHMACSigner(secret)
	if m.expiry <= 0 {
		m.expiry = DefaultExpiry
	}
	return m, nil
}

// Expiry is the lifetime given to new tokens.
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Create issues a token for username and returns it with its expiry time.
func (m *Manager) Create(username string) (string, time.Time, error) {
	if username == "" {
		return "", time.Time{}, errors.New("Manager.Create username is required")
	}

	now := NowTimeFunc()
	expiresAt := now.Add(m.expiry)
	claims := jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"jti": uuid.New().String(),
	}
	if m.issuer != "" {
		claims["iss"] = m.issuer
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "Manager.Create Sign")
	}
	return signed, time.Unix(expiresAt.Unix(), 0), nil
}

// Verify checks the signature and expiry of raw and returns its subject.
func (m *Manager) Verify(raw string) (string, error) {
	claims, err := m.Parse(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Parse validates raw and returns its claims. Expired tokens return
// ErrTokenExpired, every other failure ErrInvalidToken.
func (m *Manager) Parse(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(NowTimeFunc),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	parser := jwt.NewParser(opts...)

	tok, err := parser.ParseWithClaims(raw, jwt.MapClaims{}, m.signer.GetVerificationKey)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "Manager.Parse %v", err)
	}

	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	sub, _ := mc.GetSubject()
	if sub == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "token payload missing sub")
	}
	jti, _ := mc["jti"].(string)
	iss, _ := mc.GetIssuer()

	claims := &Claims{Subject: sub, ID: jti, Issuer: iss}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
