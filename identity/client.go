// Package identity is an HTTP client for the identity service: login,
// registration and current-user lookup. The bearer credential is supplied
// by the caller on every request; the client holds no authentication state.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "http://localhost:8000"

	PathLogin    = "/auth/login"
	PathRegister = "/auth/register"
	PathMe       = "/auth/me"
	PathVerify   = "/auth/verify"

	maxErrorBody = 64 << 10
)

var errUndecodable = errors.New("undecodable response body")

// Client calls the identity service REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for baseURL, falling back to DefaultBaseURL when empty.
func New(baseURL string, options ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// BaseURL returns the service root used for every request.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds Credentials) (*TokenResponse, error) {
	var tr TokenResponse
	if err := c.do(ctx, http.MethodPost, PathLogin, "", creds, &tr); err != nil {
		return nil, errors.Wrap(err, "[identity.Login]")
	}
	if tr.AccessToken == "" {
		return nil, errors.New("[identity.Login] response missing access_token")
	}
	return &tr, nil
}

// Register creates an account. bearer may be empty; services that restrict
// registration to administrators require it.
func (c *Client) Register(ctx context.Context, creds Credentials, bearer string) (*User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, PathRegister, bearer, creds, &u)
	if errors.Is(err, errUndecodable) {
		// the body of a successful registration is informational only
		return &User{Username: creds.Username}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[identity.Register]")
	}
	return &u, nil
}

// CurrentUser returns the profile of the user the bearer token belongs to.
func (c *Client) CurrentUser(ctx context.Context, bearer string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, PathMe, bearer, nil, &u); err != nil {
		return nil, errors.Wrap(err, "[identity.CurrentUser]")
	}
	return &u, nil
}

// Verify checks that the bearer token is still accepted.
func (c *Client) Verify(ctx context.Context, bearer string) (*Verification, error) {
	var v Verification
	if err := c.do(ctx, http.MethodGet, PathVerify, bearer, nil, &v); err != nil {
		return nil, errors.Wrap(err, "[identity.Verify]")
	}
	return &v, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		(&oauth2.Token{AccessToken: bearer, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(raw)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("%w: %v", errUndecodable, err)
	}
	return nil
}
