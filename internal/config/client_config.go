package config

import (
	"os"
	"path/filepath"
)

// Token store kinds
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

const DefaultIdentityBaseURL = "http://localhost:8000"

type ClientConfig interface {
	GetIdentityBaseURL() string
	GetTokenStore() string
	GetTokenFile() string
	GetRedisURL() string
}

type Client struct {
	IdentityBaseURL string `env:"IDENTITY_BASE_URL" envDefault:"http://localhost:8000"`
	TokenStore      string `env:"TOKEN_STORE" envDefault:"file"`
	TokenFile       string `env:"TOKEN_FILE"`
	RedisURL        string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
}

var _ ClientConfig = Client{}

func (c Client) GetIdentityBaseURL() string {
	if c.IdentityBaseURL == "" {
		return DefaultIdentityBaseURL
	}
	return c.IdentityBaseURL
}

func (c Client) GetTokenStore() string {
	switch c.TokenStore {
	case StoreMemory, StoreRedis:
		return c.TokenStore
	default:
		return StoreFile
	}
}

// GetTokenFile returns the path of the file backed token store, defaulting
// to authctl/store.json under the user config directory.
func (c Client) GetTokenFile() string {
	if c.TokenFile != "" {
		return c.TokenFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "authctl", "store.json")
}

func (c Client) GetRedisURL() string {
	return c.RedisURL
}
