package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClientFile is the optional YAML settings file read by the command line client.
// Fields left empty keep the value from the environment.
type ClientFile struct {
	BaseURL   string `yaml:"base_url"`
	Store     string `yaml:"store"`
	TokenFile string `yaml:"token_file"`
	RedisURL  string `yaml:"redis_url"`
}

func LoadClientFile(path string) (ClientFile, error) {
	var f ClientFile
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("[config LoadClientFile] failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("[config LoadClientFile] failed to parse %s: %w", path, err)
	}
	return f, nil
}

// Overlay returns base with the non-empty fields of f applied on top.
func (f ClientFile) Overlay(base ClientConfig) ClientConfig {
	c := Client{
		IdentityBaseURL: base.GetIdentityBaseURL(),
		TokenStore:      base.GetTokenStore(),
		TokenFile:       base.GetTokenFile(),
		RedisURL:        base.GetRedisURL(),
	}
	if f.BaseURL != "" {
		c.IdentityBaseURL = f.BaseURL
	}
	if f.Store != "" {
		c.TokenStore = f.Store
	}
	if f.TokenFile != "" {
		c.TokenFile = f.TokenFile
	}
	if f.RedisURL != "" {
		c.RedisURL = f.RedisURL
	}
	return c
}
