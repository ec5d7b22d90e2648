package config

import (
	"fmt"
	"strings"
)

const DevEnv = "DEV"

type EnvVars struct {
	Port        string `env:"PORT" envDefault:"8000"`
	AppName     string `env:"APP_NAME" envDefault:"Identity Service"`
	Environment string `env:"ENV" envDefault:"DEV"`
	DatabaseURL string `env:"DATABASE_URL"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	if strings.HasPrefix(e.Port, ":") {
		return e.Port
	}
	return fmt.Sprintf(":%s", e.Port)
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Environment == "" {
		return DevEnv
	}
	return strings.ToUpper(e.Environment)
}

// GetDatabaseURL returns the PostgreSQL connection string. Empty selects the in-memory user repo.
func (e EnvVars) GetDatabaseURL() string {
	return e.DatabaseURL
}
