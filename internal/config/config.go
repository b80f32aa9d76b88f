package config

import (
	"fmt"
	"net/url"
)

type Config interface {
	EnvConfig
	IdentityConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Identity
	Session
}

func New() Config {
	return mainConfig{}
}

// Validate checks the settings the portal cannot start without
func Validate(c Config) error {
	base := c.GetAPIBaseURL()
	if base == "" {
		return fmt.Errorf("%s is required", apiBaseURLVar)
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", apiBaseURLVar, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", apiBaseURLVar, u.Scheme)
	}
	if c.GetClientID() == "" {
		return fmt.Errorf("%s is required", clientIDVar)
	}
	if c.GetRedirectDelay() < 0 {
		return fmt.Errorf("%s must not be negative", redirectDelayVar)
	}
	return nil
}
