package config

import "time"

const (
	redirectDelayVar  = "REDIRECT_DELAY"
	ssoClientsFileVar = "SSO_CLIENTS_FILE"
)

type SessionConfig interface {
	GetRedirectDelay() time.Duration
	GetSSOClientsFile() string
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRedirectDelay is the pause between the welcome notice and the SSO handoff
func (Session) GetRedirectDelay() time.Duration {
	return GetEnvDuration(redirectDelayVar, 1500*time.Millisecond)
}

// GetSSOClientsFile points at a YAML registry; empty means the built-in registry
func (Session) GetSSOClientsFile() string {
	return GetEnv(ssoClientsFileVar, "")
}
