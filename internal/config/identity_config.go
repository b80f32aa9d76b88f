package config

import (
	"strings"
	"time"
)

const (
	apiBaseURLVar    = "API_BASE_URL"
	clientIDVar      = "CLIENT_ID"
	loginPathVar     = "LOGIN_PATH"
	httpTimeoutVar   = "HTTP_TIMEOUT"
	sharedRefreshVar = "SHARED_REFRESH"
)

type IdentityConfig interface {
	GetAPIBaseURL() string
	GetClientID() string
	GetLoginPath() string
	GetHTTPTimeout() time.Duration
	GetSharedRefresh() bool
}

type Identity struct{}

var _ IdentityConfig = Identity{}

// GetAPIBaseURL returns the identity service origin, e.g. "https://api.example.com"
func (Identity) GetAPIBaseURL() string {
	return strings.TrimRight(GetEnv(apiBaseURLVar, ""), "/")
}

// GetClientID identifies the downstream SSO application this portal hands off to
func (Identity) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

func (Identity) GetLoginPath() string {
	return GetEnv(loginPathVar, "/login")
}

// GetHTTPTimeout of zero leaves requests bounded only by the transport
func (Identity) GetHTTPTimeout() time.Duration {
	return GetEnvDuration(httpTimeoutVar, 0)
}

// GetSharedRefresh collapses concurrent refresh calls into one when true
func (Identity) GetSharedRefresh() bool {
	return GetEnvBool(sharedRefreshVar, true)
}
