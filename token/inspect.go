package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Info is a log-safe description of an access token
type Info struct {
	JWT       bool      `json:"jwt"`
	Subject   string    `json:"sub,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	Length    int       `json:"length"`
}

// Describe parses the token without verifying it. The result is for diagnostics only
// and must never be used for authorization decisions.
func Describe(raw string) Info {
	info := Info{Length: len(raw)}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return info
	}
	info.JWT = true
	info.Subject = claims.Subject
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info
}

// MarshalZerologObject lets an Info be attached to a log event with Object()
func (i Info) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("jwt", i.JWT).Int("length", i.Length)
	if i.Subject != "" {
		e.Str("sub", i.Subject)
	}
	if !i.ExpiresAt.IsZero() {
		e.Time("exp", i.ExpiresAt)
	}
}
