package apiclient

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-auth-portal/internal/errors"
)

// StatusError is a non-2xx response that ended a request
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap maps a terminal 401 onto errors.ErrAuthenticationExpired
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return errors.ErrAuthenticationExpired
	}
	return nil
}
