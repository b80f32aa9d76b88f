package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the auth portal
var (
	// Input errors
	ErrValidation = errors.New("validation failed")

	// Authentication errors
	ErrCredentialRejected    = errors.New("credentials rejected")
	ErrAuthenticationExpired = errors.New("authentication expired")
	ErrAuthenticationLost    = errors.New("authentication lost")
	ErrRefreshFailed         = errors.New("token refresh failed")

	// Transport errors
	ErrTransport = errors.New("transport error")

	// SSO registry errors
	ErrClientNotFound  = errors.New("sso client not found")
	ErrInvalidRegistry = errors.New("invalid sso registry")

	// General errors
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
