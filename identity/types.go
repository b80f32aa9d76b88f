package identity

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-auth-portal/internal/errors"
)

// Identity service endpoints, relative to the configured base URL
const (
	LoginPath          = "/auth/login/internal"
	RegisterPath       = "/auth/register"
	ForgotPasswordPath = "/auth/forgot-password"
	MePath             = "/auth/me"
)

type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
}

// Credentials are validated login form values
type Credentials struct {
	Username string
	Password string
}

type LoginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
	ClientID string `json:"clientId"`
	ReturnTo string `json:"returnTo"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Results struct {
		AccessToken string `json:"accessToken"`
		User        User   `json:"user"`
	} `json:"results"`
}

// LoginResult is handed straight to the session orchestrator and not retained.
// AccessToken and UserDisplayName are set only when Success is true.
type LoginResult struct {
	Success         bool
	Message         string
	AccessToken     string
	UserDisplayName string
	User            User
}

// Registration holds validated signup form values
type Registration struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// Result is the generic {success, message} envelope
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type meResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Results struct {
		User User `json:"user"`
	} `json:"results"`
}

// RejectionError is an application-level refusal from the identity service
type RejectionError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RejectionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = errors.ErrCredentialRejected.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d %s)", msg, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return msg
}

func (e *RejectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{errors.ErrCredentialRejected}
	}
	return []error{errors.ErrCredentialRejected, e.Err}
}
