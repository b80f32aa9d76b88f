package identity

import (
	"context"
	"encoding/json"

	"github.com/jrsteele09/go-auth-portal/apiclient"
	"github.com/jrsteele09/go-auth-portal/clients"
	"github.com/jrsteele09/go-auth-portal/internal/errors"
	"github.com/rs/zerolog/log"
)

// Service calls the identity service through the authenticated client
type Service struct {
	client   *apiclient.Client
	clientID string
	registry *clients.Registry
}

func NewService(client *apiclient.Client, clientID string, registry *clients.Registry) *Service {
	return &Service{
		client:   client,
		clientID: clientID,
		registry: registry,
	}
}

// ClientID returns the SSO client this portal logs users into
func (s *Service) ClientID() string {
	return s.clientID
}

// Login submits credentials. A {success:false} reply is returned as a result, not an error.
// Errors are *RejectionError for refusals, errors.ErrTransport for network failures and
// errors.ErrAuthenticationLost when the refresh protocol gave up.
func (s *Service) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	returnTo := ""
	if c, ok := s.registry.Resolve(s.clientID); ok {
		returnTo, _ = c.DefaultRedirectURI()
	}

	resp, err := s.client.PostJSON(ctx, LoginPath, LoginRequest{
		User:     creds.Username,
		Password: creds.Password,
		ClientID: s.clientID,
		ReturnTo: returnTo,
	})
	if err != nil {
		return nil, rejection(err)
	}

	var body LoginResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, errors.Wrapf(errors.ErrInternal, "login: %v", err)
	}
	if !body.Success {
		return &LoginResult{Success: false, Message: body.Message}, nil
	}
	if body.Results.AccessToken == "" {
		return nil, errors.Wrapf(errors.ErrInternal, "login succeeded without an access token")
	}

	log.Debug().Str("user_id", body.Results.User.ID).Str("client_id", s.clientID).Msg("login accepted")
	return &LoginResult{
		Success:         true,
		Message:         body.Message,
		AccessToken:     body.Results.AccessToken,
		UserDisplayName: body.Results.User.Name,
		User:            body.Results.User,
	}, nil
}

// Register creates an account from validated signup values
func (s *Service) Register(ctx context.Context, reg Registration) (*Result, error) {
	return s.postResult(ctx, RegisterPath, reg)
}

// ForgotPassword asks the identity service to send a reset link
func (s *Service) ForgotPassword(ctx context.Context, email string) (*Result, error) {
	return s.postResult(ctx, ForgotPasswordPath, forgotPasswordRequest{Email: email})
}

// Me fetches the signed-in user; it exercises the refresh protocol like any other call
func (s *Service) Me(ctx context.Context) (*User, error) {
	resp, err := s.client.Get(ctx, MePath)
	if err != nil {
		return nil, rejection(err)
	}
	var body meResponse
	if err := resp.DecodeJSON(&body); err != nil {
		return nil, errors.Wrapf(errors.ErrInternal, "me: %v", err)
	}
	return &body.Results.User, nil
}

// Logout drops the in-memory access token
func (s *Service) Logout() {
	s.client.Store().Clear()
}

func (s *Service) postResult(ctx context.Context, path string, in any) (*Result, error) {
	resp, err := s.client.PostJSON(ctx, path, in)
	if err != nil {
		return nil, rejection(err)
	}
	var out Result
	if err := resp.DecodeJSON(&out); err != nil {
		return nil, errors.Wrapf(errors.ErrInternal, "%s: %v", path, err)
	}
	return &out, nil
}

// rejection turns a terminal status response into a RejectionError carrying the service
// message. Transport and lost-session errors pass through unchanged.
func rejection(err error) error {
	var statusErr *apiclient.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	var body struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(statusErr.Body, &body)
	return &RejectionError{StatusCode: statusErr.StatusCode, Message: body.Message, Err: err}
}
