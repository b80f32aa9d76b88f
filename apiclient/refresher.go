package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-portal/internal/errors"
	"golang.org/x/oauth2"
)

// RefreshPath is the identity service endpoint exchanging the session cookie for a token
const RefreshPath = "/auth/refresh"

// Refresher exchanges the ambient session for a new access token
type Refresher interface {
	Refresh(ctx context.Context) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to Refresher
type RefresherFunc func(ctx context.Context) (*oauth2.Token, error)

func (f RefresherFunc) Refresh(ctx context.Context) (*oauth2.Token, error) {
	return f(ctx)
}

// HTTPRefresher calls POST {base}/auth/refresh. It sends no Authorization header and
// relies on the session cookie held by the client's jar.
type HTTPRefresher struct {
	url    string
	client *http.Client
}

var _ Refresher = (*HTTPRefresher)(nil)

func NewHTTPRefresher(baseURL string, client *http.Client) *HTTPRefresher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRefresher{
		url:    strings.TrimRight(baseURL, "/") + RefreshPath,
		client: client,
	}
}

type refreshResponse struct {
	Results struct {
		AccessToken string `json:"accessToken"`
	} `json:"results"`
}

func (r *HTTPRefresher) Refresh(ctx context.Context) (*oauth2.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, strings.NewReader("{}"))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", errors.ErrRefreshFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := RequestIDFromContext(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", errors.ErrRefreshFailed, errors.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: unexpected status %d", errors.ErrRefreshFailed, resp.StatusCode)
	}

	var body refreshResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", errors.ErrRefreshFailed, err)
	}
	if body.Results.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access token", errors.ErrRefreshFailed)
	}

	return &oauth2.Token{AccessToken: body.Results.AccessToken, TokenType: "Bearer"}, nil
}
