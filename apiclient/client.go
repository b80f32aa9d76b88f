package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-portal/internal/errors"
	"github.com/jrsteele09/go-auth-portal/metrics"
	"github.com/jrsteele09/go-auth-portal/navigation"
	"github.com/jrsteele09/go-auth-portal/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

const (
	// RequestIDHeader carries the pending request's id on every attempt
	RequestIDHeader = "X-Request-ID"

	defaultLoginPath = "/login"
)

// Request is an outbound call. It is immutable once handed to Do, so a retry
// rebuilds the exact same HTTP request from it.
type Request struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header

	// NoAuth skips the attach-credential stage. Such requests never trigger a refresh.
	NoAuth bool
}

// Response is a fully read identity service response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type Config struct {
	// BaseURL is the identity service origin, e.g. "https://api.example.com"
	BaseURL string

	// HTTPClient sends every request. Its cookie jar holds the ambient refresh session.
	// If nil, NewHTTPClient(0) is used.
	HTTPClient *http.Client

	Store token.Store

	// Refresher exchanges the ambient session for a new access token.
	// If nil, an HTTPRefresher against BaseURL sharing HTTPClient is used.
	Refresher Refresher

	// SharedRefresh collapses concurrent refresh calls into a single in-flight call
	SharedRefresh bool

	// Navigator receives the forced navigation when authentication is lost.
	// A navigator attached to the request context takes precedence.
	Navigator navigation.Navigator

	// LoginPath is where the browser is sent when authentication is lost. Default: /login
	LoginPath string

	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
}

// Client is the authenticated identity service client
type Client struct {
	baseURL       string
	httpClient    *http.Client
	store         token.Store
	refresher     Refresher
	sharedRefresh bool
	sf            singleflight.Group
	navigator     navigation.Navigator
	loginPath     string
	logger        zerolog.Logger
	metrics       *metrics.Metrics
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("[apiclient New] base url is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("[apiclient New] token store is required")
	}
	if cfg.HTTPClient == nil {
		httpClient, err := NewHTTPClient(0)
		if err != nil {
			return nil, fmt.Errorf("[apiclient New] %w", err)
		}
		cfg.HTTPClient = httpClient
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Refresher == nil {
		cfg.Refresher = NewHTTPRefresher(baseURL, cfg.HTTPClient)
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = defaultLoginPath
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Client{
		baseURL:       baseURL,
		httpClient:    cfg.HTTPClient,
		store:         cfg.Store,
		refresher:     cfg.Refresher,
		sharedRefresh: cfg.SharedRefresh,
		navigator:     cfg.Navigator,
		loginPath:     cfg.LoginPath,
		logger:        logger.With().Str("component", "apiclient").Logger(),
		metrics:       cfg.Metrics,
	}, nil
}

// NewHTTPClient returns a client with a cookie jar so the identity service's session
// cookie is replayed on refresh calls. A zero timeout leaves requests unbounded.
func NewHTTPClient(timeout time.Duration) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &http.Client{Jar: jar, Timeout: timeout}, nil
}

// Store returns the token store the client reads credentials from
func (c *Client) Store() token.Store {
	return c.store
}

// Do sends req through the pipeline. Non-2xx results are returned as *StatusError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, errors.Wrapf(errors.ErrInternal, "nil request")
	}
	if RequestIDFromContext(ctx) == "" {
		ctx = withRequestID(ctx, newRequestID())
	}
	return c.send(ctx, req, "")
}

// PostJSON marshals in and posts it to path
func (c *Client) PostJSON(ctx context.Context, path string, in any) (*Response, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Get sends an authenticated GET to path
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path})
}

// MaxBodyBytes bounds how much of an identity service response is read
const MaxBodyBytes = 1 << 20

func readResponse(resp *http.Response) (*Response, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", MaxBodyBytes)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func bodyReader(b []byte) io.Reader {
	if b == nil {
		return nil
	}
	return bytes.NewReader(b)
}
