package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-auth-portal/internal/errors"
	"github.com/jrsteele09/go-auth-portal/navigation"
	"golang.org/x/oauth2"
)

// outcome of one attempt
type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeAuthFailed
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeSucceeded:
		return "succeeded"
	case outcomeAuthFailed:
		return "auth_failed"
	default:
		return "failed"
	}
}

// send runs one attempt. credential, when non-empty, is the token produced by the refresh
// that caused this attempt and is attached instead of the store's current value.
func (c *Client) send(ctx context.Context, req *Request, credential string) (*Response, error) {
	logger := c.logger.With().
		Str("request_id", RequestIDFromContext(ctx)).
		Str("method", req.Method).
		Str("path", req.Path).
		Bool("retry", IsRetry(ctx)).
		Logger()

	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}
	if !req.NoAuth {
		c.attachCredential(httpReq, credential)
	}

	resp, err := c.dispatch(httpReq)
	if err != nil {
		logger.Warn().Err(err).Msg("request failed")
		c.metrics.RequestFailed()
		return nil, err
	}

	result := classify(ctx, req, resp)
	logger.Debug().Int("status", resp.StatusCode).Stringer("outcome", result).Msg("response received")

	switch result {
	case outcomeSucceeded:
		c.metrics.RequestSucceeded()
		return resp, nil
	case outcomeAuthFailed:
		return c.refreshAndRetry(ctx, req)
	default:
		c.metrics.RequestFailed()
		return nil, &StatusError{Method: req.Method, Path: req.Path, StatusCode: resp.StatusCode, Body: resp.Body}
	}
}

// build turns the immutable Request into a fresh *http.Request
func (c *Client) build(ctx context.Context, req *Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+req.Path, bodyReader(req.Body))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInternal, "build %s %s: %v", method, req.Path, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if id := RequestIDFromContext(ctx); id != "" {
		httpReq.Header.Set(RequestIDHeader, id)
	}
	return httpReq, nil
}

// attachCredential sets the bearer header from credential or, when empty, the token store
func (c *Client) attachCredential(r *http.Request, credential string) {
	if credential == "" {
		tok, ok := c.store.Get()
		if !ok {
			return
		}
		credential = tok
	}
	(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"}).SetAuthHeader(r)
}

func (c *Client) dispatch(r *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", errors.ErrTransport, r.Method, r.URL.Path, err)
	}
	out, err := readResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s %s: %w", errors.ErrTransport, r.Method, r.URL.Path, err)
	}
	return out, nil
}

func classify(ctx context.Context, req *Request, resp *Response) outcome {
	switch {
	case resp.StatusCode == http.StatusUnauthorized && !req.NoAuth && !IsRetry(ctx):
		return outcomeAuthFailed
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return outcomeSucceeded
	default:
		return outcomeFailed
	}
}

// refreshAndRetry marks the request as retried, rotates the credential and sends the
// original request once more
func (c *Client) refreshAndRetry(ctx context.Context, req *Request) (*Response, error) {
	ctx = withRetryMarker(ctx)
	logger := c.logger.With().Str("request_id", RequestIDFromContext(ctx)).Str("path", req.Path).Logger()
	logger.Info().Msg("access token rejected, refreshing")

	tok, err := c.refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// the caller gave up; the session itself is not known to be lost
			c.metrics.RequestFailed()
			return nil, fmt.Errorf("%w: refresh abandoned: %w", errors.ErrTransport, ctx.Err())
		}
		logger.Warn().Err(err).Str("target", c.loginPath).Msg("token refresh failed, session lost")
		c.metrics.Refresh(false)
		c.metrics.RequestAuthLost()
		c.store.Clear()
		navigation.FromContext(ctx, c.navigator).Navigate(ctx, c.loginPath)
		return nil, fmt.Errorf("%w: %w", errors.ErrAuthenticationLost, err)
	}

	c.metrics.Refresh(true)
	c.metrics.RequestRetried()
	logger.Debug().Msg("token refreshed, retrying request")
	return c.send(ctx, req, tok.AccessToken)
}

// refresh obtains a new token and writes it to the store. With SharedRefresh, callers
// arriving while a refresh is in flight wait for that call instead of starting another.
func (c *Client) refresh(ctx context.Context) (*oauth2.Token, error) {
	if !c.sharedRefresh {
		return c.refreshAndStore(ctx)
	}

	ch := c.sf.DoChan("refresh", func() (any, error) {
		return c.refreshAndStore(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*oauth2.Token), nil
	}
}

func (c *Client) refreshAndStore(ctx context.Context) (*oauth2.Token, error) {
	tok, err := c.refresher.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, errors.Wrapf(errors.ErrRefreshFailed, "empty access token")
	}
	c.store.Set(tok.AccessToken)
	return tok, nil
}
