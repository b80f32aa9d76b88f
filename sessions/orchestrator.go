package sessions

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jrsteele09/go-auth-portal/clients"
	"github.com/jrsteele09/go-auth-portal/identity"
	"github.com/jrsteele09/go-auth-portal/internal/errors"
	"github.com/jrsteele09/go-auth-portal/metrics"
	"github.com/jrsteele09/go-auth-portal/navigation"
	"github.com/jrsteele09/go-auth-portal/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	MessageRejectedFallback = "Login failed. Please check your credentials."
	MessageUnexpected       = "An unexpected error occurred. Please try again."

	DefaultRedirectDelay = 1500 * time.Millisecond
)

// AfterFunc runs f once d has elapsed. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func())

func timeAfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

type Config struct {
	Store    token.Store
	Registry *clients.Registry
	ClientID string

	// Navigator performs the delayed SSO handoff. When nil, Complete only reports the
	// redirect and the caller drives the browser itself.
	Navigator navigation.Navigator
	Notifier  Notifier

	// Delay lets the welcome notice render before the handoff. Default: 1.5s
	Delay     time.Duration
	AfterFunc AfterFunc

	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
}

// Orchestrator turns login results into an established session and an SSO handoff
type Orchestrator struct {
	store     token.Store
	registry  *clients.Registry
	clientID  string
	navigator navigation.Navigator
	notifier  Notifier
	delay     time.Duration
	afterFunc AfterFunc
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

func New(cfg Config) *Orchestrator {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultRedirectDelay
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = timeAfterFunc
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Orchestrator{
		store:     cfg.Store,
		registry:  cfg.Registry,
		clientID:  cfg.ClientID,
		navigator: cfg.Navigator,
		notifier:  cfg.Notifier,
		delay:     cfg.Delay,
		afterFunc: cfg.AfterFunc,
		logger:    logger.With().Str("component", "sessions").Logger(),
		metrics:   cfg.Metrics,
	}
}

// Plan decides what a login result means without touching any state
func (o *Orchestrator) Plan(result *identity.LoginResult, err error) Outcome {
	if err != nil {
		return planError(err)
	}
	if result == nil {
		return Outcome{Kind: OutcomeFailed, Notice: errorNotice(MessageUnexpected)}
	}
	if !result.Success {
		return Outcome{Kind: OutcomeRejected, Notice: errorNotice(orFallback(result.Message))}
	}

	out := Outcome{Kind: OutcomeStay, Notice: Notice{Level: LevelSuccess, Message: welcome(result.UserDisplayName)}}
	client, ok := o.registry.Resolve(o.clientID)
	if !ok {
		o.logger.Info().Err(errors.ErrClientNotFound).Str("client_id", o.clientID).Msg("no redirect target, staying on the portal")
		return out
	}
	out.Client = client
	redirectURI, ok := client.DefaultRedirectURI()
	if !ok {
		return out
	}
	target, err := RedirectURL(redirectURI, result.AccessToken)
	if err != nil {
		o.logger.Warn().Err(err).Str("client_id", client.ID).Msg("unusable redirect uri")
		return out
	}
	out.Kind = OutcomeRedirect
	out.RedirectURL = target
	out.Delay = o.delay
	return out
}

// Complete applies a login result: stores the token, raises the notice and, for a known
// SSO client, schedules the handoff after the configured delay. A scheduled handoff is not
// cancellable and fires even if the caller's context is done.
func (o *Orchestrator) Complete(ctx context.Context, result *identity.LoginResult, err error) Outcome {
	out := o.Plan(result, err)

	if err == nil && result != nil && result.Success {
		o.store.Set(result.AccessToken)
	}

	logger := o.logger.With().Str("client_id", o.clientID).Stringer("outcome", out.Kind).Logger()
	switch out.Kind {
	case OutcomeFailed:
		logger.Warn().Err(err).Msg("login failed")
	case OutcomeLost:
		logger.Warn().Err(err).Msg("login abandoned, session lost")
	default:
		logger.Info().Msg("login completed")
	}

	if o.notifier != nil && out.Notice.Message != "" {
		o.notifier.Notify(ctx, out.Notice)
	}

	if out.Kind == OutcomeRedirect && o.navigator != nil {
		navCtx := context.WithoutCancel(ctx)
		target := out.RedirectURL
		o.afterFunc(out.Delay, func() {
			o.navigator.Navigate(navCtx, target)
		})
	}

	o.metrics.Login(out.Kind.String())
	return out
}

// RedirectURL appends the token query parameter to redirectURI
func RedirectURL(redirectURI, accessToken string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("parse redirect uri: %w", err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("redirect uri %q is not absolute", redirectURI)
	}
	param := "token=" + url.QueryEscape(accessToken)
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String(), nil
}

func planError(err error) Outcome {
	var rej *identity.RejectionError
	switch {
	case errors.Is(err, errors.ErrAuthenticationLost):
		// the client has already sent the browser to the login page
		return Outcome{Kind: OutcomeLost}
	case errors.As(err, &rej):
		return Outcome{Kind: OutcomeRejected, Notice: errorNotice(orFallback(rej.Message))}
	default:
		return Outcome{Kind: OutcomeFailed, Notice: errorNotice(MessageUnexpected)}
	}
}

func welcome(name string) string {
	if name == "" {
		return "Welcome back!"
	}
	return fmt.Sprintf("Welcome back, %s!", name)
}

func orFallback(msg string) string {
	if msg == "" {
		return MessageRejectedFallback
	}
	return msg
}

func errorNotice(msg string) Notice {
	return Notice{Level: LevelError, Message: msg}
}
