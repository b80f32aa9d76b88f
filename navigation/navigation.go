// Package navigation abstracts moving the user's browser to another location.
//
// Library callers plug in whatever drives their browser. The HTTP front attaches a
// Recorder to each request context and turns recorded targets into redirects.
package navigation

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Navigator performs a hard navigation to target, discarding the current view
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(ctx context.Context, target string)

func (f NavigatorFunc) Navigate(ctx context.Context, target string) {
	f(ctx, target)
}

// Log only records the navigation in the log
var Log Navigator = NavigatorFunc(func(_ context.Context, target string) {
	log.Info().Str("target", target).Msg("navigation requested")
})

type navigatorKey struct{}

// WithNavigator overrides the navigator for calls made with ctx
func WithNavigator(ctx context.Context, n Navigator) context.Context {
	return context.WithValue(ctx, navigatorKey{}, n)
}

// FromContext returns the navigator attached to ctx, or fallback
func FromContext(ctx context.Context, fallback Navigator) Navigator {
	if n, ok := ctx.Value(navigatorKey{}).(Navigator); ok && n != nil {
		return n
	}
	if fallback == nil {
		return Log
	}
	return fallback
}

// Recorder captures navigation targets in order
type Recorder struct {
	mu      sync.Mutex
	targets []string
}

var _ Navigator = (*Recorder)(nil)

func (r *Recorder) Navigate(_ context.Context, target string) {
	r.mu.Lock()
	r.targets = append(r.targets, target)
	r.mu.Unlock()
}

// Last returns the most recent target
func (r *Recorder) Last() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.targets) == 0 {
		return "", false
	}
	return r.targets[len(r.targets)-1], true
}

// Targets returns every recorded target
func (r *Recorder) Targets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.targets...)
}
