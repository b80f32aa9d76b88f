package sessions

import (
	"context"
	"time"

	"github.com/jrsteele09/go-auth-portal/clients"
)

type OutcomeKind int

const (
	// OutcomeRedirect: session stored, handoff to the SSO client scheduled
	OutcomeRedirect OutcomeKind = iota
	// OutcomeStay: session stored, no registered redirect so the user stays put
	OutcomeStay
	// OutcomeRejected: the identity service refused the credentials
	OutcomeRejected
	// OutcomeFailed: network or unexpected failure
	OutcomeFailed
	// OutcomeLost: refresh failed mid-login and the browser was sent to the login page
	OutcomeLost
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRedirect:
		return "redirect"
	case OutcomeStay:
		return "stay"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	case OutcomeLost:
		return "lost"
	default:
		return "unknown"
	}
}

type Outcome struct {
	Kind        OutcomeKind
	Notice      Notice
	Client      *clients.Client
	RedirectURL string
	Delay       time.Duration
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a transient message for the user
type Notice struct {
	Level   Level
	Message string
}

// Notifier surfaces notices to the user
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}
