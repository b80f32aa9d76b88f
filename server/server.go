package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-portal/clients"
	"github.com/jrsteele09/go-auth-portal/identity"
	"github.com/jrsteele09/go-auth-portal/internal/config"
	"github.com/jrsteele09/go-auth-portal/sessions"
	"github.com/jrsteele09/go-auth-portal/token"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the portal serves. Metrics may be nil.
type Deps struct {
	Identity *identity.Service
	Sessions *sessions.Orchestrator
	Registry *clients.Registry
	Store    token.Store
	Metrics  http.Handler
}

// Server is the browser front of a single-user local portal: one process holds one
// access token, so every browser talking to it shares the same session.
type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	appName   string
	loginPath string
	mux       *http.ServeMux
	routes    []string

	identity *identity.Service
	sessions *sessions.Orchestrator
	registry *clients.Registry
	store    token.Store
	metrics  http.Handler
}

func New(c config.Config, deps Deps) (*Server, error) {
	if deps.Identity == nil || deps.Sessions == nil || deps.Registry == nil || deps.Store == nil {
		return nil, fmt.Errorf("[Server New] identity, sessions, registry and store are required")
	}

	s := &Server{
		env:       c.GetEnv(),
		appName:   c.GetAppName(),
		loginPath: c.GetLoginPath(),
		mux:       http.NewServeMux(),
		identity:  deps.Identity,
		sessions:  deps.Sessions,
		registry:  deps.Registry,
		store:     deps.Store,
		metrics:   deps.Metrics,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
