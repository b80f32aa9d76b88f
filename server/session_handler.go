package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-auth-portal/identity"
	"github.com/jrsteele09/go-auth-portal/internal/errors"
	"github.com/jrsteele09/go-auth-portal/navigation"
	"github.com/jrsteele09/go-auth-portal/sessions"
	"github.com/jrsteele09/go-auth-portal/token"
	"github.com/rs/zerolog/log"
)

type sessionResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message,omitempty"`
	Redirect string          `json:"redirect,omitempty"`
	Results  *sessionResults `json:"results,omitempty"`
}

type sessionResults struct {
	User  *identity.User `json:"user"`
	Token token.Info     `json:"token"`
}

// SessionHandler reports who the stored access token belongs to. The lookup runs through
// the authenticated client, so an expired token is refreshed on the way.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nav := &navigation.Recorder{}
		user, err := s.identity.Me(navigation.WithNavigator(r.Context(), nav))
		if target, ok := nav.Last(); ok {
			writeJSON(w, http.StatusUnauthorized, sessionResponse{Message: "session expired", Redirect: target})
			return
		}
		if err != nil {
			var rej *identity.RejectionError
			if errors.As(err, &rej) {
				writeJSON(w, failureStatus(err), sessionResponse{Message: accountFailure(err).Message})
				return
			}
			log.Warn().Err(err).Msg("session lookup failed")
			writeJSON(w, http.StatusBadGateway, sessionResponse{Message: sessions.MessageUnexpected})
			return
		}

		raw, _ := s.store.Get()
		writeJSON(w, http.StatusOK, sessionResponse{
			Success: true,
			Results: &sessionResults{User: user, Token: token.Describe(raw)},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write json response")
	}
}
