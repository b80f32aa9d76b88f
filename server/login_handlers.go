package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-portal/auth"
	"github.com/jrsteele09/go-auth-portal/navigation"
	"github.com/jrsteele09/go-auth-portal/sessions"
	"github.com/rs/zerolog/log"
)

// LoginPageHandler displays the login page (GET /login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	loginTmpl := mustParseTemplate("login.html")
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.pageData(r)
		data.Form["username"] = r.URL.Query().Get("username")
		renderPage(w, loginTmpl, http.StatusOK, data)
	}
}

// LoginSubmissionHandler processes the login form and hands the browser off to the SSO client
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	loginTmpl := mustParseTemplate("login.html")
	handoffTmpl := mustParseTemplate("handoff.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		form := auth.LoginForm{
			Username: r.PostFormValue("username"),
			Password: r.PostFormValue("password"),
		}

		data := s.pageData(r)
		data.Notice = sessions.Notice{}
		data.Form["username"] = form.Username

		if err := form.Validate(); err != nil {
			data, status := invalidForm(data, err)
			renderPage(w, loginTmpl, status, data)
			return
		}

		// a lost session is reported through the navigator rather than the outcome
		nav := &navigation.Recorder{}
		ctx := navigation.WithNavigator(r.Context(), nav)

		result, err := s.identity.Login(ctx, form.Credentials())
		out := s.sessions.Complete(ctx, result, err)
		if target, ok := nav.Last(); ok {
			redirectWithNotice(w, r, target, noticeSessionExpired)
			return
		}

		data.Notice = out.Notice
		switch out.Kind {
		case sessions.OutcomeRedirect:
			data.Client = out.Client
			data.RedirectURL = out.RedirectURL
			data.RefreshContent = refreshContent(out.Delay, out.RedirectURL)
			w.Header().Set("Refresh", data.RefreshContent)
			renderPage(w, handoffTmpl, http.StatusOK, data)
		case sessions.OutcomeStay:
			renderPage(w, handoffTmpl, http.StatusOK, data)
		case sessions.OutcomeRejected:
			renderPage(w, loginTmpl, http.StatusUnauthorized, data)
		case sessions.OutcomeLost:
			redirectWithNotice(w, r, s.loginPath, noticeSessionExpired)
		default:
			renderPage(w, loginTmpl, http.StatusBadGateway, data)
		}
	}
}

// LogoutHandler drops the access token and returns to the login page
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.identity.Logout()
		log.Info().Msg("logged out")
		redirectWithNotice(w, r, s.loginPath, noticeSignedOut)
	}
}
