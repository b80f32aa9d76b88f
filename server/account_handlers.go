package server

import (
	"net/http"

	"github.com/jrsteele09/go-auth-portal/auth"
	"github.com/jrsteele09/go-auth-portal/identity"
	"github.com/jrsteele09/go-auth-portal/internal/errors"
	"github.com/jrsteele09/go-auth-portal/navigation"
	"github.com/jrsteele09/go-auth-portal/sessions"
	"github.com/rs/zerolog/log"
)

const (
	messageResetSent = "We have sent a password reset link to your email address. Please check your inbox and follow the instructions."
)

// SignupGetHandler renders the signup page
func (s *Server) SignupGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signup.html")
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, tmpl, http.StatusOK, s.pageData(r))
	}
}

// SignupPostHandler validates the registration form and creates the account
func (s *Server) SignupPostHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signup.html")
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		form := auth.SignupForm{
			Name:     r.PostFormValue("name"),
			Username: r.PostFormValue("username"),
			Phone:    r.PostFormValue("phone"),
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		}

		data := s.pageData(r)
		data.Form = map[string]string{"name": form.Name, "username": form.Username, "phone": form.Phone, "email": form.Email}
		if err := form.Validate(); err != nil {
			data, status := invalidForm(data, err)
			renderPage(w, tmpl, status, data)
			return
		}

		nav := &navigation.Recorder{}
		result, err := s.identity.Register(navigation.WithNavigator(r.Context(), nav), form.Registration())
		if target, ok := nav.Last(); ok {
			redirectWithNotice(w, r, target, noticeSessionExpired)
			return
		}
		if err == nil && !result.Success {
			err = &identity.RejectionError{Message: result.Message}
		}
		if err != nil {
			data.Notice, data.Errors = accountFailure(err), nil
			renderPage(w, tmpl, failureStatus(err), data)
			return
		}

		log.Info().Str("username", form.Username).Str("message", result.Message).Msg("account created")
		redirectWithNotice(w, r, s.loginPath, noticeAccountCreated)
	}
}

// ForgotPasswordGetHandler renders the forgot-password page
func (s *Server) ForgotPasswordGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("forgot_password.html")
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, tmpl, http.StatusOK, s.pageData(r))
	}
}

// ForgotPasswordPostHandler requests a reset link and shows the confirmation
func (s *Server) ForgotPasswordPostHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("forgot_password.html")
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		form := auth.ForgotPasswordForm{Email: r.PostFormValue("email")}

		data := s.pageData(r)
		data.Form["email"] = form.Email
		if err := form.Validate(); err != nil {
			data, status := invalidForm(data, err)
			renderPage(w, tmpl, status, data)
			return
		}

		nav := &navigation.Recorder{}
		result, err := s.identity.ForgotPassword(navigation.WithNavigator(r.Context(), nav), form.Email)
		if target, ok := nav.Last(); ok {
			redirectWithNotice(w, r, target, noticeSessionExpired)
			return
		}
		if err == nil && !result.Success {
			err = &identity.RejectionError{Message: result.Message}
		}
		if err != nil {
			data.Notice = accountFailure(err)
			renderPage(w, tmpl, failureStatus(err), data)
			return
		}

		data.Sent = true
		data.Notice = sessions.Notice{Level: sessions.LevelSuccess, Message: messageResetSent}
		renderPage(w, tmpl, http.StatusOK, data)
	}
}

func accountFailure(err error) sessions.Notice {
	var rej *identity.RejectionError
	if errors.As(err, &rej) {
		msg := rej.Message
		if msg == "" {
			msg = sessions.MessageRejectedFallback
		}
		return sessions.Notice{Level: sessions.LevelError, Message: msg}
	}
	log.Warn().Err(err).Msg("account request failed")
	return sessions.Notice{Level: sessions.LevelError, Message: sessions.MessageUnexpected}
}

func failureStatus(err error) int {
	var rej *identity.RejectionError
	if !errors.As(err, &rej) {
		return http.StatusBadGateway
	}
	if rej.StatusCode >= 400 && rej.StatusCode < 500 {
		return rej.StatusCode
	}
	return http.StatusBadRequest
}
