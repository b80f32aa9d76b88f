package server

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jrsteele09/go-auth-portal/auth"
	"github.com/jrsteele09/go-auth-portal/clients"
	"github.com/jrsteele09/go-auth-portal/internal/errors"
	"github.com/jrsteele09/go-auth-portal/sessions"
	"github.com/rs/zerolog/log"
)

const noticeParam = "notice"

// noticeKey names a notice that survives a redirect. Only these keys are shown, so a
// crafted link cannot put its own text on a page.
type noticeKey string

const (
	noticeSignedOut      noticeKey = "signed_out"
	noticeAccountCreated noticeKey = "account_created"
	noticeSessionExpired noticeKey = "session_expired"
)

var notices = map[noticeKey]sessions.Notice{
	noticeSignedOut:      {Level: sessions.LevelSuccess, Message: "You have been signed out."},
	noticeAccountCreated: {Level: sessions.LevelSuccess, Message: "Account created. Please sign in."},
	noticeSessionExpired: {Level: sessions.LevelError, Message: "Your session has expired. Please sign in again."},
}

// PageData is the template model shared by every page
type PageData struct {
	AppName string
	Client  *clients.Client
	Notice  sessions.Notice
	Errors  auth.FieldErrors
	Form    map[string]string

	// handoff page
	RedirectURL    string
	RefreshContent string

	// forgot-password page
	Sent bool
}

func (s *Server) pageData(r *http.Request) PageData {
	data := PageData{AppName: s.appName, Form: map[string]string{}}
	if c, ok := s.registry.Resolve(s.identity.ClientID()); ok {
		data.Client = c
	}
	if n, ok := notices[noticeKey(r.URL.Query().Get(noticeParam))]; ok {
		data.Notice = n
	}
	return data
}

// invalidForm attaches per-field messages, or a generic notice for anything else
func invalidForm(data PageData, err error) (PageData, int) {
	var fields auth.FieldErrors
	if errors.As(err, &fields) {
		data.Errors = fields
		return data, http.StatusUnprocessableEntity
	}
	log.Err(err).Msg("form validation failed")
	data.Notice = sessions.Notice{Level: sessions.LevelError, Message: sessions.MessageUnexpected}
	return data, http.StatusInternalServerError
}

// refreshContent is the value of a Refresh header or meta tag navigating to target after d.
// Browsers only honour whole seconds, so d is rounded up.
func refreshContent(d time.Duration, target string) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 0 {
		seconds = 0
	}
	return strconv.Itoa(seconds) + ";url=" + target
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithNotice carries a known notice to the next page by key
func redirectWithNotice(w http.ResponseWriter, r *http.Request, path string, key noticeKey) {
	redirectSuccess(w, r, path+"?"+url.Values{noticeParam: {string(key)}}.Encode())
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
