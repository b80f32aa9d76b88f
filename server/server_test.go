package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-portal/apiclient"
	"github.com/jrsteele09/go-auth-portal/clients"
	"github.com/jrsteele09/go-auth-portal/identity"
	"github.com/jrsteele09/go-auth-portal/internal/config"
	"github.com/jrsteele09/go-auth-portal/metrics"
	"github.com/jrsteele09/go-auth-portal/server"
	"github.com/jrsteele09/go-auth-portal/sessions"
	"github.com/jrsteele09/go-auth-portal/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// fakeIdentity accepts the password "secret" and issues tok1; /auth/me needs a valid token
type fakeIdentity struct {
	mu         sync.Mutex
	validToken string
	refreshOK  bool
	loginCode  int
	registered []identity.Registration
	resetFor   []string
}

func (f *fakeIdentity) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case identity.LoginPath:
		var req identity.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if f.loginCode != 0 {
			w.WriteHeader(f.loginCode)
			return
		}
		if req.Password != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"message":"Invalid password"}`))
			return
		}
		f.validToken = "tok1"
		_, _ = w.Write([]byte(`{"success":true,"results":{"accessToken":"tok1","user":{"id":"u1","name":"Alice"}}}`))
	case apiclient.RefreshPath:
		if !f.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.validToken = "tok2"
		_, _ = w.Write([]byte(`{"results":{"accessToken":"tok2"}}`))
	case identity.MePath:
		if f.validToken == "" || r.Header.Get("Authorization") != "Bearer "+f.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"results":{"user":{"id":"u1","name":"Alice","username":"alice"}}}`))
	case identity.RegisterPath:
		var reg identity.Registration
		_ = json.NewDecoder(r.Body).Decode(&reg)
		if reg.Username == "taken" {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"success":false,"message":"Username already exists"}`))
			return
		}
		f.registered = append(f.registered, reg)
		_, _ = w.Write([]byte(`{"success":true}`))
	case identity.ForgotPasswordPath:
		var body struct {
			Email string `json:"email"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.resetFor = append(f.resetFor, body.Email)
		_, _ = w.Write([]byte(`{"success":true}`))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeIdentity) set(fn func(f *fakeIdentity)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeIdentity) registrations() []identity.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]identity.Registration(nil), f.registered...)
}

func (f *fakeIdentity) resets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.resetFor...)
}

type portal struct {
	srv   *server.Server
	store *token.MemoryStore
	idp   *fakeIdentity
}

func newPortal(t *testing.T, clientID string) *portal {
	t.Helper()
	return newPortalWithDelay(t, clientID, 1500*time.Millisecond)
}

func newPortalWithDelay(t *testing.T, clientID string, delay time.Duration) *portal {
	t.Helper()
	t.Setenv("ENV", "TEST")

	idp := &fakeIdentity{}
	api := httptest.NewServer(idp)
	t.Cleanup(api.Close)

	registry, err := clients.NewRegistry([]clients.Client{{
		ID:           "app",
		Name:         "Example App",
		RedirectURIs: []string{"https://app.example/cb"},
	}})
	require.NoError(t, err)

	store := token.NewMemoryStore()
	promRegistry := prometheus.NewRegistry()
	m := metrics.New(promRegistry)

	client, err := apiclient.New(apiclient.Config{BaseURL: api.URL, Store: store, SharedRefresh: true, Metrics: m})
	require.NoError(t, err)

	orchestrator := sessions.New(sessions.Config{
		Store:    store,
		Registry: registry,
		ClientID: clientID,
		Delay:    delay,
		Metrics:  m,
	})

	srv, err := server.New(config.New(), server.Deps{
		Identity: identity.NewService(client, clientID, registry),
		Sessions: orchestrator,
		Registry: registry,
		Store:    store,
		Metrics:  metrics.Handler(promRegistry),
	})
	require.NoError(t, err)
	return &portal{srv: srv, store: store, idp: idp}
}

func (p *portal) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	p.srv.ServeHTTP(rr, req)
	return rr
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := server.New(config.New(), server.Deps{})
	require.Error(t, err)
}

func TestLoginPage(t *testing.T) {
	p := newPortal(t, "app")

	rr := p.do(http.MethodGet, "/login?notice=signed_out", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "SAMEORIGIN", rr.Header().Get("X-Frame-Options"))
	require.Contains(t, rr.Body.String(), "Example App")
	require.Contains(t, rr.Body.String(), "You have been signed out.")

	for _, target := range []string{"/login?error=Send+your+password+to+evil", "/login?notice=Send+your+password+to+evil"} {
		rr = p.do(http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		require.NotContains(t, rr.Body.String(), "evil")
		require.NotContains(t, rr.Body.String(), `class="notice`)
	}

	rr = p.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, server.RouteLogin, rr.Header().Get("Location"))
}

func TestLoginSubmission(t *testing.T) {
	t.Run("hands off to the sso client", func(t *testing.T) {
		p := newPortal(t, "app")

		rr := p.do(http.MethodPost, server.RouteAuthLogin, url.Values{"username": {"alice"}, "password": {"secret"}})
		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, "2;url=https://app.example/cb?token=tok1", rr.Header().Get("Refresh"))
		require.Contains(t, rr.Body.String(), "Welcome back, Alice!")
		require.Contains(t, rr.Body.String(), `http-equiv="refresh"`)

		tok, ok := p.store.Get()
		require.True(t, ok)
		require.Equal(t, "tok1", tok)
	})

	t.Run("delay is rounded up to whole seconds", func(t *testing.T) {
		for delay, want := range map[time.Duration]string{
			500 * time.Millisecond: "1;url=https://app.example/cb?token=tok1",
			time.Second:            "1;url=https://app.example/cb?token=tok1",
			2 * time.Second:        "2;url=https://app.example/cb?token=tok1",
		} {
			p := newPortalWithDelay(t, "app", delay)
			rr := p.do(http.MethodPost, server.RouteAuthLogin, url.Values{"username": {"alice"}, "password": {"secret"}})
			require.Equal(t, http.StatusOK, rr.Code)
			require.Equal(t, want, rr.Header().Get("Refresh"), "delay %s", delay)
		}
	})

	t.Run("unknown client stays on the portal", func(t *testing.T) {
		p := newPortal(t, "unknown")

		rr := p.do(http.MethodPost, server.RouteAuthLogin, url.Values{"username": {"alice"}, "password": {"secret"}})
		require.Equal(t, http.StatusOK, rr.Code)
		require.Empty(t, rr.Header().Get("Refresh"))
		require.Contains(t, rr.Body.String(), "Welcome back, Alice!")

		tok, _ := p.store.Get()
		require.Equal(t, "tok1", tok)
	})

	t.Run("invalid form never reaches the service", func(t *testing.T) {
		p := newPortal(t, "app")

		rr := p.do(http.MethodPost, server.RouteAuthLogin, url.Values{"username": {""}, "password": {""}})
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		require.Contains(t, rr.Body.String(), "Email or username or phone number is required")
		require.Contains(t, rr.Body.String(), "Password is required")

		_, ok := p.store.Get()
		require.False(t, ok)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		p := newPortal(t, "app")

		rr := p.do(http.MethodPost, server.RouteAuthLogin, url.Values{"username": {"alice"}, "password": {"wrong"}})
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		require.Contains(t, rr.Body.String(), "Invalid password")

		_, ok := p.store.Get()
		require.False(t, ok)
	})

	t.Run("lost session redirects to login", func(t *testing.T) {
		p := newPortal(t, "app")
		p.idp.set(func(f *fakeIdentity) { f.loginCode = http.StatusUnauthorized })
		p.store.Set("stale")

		rr := p.do(http.MethodPost, server.RouteAuthLogin, url.Values{"username": {"alice"}, "password": {"secret"}})
		require.Equal(t, http.StatusSeeOther, rr.Code)
		require.Equal(t, server.RouteLogin+"?notice=session_expired", rr.Header().Get("Location"))

		_, ok := p.store.Get()
		require.False(t, ok)
	})

	t.Run("htmx gets a redirect header", func(t *testing.T) {
		p := newPortal(t, "app")
		p.idp.set(func(f *fakeIdentity) { f.loginCode = http.StatusUnauthorized })

		req := httptest.NewRequest(http.MethodPost, server.RouteAuthLogin,
			strings.NewReader(url.Values{"username": {"alice"}, "password": {"secret"}}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("HX-Request", "true")
		rr := httptest.NewRecorder()
		p.srv.ServeHTTP(rr, req)

		require.Equal(t, http.StatusNoContent, rr.Code)
		require.Equal(t, server.RouteLogin+"?notice=session_expired", rr.Header().Get("HX-Redirect"))
	})
}

func TestLogout(t *testing.T) {
	p := newPortal(t, "app")
	p.store.Set("tok1")

	rr := p.do(http.MethodPost, server.RouteAuthLogout, nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, server.RouteLogin+"?notice=signed_out", rr.Header().Get("Location"))

	_, ok := p.store.Get()
	require.False(t, ok)
}

func TestSessionAPI(t *testing.T) {
	t.Run("current user", func(t *testing.T) {
		p := newPortal(t, "app")
		p.idp.set(func(f *fakeIdentity) { f.validToken = "tok1" })
		p.store.Set("tok1")

		rr := p.do(http.MethodGet, server.RouteAPISession, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

		var body struct {
			Success bool `json:"success"`
			Results struct {
				User  identity.User `json:"user"`
				Token token.Info    `json:"token"`
			} `json:"results"`
		}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
		require.True(t, body.Success)
		require.Equal(t, "Alice", body.Results.User.Name)
		require.Equal(t, len("tok1"), body.Results.Token.Length)
	})

	t.Run("expired token is refreshed", func(t *testing.T) {
		p := newPortal(t, "app")
		p.idp.set(func(f *fakeIdentity) {
			f.validToken = "gone"
			f.refreshOK = true
		})
		p.store.Set("tok1")

		rr := p.do(http.MethodGet, server.RouteAPISession, nil)
		require.Equal(t, http.StatusOK, rr.Code)

		tok, _ := p.store.Get()
		require.Equal(t, "tok2", tok)
	})

	t.Run("lost session", func(t *testing.T) {
		p := newPortal(t, "app")
		p.store.Set("tok1")

		rr := p.do(http.MethodGet, server.RouteAPISession, nil)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
		require.Contains(t, rr.Body.String(), `"redirect":"/login"`)

		_, ok := p.store.Get()
		require.False(t, ok)
	})
}

func TestSignup(t *testing.T) {
	valid := url.Values{
		"name":     {"Alice"},
		"username": {"alice"},
		"phone":    {"6281312341234"},
		"email":    {"alice@example.com"},
		"password": {"secret1"},
	}

	t.Run("page", func(t *testing.T) {
		p := newPortal(t, "app")
		rr := p.do(http.MethodGet, server.RouteSignup, nil)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Contains(t, rr.Body.String(), "Create an account")
	})

	t.Run("creates the account", func(t *testing.T) {
		p := newPortal(t, "app")
		rr := p.do(http.MethodPost, server.RouteSignup, valid)
		require.Equal(t, http.StatusSeeOther, rr.Code)
		require.Equal(t, server.RouteLogin+"?notice=account_created", rr.Header().Get("Location"))
		registered := p.idp.registrations()
		require.Len(t, registered, 1)
		require.Equal(t, "6281312341234", registered[0].Phone)
	})

	t.Run("invalid phone", func(t *testing.T) {
		p := newPortal(t, "app")
		form := url.Values{}
		for k, v := range valid {
			form[k] = v
		}
		form.Set("phone", "0813")
		rr := p.do(http.MethodPost, server.RouteSignup, form)
		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		require.Contains(t, rr.Body.String(), "must start with 62")
		require.Empty(t, p.idp.registrations())
	})

	t.Run("service refusal", func(t *testing.T) {
		p := newPortal(t, "app")
		form := url.Values{}
		for k, v := range valid {
			form[k] = v
		}
		form.Set("username", "taken")
		rr := p.do(http.MethodPost, server.RouteSignup, form)
		require.Equal(t, http.StatusConflict, rr.Code)
		require.Contains(t, rr.Body.String(), "Username already exists")
	})
}

func TestForgotPassword(t *testing.T) {
	p := newPortal(t, "app")

	rr := p.do(http.MethodPost, server.RouteForgotPassword, url.Values{"email": {"nope"}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "Please enter a valid email address")

	rr = p.do(http.MethodPost, server.RouteForgotPassword, url.Values{"email": {"alice@example.com"}})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Check your email")
	require.Equal(t, []string{"alice@example.com"}, p.idp.resets())
}

func TestStaticAndMetrics(t *testing.T) {
	p := newPortal(t, "app")
	p.do(http.MethodPost, server.RouteAuthLogin, url.Values{"username": {"alice"}, "password": {"secret"}})

	rr := p.do(http.MethodGet, "/css/app.css", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "text/css")

	rr = p.do(http.MethodGet, "/css/missing.css", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = p.do(http.MethodGet, server.RouteMetrics, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `authportal_logins_total{outcome="redirect"} 1`)
}

func TestRecoverMiddleware(t *testing.T) {
	p := newPortal(t, "app")
	h := server.ChainMiddleware(func(http.ResponseWriter, *http.Request) { panic("boom") }, p.srv.RecoverMiddleware)

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
