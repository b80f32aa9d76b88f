package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the portal's Prometheus collectors
type Metrics struct {
	// Identity service calls, by final outcome
	RequestsTotal *prometheus.CounterVec

	// Refresh calls, by result
	RefreshTotal *prometheus.CounterVec

	// Login outcomes handled by the session orchestrator
	LoginsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on registry when it is not nil
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authportal_identity_requests_total",
				Help: "Total number of identity service requests by outcome",
			},
			[]string{"outcome"},
		),
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authportal_token_refresh_total",
				Help: "Total number of access token refresh calls by result",
			},
			[]string{"result"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authportal_logins_total",
				Help: "Total number of login results by outcome",
			},
			[]string{"outcome"},
		),
	}

	if registry != nil {
		registry.MustRegister(m.RequestsTotal, m.RefreshTotal, m.LoginsTotal)
	}
	return m
}

// Handler exposes registry in the Prometheus text format
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func (m *Metrics) request(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// RequestSucceeded, RequestRetried and RequestFailed are nil-safe
func (m *Metrics) RequestSucceeded() { m.request("succeeded") }
func (m *Metrics) RequestRetried()   { m.request("retried") }
func (m *Metrics) RequestFailed()    { m.request("failed") }
func (m *Metrics) RequestAuthLost()  { m.request("auth_lost") }

func (m *Metrics) Refresh(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}
