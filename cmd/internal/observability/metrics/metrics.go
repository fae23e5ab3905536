// Package metrics defines warden's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values shared by the credential counters.
const (
	ResultSuccess            = "success"
	ResultValidation         = "validation_error"
	ResultDuplicate          = "duplicate_user"
	ResultInvalidCredentials = "invalid_credentials"
	ResultUnavailable        = "store_unavailable"
	ResultInternal           = "internal_error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec

	RegistrationsTotal  *prometheus.CounterVec
	LoginsTotal         *prometheus.CounterVec
	PasswordHashSeconds *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "warden",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "warden",
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "warden",
				Name:      "registrations_total",
				Help:      "Total number of registration attempts by result.",
			},
			[]string{"result"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "warden",
				Name:      "logins_total",
				Help:      "Total number of login attempts by result.",
			},
			[]string{"result"},
		),
		PasswordHashSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "warden",
				Name:      "password_hash_seconds",
				Help:      "Time spent hashing or verifying passwords.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"op"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.HTTPRequestsTotal,
			m.HTTPRequestDurationSeconds,
			m.RegistrationsTotal,
			m.LoginsTotal,
			m.PasswordHashSeconds,
		)
	}
	return m
}

// Registration counts one register outcome.
func (m *Metrics) Registration(result string) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(result).Inc()
}

// Login counts one verify outcome.
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(result).Inc()
}

// ObserveHash records the duration of a hash ("hash") or verify ("verify") call.
func (m *Metrics) ObserveHash(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.PasswordHashSeconds.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveHTTP records one finished request.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDurationSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}
