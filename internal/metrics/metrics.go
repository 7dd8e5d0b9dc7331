package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service counters. Each instance owns its registry so
// several handlers can coexist in one process.
type Metrics struct {
	registry           *prometheus.Registry
	Requests           *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	AccountsRegistered prometheus.Counter
	LoginFailures      prometheus.Counter
	MessagesCreated    prometheus.Counter
}

// New registers the collectors on a fresh registry, so instances never collide.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialapi_http_requests_total",
				Help: "Total number of HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "socialapi_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		AccountsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialapi_accounts_registered_total",
			Help: "Total number of successfully registered accounts",
		}),
		LoginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialapi_login_failures_total",
			Help: "Total number of rejected logins",
		}),
		MessagesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "socialapi_messages_created_total",
			Help: "Total number of successfully created messages",
		}),
	}

	m.registry.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.AccountsRegistered,
		m.LoginFailures,
		m.MessagesCreated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
