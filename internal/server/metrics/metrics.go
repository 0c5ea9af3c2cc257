// Package metrics exposes Prometheus counters for the upload broker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "uploadbroker"

// Recorder receives the events the orchestrator and the REST layer report.
type Recorder interface {
	SessionInitiated(kind string)
	SessionTransition(state string)
	ProviderCall(operation string, err error)
	HTTPRequest(method, route string, status int, elapsed time.Duration)
}

// Prometheus records into its own registry so tests can create as many as
// they like without colliding on the default one.
type Prometheus struct {
	registry    *prometheus.Registry
	initiated   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	provider    *prometheus.CounterVec
	requests    *prometheus.HistogramVec
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		initiated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_initiated_total",
			Help:      "Upload sessions created, by kind.",
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session state transitions, by target state.",
		}, []string{"state"}),
		provider: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Storage provider calls, by operation and result.",
		}, []string{"operation", "result"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "REST request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	p.registry.MustRegister(
		p.initiated,
		p.transitions,
		p.provider,
		p.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) SessionInitiated(kind string) {
	p.initiated.WithLabelValues(kind).Inc()
}

func (p *Prometheus) SessionTransition(state string) {
	p.transitions.WithLabelValues(state).Inc()
}

func (p *Prometheus) ProviderCall(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.provider.WithLabelValues(operation, result).Inc()
}

func (p *Prometheus) HTTPRequest(method, route string, status int, elapsed time.Duration) {
	p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry, mostly for tests.
func (p *Prometheus) Gatherer() prometheus.Gatherer {
	return p.registry
}

// Nop drops every event.
type Nop struct{}

func (Nop) SessionInitiated(string)                        {}
func (Nop) SessionTransition(string)                       {}
func (Nop) ProviderCall(string, error)                     {}
func (Nop) HTTPRequest(string, string, int, time.Duration) {}
