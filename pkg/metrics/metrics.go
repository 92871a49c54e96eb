package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestTotal    *prometheus.CounterVec

	// Appointment lifecycle
	AppointmentTransitions *prometheus.CounterVec

	// Directory lookups, labelled by outcome (found, not_found, unavailable)
	DirectoryLookups *prometheus.CounterVec
	DirectoryLatency prometheus.Histogram

	// Projection cache
	CacheRequests *prometheus.CounterVec
}

// New creates the application metrics and registers them with reg.
// Passing a fresh prometheus.NewRegistry() keeps tests isolated.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"method", "path", "status"}),
		RequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		AppointmentTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "appointment",
			Name:      "transitions_total",
			Help:      "Appointment state transitions by action and result",
		}, []string{"action", "result"}),

		DirectoryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "lookups_total",
			Help:      "Directory lookups by kind and outcome",
		}, []string{"kind", "outcome"}),
		DirectoryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "lookup_duration_seconds",
			Help:      "Duration of directory lookups that reached the database",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view_cache",
			Name:      "requests_total",
			Help:      "Projection cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RequestDuration,
			m.RequestTotal,
			m.AppointmentTransitions,
			m.DirectoryLookups,
			m.DirectoryLatency,
			m.CacheRequests,
		)
	}

	return m
}

// NewNop returns metrics that are not registered anywhere.
func NewNop() *Metrics {
	return New("hospital", nil)
}
