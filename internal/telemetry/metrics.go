// Package telemetry exposes the API's prometheus counters.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "conversion_api"

// Metrics holds the counters the scoring API reports. Each instance carries
// its own registry, so constructing one per process (or per test) never
// collides with another.
type Metrics struct {
	registry *prometheus.Registry

	// PredictionsTotal counts sessions scored across predict and forecast
	// requests.
	PredictionsTotal prometheus.Counter

	// AlignmentFailuresTotal counts feature vectors that failed alignment to
	// the persisted feature list.
	AlignmentFailuresTotal prometheus.Counter

	// InsightRequestsTotal counts insight computations by kind.
	InsightRequestsTotal *prometheus.CounterVec
}

// New creates and registers the API metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PredictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Number of sessions scored by the model",
		}),
		AlignmentFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alignment_failures_total",
			Help:      "Number of feature vectors that failed feature-list alignment",
		}),
		InsightRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insight_requests_total",
			Help:      "Number of insight computations served by kind",
		}, []string{"insight"}),
	}
	m.registry.MustRegister(
		m.PredictionsTotal,
		m.AlignmentFailuresTotal,
		m.InsightRequestsTotal,
	)
	return m
}

// Handler returns the /metrics endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
