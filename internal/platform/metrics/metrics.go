package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	RequestLatency      *prometheus.HistogramVec
	AreasSubmitted      prometheus.Counter
	AreasDeactivated    prometheus.Counter
	ActivitiesSubmitted prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sdep_gateway_request_duration_seconds",
			Help:    "HTTP request latency by route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		AreasSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdep_gateway_areas_submitted_total",
			Help: "Total number of area submissions accepted",
		}),
		AreasDeactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdep_gateway_areas_deactivated_total",
			Help: "Total number of areas deactivated",
		}),
		ActivitiesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sdep_gateway_activities_submitted_total",
			Help: "Total number of activity submissions accepted",
		}),
	}
}

// All methods tolerate a nil receiver so tests can run without touching the
// process-wide Prometheus registry.

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(route, method, status).Observe(seconds)
}

// IncrementAreasSubmitted increments the accepted area submissions counter by 1.
func (m *Metrics) IncrementAreasSubmitted() {
	if m == nil {
		return
	}
	m.AreasSubmitted.Inc()
}

// IncrementAreasDeactivated increments the deactivated areas counter by 1.
func (m *Metrics) IncrementAreasDeactivated() {
	if m == nil {
		return
	}
	m.AreasDeactivated.Inc()
}

// IncrementActivitiesSubmitted increments the accepted activity submissions counter by 1.
func (m *Metrics) IncrementActivitiesSubmitted() {
	if m == nil {
		return
	}
	m.ActivitiesSubmitted.Inc()
}
