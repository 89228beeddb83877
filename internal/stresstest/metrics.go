package stresstest

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes used as metric labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure" // completed with a status other than 200
	OutcomeError   = "error"   // transport error or task panic
)

// Metrics collects run metrics in a private Prometheus registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight *prometheus.GaugeVec
	CleanupsTotal    *prometheus.CounterVec
}

// NewMetrics creates the metric set on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apiharness",
			Name:      "requests_total",
			Help:      "Requests executed by scenario and outcome.",
		}, []string{"scenario", "outcome"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "apiharness",
			Name:      "request_duration_seconds",
			Help:      "Duration of successful requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"scenario"}),
		RequestsInFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "apiharness",
			Name:      "requests_in_flight",
			Help:      "Requests currently executing.",
		}, []string{"scenario"}),
		CleanupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apiharness",
			Name:      "cleanup_deletes_total",
			Help:      "Cleanup deletions by scenario and result.",
		}, []string{"scenario", "result"}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format, suitable
// for the node exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func (m *Metrics) inFlight(scenario string, delta float64) {
	if m == nil {
		return
	}
	m.RequestsInFlight.WithLabelValues(scenario).Add(delta)
}

func (m *Metrics) observe(scenario string, r *RequestResult) {
	if m == nil {
		return
	}

	outcome := OutcomeSuccess
	switch {
	case r.Error != nil && r.StatusCode == 0:
		outcome = OutcomeError
	case !r.Succeeded():
		outcome = OutcomeFailure
	}
	m.RequestsTotal.WithLabelValues(scenario, outcome).Inc()

	if outcome == OutcomeSuccess {
		m.RequestDuration.WithLabelValues(scenario).Observe(r.Duration.Seconds())
	}
}

func (m *Metrics) observeCleanup(scenario string, ok bool) {
	if m == nil {
		return
	}
	result := "deleted"
	if !ok {
		result = "failed"
	}
	m.CleanupsTotal.WithLabelValues(scenario, result).Inc()
}
