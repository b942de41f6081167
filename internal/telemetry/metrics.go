// Package telemetry exports decision metrics through Prometheus and traces
// strategy invocations through OpenTelemetry.
package telemetry

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// Namespace prefixes every metric name.
const Namespace = "claimtriage"

// Metrics holds the collectors for one process. Each Metrics has its own
// registry so tests and repeated runs do not collide.
type Metrics struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	composite *prometheus.GaugeVec
	accuracy  *prometheus.GaugeVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decisions_total",
			Help:      "Decisions produced, by strategy and outcome.",
		}, []string{"strategy", "severity", "action", "success"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "decision_duration_seconds",
			Help:      "Time taken to decide one claim.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"strategy"}),
		composite: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "strategy_overall_score",
			Help:      "Composite score of the last evaluation, by strategy.",
		}, []string{"strategy"}),
		accuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "strategy_accuracy",
			Help:      "Accuracy of the last evaluation, by strategy and label dimension.",
		}, []string{"strategy", "dimension"}),
	}
	m.registry.MustRegister(m.decisions, m.duration, m.composite, m.accuracy)
	return m
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveDecision counts a decision and records its latency.
func (m *Metrics) ObserveDecision(d models.Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(d.Strategy, string(d.Severity), string(d.Action), strconv.FormatBool(d.Success)).Inc()
	m.duration.WithLabelValues(d.Strategy).Observe(float64(d.DurationMs) / 1000)
}

// ObserveResult records the headline scores of an evaluation.
func (m *Metrics) ObserveResult(r models.EvaluationResult) {
	if m == nil {
		return
	}
	m.composite.WithLabelValues(r.Strategy).Set(r.Composite)
	m.accuracy.WithLabelValues(r.Strategy, "severity").Set(r.Severity.Accuracy)
	m.accuracy.WithLabelValues(r.Strategy, "action").Set(r.Action.Accuracy)
}

// WriteTextfile writes every metric in the Prometheus text format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
