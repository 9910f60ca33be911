package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of one pipeline run
type Metrics struct {
	registry     *prometheus.Registry
	stepDuration *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	rows         *prometheus.CounterVec
	lastSuccess  prometheus.Gauge
}

// New creates collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conflict_pipeline_step_duration_seconds",
			Help:    "Duration of pipeline steps",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"step"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conflict_pipeline_steps_total",
			Help: "Pipeline steps by outcome",
		}, []string{"step", "status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conflict_pipeline_rows_edited_total",
			Help: "Attribute rows edited by the record cleaner",
		}, []string{"field", "action"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conflict_pipeline_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run",
		}),
	}
	m.registry.MustRegister(m.stepDuration, m.steps, m.rows, m.lastSuccess)
	return m
}

// ObserveStep records one finished step
func (m *Metrics) ObserveStep(step, status string, seconds float64) {
	m.stepDuration.WithLabelValues(step).Observe(seconds)
	m.steps.WithLabelValues(step, status).Inc()
}

// AddRows counts edited rows
func (m *Metrics) AddRows(field, action string, n int) {
	if n <= 0 {
		return
	}
	m.rows.WithLabelValues(field, action).Add(float64(n))
}

// MarkSuccess stamps the run as successful
func (m *Metrics) MarkSuccess() {
	m.lastSuccess.SetToCurrentTime()
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the node-exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
