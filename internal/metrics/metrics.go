package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/felixgeelhaar/apidrift/internal/diff"
	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/errors"
)

// Metrics holds the Prometheus metrics of one apidrift process.
type Metrics struct {
	// Run metrics
	Runs          *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	StageDuration *prometheus.HistogramVec

	// Input metrics
	SamplesRead       prometheus.Counter
	EndpointsAnalyzed prometheus.Gauge

	// Result metrics
	Findings      *prometheus.GaugeVec
	FindingsTotal *prometheus.CounterVec
	Changes       *prometheus.CounterVec
	ComparedRuns  prometheus.Gauge

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// Run modes.
const (
	ModeSingle  = "single"
	ModeTracked = "tracked"
)

// Run outcomes.
const (
	OutcomeClean = "clean"
	OutcomeDrift = "drift"
	OutcomeError = "error"
)

// NewMetrics creates and registers every metric on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apidrift_runs_total",
				Help: "Total number of drift checks",
			},
			[]string{"mode", "outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apidrift_run_duration_seconds",
				Help:    "Drift check duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"mode"},
		),
		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apidrift_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),

		SamplesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "apidrift_samples_read_total",
				Help: "Total number of traffic samples read",
			},
		),
		EndpointsAnalyzed: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "apidrift_endpoints_analyzed",
				Help: "Endpoints observed in the last check",
			},
		),

		Findings: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "apidrift_findings",
				Help: "Findings reported by the last check",
			},
			[]string{"type", "severity"},
		),
		FindingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apidrift_findings_total",
				Help: "Total number of findings reported",
			},
			[]string{"type", "severity"},
		),
		Changes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apidrift_changes_total",
				Help: "Total number of change events against the previous run",
			},
			[]string{"change_type"},
		),
		ComparedRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "apidrift_compared_runs",
				Help: "Historical runs consulted by the last tracked check",
			},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "apidrift_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code", "component"},
		),
	}
}

// RecordReport records the size and findings of a single-run report.
func (m *Metrics) RecordReport(r *drift.Report) {
	m.EndpointsAnalyzed.Set(float64(r.EndpointsAnalyzed))
	m.Findings.Reset()
	for _, f := range r.Findings {
		m.Findings.WithLabelValues(string(f.Type), string(f.Severity)).Inc()
		m.FindingsTotal.WithLabelValues(string(f.Type), string(f.Severity)).Inc()
	}
}

// RecordChanges counts change events by type.
func (m *Metrics) RecordChanges(changes []diff.ChangeEvent) {
	for t, n := range diff.Counts(changes) {
		m.Changes.WithLabelValues(string(t)).Add(float64(n))
	}
}

// ObserveStage records how long one pipeline stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts a finished check.
func (m *Metrics) RecordRun(mode, outcome string, d time.Duration) {
	m.Runs.WithLabelValues(mode, outcome).Inc()
	m.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// RecordError counts err by its code, or "unknown" for uncoded errors.
func (m *Metrics) RecordError(err error, component string) {
	if err == nil {
		return
	}
	code := "unknown"
	if c, ok := errors.CodeOf(err); ok {
		code = string(c)
	}
	m.Errors.WithLabelValues(code, component).Inc()
}
