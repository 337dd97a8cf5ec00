package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run outcomes used as the "result" label of RunsTotal.
const (
	ResultDone         = "done"
	ResultFailed       = "failed"
	ResultInsufficient = "insufficient"
)

// Metrics holds the collectors of the analysis pipeline.
type Metrics struct {
	RecordsIngested prometheus.Counter
	MalformedRows   prometheus.Counter
	DefaultedFields prometheus.Counter
	RunsTotal       *prometheus.CounterVec
	WriterErrors    *prometheus.CounterVec
	Addresses       prometheus.Gauge
	Qualified       prometheus.Gauge
	RunDuration     prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg falls
// back to the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		RecordsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowspectra_records_ingested_total",
			Help: "Flow records parsed from input files.",
		}),
		MalformedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowspectra_malformed_rows_total",
			Help: "Input rows skipped because they could not be parsed.",
		}),
		DefaultedFields: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowspectra_defaulted_fields_total",
			Help: "Missing or invalid fields replaced by 0.",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowspectra_runs_total",
			Help: "Analysis runs by outcome.",
		}, []string{"result"}),
		WriterErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flowspectra_writer_errors_total",
			Help: "Payloads a writer failed to deliver.",
		}, []string{"writer"}),
		Addresses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowspectra_addresses",
			Help: "Distinct addresses seen by the last run.",
		}),
		Qualified: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowspectra_qualified_addresses",
			Help: "Destinations that passed the threshold in the last run.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flowspectra_run_duration_seconds",
			Help:    "Wall time of a complete analysis run.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	reg.MustRegister(
		m.RecordsIngested,
		m.MalformedRows,
		m.DefaultedFields,
		m.RunsTotal,
		m.WriterErrors,
		m.Addresses,
		m.Qualified,
		m.RunDuration,
	)
	return m
}

// ObserveRun records the outcome and duration of a run started at start.
func (m *Metrics) ObserveRun(result string, start time.Time) {
	m.RunsTotal.WithLabelValues(result).Inc()
	m.RunDuration.Observe(time.Since(start).Seconds())
}
