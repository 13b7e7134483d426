package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

// Metrics holds the pipeline counters for one run, on a dedicated registry.
type Metrics struct {
	Registry *prometheus.Registry

	RecordsParsed  prometheus.Counter
	CompilerCalls  prometheus.Counter
	EntriesTotal   *prometheus.CounterVec
	EntriesDropped *prometheus.CounterVec
	TraceFiles     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		RecordsParsed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "compdb",
				Name:      "records_parsed_total",
				Help:      "Total trace records decoded from trace files.",
			},
		),

		CompilerCalls: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "compdb",
				Name:      "compiler_calls_total",
				Help:      "Traced executions recognized as compiler invocations.",
			},
		),

		EntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "compdb",
				Name:      "entries_total",
				Help:      "Database entries synthesized, by invocation action.",
			},
			[]string{"action"},
		),

		EntriesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "compdb",
				Name:      "entries_dropped_total",
				Help:      "Entries dropped at merge time, by reason.",
			},
			[]string{"reason"},
		),

		TraceFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "compdb",
				Name:      "trace_files",
				Help:      "Trace files found in the trace directory.",
			},
		),
	}

	reg.MustRegister(
		m.RecordsParsed,
		m.CompilerCalls,
		m.EntriesTotal,
		m.EntriesDropped,
		m.TraceFiles,
	)

	return m
}

// RecordEntries records synthesized entries for one classified invocation.
func (m *Metrics) RecordEntries(action string, count int) {
	m.EntriesTotal.WithLabelValues(action).Add(float64(count))
}

// RecordDropped records entries removed during the merge phase.
func (m *Metrics) RecordDropped(reason string, count int) {
	m.EntriesDropped.WithLabelValues(reason).Add(float64(count))
}

// LogSummary gathers the registry and logs every non-zero counter once. A
// one-shot CLI has no scrape endpoint; this is its metrics export.
func (m *Metrics) LogSummary(logger zerolog.Logger) {
	families, err := m.Registry.Gather()
	if err != nil {
		logger.Warn().Err(err).Msg("gathering metrics failed")
		return
	}

	event := logger.Info()
	for _, family := range families {
		for _, metric := range family.Metric {
			name := family.GetName()
			for _, label := range metric.GetLabel() {
				name += "_" + label.GetValue()
			}
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				event = event.Float64(name, metric.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				event = event.Float64(name, metric.GetGauge().GetValue())
			}
		}
	}
	event.Msg("pipeline summary")
}
