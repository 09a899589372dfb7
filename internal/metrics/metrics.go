// Package metrics exposes run counters on a private Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fmarket_nav"

// Run results.
const (
	ResultSuccess       = "success"
	ResultExtractFailed = "extract_failed"
	ResultSinkFailed    = "sink_failed"
	ResultParseFailed   = "parse_failed"
)

type Metrics struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	rows          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	lastRun       prometheus.Gauge
	lastSuccess   prometheus.Gauge
	lastRowsFound prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scrape-and-sync runs by result.",
		}, []string{"result"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows handled by outcome (updated, appended, skipped).",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a run.",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last successful run finished.",
		}),
		lastRowsFound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_records",
			Help:      "Records normalized in the last run.",
		}),
	}

	m.registry.MustRegister(
		m.runs,
		m.rows,
		m.runDuration,
		m.lastRun,
		m.lastSuccess,
		m.lastRowsFound,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RunStats is one finished run as seen by the counters.
type RunStats struct {
	Result    string
	Records   int
	Updated   int
	Appended  int
	Skipped   int
	Seconds   float64
	Timestamp float64
}

func (m *Metrics) ObserveRun(s RunStats) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(s.Result).Inc()
	m.rows.WithLabelValues("updated").Add(float64(s.Updated))
	m.rows.WithLabelValues("appended").Add(float64(s.Appended))
	m.rows.WithLabelValues("skipped").Add(float64(s.Skipped))
	m.runDuration.Observe(s.Seconds)
	m.lastRun.Set(s.Timestamp)
	m.lastRowsFound.Set(float64(s.Records))
	if s.Result == ResultSuccess {
		m.lastSuccess.Set(s.Timestamp)
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
