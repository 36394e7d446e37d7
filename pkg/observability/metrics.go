package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "imgw_export"

// Metrics holds the Prometheus collectors for acquisition, parsing and export.
type Metrics struct {
	// Acquisition.
	FetchAttempts *prometheus.CounterVec // labels: outcome={success,error}
	FetchFailures prometheus.Counter
	FetchDuration prometheus.Histogram
	FetchBytes    prometheus.Counter

	// Normalization.
	TablesParsed prometheus.Counter
	RowsParsed   prometheus.Counter

	// Export.
	Exports     *prometheus.CounterVec // labels: layout={chunks,sheets}
	ExportBytes prometheus.Histogram

	// Source availability, 1 when the last HEAD check succeeded.
	SourceUp *prometheus.GaugeVec // labels: source
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchAttempts,
		m.FetchFailures,
		m.FetchDuration,
		m.FetchBytes,
		m.TablesParsed,
		m.RowsParsed,
		m.Exports,
		m.ExportBytes,
		m.SourceUp,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "HTTP GET attempts against the data host by outcome.",
		}, []string{"outcome"}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Fetches that failed after exhausting every retry.",
		}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a complete fetch including retries and backoff.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 180},
		}),
		FetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_bytes_total",
			Help:      "Payload bytes downloaded.",
		}),
		TablesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tables_parsed_total",
			Help:      "Tables produced from archival files or API responses.",
		}),
		RowsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "Rows in parsed tables before filtering.",
		}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Workbooks written by sheet layout.",
		}, []string{"layout"}),
		ExportBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_bytes",
			Help:      "Size of exported workbooks in bytes.",
			Buckets:   prometheus.ExponentialBuckets(4096, 4, 10),
		}),
		SourceUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "source_up",
			Help:      "1 when the source base URL answered the last availability check.",
		}, []string{"source"}),
	}
}
