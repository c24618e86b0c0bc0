package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the kyb-watch service.
type Metrics struct {
	SnapshotFindings     *prometheus.GaugeVec
	SnapshotWarnings     *prometheus.GaugeVec
	SkippedRecordsTotal  prometheus.Counter
	RefreshTotal         *prometheus.CounterVec
	SnapshotRecords      prometheus.Gauge
	SnapshotGeneration   prometheus.Gauge
	CacheHits            prometheus.Counter
	CacheMisses          prometheus.Counter
	OnboardingTotal      *prometheus.CounterVec
	FileStoreActiveBytes prometheus.Gauge
}

// New initializes the metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SnapshotFindings: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kyb_watch",
			Subsystem: "risk",
			Name:      "snapshot_findings",
			Help:      "Number of risk findings in the current snapshot, by severity.",
		}, []string{"severity"}), // severity: INFO, LOW, HIGH
		SnapshotWarnings: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "kyb_watch",
			Subsystem: "risk",
			Name:      "snapshot_coercion_warnings",
			Help:      "Number of delta fields in the current snapshot that could not be read as numbers.",
		}, []string{"field"}),
		SkippedRecordsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "kyb_watch",
			Subsystem: "snapshot",
			Name:      "skipped_records_total",
			Help:      "Total number of malformed records excluded from snapshots.",
		}),
		RefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyb_watch",
			Subsystem: "snapshot",
			Name:      "refresh_total",
			Help:      "Total number of snapshot refreshes, by status.",
		}, []string{"status"}), // status: committed, stale, error
		SnapshotRecords: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "kyb_watch",
			Subsystem: "snapshot",
			Name:      "records",
			Help:      "Number of valid records in the current snapshot.",
		}),
		SnapshotGeneration: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "kyb_watch",
			Subsystem: "snapshot",
			Name:      "generation",
			Help:      "Generation of the current snapshot.",
		}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "kyb_watch",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of batch cache hits.",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "kyb_watch",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of batch cache misses.",
		}),
		OnboardingTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kyb_watch",
			Subsystem: "onboarding",
			Name:      "requests_total",
			Help:      "Total number of onboarding requests, by status.",
		}, []string{"status"}), // status: created, error_url, error_rate, error_summarizer, error_store
		FileStoreActiveBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "kyb_watch",
			Subsystem: "file_store",
			Name:      "bytes",
			Help:      "Bytes currently held by the file-backed log store.",
		}),
	}
}
