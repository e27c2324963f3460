// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for acquisition and ingestion.
type Metrics struct {
	// IngestFiles counts scanned files by outcome (matched, unmatched, error).
	IngestFiles *prometheus.CounterVec

	// IngestMatches counts matched files by strategy (DOI, ID, exact_ID).
	IngestMatches *prometheus.CounterVec

	// IngestPasses counts completed ingestion passes.
	IngestPasses prometheus.Counter

	// IngestDuration observes ingestion pass duration in seconds.
	IngestDuration prometheus.Histogram

	// StatusTransitions counts papers moved into pdf_acquired by ingestion.
	StatusTransitions prometheus.Counter

	// AcquisitionListPapers is the size of the last generated acquisition list.
	AcquisitionListPapers prometheus.Gauge

	// FetchDownloads counts open-access downloads by result (downloaded, skipped, failed).
	FetchDownloads *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg under namespace.
// Pass a fresh prometheus.NewRegistry() in tests to avoid duplicate
// registration.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		IngestFiles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Files scanned by ingestion, by outcome.",
		}, []string{"outcome"}),
		IngestMatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "matches_total",
			Help:      "Files matched to papers, by matching strategy.",
		}, []string{"strategy"}),
		IngestPasses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "passes_total",
			Help:      "Completed ingestion passes.",
		}),
		IngestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Ingestion pass duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		StatusTransitions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "pdf_acquired_total",
			Help:      "Papers advanced from awaiting_pdf to pdf_acquired.",
		}),
		AcquisitionListPapers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "acquisition",
			Name:      "list_papers",
			Help:      "Papers in the most recently generated acquisition list.",
		}),
		FetchDownloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "downloads_total",
			Help:      "Open-access PDF downloads, by result.",
		}, []string{"result"}),
	}
}

// NewNopMetrics returns metrics registered on a private registry, for
// callers that do not expose them.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry(), "litreview")
}
