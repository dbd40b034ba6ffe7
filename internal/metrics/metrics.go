// Package metrics exposes Prometheus counters for the pipeline jobs and a
// small HTTP server to scrape them.
package metrics

import (
	"net/http"
	"time"

	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DocumentsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_documents_indexed_total",
		Help: "Documents successfully chunked, embedded and stored.",
	})
	DocumentsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_documents_failed_total",
		Help: "Documents skipped by the indexer after an error.",
	})
	ChunksIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_chunks_indexed_total",
		Help: "Chunks written to the vector index.",
	})
	TaxonomyBuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_taxonomy_builds_total",
		Help: "Completed taxonomy rebuilds.",
	})
	ClaimsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "atlas_claims_deduplicated_total",
		Help: "Claims folded into another claim by the resolver.",
	})
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atlas_job_duration_seconds",
		Help:    "Wall-clock duration of pipeline jobs.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"job"})
)

// Serve exposes /metrics on addr. It never returns unless the listener
// fails, so callers run it in its own goroutine.
func Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("[Metrics][Serve] Metrics listener failed", "addr", addr, "err", err)
	}
}
