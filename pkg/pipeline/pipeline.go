// Package pipeline orchestrates the three batch jobs: indexing documents
// into the vector store, rebuilding the topical taxonomy and resolving
// duplicate claims. Each job is a thin composition of the corpus, ai,
// taxonomy and dedupe packages over a store backend.
package pipeline

import (
	"context"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
)

const (
	// embedBatchSize bounds one embedding request. Providers cap both item
	// count and total payload per request.
	embedBatchSize = 64

	// indexWorkers bounds how many documents are chunked and embedded in
	// parallel.
	indexWorkers = 4

	// labelRetries is how often a failed cluster labeling call is retried
	// before the cluster falls back to a placeholder label.
	labelRetries = 2

	// clusterSeed fixes the mixture initialization so repeated builds over
	// the same corpus agree.
	clusterSeed = 1
)

// Source provides the ingested documents and extracted claims the
// pipelines consume.
type Source interface {
	ListDocumentIDs(ctx context.Context) ([]string, error)
	GetDocument(ctx context.Context, id string) (corpus.Document, error)
	ListClaims(ctx context.Context) ([]corpus.Claim, error)
}

// EmbedderStack decorates the provider client with the configured cache
// and rate limit. The cache is keyed by provider version, so switching
// providers never serves stale vectors.
func EmbedderStack(cfg config.Config, client ai.Embedder) ai.Embedder {
	embedder := client
	if cfg.EmbedCacheTTL > 0 {
		embedder = ai.NewCachedEmbedder(embedder, cfg.ProviderVersion(), cfg.EmbedCacheTTL)
	}
	if cfg.EmbedRPS > 0 {
		embedder = ai.NewRateLimitedEmbedder(embedder, cfg.EmbedRPS, int(cfg.EmbedRPS)+1)
	}
	return embedder
}
