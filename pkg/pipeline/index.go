package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/internal/metrics"
	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"

	"golang.org/x/sync/errgroup"
)

// IndexSummary reports what one indexing run did. Skipped counts chunks
// the index refused because their embedding was missing or mis-sized.
type IndexSummary struct {
	Documents int
	Chunks    int
	Empty     int
	Failed    int
	Skipped   int
}

// Indexer rebuilds the vector index from the source corpus. Each run
// chunks and embeds every document in parallel, then swaps the index in
// one destructive pass: Clear followed by a bulk Upsert. Failing documents
// are skipped and counted so one bad upload never blocks the rest of the
// corpus.
type Indexer struct {
	cfg      config.Config
	source   Source
	embedder ai.Embedder
	index    store.VectorIndex
	tok      corpus.Tokenizer
}

// NewIndexer builds an Indexer, instantiating the tokenizer for the
// configured encoding.
func NewIndexer(cfg config.Config, source Source, embedder ai.Embedder, index store.VectorIndex) (*Indexer, error) {
	tok, err := corpus.NewTiktokenTokenizer(cfg.ChunkEncoder)
	if err != nil {
		return nil, err
	}
	return &Indexer{
		cfg:      cfg,
		source:   source,
		embedder: embedder,
		index:    index,
		tok:      tok,
	}, nil
}

// Run rebuilds the index from every document the source lists. When the
// stored provider version differs from the configured one the run is
// refused unless force is set, because vectors from different providers
// must never share an index. All embedding work completes before the
// first write; a run that dies mid-embed leaves the old index untouched.
func (ix *Indexer) Run(ctx context.Context, force bool) (IndexSummary, error) {
	start := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues("index").Observe(time.Since(start).Seconds())
	}()

	version := ix.cfg.ProviderVersion()
	stored, err := ix.index.ProviderVersion(ctx)
	if err != nil {
		return IndexSummary{}, err
	}
	if stored != "" && stored != version && !force {
		return IndexSummary{}, fmt.Errorf(
			"index holds vectors from provider %s but %s is configured; a full rebuild is required",
			stored, version,
		)
	}

	ids, err := ix.source.ListDocumentIDs(ctx)
	if err != nil {
		return IndexSummary{}, err
	}
	logger.Info("[Pipeline][Index] Starting run", "documents", len(ids), "provider", version)

	var (
		mu      sync.Mutex
		summary IndexSummary
		batch   []store.EmbeddedChunk
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexWorkers)

	for _, id := range ids {
		g.Go(func() error {
			chunks, err := ix.embedDocument(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
				metrics.DocumentsFailed.Inc()
				logger.Error("[Pipeline][Index] Skipping document", "id", id, "err", err)
			case len(chunks) == 0:
				summary.Empty++
			default:
				summary.Documents++
				summary.Chunks += len(chunks)
				batch = append(batch, chunks...)
				metrics.DocumentsIndexed.Inc()
				metrics.ChunksIndexed.Add(float64(len(chunks)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if ctx.Err() != nil {
		return summary, ctx.Err()
	}

	if err := ix.index.Clear(ctx); err != nil {
		return summary, err
	}
	upserted, err := ix.index.Upsert(ctx, batch)
	if err != nil {
		return summary, err
	}
	summary.Chunks = upserted.Inserted
	summary.Skipped = upserted.Skipped

	if err := ix.index.SetProviderVersion(ctx, version); err != nil {
		return summary, err
	}

	logger.Info("[Pipeline][Index] Run finished",
		"indexed", summary.Documents,
		"chunks", summary.Chunks,
		"empty", summary.Empty,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return summary, nil
}

// embedDocument chunks and embeds a single document and returns the
// embedded chunks ready for upsert.
func (ix *Indexer) embedDocument(ctx context.Context, id string) ([]store.EmbeddedChunk, error) {
	doc, err := ix.source.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	chunks, err := corpus.ChunkDocument(doc, corpus.ChunkOptions{
		TargetTokens:  ix.cfg.ChunkTargetTokens,
		OverlapTokens: ix.cfg.ChunkOverlapTokens,
		Tokenizer:     ix.tok,
	})
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	inputs := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		inputs[i] = []byte(chunk.Text)
	}
	embeddings, err := store.GenerateEmbeddings(ctx, ix.embedder, inputs, embedBatchSize)
	if err != nil {
		return nil, fmt.Errorf("embed document %s: %w", doc.ID, err)
	}

	out := make([]store.EmbeddedChunk, len(chunks))
	for i, chunk := range chunks {
		out[i] = store.EmbeddedChunk{Chunk: chunk, Embedding: embeddings[i]}
	}
	logger.Debug("[Pipeline][Index] Document embedded", "id", doc.ID, "chunks", len(chunks))
	return out, nil
}
