package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/internal/metrics"
	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"
	"github.com/OFFIS-RIT/atlas/backend/pkg/taxonomy"
)

// taxonomyStore is the slice of the storage surface a rebuild touches.
type taxonomyStore interface {
	store.VectorIndex
	store.TaxonomyStorage
	store.ClaimStorage
}

// TaxonomyRunner rebuilds the cluster model from the persisted chunk
// vectors and swaps it into storage in one transaction.
type TaxonomyRunner struct {
	cfg     config.Config
	source  Source
	labeler ai.Labeler
	storage taxonomyStore
}

// NewTaxonomyRunner wires a TaxonomyRunner.
func NewTaxonomyRunner(cfg config.Config, source Source, labeler ai.Labeler, storage taxonomyStore) *TaxonomyRunner {
	return &TaxonomyRunner{
		cfg:     cfg,
		source:  source,
		labeler: labeler,
		storage: storage,
	}
}

// Run performs a full taxonomy rebuild and returns the build summary.
func (tr *TaxonomyRunner) Run(ctx context.Context) (taxonomy.RunSummary, error) {
	start := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues("taxonomy").Observe(time.Since(start).Seconds())
	}()

	vectors, err := tr.storage.ChunkVectors(ctx)
	if err != nil {
		return taxonomy.RunSummary{}, err
	}
	if len(vectors) == 0 {
		return taxonomy.RunSummary{}, fmt.Errorf("no chunk vectors stored, index the corpus first")
	}

	docs := tr.documentInfos(ctx, vectors)

	claims, err := tr.storage.ListActiveClaims(ctx)
	if err != nil {
		return taxonomy.RunSummary{}, err
	}

	clusters, papers, claimAssignments, summary, err := taxonomy.Build(
		ctx, vectors, docs, claims, tr.labeler,
		taxonomy.BuilderParams{
			KMin:            tr.cfg.ClusterKMin,
			KMax:            tr.cfg.ClusterKMax,
			AssignThreshold: tr.cfg.AssignThreshold,
			LabelSampleSize: tr.cfg.LabelSampleSize,
			LabelRetries:    labelRetries,
			Seed:            clusterSeed,
		},
	)
	if err != nil {
		return taxonomy.RunSummary{}, err
	}

	if err := tr.storage.ReplaceTaxonomy(ctx, clusters, papers, claimAssignments); err != nil {
		return summary, err
	}
	metrics.TaxonomyBuilds.Inc()

	logger.Info("[Pipeline][Taxonomy] Rebuild finished",
		"documents", summary.Documents,
		"clusters", len(clusters),
		"k", summary.ChosenK,
		"labelFallbacks", summary.LabelFallbacks,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return summary, nil
}

// documentInfos fetches title and excerpt for every document that has
// stored vectors. Documents that fail to load are left out; the labeler
// simply gets fewer samples for their clusters.
func (tr *TaxonomyRunner) documentInfos(ctx context.Context, vectors []store.ChunkVector) map[string]taxonomy.DocumentInfo {
	infos := make(map[string]taxonomy.DocumentInfo)
	for _, v := range vectors {
		if _, ok := infos[v.DocumentID]; ok {
			continue
		}
		doc, err := tr.source.GetDocument(ctx, v.DocumentID)
		if err != nil {
			logger.Warn("[Pipeline][Taxonomy] Document unavailable for labeling", "id", v.DocumentID, "err", err)
			continue
		}
		infos[v.DocumentID] = taxonomy.DocumentInfo{
			Title:   doc.Title,
			Excerpt: excerpt(doc.FullText(), ai.MaxLabelSampleChars),
		}
	}
	return infos
}

// excerpt truncates text to at most max runes.
func excerpt(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
