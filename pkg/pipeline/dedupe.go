package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/internal/metrics"
	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/dedupe"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"
)

// DedupeSummary reports what one resolver run did.
type DedupeSummary struct {
	Ingested int
	Invalid  int
	Active   int
	Folded   int
}

// Deduper ingests extracted claims, embeds the new ones and folds
// near-duplicates within the configured time window.
type Deduper struct {
	cfg      config.Config
	source   Source
	embedder ai.Embedder
	claims   store.ClaimStorage
}

// NewDeduper wires a Deduper.
func NewDeduper(cfg config.Config, source Source, embedder ai.Embedder, claims store.ClaimStorage) *Deduper {
	return &Deduper{
		cfg:      cfg,
		source:   source,
		embedder: embedder,
		claims:   claims,
	}
}

// Run ingests claims from the source and resolves duplicates among all
// active claims. Resolution is idempotent: already-folded claims stay
// folded and a rerun over unchanged input produces no new links.
func (d *Deduper) Run(ctx context.Context) (DedupeSummary, error) {
	start := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues("dedupe").Observe(time.Since(start).Seconds())
	}()

	var summary DedupeSummary

	incoming, err := d.source.ListClaims(ctx)
	if err != nil {
		return summary, err
	}
	valid := make([]corpus.Claim, 0, len(incoming))
	for _, c := range incoming {
		if c.ID == "" || strings.TrimSpace(c.Text) == "" {
			summary.Invalid++
			logger.Warn("[Pipeline][Dedupe] Dropping malformed claim", "id", c.ID)
			continue
		}
		valid = append(valid, c)
	}
	summary.Ingested = len(valid)

	if len(valid) > 0 {
		if err := d.embedClaims(ctx, valid); err != nil {
			return summary, err
		}
		if err := d.claims.SaveClaims(ctx, valid); err != nil {
			return summary, err
		}
	}

	active, err := d.claims.ListActiveClaims(ctx)
	if err != nil {
		return summary, err
	}
	summary.Active = len(active)

	links := dedupe.Run(active, dedupe.Params{
		Similarity: d.cfg.DedupeSimilarity,
		Window:     d.cfg.DedupeWindow,
	})
	if len(links) > 0 {
		if err := d.claims.MarkDuplicates(ctx, links); err != nil {
			return summary, err
		}
		metrics.ClaimsDeduplicated.Add(float64(len(links)))
	}
	summary.Folded = len(links)

	logger.Info("[Pipeline][Dedupe] Run finished",
		"ingested", summary.Ingested,
		"invalid", summary.Invalid,
		"active", summary.Active,
		"folded", summary.Folded,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return summary, nil
}

// embedClaims fills in missing claim embeddings. The distilled text is
// embedded when present because it is what downstream comparison sees.
func (d *Deduper) embedClaims(ctx context.Context, claims []corpus.Claim) error {
	var (
		missing []int
		inputs  [][]byte
	)
	for i, c := range claims {
		if len(c.Embedding) > 0 {
			continue
		}
		text := c.Text
		if strings.TrimSpace(c.Distilled) != "" {
			text = c.Distilled
		}
		missing = append(missing, i)
		inputs = append(inputs, []byte(text))
	}
	if len(missing) == 0 {
		return nil
	}

	vecs, err := store.GenerateEmbeddings(ctx, d.embedder, inputs, embedBatchSize)
	if err != nil {
		return err
	}
	for j, i := range missing {
		claims[i].Embedding = vecs[j]
	}
	return nil
}
