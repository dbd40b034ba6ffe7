package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
)

func dedupeConfig() config.Config {
	return config.Config{
		DedupeSimilarity: 0.95,
		DedupeWindow:     30 * time.Second,
	}
}

func TestDeduperRun(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	source := &fakeSource{
		claims: []corpus.Claim{
			{ID: "c1", Text: "the grid needs storage", Timestamp: at},
			{ID: "c2", Text: "the grid needs storage", Timestamp: at.Add(2 * time.Second), Confidence: 0.9},
			{ID: "c3", Text: "wind capacity doubled last year", Timestamp: at.Add(4 * time.Second)},
			{ID: "", Text: "claim without an id", Timestamp: at},
		},
	}
	storage := newMemStorage()

	summary, err := NewDeduper(dedupeConfig(), source, &hashEmbedder{}, storage).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.Ingested != 3 || summary.Invalid != 1 {
		t.Fatalf("unexpected ingestion counts: %+v", summary)
	}
	if summary.Folded != 1 {
		t.Fatalf("identical claims two seconds apart must fold: %+v", summary)
	}
	for id, c := range storage.claims {
		if len(c.Embedding) == 0 {
			t.Errorf("claim %s was saved without an embedding", id)
		}
	}

	// c2 wins on confidence, c1 resolves to it
	root, err := storage.ResolveRoot(context.Background(), "c1")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if root != "c2" {
		t.Fatalf("expected c1 to resolve to c2, got %s", root)
	}

	active, _ := storage.ListActiveClaims(context.Background())
	if len(active) != 2 {
		t.Fatalf("expected 2 active claims, got %d", len(active))
	}
}

func TestDeduperIdempotent(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	source := &fakeSource{
		claims: []corpus.Claim{
			{ID: "c1", Text: "repeated point", Timestamp: at},
			{ID: "c2", Text: "repeated point", Timestamp: at.Add(time.Second)},
		},
	}
	storage := newMemStorage()
	deduper := NewDeduper(dedupeConfig(), source, &hashEmbedder{}, storage)

	first, err := deduper.Run(context.Background())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if first.Folded != 1 {
		t.Fatalf("first run should fold one claim: %+v", first)
	}

	second, err := deduper.Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if second.Folded != 0 {
		t.Fatalf("rerun over unchanged input must fold nothing: %+v", second)
	}
	if second.Active != 1 {
		t.Fatalf("folded claim reappeared: %+v", second)
	}
}

func TestDeduperKeepsExistingEmbeddings(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	preset := []float32{0, 0, 1, 0}
	source := &fakeSource{
		claims: []corpus.Claim{
			{ID: "c1", Text: "already embedded", Timestamp: at, Embedding: preset},
		},
	}
	storage := newMemStorage()
	embedder := &hashEmbedder{}

	if _, err := NewDeduper(dedupeConfig(), source, embedder, storage).Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if embedder.calls != 0 {
		t.Fatalf("embedder must not be called for pre-embedded claims, got %d calls", embedder.calls)
	}
	if got := storage.claims["c1"].Embedding; len(got) != 4 || got[2] != 1 {
		t.Fatalf("stored embedding was replaced: %v", got)
	}
}
