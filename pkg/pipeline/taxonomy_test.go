package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"
)

// stubLabeler answers every labeling request with a fixed valid label.
type stubLabeler struct {
	calls int
}

func (s *stubLabeler) GenerateCompletionWithFormat(
	_ context.Context,
	_ string,
	_ string,
	_ string,
	out any,
	_ ...ai.GenerateOption,
) error {
	s.calls++
	label := out.(*ai.ClusterLabel)
	label.Label = "Topic"
	label.Description = "A test topic."
	label.Keywords = []string{"one", "two", "three"}
	return nil
}

func taxonomyConfig() config.Config {
	return config.Config{
		ClusterKMin:     2,
		ClusterKMax:     4,
		AssignThreshold: 0.1,
		LabelSampleSize: 3,
	}
}

// seedGroups stores three well-separated groups of three documents each,
// using 4-dim basis vectors.
func seedGroups(storage *memStorage) *fakeSource {
	source := &fakeSource{docs: map[string]corpus.Document{}}
	groups := []string{"a", "b", "c"}
	for g, name := range groups {
		for i := 0; i < 3; i++ {
			id := fmt.Sprintf("%s%d", name, i)
			vec := make([]float32, 4)
			vec[g] = 1
			vec[3] = float32(i) * 0.01
			storage.echunks[id+"-0000"] = store.EmbeddedChunk{
				Chunk: corpus.Chunk{
					ID:         id + "-0000",
					DocumentID: id,
					TokenCount: 10,
					Text:       "text of " + id,
				},
				Embedding: vec,
			}
			source.docs[id] = corpus.Document{
				ID:    id,
				Title: "Title " + id,
				Text:  "Full text of document " + id,
			}
		}
	}
	return source
}

func TestTaxonomyRunnerRun(t *testing.T) {
	storage := newMemStorage()
	source := seedGroups(storage)
	storage.claims["claim1"] = corpus.Claim{ID: "claim1", DocumentID: "a0", Text: "claim text"}

	labeler := &stubLabeler{}
	summary, err := NewTaxonomyRunner(taxonomyConfig(), source, labeler, storage).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.Documents != 9 {
		t.Fatalf("expected 9 documents, got %d", summary.Documents)
	}
	if summary.ChosenK != 3 {
		t.Fatalf("expected 3 components for 3 groups, got %d", summary.ChosenK)
	}
	if storage.replaced != 1 {
		t.Fatalf("taxonomy was not replaced exactly once: %d", storage.replaced)
	}
	if len(storage.clusters) != 3 {
		t.Fatalf("expected 3 stored clusters, got %d", len(storage.clusters))
	}
	for _, c := range storage.clusters {
		if c.Label != "Topic" {
			t.Errorf("cluster %d missing its label: %+v", c.ID, c)
		}
	}

	primaries := map[string]int{}
	for _, p := range storage.papers {
		if p.Primary {
			primaries[p.DocumentID]++
		}
	}
	if len(primaries) != 9 {
		t.Fatalf("every document needs a primary assignment, got %d", len(primaries))
	}

	if len(storage.claimAs) == 0 {
		t.Fatal("claim assignments were not propagated")
	}
	for _, ca := range storage.claimAs {
		if ca.ClaimID != "claim1" {
			t.Errorf("unexpected claim assignment: %+v", ca)
		}
	}
	if labeler.calls == 0 {
		t.Fatal("labeler was never consulted")
	}
}

func TestTaxonomyRunnerEmptyIndex(t *testing.T) {
	storage := newMemStorage()
	source := &fakeSource{docs: map[string]corpus.Document{}}

	if _, err := NewTaxonomyRunner(taxonomyConfig(), source, &stubLabeler{}, storage).Run(context.Background()); err == nil {
		t.Fatal("expected an error for an empty index")
	}
}

func TestTaxonomyRunnerSurvivesMissingDocuments(t *testing.T) {
	storage := newMemStorage()
	source := seedGroups(storage)
	// document text is gone but its vectors remain; labeling just has
	// fewer samples
	delete(source.docs, "a0")
	source.broken = map[string]bool{"a0": true}

	summary, err := NewTaxonomyRunner(taxonomyConfig(), source, &stubLabeler{}, storage).Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if summary.Documents != 9 {
		t.Fatalf("vectors without source text must still cluster: %+v", summary)
	}
}
