package taxonomy

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
)

// scriptedLabeler answers every labeling request with a label derived from
// the prompt so tests can tell clusters apart.
type scriptedLabeler struct {
	calls int
	fail  bool
}

func (s *scriptedLabeler) GenerateCompletionWithFormat(
	_ context.Context,
	_ string,
	_ string,
	prompt string,
	out any,
	_ ...ai.GenerateOption,
) error {
	s.calls++
	if s.fail {
		return context.DeadlineExceeded
	}
	label := out.(*ai.ClusterLabel)
	label.Label = "Topic"
	label.Description = "A test topic."
	label.Keywords = []string{"one", "two", "three"}
	if strings.Contains(prompt, "Title a") {
		label.Label = "Topic A"
	}
	return nil
}

func buildDocs() map[string]DocumentInfo {
	docs := make(map[string]DocumentInfo)
	for _, g := range []string{"a", "b", "c"} {
		for i := 0; i < 3; i++ {
			id := g + string(rune('0'+i))
			docs[id] = DocumentInfo{Title: "Title " + id, Excerpt: "Excerpt for " + id}
		}
	}
	return docs
}

func defaultParams() BuilderParams {
	return BuilderParams{
		KMin:            2,
		KMax:            4,
		AssignThreshold: 0.1,
		LabelSampleSize: 3,
		LabelRetries:    2,
		Seed:            1,
	}
}

func TestBuild(t *testing.T) {
	chunks := threeGroups(3)
	claims := []corpus.Claim{
		{ID: "claim1", DocumentID: "a0", Timestamp: time.Now()},
		{ID: "claim2", DocumentID: "zz-unknown", Timestamp: time.Now()},
	}
	labeler := &scriptedLabeler{}

	clusters, papers, claimAssignments, summary, err := Build(
		context.Background(), chunks, buildDocs(), claims, labeler, defaultParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if summary.Documents != 9 {
		t.Fatalf("expected 9 documents, got %d", summary.Documents)
	}
	if summary.ChosenK != 3 {
		t.Fatalf("expected 3 clusters for 3 separated groups, got %d", summary.ChosenK)
	}
	if len(clusters) != 3 {
		t.Fatalf("expected 3 clusters, got %d", len(clusters))
	}
	if summary.LabelFallbacks != 0 {
		t.Fatalf("unexpected label fallbacks: %d", summary.LabelFallbacks)
	}

	for _, c := range clusters {
		if c.Label == "" || len(c.Keywords) != 3 {
			t.Fatalf("cluster %d not labeled: %+v", c.ID, c)
		}
		if c.X < 0 || c.X > 1 || c.Y < 0 || c.Y > 1 {
			t.Fatalf("cluster %d position out of the unit square: (%v, %v)", c.ID, c.X, c.Y)
		}
		if c.PaperCount < c.PrimaryCount || c.PrimaryCount == 0 {
			t.Fatalf("cluster %d has inconsistent counts: %+v", c.ID, c)
		}
		if len(c.Centroid) != 4 {
			t.Fatalf("centroid must live in the embedding space, got dim %d", len(c.Centroid))
		}
	}

	primaries := make(map[string]int)
	for _, p := range papers {
		if p.Confidence <= 0 || p.Confidence > 1 {
			t.Fatalf("confidence out of range: %+v", p)
		}
		if p.Primary {
			primaries[p.DocumentID]++
		}
	}
	if len(primaries) != 9 {
		t.Fatalf("every document needs a primary cluster, got %d", len(primaries))
	}
	for id, count := range primaries {
		if count != 1 {
			t.Fatalf("document %s has %d primary assignments", id, count)
		}
	}

	for _, ca := range claimAssignments {
		if ca.ClaimID != "claim1" {
			t.Fatalf("claim without a known document must not be assigned: %+v", ca)
		}
	}
	if len(claimAssignments) == 0 {
		t.Fatal("claim1 must inherit its document's clusters")
	}
}

func TestBuildLabelerFailureFallsBack(t *testing.T) {
	clusters, _, _, summary, err := Build(
		context.Background(), threeGroups(3), buildDocs(), nil,
		&scriptedLabeler{fail: true}, defaultParams())
	if err != nil {
		t.Fatalf("build must survive labeler failure: %v", err)
	}
	if summary.LabelFallbacks != len(clusters) {
		t.Fatalf("expected placeholder labels for all clusters, got %d of %d",
			summary.LabelFallbacks, len(clusters))
	}
	for _, c := range clusters {
		if !strings.HasPrefix(c.Label, "Cluster ") {
			t.Fatalf("expected placeholder label, got %q", c.Label)
		}
	}
}

func TestBuildTooFewDocuments(t *testing.T) {
	chunks := threeGroups(3)[:2]
	if _, _, _, _, err := Build(
		context.Background(), chunks, buildDocs(), nil, &scriptedLabeler{}, defaultParams()); err == nil {
		t.Fatal("expected an error for fewer than 3 documents")
	}
}

func TestBuildDeterministic(t *testing.T) {
	chunks := threeGroups(3)
	labeler := &scriptedLabeler{}

	first, firstPapers, _, _, err := Build(
		context.Background(), chunks, buildDocs(), nil, labeler, defaultParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, secondPapers, _, _, err := Build(
		context.Background(), chunks, buildDocs(), nil, labeler, defaultParams())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if len(first) != len(second) || len(firstPapers) != len(secondPapers) {
		t.Fatalf("runs disagree on sizes: %d/%d clusters, %d/%d assignments",
			len(first), len(second), len(firstPapers), len(secondPapers))
	}
	for i := range firstPapers {
		if firstPapers[i] != secondPapers[i] {
			t.Fatalf("assignment %d differs between runs: %+v vs %+v",
				i, firstPapers[i], secondPapers[i])
		}
	}
}
