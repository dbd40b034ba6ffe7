package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
)

func indexConfig() config.Config {
	return config.Config{
		AIAdapter:          "openai",
		EmbedModel:         "test-embed",
		EmbedDim:           4,
		ChunkTargetTokens:  8,
		ChunkOverlapTokens: 2,
		ChunkEncoder:       "cl100k_base",
	}
}

func newTestIndexer(cfg config.Config, source Source, storage *memStorage) *Indexer {
	return &Indexer{
		cfg:      cfg,
		source:   source,
		embedder: &hashEmbedder{},
		index:    storage,
		tok:      wordTokenizer{},
	}
}

func TestIndexerRun(t *testing.T) {
	source := &fakeSource{
		docs: map[string]corpus.Document{
			"doc1": {
				ID:         "doc1",
				Title:      "Grid storage",
				Text:       strings.Repeat("grid storage balances load across regions. ", 6),
				SourceType: corpus.SourceTypePaper,
			},
			"doc2": {
				ID:         "doc2",
				Title:      "Empty upload",
				Text:       "   ",
				SourceType: corpus.SourceTypeTranscript,
			},
		},
		broken: map[string]bool{"doc3": true},
	}
	storage := newMemStorage()
	cfg := indexConfig()

	summary, err := newTestIndexer(cfg, source, storage).Run(context.Background(), false)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if summary.Documents != 1 || summary.Empty != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	stored := storage.docChunks("doc1")
	if summary.Chunks == 0 || len(stored) != summary.Chunks {
		t.Fatalf("stored chunks do not match summary: %+v, stored %d", summary, len(stored))
	}
	for i, chunk := range stored {
		if chunk.Ordinal != i || chunk.DocumentID != "doc1" {
			t.Errorf("chunk %d has wrong identity: %+v", i, chunk)
		}
	}
	if storage.cleared != 1 {
		t.Fatalf("rebuild must clear before writing, cleared %d times", storage.cleared)
	}
	if storage.version != cfg.ProviderVersion() {
		t.Fatalf("provider version not recorded: %q", storage.version)
	}
}

func TestIndexerProviderVersionGuard(t *testing.T) {
	source := &fakeSource{
		docs: map[string]corpus.Document{
			"doc1": {ID: "doc1", Text: "short text", SourceType: corpus.SourceTypePaper},
		},
	}
	storage := newMemStorage()
	storage.version = "ollama/nomic-embed-text/768"
	cfg := indexConfig()

	if _, err := newTestIndexer(cfg, source, storage).Run(context.Background(), false); err == nil {
		t.Fatal("expected a provider mismatch error")
	}

	summary, err := newTestIndexer(cfg, source, storage).Run(context.Background(), true)
	if err != nil {
		t.Fatalf("forced run failed: %v", err)
	}
	if summary.Documents != 1 {
		t.Fatalf("forced run skipped the document: %+v", summary)
	}
	if storage.version != cfg.ProviderVersion() {
		t.Fatalf("forced run must replace the stored version, got %q", storage.version)
	}
}

func TestIndexerRebuildDropsRemovedDocument(t *testing.T) {
	source := &fakeSource{
		docs: map[string]corpus.Document{
			"doc1": {ID: "doc1", Text: "some indexable text here", SourceType: corpus.SourceTypePaper},
			"doc2": {ID: "doc2", Text: "a second indexable document", SourceType: corpus.SourceTypePaper},
		},
	}
	storage := newMemStorage()
	cfg := indexConfig()
	ix := newTestIndexer(cfg, source, storage)

	if _, err := ix.Run(context.Background(), false); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if len(storage.docChunks("doc1")) == 0 {
		t.Fatal("first run stored no chunks")
	}

	delete(source.docs, "doc1")
	summary, err := ix.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if summary.Documents != 1 {
		t.Fatalf("unexpected summary after rebuild: %+v", summary)
	}
	if got := storage.docChunks("doc1"); len(got) != 0 {
		t.Fatalf("stale chunks survived the rebuild: %d", len(got))
	}
	if len(storage.docChunks("doc2")) == 0 {
		t.Fatal("rebuild lost the remaining document")
	}
}
