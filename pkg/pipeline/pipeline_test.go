package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store/base"
)

// fakeSource serves documents and claims from memory. Ids listed in
// broken fail on GetDocument.
type fakeSource struct {
	docs   map[string]corpus.Document
	claims []corpus.Claim
	broken map[string]bool
}

func (s *fakeSource) ListDocumentIDs(context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	for id := range s.broken {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *fakeSource) GetDocument(_ context.Context, id string) (corpus.Document, error) {
	if s.broken[id] {
		return corpus.Document{}, fmt.Errorf("object unreadable")
	}
	doc, ok := s.docs[id]
	if !ok {
		return corpus.Document{}, fmt.Errorf("no such document %s", id)
	}
	return doc, nil
}

func (s *fakeSource) ListClaims(context.Context) ([]corpus.Claim, error) {
	return s.claims, nil
}

// wordTokenizer counts whitespace-separated words, standing in for a real
// encoder.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int { return len(strings.Fields(text)) }

// hashEmbedder produces a deterministic 4-dim unit vector per input.
type hashEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *hashEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	vecs, err := e.GenerateEmbeddings(ctx, [][]byte{input})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *hashEmbedder) GenerateEmbeddings(_ context.Context, inputs [][]byte) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	out := make([][]float32, len(inputs))
	for i, input := range inputs {
		sum := 0
		for _, b := range input {
			sum += int(b)
		}
		vec := make([]float32, 4)
		vec[sum%4] = 1
		out[i] = vec
	}
	return out, nil
}

// memStorage is an in-memory store.Storage for pipeline tests.
type memStorage struct {
	mu       sync.Mutex
	echunks  map[string]store.EmbeddedChunk // by chunk id
	claims   map[string]corpus.Claim       // by claim id
	links    map[string]string             // from id -> to id
	version  string
	clusters []corpus.Cluster
	papers   []corpus.PaperAssignment
	claimAs  []corpus.ClaimAssignment
	replaced int
	cleared  int
}

func newMemStorage() *memStorage {
	return &memStorage{
		echunks: map[string]store.EmbeddedChunk{},
		claims:  map[string]corpus.Claim{},
		links:   map[string]string{},
	}
}

func (m *memStorage) Upsert(_ context.Context, chunks []store.EmbeddedChunk) (store.UpsertSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dim := 0
	for _, ec := range m.echunks {
		dim = len(ec.Embedding)
		break
	}
	valid, skipped, _ := store.ScreenChunks(chunks, dim)
	for _, ec := range valid {
		m.echunks[ec.Chunk.ID] = ec
	}
	return store.UpsertSummary{Inserted: len(valid), Skipped: skipped}, nil
}

func (m *memStorage) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.echunks = map[string]store.EmbeddedChunk{}
	m.cleared++
	return nil
}

// docChunks returns the stored chunks of one document in ordinal order.
func (m *memStorage) docChunks(documentID string) []corpus.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []corpus.Chunk
	for _, ec := range m.echunks {
		if ec.Chunk.DocumentID == documentID {
			out = append(out, ec.Chunk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out
}

func (m *memStorage) Search(context.Context, []float32, int, store.Filter) ([]store.SearchResult, error) {
	return nil, nil
}

func (m *memStorage) ChunkVectors(context.Context) ([]store.ChunkVector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.ChunkVector
	for _, ec := range m.echunks {
		out = append(out, store.ChunkVector{
			ChunkID:    ec.Chunk.ID,
			DocumentID: ec.Chunk.DocumentID,
			TokenCount: ec.Chunk.TokenCount,
			Embedding:  ec.Embedding,
		})
	}
	return out, nil
}

func (m *memStorage) Stats(context.Context) (store.IndexStats, error) {
	return store.IndexStats{}, nil
}

func (m *memStorage) ProviderVersion(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version, nil
}

func (m *memStorage) SetProviderVersion(_ context.Context, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = version
	return nil
}

func (m *memStorage) ReplaceTaxonomy(_ context.Context, clusters []corpus.Cluster, papers []corpus.PaperAssignment, claims []corpus.ClaimAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusters = clusters
	m.papers = papers
	m.claimAs = claims
	m.replaced++
	return nil
}

func (m *memStorage) ListClusters(context.Context) ([]corpus.Cluster, error) {
	return m.clusters, nil
}

func (m *memStorage) ListPaperAssignments(context.Context) ([]corpus.PaperAssignment, error) {
	return m.papers, nil
}

func (m *memStorage) SaveClaims(_ context.Context, claims []corpus.Claim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range claims {
		m.claims[c.ID] = c
	}
	return nil
}

func (m *memStorage) ListActiveClaims(context.Context) ([]corpus.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []corpus.Claim
	for id, c := range m.claims {
		if _, folded := m.links[id]; !folded {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStorage) ListDuplicateLinks(context.Context) ([]corpus.DuplicateLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []corpus.DuplicateLink
	for from, to := range m.links {
		out = append(out, corpus.DuplicateLink{FromID: from, ToID: to})
	}
	return out, nil
}

func (m *memStorage) MarkDuplicates(_ context.Context, links []corpus.DuplicateLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var existing []corpus.DuplicateLink
	for from, to := range m.links {
		existing = append(existing, corpus.DuplicateLink{FromID: from, ToID: to})
	}
	if err := base.ValidateLinks(existing, links); err != nil {
		return err
	}
	for _, l := range links {
		m.links[l.FromID] = l.ToID
	}
	return nil
}

func (m *memStorage) ResolveRoot(_ context.Context, claimID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var links []corpus.DuplicateLink
	for from, to := range m.links {
		links = append(links, corpus.DuplicateLink{FromID: from, ToID: to})
	}
	return base.ResolveLink(links, claimID)
}

func (m *memStorage) Close() {}

var (
	_ Source        = (*fakeSource)(nil)
	_ ai.Embedder   = (*hashEmbedder)(nil)
	_ store.Storage = (*memStorage)(nil)
)
