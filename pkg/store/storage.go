package store

import (
	"context"

	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
)

// Backend names reported by Stats.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Filter restricts retrieval to chunks whose source attributes match every
// set field. The zero value matches everything.
type Filter struct {
	SourceType corpus.SourceType
	DocumentID string
	Year       *int
}

// SearchResult pairs a retrieved chunk with its cosine similarity to the
// query embedding.
type SearchResult struct {
	Chunk corpus.Chunk
	Score float64
}

// EmbeddedChunk is a chunk together with its embedding, the unit the index
// ingests.
type EmbeddedChunk struct {
	Chunk     corpus.Chunk
	Embedding []float32
}

// UpsertSummary reports what an Upsert call did. Skipped counts chunks
// whose embedding was missing or did not match the index dimension.
type UpsertSummary struct {
	Inserted int
	Skipped  int
}

// ChunkVector is the embedding view of a persisted chunk, used by the
// taxonomy builder to aggregate document vectors.
type ChunkVector struct {
	ChunkID    string
	DocumentID string
	TokenCount int
	Embedding  []float32
}

// IndexStats summarizes the persisted index state.
type IndexStats struct {
	Chunks          int
	Documents       int
	Claims          int
	ActiveClaims    int
	Clusters        int
	Dimension       int
	Backend         string
	ProviderVersion string
}

// VectorIndex persists embedded chunks and serves similarity queries. The
// refresh path is destructive: Clear followed by a bulk Upsert. There is no
// per-document delete primitive.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []EmbeddedChunk) (UpsertSummary, error)
	Clear(ctx context.Context) error
	Search(ctx context.Context, embedding []float32, limit int, filter Filter) ([]SearchResult, error)
	ChunkVectors(ctx context.Context) ([]ChunkVector, error)
	Stats(ctx context.Context) (IndexStats, error)

	ProviderVersion(ctx context.Context) (string, error)
	SetProviderVersion(ctx context.Context, version string) error
}

// TaxonomyStorage persists the cluster model. ReplaceTaxonomy swaps the
// whole taxonomy in one transaction; readers never observe a mix of two
// builds.
type TaxonomyStorage interface {
	ReplaceTaxonomy(
		ctx context.Context,
		clusters []corpus.Cluster,
		papers []corpus.PaperAssignment,
		claims []corpus.ClaimAssignment,
	) error
	ListClusters(ctx context.Context) ([]corpus.Cluster, error)
	ListPaperAssignments(ctx context.Context) ([]corpus.PaperAssignment, error)
}

// ClaimStorage persists claims and their duplicate links. Links always form
// a forest; MarkDuplicates rejects writes that would introduce a cycle or a
// second outgoing link for a claim.
type ClaimStorage interface {
	SaveClaims(ctx context.Context, claims []corpus.Claim) error
	ListActiveClaims(ctx context.Context) ([]corpus.Claim, error)
	ListDuplicateLinks(ctx context.Context) ([]corpus.DuplicateLink, error)
	MarkDuplicates(ctx context.Context, links []corpus.DuplicateLink) error
	ResolveRoot(ctx context.Context, claimID string) (string, error)
}

// Storage is the full persistence surface of a backend.
type Storage interface {
	VectorIndex
	TaxonomyStorage
	ClaimStorage

	Close()
}

// ScreenChunks splits a batch into the chunks an index can ingest and a
// skipped count. dim is the dimension of the existing index; when zero, the
// first non-empty embedding sets it. Returns the effective dimension.
func ScreenChunks(chunks []EmbeddedChunk, dim int) ([]EmbeddedChunk, int, int) {
	valid := make([]EmbeddedChunk, 0, len(chunks))
	skipped := 0
	for _, ec := range chunks {
		if len(ec.Embedding) == 0 {
			skipped++
			continue
		}
		if dim == 0 {
			dim = len(ec.Embedding)
		}
		if len(ec.Embedding) != dim {
			skipped++
			continue
		}
		valid = append(valid, ec)
	}
	return valid, skipped, dim
}
