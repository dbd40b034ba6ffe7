package corpus

import "time"

// ChunkSchemaVersion tags persisted chunk metadata so downstream consumers
// can detect and migrate old records instead of guessing field presence.
const ChunkSchemaVersion = 2

// SourceType distinguishes the two ingested document kinds.
type SourceType string

const (
	SourceTypePaper      SourceType = "paper"
	SourceTypeTranscript SourceType = "transcript"
)

// Section is a contiguous, named part of a document's text. Chunk
// boundaries never cross a section boundary.
type Section struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
	Page    *int   `json:"page,omitempty"`
}

// Document is an ingested paper or interview transcript. Documents are
// created once per source and immutable afterwards except for metadata
// corrections.
type Document struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Text       string     `json:"text"`
	Sections   []Section  `json:"sections,omitempty"`
	SourceType SourceType `json:"source_type"`
	Authors    []string   `json:"authors,omitempty"`
	Year       *int       `json:"year,omitempty"`
	SourcePath string     `json:"source_path,omitempty"`
}

// ChunkMeta carries the source-level attributes persisted with every chunk,
// so a chunk is independently retrievable without re-reading its document.
type ChunkMeta struct {
	SchemaVersion int        `json:"schema_version"`
	SourceType    SourceType `json:"source_type"`
	Title         string     `json:"title"`
	Authors       []string   `json:"authors,omitempty"`
	Year          *int       `json:"year,omitempty"`
	SourcePath    string     `json:"source_path,omitempty"`
}

// Chunk is a token-bounded slice of a document's text, the unit of
// embedding and retrieval. Its id is derived from the document id and the
// ordinal so rebuilds are deterministic.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Section    string    `json:"section"`
	Ordinal    int       `json:"ordinal"`
	TokenCount int       `json:"token_count"`
	Page       *int      `json:"page,omitempty"`
	Text       string    `json:"text"`
	Meta       ChunkMeta `json:"meta"`
}

// Claim is a short assertion extracted from a document or transcript by an
// external process. It is consumed here only for its text, timestamp and
// embedding.
type Claim struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id,omitempty"`
	Text       string    `json:"text"`
	Distilled  string    `json:"distilled,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence"`
	Embedding  []float32 `json:"-"`
}

// Cluster is a topical group produced by the taxonomy builder. Clusters are
// fully replaced on each rebuild, never mutated incrementally.
type Cluster struct {
	ID           int       `json:"id"`
	Label        string    `json:"label"`
	Description  string    `json:"description"`
	Keywords     []string  `json:"keywords"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	PaperCount   int       `json:"paper_count"`
	PrimaryCount int       `json:"primary_count"`
	Centroid     []float32 `json:"-"`
}

// PaperAssignment is a soft document-to-cluster edge. For a fixed document
// at most one assignment is primary, and it is the one with maximal
// confidence.
type PaperAssignment struct {
	DocumentID string  `json:"document_id"`
	ClusterID  int     `json:"cluster_id"`
	Confidence float64 `json:"confidence"`
	Primary    bool    `json:"primary"`
}

// ClaimAssignment mirrors PaperAssignment for claims. Claim memberships are
// inherited from the source document, never recomputed.
type ClaimAssignment struct {
	ClaimID    string  `json:"claim_id"`
	ClusterID  int     `json:"cluster_id"`
	Confidence float64 `json:"confidence"`
}

// DuplicateLink folds a duplicate claim into the claim it was resolved to.
// The set of links forms a forest: no cycles, no self-loops, and following
// links always terminates at a claim with no outgoing link.
type DuplicateLink struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
}

// FullText returns the document text the chunker operates on. When sections
// are present they are authoritative; the flat text field is the fallback
// for sources that arrive unstructured.
func (d Document) FullText() string {
	if len(d.Sections) == 0 {
		return d.Text
	}
	var out string
	for i, s := range d.Sections {
		if i > 0 {
			out += "\n\n"
		}
		out += s.Text
	}
	return out
}

// Meta builds the chunk metadata record for this document.
func (d Document) Meta() ChunkMeta {
	return ChunkMeta{
		SchemaVersion: ChunkSchemaVersion,
		SourceType:    d.SourceType,
		Title:         d.Title,
		Authors:       d.Authors,
		Year:          d.Year,
		SourcePath:    d.SourcePath,
	}
}
