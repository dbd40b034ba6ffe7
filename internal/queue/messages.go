package queue

// IndexJob triggers a full indexing run. Force allows re-embedding the
// corpus under a changed provider configuration.
type IndexJob struct {
	Force  bool   `json:"force,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// TaxonomyJob triggers a taxonomy rebuild.
type TaxonomyJob struct {
	Reason string `json:"reason,omitempty"`
}

// DedupeJob triggers claim ingestion and duplicate resolution.
type DedupeJob struct {
	Reason string `json:"reason,omitempty"`
}
