// Package taxonomy builds the soft topical cluster model over the corpus:
// document vectors are aggregated from chunk embeddings, clustered with a
// Gaussian mixture, projected to 2D for display and labeled by a model.
package taxonomy

import (
	"sort"

	"github.com/OFFIS-RIT/atlas/backend/pkg/store"
)

// DocVector is the aggregated embedding of one document.
type DocVector struct {
	DocumentID string
	Vector     []float64
}

// AggregateDocuments builds one vector per document as the token-weighted
// mean of its chunk embeddings. Chunks with a zero token count still
// contribute with weight one. Output order is deterministic (by id).
func AggregateDocuments(chunks []store.ChunkVector) []DocVector {
	type acc struct {
		sum    []float64
		weight float64
	}
	byDoc := make(map[string]*acc)

	for _, cv := range chunks {
		if len(cv.Embedding) == 0 {
			continue
		}
		a, ok := byDoc[cv.DocumentID]
		if !ok {
			a = &acc{sum: make([]float64, len(cv.Embedding))}
			byDoc[cv.DocumentID] = a
		}
		if len(a.sum) != len(cv.Embedding) {
			continue
		}
		w := float64(cv.TokenCount)
		if w <= 0 {
			w = 1
		}
		for i, v := range cv.Embedding {
			a.sum[i] += w * float64(v)
		}
		a.weight += w
	}

	out := make([]DocVector, 0, len(byDoc))
	for id, a := range byDoc {
		vec := make([]float64, len(a.sum))
		for i, v := range a.sum {
			vec[i] = v / a.weight
		}
		out = append(out, DocVector{DocumentID: id, Vector: vec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentID < out[j].DocumentID })
	return out
}
