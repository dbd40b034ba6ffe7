package taxonomy

import (
	"sort"

	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
)

// PropagateClaims inherits cluster memberships from each claim's source
// document. Claim confidences are copied from the document assignment;
// claims without a linked document, or whose document has no assignments,
// get none. Claim vectors are never re-clustered.
func PropagateClaims(
	claims []corpus.Claim,
	papers []corpus.PaperAssignment,
) []corpus.ClaimAssignment {
	byDoc := make(map[string][]corpus.PaperAssignment)
	for _, p := range papers {
		byDoc[p.DocumentID] = append(byDoc[p.DocumentID], p)
	}

	var out []corpus.ClaimAssignment
	for _, claim := range claims {
		for _, p := range byDoc[claim.DocumentID] {
			out = append(out, corpus.ClaimAssignment{
				ClaimID:    claim.ID,
				ClusterID:  p.ClusterID,
				Confidence: p.Confidence,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClaimID != out[j].ClaimID {
			return out[i].ClaimID < out[j].ClaimID
		}
		return out[i].ClusterID < out[j].ClusterID
	})
	return out
}
