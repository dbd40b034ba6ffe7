package taxonomy

import (
	"fmt"
	"sort"
)

// Candidate records the quality scores of one fitted component count.
type Candidate struct {
	K          int
	BIC        float64
	Silhouette float64
}

// SelectModel fits a mixture for every k in [kMin, kMax], clamped so k
// never reaches the document count, and picks the winner by the summed
// rank of BIC (lower is better) and silhouette (higher is better).
// Silhouette is skipped below three clusters. Ties go to the smaller k.
func SelectModel(X [][]float64, kMin, kMax int, seed int64) (*gmmModel, []Candidate, error) {
	n := len(X)
	if n < 3 {
		return nil, nil, fmt.Errorf("need at least 3 documents to cluster, have %d", n)
	}

	if kMin < 2 {
		kMin = 2
	}
	if kMax > n-1 {
		kMax = n - 1
	}
	if kMin > kMax {
		kMin = kMax
	}

	var (
		models []*gmmModel
		cands  []Candidate
	)
	for k := kMin; k <= kMax; k++ {
		model, err := fitGMM(X, k, seed)
		if err != nil {
			return nil, nil, fmt.Errorf("fit k=%d: %w", k, err)
		}
		cand := Candidate{K: k, BIC: model.bic(n)}
		// silhouette needs at least three clusters to say anything useful
		if k >= 3 {
			cand.Silhouette = meanSilhouette(X, hardLabels(model, X))
		}
		models = append(models, model)
		cands = append(cands, cand)
	}

	ranks := make([]float64, len(cands))
	addRanks(ranks, cands, func(c Candidate) float64 { return c.BIC }, true)
	addSilhouetteRanks(ranks, cands)

	best := 0
	for i := 1; i < len(cands); i++ {
		if ranks[i] < ranks[best] {
			best = i
		}
	}
	return models[best], cands, nil
}

func hardLabels(m *gmmModel, X [][]float64) []int {
	labels := make([]int, len(X))
	for i, x := range X {
		resp := m.responsibilities(x)
		best := 0
		for j, r := range resp {
			if r > resp[best] {
				best = j
			}
		}
		labels[i] = best
	}
	return labels
}

// addRanks accumulates the rank of each candidate under one score into
// ranks. Candidates are ordered ascending when lowerBetter, descending
// otherwise; equal-k order keeps ties stable toward fewer clusters.
func addRanks[T any](ranks []float64, items []T, score func(T) float64, lowerBetter bool) {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := score(items[order[a]]), score(items[order[b]])
		if lowerBetter {
			return sa < sb
		}
		return sa > sb
	})
	for rank, idx := range order {
		ranks[idx] += float64(rank)
	}
}

// addSilhouetteRanks ranks candidates with at least three clusters by
// silhouette, higher first. Smaller candidates take the pass's average
// rank, so among them only BIC decides.
func addSilhouetteRanks(ranks []float64, cands []Candidate) {
	var eligible []int
	for i, c := range cands {
		if c.K >= 3 {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return
	}

	sort.SliceStable(eligible, func(a, b int) bool {
		return cands[eligible[a]].Silhouette > cands[eligible[b]].Silhouette
	})
	for rank, idx := range eligible {
		ranks[idx] += float64(rank)
	}

	neutral := float64(len(eligible)-1) / 2
	for i, c := range cands {
		if c.K < 3 {
			ranks[i] += neutral
		}
	}
}
