// Package dedupe resolves near-duplicate claims. Two claims are duplicate
// candidates when their embeddings are close AND their timestamps fall
// inside a shared window; candidate pairs are folded into groups with a
// union-find pass and each group keeps its highest-quality claim.
package dedupe

import (
	"sort"
	"time"

	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store/base"
)

// Params controls duplicate detection.
type Params struct {
	// Similarity is the minimum cosine similarity for a candidate pair.
	Similarity float64
	// Window is the maximum timestamp distance for a candidate pair.
	// High textual similarity outside the window is treated as
	// legitimate repetition, not duplication.
	Window time.Duration
}

// DetectDuplicates groups claims that are pairwise-connected through
// similar-and-close pairs. Groups and their members come back in a
// deterministic order; claims without a group are not returned.
func DetectDuplicates(claims []corpus.Claim, params Params) [][]corpus.Claim {
	if len(claims) < 2 {
		return nil
	}

	ordered := append([]corpus.Claim(nil), claims...)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		}
		return ordered[i].ID < ordered[j].ID
	})

	parent := make([]int, len(ordered))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			gap := ordered[j].Timestamp.Sub(ordered[i].Timestamp)
			if gap > params.Window {
				// ordered by timestamp, later claims are further away
				break
			}
			if base.Cosine(ordered[i].Embedding, ordered[j].Embedding) >= params.Similarity {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]corpus.Claim)
	for i := range ordered {
		root := find(i)
		byRoot[root] = append(byRoot[root], ordered[i])
	}

	roots := make([]int, 0, len(byRoot))
	for root, members := range byRoot {
		if len(members) > 1 {
			roots = append(roots, root)
		}
	}
	sort.Ints(roots)

	groups := make([][]corpus.Claim, 0, len(roots))
	for _, root := range roots {
		groups = append(groups, byRoot[root])
	}
	return groups
}

// Resolve picks the keeper of every group and links the rest to it. The
// returned links form a star per group, so the result is always a forest.
func Resolve(groups [][]corpus.Claim) []corpus.DuplicateLink {
	var links []corpus.DuplicateLink
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		keeper := pickKeeper(group)
		for _, c := range group {
			if c.ID == keeper.ID {
				continue
			}
			links = append(links, corpus.DuplicateLink{FromID: c.ID, ToID: keeper.ID})
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].FromID < links[j].FromID })
	return links
}

// Run detects and resolves duplicates in one step.
func Run(claims []corpus.Claim, params Params) []corpus.DuplicateLink {
	return Resolve(DetectDuplicates(claims, params))
}
