package dedupe

import (
	"strings"

	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
)

// qualityScore rates how much a claim is worth keeping. A distilled
// version dominates everything else, a resolvable source document beats
// extraction confidence, and confidence separates otherwise equal claims.
func qualityScore(c corpus.Claim) float64 {
	score := 0.0
	if strings.TrimSpace(c.Distilled) != "" {
		score += 100
	}
	if c.DocumentID != "" {
		score += 25
	}
	score += c.Confidence * 10
	return score
}

// pickKeeper returns the group member every other member will resolve to.
// Score decides; ties fall through to longer raw text and finally to the
// lexicographically smaller id, so the choice is always deterministic.
func pickKeeper(group []corpus.Claim) corpus.Claim {
	keeper := group[0]
	for _, c := range group[1:] {
		ks, cs := qualityScore(keeper), qualityScore(c)
		switch {
		case cs > ks:
			keeper = c
		case cs == ks && len(c.Text) > len(keeper.Text):
			keeper = c
		case cs == ks && len(c.Text) == len(keeper.Text) && c.ID < keeper.ID:
			keeper = c
		}
	}
	return keeper
}
