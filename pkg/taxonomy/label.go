package taxonomy

import (
	"context"
	"sync"

	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const labelConcurrency = 4

// LabelInput is the labeling request for one cluster.
type LabelInput struct {
	ClusterID int
	Samples   []ai.LabelSample
}

// LabelClusters names every cluster concurrently. Labeling never fails the
// build: a cluster whose request errors out (or that has no samples) gets
// the deterministic placeholder label instead. The second return value is
// the number of placeholders used.
func LabelClusters(
	ctx context.Context,
	labeler ai.Labeler,
	inputs []LabelInput,
	maxTries int,
) (map[int]ai.ClusterLabel, int) {
	labels := make(map[int]ai.ClusterLabel, len(inputs))
	fallbacks := 0

	var mu sync.Mutex
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(labelConcurrency)

	for _, input := range inputs {
		in := input
		eg.Go(func() error {
			var (
				label *ai.ClusterLabel
				err   error
			)
			if labeler != nil && len(in.Samples) > 0 {
				label, err = ai.CallLabelAI(ectx, labeler, in.Samples, maxTries)
			}

			mu.Lock()
			defer mu.Unlock()
			if label == nil {
				if err != nil {
					logger.Warn("[Taxonomy][LabelClusters] Falling back to placeholder",
						"cluster", in.ClusterID, "err", err)
				}
				labels[in.ClusterID] = ai.PlaceholderLabel(in.ClusterID)
				fallbacks++
				return nil
			}
			labels[in.ClusterID] = *label
			return nil
		})
	}
	// workers only report via the shared map
	_ = eg.Wait()

	return labels, fallbacks
}
