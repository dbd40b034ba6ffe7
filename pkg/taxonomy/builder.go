package taxonomy

import (
	"context"
	"fmt"
	"sort"

	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"
)

// reducedDim caps the working dimensionality of the clustering. Document
// counts in the low hundreds give EM far too few points for the raw
// embedding dimension, so vectors are PCA-reduced first.
const reducedDim = 32

// BuilderParams configures a taxonomy build.
type BuilderParams struct {
	KMin            int
	KMax            int
	AssignThreshold float64
	LabelSampleSize int
	LabelRetries    int
	Seed            int64
}

// DocumentInfo carries the displayable attributes of a document used for
// labeling samples.
type DocumentInfo struct {
	Title   string
	Excerpt string
}

// RunSummary reports what a build did.
type RunSummary struct {
	Documents      int
	ChosenK        int
	Candidates     []Candidate
	LabelFallbacks int
}

// Build computes the full cluster model: aggregated document vectors are
// clustered with a Gaussian mixture (component count chosen by BIC and
// silhouette), soft assignments are cut at the configured threshold,
// centroids are projected to 2D and clusters are labeled. Claims inherit
// the memberships of their source documents.
func Build(
	ctx context.Context,
	chunks []store.ChunkVector,
	docs map[string]DocumentInfo,
	claims []corpus.Claim,
	labeler ai.Labeler,
	params BuilderParams,
) ([]corpus.Cluster, []corpus.PaperAssignment, []corpus.ClaimAssignment, RunSummary, error) {
	docVecs := AggregateDocuments(chunks)
	n := len(docVecs)
	if n < 3 {
		return nil, nil, nil, RunSummary{}, fmt.Errorf("need at least 3 embedded documents, have %d", n)
	}

	X := make([][]float64, n)
	for i, dv := range docVecs {
		X[i] = dv.Vector
	}

	r := min(len(X[0]), min(n-1, reducedDim))
	Xr := reduceDims(X, r)

	model, candidates, err := SelectModel(Xr, params.KMin, params.KMax, params.Seed)
	if err != nil {
		return nil, nil, nil, RunSummary{}, err
	}
	logger.Info("[Taxonomy][Build] Selected component count", "k", model.k, "documents", n)

	// soft assignments per component
	members := make([][]membership, model.k)
	for i := range Xr {
		resp := model.responsibilities(Xr[i])
		best := 0
		for j, rj := range resp {
			if rj > resp[best] {
				best = j
			}
		}
		for j, rj := range resp {
			if j != best && rj < params.AssignThreshold {
				continue
			}
			members[j] = append(members[j], membership{
				docIdx:     i,
				confidence: rj,
				primary:    j == best,
			})
		}
	}

	// empty components are dropped and the rest renumbered densely
	kept := make([]int, 0, model.k)
	for j := 0; j < model.k; j++ {
		if len(members[j]) > 0 {
			kept = append(kept, j)
		}
	}

	keptMeans := make([][]float64, len(kept))
	for i, j := range kept {
		keptMeans[i] = model.means[j]
	}
	positions := Project2D(keptMeans)

	var (
		clusters    []corpus.Cluster
		assignments []corpus.PaperAssignment
		labelInputs []LabelInput
	)
	for clusterID, j := range kept {
		cluster := corpus.Cluster{
			ID: clusterID,
			X:  positions[clusterID][0],
			Y:  positions[clusterID][1],
		}

		centroid := make([]float64, len(X[0]))
		weight := 0.0
		for _, m := range members[j] {
			cluster.PaperCount++
			if m.primary {
				cluster.PrimaryCount++
			}
			for t, v := range X[m.docIdx] {
				centroid[t] += m.confidence * v
			}
			weight += m.confidence

			assignments = append(assignments, corpus.PaperAssignment{
				DocumentID: docVecs[m.docIdx].DocumentID,
				ClusterID:  clusterID,
				Confidence: m.confidence,
				Primary:    m.primary,
			})
		}
		cluster.Centroid = make([]float32, len(centroid))
		for t, v := range centroid {
			cluster.Centroid[t] = float32(v / weight)
		}

		labelInputs = append(labelInputs, LabelInput{
			ClusterID: clusterID,
			Samples:   labelSamples(members[j], docVecs, docs, params.LabelSampleSize),
		})
		clusters = append(clusters, cluster)
	}

	labels, fallbacks := LabelClusters(ctx, labeler, labelInputs, params.LabelRetries)
	for i := range clusters {
		label := labels[clusters[i].ID]
		clusters[i].Label = label.Label
		clusters[i].Description = label.Description
		clusters[i].Keywords = label.Keywords
	}

	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].DocumentID != assignments[j].DocumentID {
			return assignments[i].DocumentID < assignments[j].DocumentID
		}
		return assignments[i].ClusterID < assignments[j].ClusterID
	})

	claimAssignments := PropagateClaims(claims, assignments)

	summary := RunSummary{
		Documents:      n,
		ChosenK:        model.k,
		Candidates:     candidates,
		LabelFallbacks: fallbacks,
	}
	return clusters, assignments, claimAssignments, summary, nil
}

type membership struct {
	docIdx     int
	confidence float64
	primary    bool
}

// labelSamples picks the highest-confidence primary members (topped up
// with secondary members when needed) as labeling samples.
func labelSamples(
	members []membership,
	docVecs []DocVector,
	docs map[string]DocumentInfo,
	sampleSize int,
) []ai.LabelSample {
	if sampleSize <= 0 {
		sampleSize = 5
	}

	sorted := append([]membership(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].primary != sorted[j].primary {
			return sorted[i].primary
		}
		return sorted[i].confidence > sorted[j].confidence
	})

	var samples []ai.LabelSample
	for _, m := range sorted {
		if len(samples) >= sampleSize {
			break
		}
		info, ok := docs[docVecs[m.docIdx].DocumentID]
		if !ok {
			continue
		}
		samples = append(samples, ai.LabelSample{Title: info.Title, Excerpt: info.Excerpt})
	}
	return samples
}
