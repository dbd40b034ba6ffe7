package taxonomy

import (
	"math"
)

// meanSilhouette computes the mean silhouette coefficient of a hard
// clustering over cosine distances. Points in singleton clusters score
// zero; fewer than two occupied clusters yields zero outright.
func meanSilhouette(X [][]float64, labels []int) float64 {
	n := len(X)
	if n == 0 || len(labels) != n {
		return 0
	}

	sizes := make(map[int]int)
	for _, l := range labels {
		sizes[l]++
	}
	if len(sizes) < 2 {
		return 0
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := cosineDistance(X[i], X[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	total := 0.0
	for i := 0; i < n; i++ {
		own := labels[i]
		if sizes[own] == 1 {
			continue
		}

		intra := 0.0
		inter := make(map[int]float64)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			if labels[j] == own {
				intra += dist[i][j]
			} else {
				inter[labels[j]] += dist[i][j]
			}
		}
		a := intra / float64(sizes[own]-1)

		b := math.Inf(1)
		for l, sum := range inter {
			if mean := sum / float64(sizes[l]); mean < b {
				b = mean
			}
		}

		if denom := math.Max(a, b); denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(n)
}

func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
