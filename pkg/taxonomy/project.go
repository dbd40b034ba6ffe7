package taxonomy

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Project2D places each input vector on the unit square using classical
// multidimensional scaling over pairwise cosine distances. When the MDS
// eigenproblem degenerates the PCA projection of the raw vectors is used
// instead. Coordinates are normalized per axis to [0, 1].
func Project2D(vectors [][]float64) [][2]float64 {
	n := len(vectors)
	switch n {
	case 0:
		return nil
	case 1:
		return [][2]float64{{0.5, 0.5}}
	}

	coords := classicalMDS(vectors)
	if coords == nil {
		coords = pcaFallback(vectors)
	}
	return normalizeUnitSquare(coords)
}

// classicalMDS embeds the points via double centering of the squared
// distance matrix. Returns nil when fewer than two positive eigenvalues
// exist.
func classicalMDS(vectors [][]float64) [][2]float64 {
	n := len(vectors)

	sq := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			d := cosineDistance(vectors[i], vectors[j])
			sq.SetSym(i, j, d*d)
		}
	}

	// B = -1/2 * J * D^2 * J with J the centering matrix
	rowMean := make([]float64, n)
	total := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rowMean[i] += sq.At(i, j)
		}
		rowMean[i] /= float64(n)
		total += rowMean[i]
	}
	total /= float64(n)

	B := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			B.SetSym(i, j, -0.5*(sq.At(i, j)-rowMean[i]-rowMean[j]+total))
		}
	}

	var es mat.EigenSym
	if !es.Factorize(B, true) {
		return nil
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	// eigenvalues come back ascending; the two largest are at the end
	i1, i2 := n-1, n-2
	if vals[i1] <= 0 || vals[i2] <= 0 {
		return nil
	}

	s1, s2 := math.Sqrt(vals[i1]), math.Sqrt(vals[i2])
	out := make([][2]float64, n)
	for i := 0; i < n; i++ {
		out[i] = [2]float64{vecs.At(i, i1) * s1, vecs.At(i, i2) * s2}
	}
	return out
}

func pcaFallback(vectors [][]float64) [][2]float64 {
	reduced := reduceDims(vectors, 2)
	out := make([][2]float64, len(reduced))
	for i, row := range reduced {
		x, y := 0.0, 0.0
		if len(row) > 0 {
			x = row[0]
		}
		if len(row) > 1 {
			y = row[1]
		}
		out[i] = [2]float64{x, y}
	}
	return out
}

func normalizeUnitSquare(coords [][2]float64) [][2]float64 {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, c := range coords {
		minX, maxX = math.Min(minX, c[0]), math.Max(maxX, c[0])
		minY, maxY = math.Min(minY, c[1]), math.Max(maxY, c[1])
	}

	out := make([][2]float64, len(coords))
	for i, c := range coords {
		out[i] = [2]float64{normalizeAxis(c[0], minX, maxX), normalizeAxis(c[1], minY, maxY)}
	}
	return out
}

func normalizeAxis(v, lo, hi float64) float64 {
	if hi-lo < 1e-12 {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}
