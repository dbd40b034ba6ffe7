package taxonomy

import (
	"gonum.org/v1/gonum/mat"
)

// reduceDims centers the row vectors of X and projects them onto their top
// r principal components. When r is not below the current dimension (or the
// factorization fails) the centered data is returned unchanged.
func reduceDims(X [][]float64, r int) [][]float64 {
	n := len(X)
	if n == 0 {
		return nil
	}
	d := len(X[0])
	if r <= 0 || r >= d {
		return center(X)
	}

	centered := center(X)
	data := make([]float64, 0, n*d)
	for _, row := range centered {
		data = append(data, row...)
	}
	M := mat.NewDense(n, d, data)

	var svd mat.SVD
	if !svd.Factorize(M, mat.SVDThin) {
		return centered
	}
	var v mat.Dense
	svd.VTo(&v)
	if v.RawMatrix().Cols < r {
		return centered
	}

	var projected mat.Dense
	projected.Mul(M, v.Slice(0, d, 0, r))

	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, r)
		mat.Row(row, i, &projected)
		out[i] = row
	}
	return out
}

func center(X [][]float64) [][]float64 {
	n := len(X)
	if n == 0 {
		return nil
	}
	d := len(X[0])
	mean := make([]float64, d)
	for _, row := range X {
		for i, v := range row {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float64(n)
	}

	out := make([][]float64, n)
	for i, row := range X {
		c := make([]float64, d)
		for j, v := range row {
			c[j] = v - mean[j]
		}
		out[i] = c
	}
	return out
}
