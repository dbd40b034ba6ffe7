package taxonomy

import (
	"fmt"
	"math"
	"math/rand"
)

const (
	gmmMaxIterations = 200
	gmmTolerance     = 1e-6
	varianceFloor    = 1e-6
)

// gmmModel is a diagonal-covariance Gaussian mixture fitted with EM.
type gmmModel struct {
	k         int
	dim       int
	weights   []float64
	means     [][]float64
	variances [][]float64
	logLik    float64
}

// fitGMM fits a k-component mixture to the row vectors of X. Means are
// seeded with k-means++ from a fixed source, so the same inputs always
// produce the same model.
func fitGMM(X [][]float64, k int, seed int64) (*gmmModel, error) {
	n := len(X)
	if n == 0 {
		return nil, fmt.Errorf("no vectors to cluster")
	}
	if k < 1 || k > n {
		return nil, fmt.Errorf("component count %d out of range for %d vectors", k, n)
	}
	d := len(X[0])

	rng := rand.New(rand.NewSource(seed))
	m := &gmmModel{
		k:         k,
		dim:       d,
		weights:   make([]float64, k),
		means:     seedMeans(X, k, rng),
		variances: make([][]float64, k),
	}
	globalVar := globalVariance(X)
	for j := 0; j < k; j++ {
		m.weights[j] = 1 / float64(k)
		m.variances[j] = append([]float64(nil), globalVar...)
	}

	resp := make([][]float64, n)
	for i := range resp {
		resp[i] = make([]float64, k)
	}

	prev := math.Inf(-1)
	for iter := 0; iter < gmmMaxIterations; iter++ {
		// E-step
		logLik := 0.0
		for i, x := range X {
			logs := make([]float64, k)
			for j := 0; j < k; j++ {
				logs[j] = math.Log(m.weights[j]) + m.logGaussian(x, j)
			}
			lse := logSumExp(logs)
			logLik += lse
			for j := 0; j < k; j++ {
				resp[i][j] = math.Exp(logs[j] - lse)
			}
		}
		m.logLik = logLik

		// M-step
		for j := 0; j < k; j++ {
			nj := 0.0
			for i := 0; i < n; i++ {
				nj += resp[i][j]
			}
			if nj < 1e-12 {
				// dead component: reseed on the worst-covered point
				m.means[j] = append([]float64(nil), X[worstCovered(X, resp)]...)
				m.variances[j] = append([]float64(nil), globalVar...)
				m.weights[j] = 1 / float64(n)
				continue
			}
			m.weights[j] = nj / float64(n)

			mean := make([]float64, d)
			for i := 0; i < n; i++ {
				for t := 0; t < d; t++ {
					mean[t] += resp[i][j] * X[i][t]
				}
			}
			for t := 0; t < d; t++ {
				mean[t] /= nj
			}
			m.means[j] = mean

			variance := make([]float64, d)
			for i := 0; i < n; i++ {
				for t := 0; t < d; t++ {
					diff := X[i][t] - mean[t]
					variance[t] += resp[i][j] * diff * diff
				}
			}
			for t := 0; t < d; t++ {
				variance[t] = math.Max(variance[t]/nj, varianceFloor)
			}
			m.variances[j] = variance
		}

		if math.Abs(m.logLik-prev) < gmmTolerance*math.Abs(m.logLik) {
			break
		}
		prev = m.logLik
	}

	return m, nil
}

// responsibilities returns the posterior membership of x over all
// components.
func (m *gmmModel) responsibilities(x []float64) []float64 {
	logs := make([]float64, m.k)
	for j := 0; j < m.k; j++ {
		logs[j] = math.Log(m.weights[j]) + m.logGaussian(x, j)
	}
	lse := logSumExp(logs)
	out := make([]float64, m.k)
	for j := range out {
		out[j] = math.Exp(logs[j] - lse)
	}
	return out
}

// bic is the Bayesian information criterion of the fitted model; lower is
// better.
func (m *gmmModel) bic(n int) float64 {
	params := float64(m.k*2*m.dim + m.k - 1)
	return -2*m.logLik + params*math.Log(float64(n))
}

func (m *gmmModel) logGaussian(x []float64, j int) float64 {
	sum := 0.0
	for t := 0; t < m.dim; t++ {
		v := m.variances[j][t]
		diff := x[t] - m.means[j][t]
		sum += math.Log(2*math.Pi*v) + diff*diff/v
	}
	return -0.5 * sum
}

// seedMeans picks k initial means with the k-means++ scheme: the first
// uniformly, the rest proportional to squared distance from the nearest
// chosen mean.
func seedMeans(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	means := make([][]float64, 0, k)
	means = append(means, append([]float64(nil), X[rng.Intn(n)]...))

	dists := make([]float64, n)
	for len(means) < k {
		total := 0.0
		for i, x := range X {
			best := math.Inf(1)
			for _, mu := range means {
				if d := sqDist(x, mu); d < best {
					best = d
				}
			}
			dists[i] = best
			total += best
		}
		if total == 0 {
			// all remaining points coincide with a mean
			means = append(means, append([]float64(nil), X[rng.Intn(n)]...))
			continue
		}
		target := rng.Float64() * total
		idx := 0
		for i, d := range dists {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		means = append(means, append([]float64(nil), X[idx]...))
	}
	return means
}

func globalVariance(X [][]float64) []float64 {
	n := len(X)
	d := len(X[0])
	mean := make([]float64, d)
	for _, x := range X {
		for t, v := range x {
			mean[t] += v
		}
	}
	for t := range mean {
		mean[t] /= float64(n)
	}
	variance := make([]float64, d)
	for _, x := range X {
		for t, v := range x {
			diff := v - mean[t]
			variance[t] += diff * diff
		}
	}
	for t := range variance {
		variance[t] = math.Max(variance[t]/float64(n), varianceFloor)
	}
	return variance
}

func worstCovered(X [][]float64, resp [][]float64) int {
	worst, worstCov := 0, math.Inf(1)
	for i := range X {
		best := 0.0
		for _, r := range resp[i] {
			if r > best {
				best = r
			}
		}
		if best < worstCov {
			worstCov = best
			worst = i
		}
	}
	return worst
}

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func logSumExp(logs []float64) float64 {
	maxLog := math.Inf(-1)
	for _, l := range logs {
		if l > maxLog {
			maxLog = l
		}
	}
	if math.IsInf(maxLog, -1) {
		return maxLog
	}
	sum := 0.0
	for _, l := range logs {
		sum += math.Exp(l - maxLog)
	}
	return maxLog + math.Log(sum)
}
