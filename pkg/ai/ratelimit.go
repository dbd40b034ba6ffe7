package ai

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedEmbedder wraps an Embedder with a token-bucket limiter so
// bulk reindexing cannot exhaust the provider's request quota. One token
// is consumed per provider request, not per input.
type RateLimitedEmbedder struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder allows up to rps requests per second with the
// given burst size.
func NewRateLimitedEmbedder(inner Embedder, rps float64, burst int) *RateLimitedEmbedder {
	return &RateLimitedEmbedder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimitedEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.GenerateEmbedding(ctx, input)
}

func (r *RateLimitedEmbedder) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.GenerateEmbeddings(ctx, inputs)
}
