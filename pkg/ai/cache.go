package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedEmbedder wraps an Embedder with an in-memory cache keyed by the
// provider version and a digest of the input text. Re-running a pipeline
// over an unchanged corpus then skips the provider entirely.
type CachedEmbedder struct {
	inner   Embedder
	version string
	cache   *cache.Cache
}

// NewCachedEmbedder creates a caching decorator around inner. The version
// string must change whenever the adapter, model or dimension changes, so
// stale vectors are never served across provider switches.
func NewCachedEmbedder(inner Embedder, version string, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner:   inner,
		version: version,
		cache:   cache.New(ttl, 2*ttl),
	}
}

func (c *CachedEmbedder) key(input []byte) string {
	sum := sha256.Sum256(input)
	return c.version + ":" + hex.EncodeToString(sum[:])
}

// GenerateEmbedding returns the cached vector for input when present and
// delegates to the inner embedder otherwise.
func (c *CachedEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	key := c.key(input)
	if hit, ok := c.cache.Get(key); ok {
		return hit.([]float32), nil
	}
	vec, err := c.inner.GenerateEmbedding(ctx, input)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, vec)
	return vec, nil
}

// GenerateEmbeddings serves cached inputs from memory and batches only the
// misses through to the inner embedder, preserving input order.
func (c *CachedEmbedder) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(inputs))
	missIdx := make([]int, 0, len(inputs))
	missInputs := make([][]byte, 0, len(inputs))

	for i, input := range inputs {
		if hit, ok := c.cache.Get(c.key(input)); ok {
			out[i] = hit.([]float32)
			continue
		}
		missIdx = append(missIdx, i)
		missInputs = append(missInputs, input)
	}
	if len(missInputs) == 0 {
		return out, nil
	}

	vecs, err := c.inner.GenerateEmbeddings(ctx, missInputs)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		idx := missIdx[j]
		out[idx] = vec
		c.cache.SetDefault(c.key(inputs[idx]), vec)
	}
	return out, nil
}
