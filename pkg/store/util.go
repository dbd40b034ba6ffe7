package store

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
)

// ChunkRange invokes fn over [start, end) windows of at most chunkSize
// items, stopping at the first error.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// GenerateEmbeddings embeds all inputs through the client in windows of
// batchSize, so arbitrarily large documents never exceed a provider's
// per-request limits.
func GenerateEmbeddings(
	ctx context.Context,
	client ai.Embedder,
	inputs [][]byte,
	batchSize int,
) ([][]float32, error) {
	if client == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(inputs))
	err := ChunkRange(len(inputs), batchSize, func(start, end int) error {
		vecs, err := client.GenerateEmbeddings(ctx, inputs[start:end])
		if err != nil {
			return err
		}
		if len(vecs) != end-start {
			return fmt.Errorf("embedding batch size mismatch: got %d want %d", len(vecs), end-start)
		}
		out = append(out, vecs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
