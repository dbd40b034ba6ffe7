package store

import (
	"context"
	"reflect"
	"testing"
)

func TestChunkRange(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		chunkSize int
		want      [][2]int
	}{
		{name: "empty", total: 0, chunkSize: 10, want: nil},
		{name: "single window", total: 5, chunkSize: 10, want: [][2]int{{0, 5}}},
		{name: "exact windows", total: 6, chunkSize: 3, want: [][2]int{{0, 3}, {3, 6}}},
		{name: "ragged tail", total: 7, chunkSize: 3, want: [][2]int{{0, 3}, {3, 6}, {6, 7}}},
		{name: "zero chunk size takes all", total: 4, chunkSize: 0, want: [][2]int{{0, 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][2]int
			err := ChunkRange(tt.total, tt.chunkSize, func(start, end int) error {
				got = append(got, [2]int{start, end})
				return nil
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

type staticEmbedder struct {
	batches int
}

func (e *staticEmbedder) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	out, err := e.GenerateEmbeddings(ctx, [][]byte{input})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *staticEmbedder) GenerateEmbeddings(_ context.Context, inputs [][]byte) ([][]float32, error) {
	e.batches++
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = []float32{float32(len(in))}
	}
	return out, nil
}

func TestGenerateEmbeddingsBatches(t *testing.T) {
	e := &staticEmbedder{}
	inputs := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc"), []byte("dddd"), []byte("e")}

	out, err := GenerateEmbeddings(context.Background(), e, inputs, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]float32{{1}, {2}, {3}, {4}, {1}}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %v, want %v", out, want)
	}
	if e.batches != 3 {
		t.Fatalf("expected 3 provider batches, got %d", e.batches)
	}
}

func TestGenerateEmbeddingsNilClient(t *testing.T) {
	if _, err := GenerateEmbeddings(context.Background(), nil, [][]byte{[]byte("x")}, 10); err == nil {
		t.Fatal("expected an error for nil client")
	}
}
