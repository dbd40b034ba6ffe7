package util

import "testing"

func TestChunkID(t *testing.T) {
	tests := []struct {
		name       string
		documentID string
		ordinal    int
		want       string
	}{
		{
			name:       "first chunk",
			documentID: "doc1",
			ordinal:    0,
			want:       "doc1-0000",
		},
		{
			name:       "padded ordinal",
			documentID: "doc1",
			ordinal:    42,
			want:       "doc1-0042",
		},
		{
			name:       "large ordinal",
			documentID: "paper-x",
			ordinal:    12345,
			want:       "paper-x-12345",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChunkID(tt.documentID, tt.ordinal)
			if got != tt.want {
				t.Fatalf("unexpected chunk id: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestChunkIDDeterministic(t *testing.T) {
	a := ChunkID("doc", 7)
	b := ChunkID("doc", 7)
	if a != b {
		t.Fatalf("chunk ids differ between calls: %q vs %q", a, b)
	}
}
