package util

import "fmt"

// ChunkID derives the stable identifier of a chunk from its owning document
// and ordinal. Derived ids keep index rebuilds deterministic.
func ChunkID(documentID string, ordinal int) string {
	return fmt.Sprintf("%s-%04d", documentID, ordinal)
}
