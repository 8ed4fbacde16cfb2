package port

import "hybridrag/internal/domain"

// Chunker splits raw document text into ordered, overlapping chunks.
// Empty text yields an empty slice, not an error.
type Chunker interface {
	Chunk(docID, text string, meta map[string]string) ([]domain.Chunk, error)
}
