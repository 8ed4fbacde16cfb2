package port

import "context"

// LexicalHit is one ranked result from term-frequency search.
type LexicalHit struct {
	DocID   string
	ChunkID int
	Text    string
	Score   float64
}

// LexicalIndex scores chunks with a BM25-style function. It is mirrored
// from the same corpus the vector index holds, one entry per chunk.
type LexicalIndex interface {
	Index(ctx context.Context, docID string, chunkID int, text string) error
	Search(ctx context.Context, query string, topK int) ([]LexicalHit, error)
	Close() error
}
