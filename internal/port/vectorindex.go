package port

import "context"

// VectorRecord is the persisted row shape of the vector index. The store
// assigns the primary key; doc_id/chunk_id/vector/meta must be preserved for
// compatibility with alternate backends.
type VectorRecord struct {
	DocID   string
	ChunkID int
	Vector  []float32
	Meta    map[string]string
}

// VectorHit is one ranked search result. Score is a similarity under the
// collection's metric; higher is better.
type VectorHit struct {
	ID      string
	DocID   string
	ChunkID int
	Text    string
	Meta    map[string]string
	Score   float64
}

// VectorHealth reports backend reachability.
type VectorHealth struct {
	Reachable        bool
	CollectionExists bool
	Version          string
}

// VectorIndex is the thin client contract over an external ANN store.
// Insert is batch-atomic: a batch either fully commits or fails whole.
// Some backends require Flush before newly inserted vectors are searchable.
type VectorIndex interface {
	CreateCollection(ctx context.Context, dim int, metric string) error
	Insert(ctx context.Context, records []VectorRecord) error
	Flush(ctx context.Context) error
	Search(ctx context.Context, query []float32, topK int) ([]VectorHit, error)
	Health(ctx context.Context) VectorHealth
	Close() error
}
