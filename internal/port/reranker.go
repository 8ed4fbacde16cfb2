package port

import (
	"context"

	"hybridrag/internal/domain"
)

// Reranker re-scores fused candidates with a finer relevance signal. The
// scoring formula is a replaceable strategy; implementations may consult the
// vector, lexical and fused scores already on each hit, plus the text.
// Returned hits are ordered by rerank score descending, with the incoming
// fused order preserved as the tie-break.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.ScoredHit) ([]domain.ScoredHit, error)
	ModelName() string
}
