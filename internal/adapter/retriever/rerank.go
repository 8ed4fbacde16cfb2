package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"hybridrag/internal/domain"
	"hybridrag/internal/port"
)

// Weights blends the rerank features. Alpha weighs the query-text cosine
// similarity; the others weigh the min-max-normalized lexical, vector and
// fused scores already on each candidate.
type Weights struct {
	Alpha float64 // query-text semantic similarity
	Beta  float64 // lexical score
	Gamma float64 // vector score
	Delta float64 // fused score
}

// DefaultWeights matches the production tuning: semantics dominate, the
// retrieval-stage scores refine.
func DefaultWeights() Weights {
	return Weights{Alpha: 1.0, Beta: 0.2, Gamma: 0.2, Delta: 0.3}
}

// WeightedReranker re-scores candidates with a blend of query-text cosine
// similarity and the normalized retrieval-stage scores. The formula sits
// behind port.Reranker so it can be swapped for a cross-encoder without
// touching the retriever.
type WeightedReranker struct {
	embedder port.Embedder
	weights  Weights
}

// NewWeightedReranker creates a reranker on the given embedder.
func NewWeightedReranker(embedder port.Embedder, weights Weights) *WeightedReranker {
	return &WeightedReranker{embedder: embedder, weights: weights}
}

// Rerank returns the candidates re-ordered by rerank score descending.
// Candidates with equal rerank scores keep their incoming (fused) order.
func (r *WeightedReranker) Rerank(ctx context.Context, query string, candidates []domain.ScoredHit) ([]domain.ScoredHit, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	// One embed call covers the query and every candidate text.
	texts := make([]string, 0, len(candidates)+1)
	texts = append(texts, query)
	for _, c := range candidates {
		texts = append(texts, c.Text)
	}
	vectors, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("rerank embed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("rerank embed: got %d vectors for %d texts", len(vectors), len(texts))
	}
	queryVec := vectors[0]

	cosSims := make([]*float64, len(candidates))
	lexical := make([]*float64, len(candidates))
	vector := make([]*float64, len(candidates))
	fusedSc := make([]*float64, len(candidates))
	for i, c := range candidates {
		if c.Text != "" {
			cosSims[i] = domain.Float(cosineSim(queryVec, vectors[i+1]))
		}
		lexical[i] = c.LexicalScore
		vector[i] = c.VectorScore
		fusedSc[i] = c.RRFScore
	}

	cosN := minMaxNormalize(cosSims)
	lexN := minMaxNormalize(lexical)
	vecN := minMaxNormalize(vector)
	rrfN := minMaxNormalize(fusedSc)

	out := make([]domain.ScoredHit, len(candidates))
	for i, c := range candidates {
		score := r.weights.Alpha*cosN[i] +
			r.weights.Beta*lexN[i] +
			r.weights.Gamma*vecN[i] +
			r.weights.Delta*rrfN[i]
		c.RerankScore = domain.Float(score)
		out[i] = c
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].RerankScore > *out[j].RerankScore
	})
	return out, nil
}

func (r *WeightedReranker) ModelName() string {
	return "weighted:" + r.embedder.ModelName()
}

// minMaxNormalize maps present values to [0,1]; all-equal values map to 0.5
// so one tied feature cannot zero out the blend, and missing values map to 0.
func minMaxNormalize(scores []*float64) []float64 {
	mn := math.Inf(1)
	mx := math.Inf(-1)
	present := false
	for _, s := range scores {
		if s == nil {
			continue
		}
		present = true
		if *s < mn {
			mn = *s
		}
		if *s > mx {
			mx = *s
		}
	}

	out := make([]float64, len(scores))
	if !present {
		return out
	}
	if mx-mn < 1e-9 {
		for i, s := range scores {
			if s != nil {
				out[i] = 0.5
			}
		}
		return out
	}
	for i, s := range scores {
		if s != nil {
			out[i] = (*s - mn) / (mx - mn)
		}
	}
	return out
}

func cosineSim(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dp, na, nb float64
	for i := range a {
		dp += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dp / (math.Sqrt(na) * math.Sqrt(nb))
}
