package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand"
)

// HashEmbedder is the deterministic stub provider: each text maps to a
// unit-norm Gaussian vector seeded by its SHA-256 hash. Identical input
// always yields the identical vector, which is what retrieval correctness
// and caching rely on. It has no semantic signal; use it for tests, local
// development and load benches.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash-seeded embedder with the given dimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 768
	}
	return &HashEmbedder{dim: dim}
}

// Embed generates one vector per input text, in order.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = e.embedOne(t)
	}
	return vectors, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	h := sha256.Sum256([]byte(text))
	seed := int64(binary.LittleEndian.Uint64(h[:8]))
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float32, e.dim)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func (e *HashEmbedder) Dimension() int { return e.dim }

// Metric is cosine; the vectors are unit-norm so inner product works too.
func (e *HashEmbedder) Metric() string { return "cosine" }

func (e *HashEmbedder) ModelName() string { return "hash" }
