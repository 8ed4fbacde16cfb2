package port

import "context"

// Distance metrics an embedder (and its collection) can declare.
const (
	MetricIP     = "ip"
	MetricCosine = "cosine"
	MetricL2     = "l2"
)

// Embedder maps text to fixed-dimension vectors. Implementations must be
// deterministic for identical input and must return one vector per input
// text, in input order. A provider error aborts the whole batch.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// Metric returns the distance metric the vectors are trained for.
	Metric() string

	// ModelName returns the name of the embedding model.
	ModelName() string
}
