package embedding

import (
	"context"
	"math"
	"testing"
)

func TestHashEmbedderDeterminism(t *testing.T) {
	emb := NewHashEmbedder(768)
	ctx := context.Background()

	a, err := emb.Embed(ctx, []string{"the same text", "another text"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := emb.Embed(ctx, []string{"the same text"})
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != 2 || len(b) != 1 {
		t.Fatalf("unexpected batch shapes: %d, %d", len(a), len(b))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("same text embedded differently at component %d", i)
		}
	}

	same := true
	for i := range a[0] {
		if a[0][i] != a[1][i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct texts produced identical vectors")
	}
}

func TestHashEmbedderDimensionAndNorm(t *testing.T) {
	emb := NewHashEmbedder(128)
	if emb.Dimension() != 128 {
		t.Fatalf("Dimension() = %d", emb.Dimension())
	}
	if emb.Metric() != "cosine" {
		t.Errorf("Metric() = %q", emb.Metric())
	}

	vecs, err := emb.Embed(context.Background(), []string{"normalize me"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs[0]) != 128 {
		t.Fatalf("vector length = %d", len(vecs[0]))
	}

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("vector norm = %v, want 1", norm)
	}
}
