package vectorindex

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"hybridrag/internal/domain"
	"hybridrag/internal/port"
)

func openTestBolt(t *testing.T) *BoltIndex {
	t.Helper()
	idx, err := OpenBolt(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestBoltInsertAndSearch(t *testing.T) {
	idx := openTestBolt(t)
	ctx := context.Background()

	if err := idx.CreateCollection(ctx, 3, "cosine"); err != nil {
		t.Fatal(err)
	}

	records := []port.VectorRecord{
		{DocID: "a", ChunkID: 0, Vector: []float32{1, 0, 0}, Meta: map[string]string{"text": "exact match"}},
		{DocID: "a", ChunkID: 1, Vector: []float32{0.7, 0.7, 0}, Meta: map[string]string{"text": "partial match"}},
		{DocID: "b", ChunkID: 0, Vector: []float32{0, 0, 1}, Meta: map[string]string{"text": "orthogonal"}},
	}
	if err := idx.Insert(ctx, records); err != nil {
		t.Fatal(err)
	}
	if err := idx.Flush(ctx); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].DocID != "a" || hits[0].ChunkID != 0 {
		t.Errorf("top hit = %s#%d, want a#0", hits[0].DocID, hits[0].ChunkID)
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits not sorted by score descending")
	}
	if hits[0].Text != "exact match" {
		t.Errorf("top hit text = %q", hits[0].Text)
	}
}

func TestBoltDimensionMismatch(t *testing.T) {
	idx := openTestBolt(t)
	ctx := context.Background()

	if err := idx.CreateCollection(ctx, 3, "cosine"); err != nil {
		t.Fatal(err)
	}

	err := idx.Insert(ctx, []port.VectorRecord{
		{DocID: "a", ChunkID: 0, Vector: []float32{1, 0}},
	})
	var mismatch *domain.DimensionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if mismatch.Want != 3 || mismatch.Got != 2 {
		t.Errorf("mismatch = want %d got %d", mismatch.Want, mismatch.Got)
	}

	// Recreating with a different dimension is also a mismatch.
	err = idx.CreateCollection(ctx, 5, "cosine")
	if !errors.As(err, &mismatch) {
		t.Errorf("expected DimensionMismatchError on re-create, got %v", err)
	}
}

func TestBoltInsertIsBatchAtomic(t *testing.T) {
	idx := openTestBolt(t)
	ctx := context.Background()

	if err := idx.CreateCollection(ctx, 2, "cosine"); err != nil {
		t.Fatal(err)
	}

	// Second record is invalid; the first must not be committed.
	err := idx.Insert(ctx, []port.VectorRecord{
		{DocID: "good", ChunkID: 0, Vector: []float32{1, 0}},
		{DocID: "bad", ChunkID: 0, Vector: []float32{1, 0, 0}},
	})
	if err == nil {
		t.Fatal("expected insert error")
	}

	hits, err := idx.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("failed batch left %d records behind", len(hits))
	}
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	ctx := context.Background()

	idx, err := OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.CreateCollection(ctx, 2, "ip"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Insert(ctx, []port.VectorRecord{
		{DocID: "a", ChunkID: 7, Vector: []float32{0.5, 0.5}, Meta: map[string]string{"text": "kept"}},
	}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err = OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	hits, err := idx.Search(ctx, []float32{1, 1}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].DocID != "a" || hits[0].ChunkID != 7 {
		t.Fatalf("reopened index hits = %+v", hits)
	}

	health := idx.Health(ctx)
	if !health.Reachable || !health.CollectionExists {
		t.Errorf("health after reopen = %+v", health)
	}
}

func TestSimilarityMetrics(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}

	if got := Similarity("ip", a, a); got != 1 {
		t.Errorf("ip self similarity = %v", got)
	}
	if got := Similarity("cosine", a, b); got != 0 {
		t.Errorf("cosine orthogonal = %v", got)
	}
	if got := Similarity("l2", a, a); got != 0 {
		t.Errorf("l2 self similarity = %v, want 0 (negated distance)", got)
	}
	if Similarity("l2", a, b) >= Similarity("l2", a, a) {
		t.Error("l2: farther vector should score lower")
	}
}
