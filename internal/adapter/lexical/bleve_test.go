package lexical

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBleveIndexRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lexical.bleve")

	idx, err := OpenBleve(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	ctx := context.Background()
	docs := []struct {
		docID   string
		chunkID int
		text    string
	}{
		{"guide", 0, "Milvus is a vector database built for scalable similarity search"},
		{"guide", 1, "BM25 ranks documents by lexical term overlap"},
		{"other", 0, "Completely unrelated cooking instructions"},
	}
	for _, d := range docs {
		if err := idx.Index(ctx, d.docID, d.chunkID, d.text); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := idx.Search(ctx, "vector database", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits for indexed terms")
	}
	top := hits[0]
	if top.DocID != "guide" || top.ChunkID != 0 {
		t.Errorf("top hit = %s#%d, want guide#0", top.DocID, top.ChunkID)
	}
	if top.Text == "" {
		t.Error("stored text was not returned")
	}
	if top.Score <= 0 {
		t.Errorf("top score = %v", top.Score)
	}
}

func TestBleveIndexReingestOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lexical.bleve")

	idx, err := OpenBleve(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	ctx := context.Background()
	if err := idx.Index(ctx, "doc1", 0, "original wording here"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, "doc1", 0, "replacement wording here"); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search(ctx, "wording", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("re-ingest duplicated the chunk: %d hits", len(hits))
	}
	if hits[0].Text != "replacement wording here" {
		t.Errorf("text = %q, want the replacement", hits[0].Text)
	}
}

func TestBleveIndexReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lexical.bleve")
	ctx := context.Background()

	idx, err := OpenBleve(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Index(ctx, "doc1", 3, "persistent content survives reopen"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	idx, err = OpenBleve(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	hits, err := idx.Search(ctx, "persistent", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].DocID != "doc1" || hits[0].ChunkID != 3 {
		t.Errorf("reopened index hits = %+v", hits)
	}
}
