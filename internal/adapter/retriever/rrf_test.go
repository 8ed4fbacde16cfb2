package retriever

import (
	"math"
	"testing"

	"hybridrag/internal/domain"
	"hybridrag/internal/port"
)

func vecHits(ids ...string) []port.VectorHit {
	hits := make([]port.VectorHit, len(ids))
	for i, id := range ids {
		hits[i] = port.VectorHit{DocID: id, ChunkID: 0, Text: "text " + id, Score: float64(len(ids) - i)}
	}
	return hits
}

func lexHits(ids ...string) []port.LexicalHit {
	hits := make([]port.LexicalHit, len(ids))
	for i, id := range ids {
		hits[i] = port.LexicalHit{DocID: id, ChunkID: 0, Text: "text " + id, Score: float64(len(ids) - i)}
	}
	return hits
}

func TestFuseRewardsAgreement(t *testing.T) {
	// "both" appears at rank 2 in each list; "vonly"/"lonly" hold rank 1 in
	// a single list. Two mid-rank appearances must beat one top-rank one:
	// 2/(60+2) > 1/(60+1).
	fused := Fuse(vecHits("vonly", "both"), lexHits("lonly", "both"), 60)

	if len(fused) != 3 {
		t.Fatalf("fused %d hits, want 3", len(fused))
	}
	if fused[0].DocID != "both" {
		t.Errorf("top hit = %s, want both", fused[0].DocID)
	}

	want := 2.0 / 62.0
	if got := *fused[0].RRFScore; math.Abs(got-want) > 1e-12 {
		t.Errorf("both rrf = %v, want %v", got, want)
	}
	if !fused[0].HasSource(domain.SourceVector) || !fused[0].HasSource(domain.SourceLexical) {
		t.Errorf("both hit sources = %v", fused[0].Sources)
	}
	if fused[0].VectorScore == nil || fused[0].LexicalScore == nil {
		t.Error("both hit should carry both raw scores")
	}
}

func TestFuseIsSymmetric(t *testing.T) {
	v := vecHits("a", "b", "c")
	l := lexHits("c", "d")

	fused := Fuse(v, l, 60)

	// Swap the roles: same ids at the same ranks from the other signal.
	swappedV := make([]port.VectorHit, len(l))
	for i, h := range l {
		swappedV[i] = port.VectorHit{DocID: h.DocID, ChunkID: h.ChunkID, Text: h.Text, Score: h.Score}
	}
	swappedL := make([]port.LexicalHit, len(v))
	for i, h := range v {
		swappedL[i] = port.LexicalHit{DocID: h.DocID, ChunkID: h.ChunkID, Text: h.Text, Score: h.Score}
	}
	mirrored := Fuse(swappedV, swappedL, 60)

	if len(fused) != len(mirrored) {
		t.Fatalf("fused lengths differ: %d vs %d", len(fused), len(mirrored))
	}
	for i := range fused {
		if fused[i].DocID != mirrored[i].DocID {
			t.Errorf("position %d: %s vs %s", i, fused[i].DocID, mirrored[i].DocID)
		}
		if math.Abs(*fused[i].RRFScore-*mirrored[i].RRFScore) > 1e-12 {
			t.Errorf("position %d score: %v vs %v", i, *fused[i].RRFScore, *mirrored[i].RRFScore)
		}
	}
}

func TestFuseTieBreakIsDeterministic(t *testing.T) {
	// Same-rank hits from distinct lists score identically; ordering must
	// fall back to doc_id then chunk_id.
	v := []port.VectorHit{
		{DocID: "zeta", ChunkID: 0, Text: "z", Score: 1},
		{DocID: "same", ChunkID: 5, Text: "s5", Score: 0.5},
	}
	l := []port.LexicalHit{
		{DocID: "alpha", ChunkID: 0, Text: "a", Score: 1},
		{DocID: "same", ChunkID: 2, Text: "s2", Score: 0.5},
	}

	for i := 0; i < 10; i++ {
		fused := Fuse(v, l, 60)
		if fused[0].DocID != "alpha" || fused[1].DocID != "zeta" {
			t.Fatalf("rank-1 tie broke as %s,%s; want alpha,zeta", fused[0].DocID, fused[1].DocID)
		}
		if fused[2].ChunkID != 2 || fused[3].ChunkID != 5 {
			t.Fatalf("chunk tie broke as %d,%d; want 2,5", fused[2].ChunkID, fused[3].ChunkID)
		}
	}
}

func TestFuseFillsTextFromEitherSource(t *testing.T) {
	v := []port.VectorHit{{DocID: "a", ChunkID: 0, Text: "vector text", Score: 1}}
	l := []port.LexicalHit{
		{DocID: "a", ChunkID: 0, Text: "lexical text", Score: 1},
		{DocID: "b", ChunkID: 0, Text: "lexical only", Score: 0.5},
	}

	fused := Fuse(v, l, 60)
	byID := map[string]domain.ScoredHit{}
	for _, h := range fused {
		byID[h.DocID] = h
	}
	if byID["a"].Text != "vector text" {
		t.Errorf("doc a text = %q, vector text should win", byID["a"].Text)
	}
	if byID["b"].Text != "lexical only" {
		t.Errorf("doc b text = %q", byID["b"].Text)
	}
}

func TestFuseEmptyInputs(t *testing.T) {
	if got := Fuse(nil, nil, 60); len(got) != 0 {
		t.Errorf("fusing nothing yielded %d hits", len(got))
	}
	fused := Fuse(vecHits("a"), nil, 60)
	if len(fused) != 1 || *fused[0].RRFScore != 1.0/61.0 {
		t.Errorf("single-list fusion wrong: %+v", fused)
	}
}
