package retriever

import (
	"fmt"
	"sort"

	"hybridrag/internal/domain"
	"hybridrag/internal/port"
)

// DefaultRRFK is the standard Reciprocal Rank Fusion constant.
const DefaultRRFK = 60

// Fuse merges the vector and lexical rankings with Reciprocal Rank Fusion:
// a hit at 1-based rank r in a source list contributes 1/(k+r) to its fused
// score, summed over the sources it appears in. A hit present in both lists
// accumulates both contributions, which is how agreement between the two
// signals is rewarded. Fusion is symmetric in its inputs: swapping the two
// lists yields identical fused scores.
func Fuse(vectorHits []port.VectorHit, lexicalHits []port.LexicalHit, k int) []domain.ScoredHit {
	if k <= 0 {
		k = DefaultRRFK
	}

	fused := make(map[string]*domain.ScoredHit)
	keyOf := func(docID string, chunkID int) string {
		return fmt.Sprintf("%s::%d", docID, chunkID)
	}

	for rank, hit := range vectorHits {
		key := keyOf(hit.DocID, hit.ChunkID)
		entry, ok := fused[key]
		if !ok {
			entry = &domain.ScoredHit{
				DocID:    hit.DocID,
				ChunkID:  hit.ChunkID,
				Text:     hit.Text,
				RRFScore: domain.Float(0),
			}
			fused[key] = entry
		}
		entry.VectorScore = domain.Float(hit.Score)
		entry.Sources = append(entry.Sources, domain.SourceVector)
		*entry.RRFScore += 1.0 / float64(k+rank+1)
	}

	for rank, hit := range lexicalHits {
		key := keyOf(hit.DocID, hit.ChunkID)
		entry, ok := fused[key]
		if !ok {
			entry = &domain.ScoredHit{
				DocID:    hit.DocID,
				ChunkID:  hit.ChunkID,
				RRFScore: domain.Float(0),
			}
			fused[key] = entry
		}
		if entry.Text == "" {
			entry.Text = hit.Text
		}
		entry.LexicalScore = domain.Float(hit.Score)
		entry.Sources = append(entry.Sources, domain.SourceLexical)
		*entry.RRFScore += 1.0 / float64(k+rank+1)
	}

	out := make([]domain.ScoredHit, 0, len(fused))
	for _, entry := range fused {
		out = append(out, *entry)
	}

	// Ties broken by doc_id then chunk_id so identical inputs always
	// produce the identical ordering.
	sort.Slice(out, func(i, j int) bool {
		if *out[i].RRFScore != *out[j].RRFScore {
			return *out[i].RRFScore > *out[j].RRFScore
		}
		if out[i].DocID != out[j].DocID {
			return out[i].DocID < out[j].DocID
		}
		return out[i].ChunkID < out[j].ChunkID
	})

	return out
}

// VectorOnly converts raw vector hits into scored hits tagged with the
// vector source, preserving order.
func VectorOnly(hits []port.VectorHit) []domain.ScoredHit {
	out := make([]domain.ScoredHit, len(hits))
	for i, h := range hits {
		out[i] = domain.ScoredHit{
			DocID:       h.DocID,
			ChunkID:     h.ChunkID,
			Text:        h.Text,
			VectorScore: domain.Float(h.Score),
			Sources:     []domain.Source{domain.SourceVector},
		}
	}
	return out
}

// LexicalOnly converts raw lexical hits into scored hits tagged with the
// lexical source, preserving order.
func LexicalOnly(hits []port.LexicalHit) []domain.ScoredHit {
	out := make([]domain.ScoredHit, len(hits))
	for i, h := range hits {
		out[i] = domain.ScoredHit{
			DocID:        h.DocID,
			ChunkID:      h.ChunkID,
			Text:         h.Text,
			LexicalScore: domain.Float(h.Score),
			Sources:      []domain.Source{domain.SourceLexical},
		}
	}
	return out
}
