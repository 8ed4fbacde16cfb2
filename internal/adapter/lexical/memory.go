package lexical

import (
	"context"
	"math"
	"sort"
	"sync"

	"hybridrag/internal/port"
)

// MemoryIndex is the in-process BM25 backend. Everything lives in maps
// guarded by one RWMutex; rebuild cost on restart is the trade for zero
// files on disk.
type MemoryIndex struct {
	mu       sync.RWMutex
	k1       float64
	b        float64
	docs     []memoryDoc
	postings map[string][]posting // term -> (doc index, tf)
	totalLen int
}

type memoryDoc struct {
	docID   string
	chunkID int
	text    string
	length  int
}

type posting struct {
	doc int
	tf  int
}

// NewMemoryIndex creates an empty BM25 index with the given parameters.
// k1 <= 0 or b < 0 fall back to the standard 1.2 / 0.75.
func NewMemoryIndex(k1, b float64) *MemoryIndex {
	if k1 <= 0 {
		k1 = 1.2
	}
	if b < 0 || b > 1 {
		b = 0.75
	}
	return &MemoryIndex{
		k1:       k1,
		b:        b,
		postings: make(map[string][]posting),
	}
}

// Index adds one chunk to the corpus.
func (m *MemoryIndex) Index(ctx context.Context, docID string, chunkID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tokens := tokenize(text)

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.docs)
	m.docs = append(m.docs, memoryDoc{
		docID:   docID,
		chunkID: chunkID,
		text:    text,
		length:  len(tokens),
	})
	m.totalLen += len(tokens)

	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	for term, count := range tf {
		m.postings[term] = append(m.postings[term], posting{doc: idx, tf: count})
	}
	return nil
}

// Search scores the corpus with BM25 and returns the top-k.
func (m *MemoryIndex) Search(ctx context.Context, query string, topK int) ([]port.LexicalHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	N := float64(len(m.docs))
	if N == 0 {
		return nil, nil
	}
	avgLen := float64(m.totalLen) / N

	scores := make(map[int]float64)
	for _, term := range queryTokens {
		postings, ok := m.postings[term]
		if !ok {
			continue
		}
		n := float64(len(postings))
		idf := math.Log((N-n+0.5)/(n+0.5) + 1)

		for _, p := range postings {
			dl := float64(m.docs[p.doc].length)
			tf := float64(p.tf)
			scores[p.doc] += idf * (tf * (m.k1 + 1)) / (tf + m.k1*(1-m.b+m.b*dl/avgLen))
		}
	}

	hits := make([]port.LexicalHit, 0, len(scores))
	for idx, score := range scores {
		d := m.docs[idx]
		hits = append(hits, port.LexicalHit{
			DocID:   d.docID,
			ChunkID: d.chunkID,
			Text:    d.text,
			Score:   score,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].DocID != hits[j].DocID {
			return hits[i].DocID < hits[j].DocID
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemoryIndex) Close() error { return nil }
