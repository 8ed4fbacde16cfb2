package usecase

import (
	"context"
	"sort"
	"sync"

	"hybridrag/internal/adapter/vectorindex"
	"hybridrag/internal/domain"
	"hybridrag/internal/port"
)

// stubVectorIndex is an in-memory port.VectorIndex with per-call failure
// injection for exercising retry and degradation paths.
type stubVectorIndex struct {
	mu          sync.Mutex
	dim         int
	metric      string
	records     []port.VectorRecord
	flushes     int
	insertCalls int
	failInserts map[int]bool // 1-based Insert call numbers that fail
	searchErr   error
}

func newStubVectorIndex() *stubVectorIndex {
	return &stubVectorIndex{failInserts: map[int]bool{}}
}

func (s *stubVectorIndex) CreateCollection(ctx context.Context, dim int, metric string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dim != 0 && s.dim != dim {
		return &domain.DimensionMismatchError{Want: s.dim, Got: dim}
	}
	s.dim = dim
	s.metric = metric
	return nil
}

func (s *stubVectorIndex) Insert(ctx context.Context, records []port.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.failInserts[s.insertCalls] {
		return domain.ErrBackendUnavailable
	}
	s.records = append(s.records, records...)
	return nil
}

func (s *stubVectorIndex) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *stubVectorIndex) Search(ctx context.Context, query []float32, topK int) ([]port.VectorHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	hits := make([]port.VectorHit, 0, len(s.records))
	for _, r := range s.records {
		hits = append(hits, port.VectorHit{
			DocID:   r.DocID,
			ChunkID: r.ChunkID,
			Text:    r.Meta["text"],
			Meta:    r.Meta,
			Score:   vectorindex.Similarity(s.metric, query, r.Vector),
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

func (s *stubVectorIndex) Health(ctx context.Context) port.VectorHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return port.VectorHealth{
		Reachable:        s.searchErr == nil,
		CollectionExists: s.dim != 0,
		Version:          "stub",
	}
}

func (s *stubVectorIndex) Close() error { return nil }

func (s *stubVectorIndex) setSearchErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchErr = err
}

func (s *stubVectorIndex) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// failingLexical always errors, for the all-paths-down case.
type failingLexical struct{}

func (failingLexical) Index(ctx context.Context, docID string, chunkID int, text string) error {
	return domain.ErrBackendUnavailable
}

func (failingLexical) Search(ctx context.Context, query string, topK int) ([]port.LexicalHit, error) {
	return nil, domain.ErrBackendUnavailable
}

func (failingLexical) Close() error { return nil }

// stubFetcher serves canned bodies keyed by URL.
type stubFetcher struct {
	bodies map[string][]byte
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, ok := f.bodies[url]
	if !ok {
		return nil, &domain.FetchError{URL: url, Status: 404}
	}
	return body, nil
}
