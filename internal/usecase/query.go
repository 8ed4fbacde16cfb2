package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hybridrag/internal/adapter/cache"
	"hybridrag/internal/adapter/querylog"
	"hybridrag/internal/adapter/retriever"
	"hybridrag/internal/domain"
	"hybridrag/internal/port"
)

const (
	// DefaultTopK is the result count when the caller does not specify one.
	DefaultTopK = 5
	// DefaultPageSize is the pagination window when the caller does not
	// specify one.
	DefaultPageSize = 10
	// DefaultPoolMultiplier sizes each retrieval leg's candidate pool as a
	// multiple of top_k, so fusion has enough overlap to work with.
	DefaultPoolMultiplier = 4
	// DefaultLegTimeout bounds each retrieval leg independently.
	DefaultLegTimeout = 2 * time.Second
)

// QueryParams describes one retrieval request.
type QueryParams struct {
	Text     string
	TopK     int
	Hybrid   bool
	Rerank   bool
	Page     int
	PageSize int
	Debug    bool
}

// SearcherOptions configures the optional collaborators and tuning knobs.
type SearcherOptions struct {
	Reranker       port.Reranker   // nil disables reranking
	Cache          *cache.QueryCache
	QueryLog       *querylog.Logger
	Degrade        *DegradationController
	Logger         *slog.Logger
	RRFK           int
	PoolMultiplier int
	LegTimeout     time.Duration
}

// Searcher serves retrieval queries over a vector and a lexical index,
// fusing the two rankings and degrading to whichever leg survives when
// the other fails.
type Searcher struct {
	embedder port.Embedder
	vector   port.VectorIndex
	lexical  port.LexicalIndex
	opts     SearcherOptions
}

// NewSearcher creates a searcher over the two indexes.
func NewSearcher(embedder port.Embedder, vector port.VectorIndex, lexical port.LexicalIndex, opts SearcherOptions) *Searcher {
	if opts.RRFK <= 0 {
		opts.RRFK = retriever.DefaultRRFK
	}
	if opts.PoolMultiplier <= 0 {
		opts.PoolMultiplier = DefaultPoolMultiplier
	}
	if opts.LegTimeout <= 0 {
		opts.LegTimeout = DefaultLegTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Degrade == nil {
		opts.Degrade = NewDegradationController(0)
	}
	return &Searcher{embedder: embedder, vector: vector, lexical: lexical, opts: opts}
}

// Query runs one retrieval request end to end: cache lookup, fan-out,
// fusion, optional rerank, pagination, cache write, audit log. It returns
// an error only when every retrieval path failed.
func (s *Searcher) Query(ctx context.Context, p QueryParams) (*domain.QueryResult, error) {
	start := time.Now()
	if p.Text == "" {
		return nil, fmt.Errorf("%w: query text must not be empty", domain.ErrInvalidConfig)
	}
	if p.TopK <= 0 {
		p.TopK = DefaultTopK
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	traceID := uuid.NewString()

	var key string
	if !p.Debug && s.opts.Cache != nil {
		key = cache.Key(p.Text, p.Hybrid, p.Rerank, p.TopK, p.Page, p.PageSize)
		if hit := s.opts.Cache.Get(ctx, key); hit != nil {
			hit.TraceID = traceID
			hit.CacheHit = true
			// Retrieval did not run; only the total reflects this call.
			hit.Latency = domain.LatencyBreakdown{TotalMS: msSince(start)}
			s.audit(ctx, hit)
			return hit, nil
		}
	}

	var (
		res *domain.QueryResult
		err error
	)
	if p.Hybrid {
		res, err = s.hybridSearch(ctx, p)
	} else {
		res, err = s.vectorSearch(ctx, p)
	}
	if err != nil {
		return nil, err
	}

	res.TraceID = traceID
	res.Query = p.Text
	res.Hybrid = p.Hybrid
	res.TopK = p.TopK
	paginate(res, p.Page, p.PageSize)
	res.Latency.TotalMS = msSince(start)

	if key != "" {
		s.opts.Cache.Put(ctx, key, res)
	}
	s.audit(ctx, res)
	return res, nil
}

// vectorSearch serves hybrid=false: vector only, falling back to the
// lexical index when the vector leg fails.
func (s *Searcher) vectorSearch(ctx context.Context, p QueryParams) (*domain.QueryResult, error) {
	res := &domain.QueryResult{}

	vecHits, vms, verr := s.vectorLeg(ctx, p.Text, p.TopK)
	res.Latency.VectorMS = vms
	if verr == nil {
		res.Results = retriever.VectorOnly(vecHits)
		return res, nil
	}

	lexHits, lms, lerr := s.lexicalLeg(ctx, p.Text, p.TopK)
	res.Latency.LexicalMS = lms
	if lerr != nil {
		return nil, fmt.Errorf("all retrieval paths failed: vector: %v; lexical: %w", verr, lerr)
	}
	res.Results = retriever.LexicalOnly(lexHits)
	res.Degraded = true
	res.DegradedMode = domain.DegradedLexicalOnly
	res.DegradedReason = fmt.Sprintf("vector search failed: %v", verr)
	s.opts.Logger.Warn("vector leg failed, serving lexical results", "error", verr)
	return res, nil
}

// hybridSearch fans out to both legs concurrently, fuses the rankings and
// optionally reranks. The legs run with independent timeouts and never
// cancel each other: one healthy leg is enough to answer.
func (s *Searcher) hybridSearch(ctx context.Context, p QueryParams) (*domain.QueryResult, error) {
	pool := s.opts.PoolMultiplier * p.TopK
	if pageEnd := p.Page * p.PageSize; pool < pageEnd {
		pool = pageEnd
	}

	var (
		vecHits  []port.VectorHit
		lexHits  []port.LexicalHit
		vms, lms float64
		verr     error
		lerr     error
	)

	var g errgroup.Group
	g.Go(func() error {
		vecHits, vms, verr = s.vectorLeg(ctx, p.Text, pool)
		return nil
	})
	g.Go(func() error {
		lexHits, lms, lerr = s.lexicalLeg(ctx, p.Text, pool)
		return nil
	})
	_ = g.Wait()

	res := &domain.QueryResult{}
	res.Latency.VectorMS = vms
	res.Latency.LexicalMS = lms

	switch {
	case verr != nil && lerr != nil:
		return nil, fmt.Errorf("all retrieval paths failed: vector: %v; lexical: %w", verr, lerr)
	case verr != nil:
		res.Results = capHits(retriever.LexicalOnly(lexHits), p.TopK)
		res.Degraded = true
		res.DegradedMode = domain.DegradedLexicalOnly
		res.DegradedReason = fmt.Sprintf("vector search failed: %v", verr)
		s.opts.Logger.Warn("vector leg failed, serving lexical results", "error", verr)
		return res, nil
	case lerr != nil:
		res.Results = capHits(retriever.VectorOnly(vecHits), p.TopK)
		res.Degraded = true
		res.DegradedMode = domain.DegradedVectorOnly
		res.DegradedReason = fmt.Sprintf("lexical search failed: %v", lerr)
		s.opts.Logger.Warn("lexical leg failed, serving vector results", "error", lerr)
		return res, nil
	}

	tFuse := time.Now()
	fused := retriever.Fuse(vecHits, lexHits, s.opts.RRFK)
	fused = capHits(fused, p.TopK)
	res.Latency.FuseMS = msSince(tFuse)

	if p.Debug {
		res.Debug = &domain.QueryDebug{
			VectorHits:  retriever.VectorOnly(vecHits),
			LexicalHits: retriever.LexicalOnly(lexHits),
			Fused:       append([]domain.ScoredHit(nil), fused...),
		}
	}

	res.Results = fused
	if p.Rerank && s.opts.Reranker != nil {
		tRerank := time.Now()
		reranked, err := s.opts.Reranker.Rerank(ctx, p.Text, fused)
		res.Latency.RerankMS = msSince(tRerank)
		if err != nil {
			// Fused ordering is a valid answer; rerank is best effort.
			s.opts.Logger.Warn("rerank failed, keeping fused order", "error", err)
		} else {
			res.Results = reranked
		}
	}
	return res, nil
}

// vectorLeg embeds the query and searches the vector index under the leg
// timeout. While the backend is parked by the degradation controller the
// leg is skipped outright instead of burning the timeout.
func (s *Searcher) vectorLeg(ctx context.Context, query string, topK int) ([]port.VectorHit, float64, error) {
	if !s.opts.Degrade.VectorAvailable() {
		return nil, 0, fmt.Errorf("vector backend parked after recent failures: %w", domain.ErrBackendUnavailable)
	}
	legCtx, cancel := context.WithTimeout(ctx, s.opts.LegTimeout)
	defer cancel()

	t0 := time.Now()
	vectors, err := s.embedder.Embed(legCtx, []string{query})
	if err != nil {
		s.opts.Degrade.MarkVectorFailure()
		return nil, msSince(t0), fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.vector.Search(legCtx, vectors[0], topK)
	if err != nil {
		s.opts.Degrade.MarkVectorFailure()
		return nil, msSince(t0), err
	}
	s.opts.Degrade.MarkVectorSuccess()
	return hits, msSince(t0), nil
}

// lexicalLeg searches the lexical index under the leg timeout.
func (s *Searcher) lexicalLeg(ctx context.Context, query string, topK int) ([]port.LexicalHit, float64, error) {
	legCtx, cancel := context.WithTimeout(ctx, s.opts.LegTimeout)
	defer cancel()

	t0 := time.Now()
	hits, err := s.lexical.Search(legCtx, query, topK)
	return hits, msSince(t0), err
}

// paginate slices the candidate list into the requested page. Total always
// reflects the full candidate count, so callers can tell how many pages
// exist.
func paginate(res *domain.QueryResult, page, pageSize int) {
	total := len(res.Results)
	lo := (page - 1) * pageSize
	if lo > total {
		lo = total
	}
	hi := lo + pageSize
	if hi > total {
		hi = total
	}
	res.Results = res.Results[lo:hi]
	res.Pagination = domain.Pagination{Page: page, PageSize: pageSize, Total: total}
}

func capHits(hits []domain.ScoredHit, topK int) []domain.ScoredHit {
	if len(hits) > topK {
		return hits[:topK]
	}
	return hits
}

// audit writes the structured log line and the SQLite record for one query.
// Audit failures are logged, never surfaced to the caller.
func (s *Searcher) audit(ctx context.Context, res *domain.QueryResult) {
	s.opts.Logger.Info("query served",
		"trace_id", res.TraceID,
		"hybrid", res.Hybrid,
		"top_k", res.TopK,
		"results", len(res.Results),
		"total", res.Pagination.Total,
		"cache_hit", res.CacheHit,
		"degraded", res.Degraded,
		"total_ms", res.Latency.TotalMS)
	if s.opts.QueryLog == nil {
		return
	}
	rec := querylog.Record{
		TraceID:        res.TraceID,
		Query:          res.Query,
		Hybrid:         res.Hybrid,
		TopK:           res.TopK,
		LatencyMS:      res.Latency.TotalMS,
		ResultCount:    len(res.Results),
		CacheHit:       res.CacheHit,
		Degraded:       res.Degraded,
		DegradedReason: res.DegradedReason,
	}
	if err := s.opts.QueryLog.Log(ctx, rec); err != nil {
		s.opts.Logger.Warn("query log write failed", "trace_id", res.TraceID, "error", err)
	}
}
