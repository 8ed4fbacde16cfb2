package domain

// Chunk is one segment of a document produced by a chunker. Chunks are
// immutable once produced; ChunkID is the 0-based position in output order
// and is unique within a DocID.
type Chunk struct {
	DocID   string            `json:"doc_id"`
	ChunkID int               `json:"chunk_id"`
	Text    string            `json:"text"`
	Start   int               `json:"start"` // rune offset in the original text
	End     int               `json:"end"`   // exclusive
	Meta    map[string]string `json:"meta,omitempty"`
}

// EmbeddedChunk is a chunk plus its embedding vector.
type EmbeddedChunk struct {
	Chunk
	Vector []float32 `json:"vector"`
}

// Source names a retrieval signal that contributed to a hit.
type Source string

const (
	SourceVector  Source = "vector"
	SourceLexical Source = "lexical"
)

// ScoredHit is a per-query result. Score fields are nil when the
// corresponding signal did not contribute.
type ScoredHit struct {
	DocID        string   `json:"doc_id"`
	ChunkID      int      `json:"chunk_id"`
	Text         string   `json:"text"`
	VectorScore  *float64 `json:"score_vector"`
	LexicalScore *float64 `json:"score_lexical"`
	RRFScore     *float64 `json:"rrf_score"`
	RerankScore  *float64 `json:"rerank_score,omitempty"`
	Sources      []Source `json:"sources"`
}

// HasSource reports whether the hit was contributed by the given signal.
func (h ScoredHit) HasSource(s Source) bool {
	for _, src := range h.Sources {
		if src == s {
			return true
		}
	}
	return false
}

// TaskStatus is the lifecycle state of an ingest task.
type TaskStatus string

const (
	TaskValidating TaskStatus = "validating"
	TaskChunking   TaskStatus = "chunking"
	TaskEmbedding  TaskStatus = "embedding"
	TaskInserting  TaskStatus = "inserting"
	TaskDone       TaskStatus = "done"
	TaskFailed     TaskStatus = "failed"
)

// IngestTimings holds per-stage wall-clock times in milliseconds.
type IngestTimings struct {
	ChunkMS  float64 `json:"chunk_ms"`
	EmbedMS  float64 `json:"embed_ms"`
	InsertMS float64 `json:"insert_ms"`
	FlushMS  float64 `json:"flush_ms"`
}

// IngestTask tracks one ingest request from validation through flush.
// Dry-run tasks stop after chunking and report PreviewChunks only.
type IngestTask struct {
	TaskID          string        `json:"task_id"`
	Status          TaskStatus    `json:"status"`
	DryRun          bool          `json:"dry_run"`
	RequestedChunks int           `json:"requested_chunks"`
	InsertedChunks  int           `json:"inserted_chunks"`
	SkippedChunks   int           `json:"skipped_chunks"`
	PreviewChunks   int           `json:"preview_chunks,omitempty"`
	Timings         IngestTimings `json:"timings"`
	Error           string        `json:"error,omitempty"`
}

// LatencyBreakdown reports where a query spent its time, in milliseconds.
type LatencyBreakdown struct {
	VectorMS  float64 `json:"vector_ms"`
	LexicalMS float64 `json:"lexical_ms"`
	FuseMS    float64 `json:"fuse_ms"`
	RerankMS  float64 `json:"rerank_ms"`
	TotalMS   float64 `json:"total_ms"`
}

// Pagination describes the slice of the final ordering that was returned.
// Total is the fused/reranked candidate count, not the corpus size.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// QueryDebug carries the raw per-signal lists for debug responses.
// Attaching it never changes the final ranking.
type QueryDebug struct {
	VectorHits  []ScoredHit `json:"vector_hits"`
	LexicalHits []ScoredHit `json:"lexical_hits"`
	Fused       []ScoredHit `json:"fused"`
}

// Degraded modes name which retrieval leg the response was served from
// when the other one failed.
const (
	DegradedLexicalOnly = "lexical_only"
	DegradedVectorOnly  = "vector_only"
)

// QueryResult is the full answer to one query.
type QueryResult struct {
	TraceID        string           `json:"trace_id"`
	Query          string           `json:"query"`
	Hybrid         bool             `json:"hybrid"`
	TopK           int              `json:"top_k"`
	CacheHit       bool             `json:"cache_hit"`
	Degraded       bool             `json:"degraded"`
	DegradedMode   string           `json:"degraded_mode,omitempty"`
	DegradedReason string           `json:"degraded_reason,omitempty"`
	Latency        LatencyBreakdown `json:"latency_ms"`
	Pagination     Pagination       `json:"pagination"`
	Results        []ScoredHit      `json:"results"`
	Debug          *QueryDebug      `json:"debug,omitempty"`
}

// HealthStatus reports backend reachability and the degradation flag.
type HealthStatus struct {
	VectorReachable  bool   `json:"vector_reachable"`
	CollectionExists bool   `json:"collection_exists"`
	VectorVersion    string `json:"vector_version,omitempty"`
	CacheBackend     string `json:"cache_backend"`
	Degraded         bool   `json:"degraded"`
}

// Float returns a pointer to v, for the optional score fields.
func Float(v float64) *float64 { return &v }
