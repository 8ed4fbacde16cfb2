package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hybridrag/internal/adapter/cache"
	"hybridrag/internal/adapter/chunker"
	"hybridrag/internal/domain"
	"hybridrag/internal/port"
)

// DefaultBatchSize bounds peak memory per embed+insert round and respects
// the vector backend's transactional insert limits.
const DefaultBatchSize = 2000

// IngestParams describes one ingest request. Exactly one of Text or
// FileURL must be set.
type IngestParams struct {
	DocID    string
	Text     string
	FileURL  string
	Strategy chunker.Strategy
	Size     int
	Overlap  int
	Meta     map[string]string
	DryRun   bool
}

// IngestOptions configures the optional pipeline collaborators.
type IngestOptions struct {
	Fetcher   port.Fetcher    // required for FileURL ingestion
	Dedup     port.CacheStore // nil disables chunk dedup
	DedupTTL  time.Duration
	BatchSize int
	Logger    *slog.Logger
	Progress  func(insertedChunks, totalChunks int)
}

// IngestPipeline orchestrates chunk → embed → vector insert, mirroring
// every chunk's text into the lexical index. It exclusively owns each
// IngestTask for the task's duration.
type IngestPipeline struct {
	embedder port.Embedder
	vector   port.VectorIndex
	lexical  port.LexicalIndex
	opts     IngestOptions
}

// NewIngestPipeline creates a pipeline over the three index collaborators.
func NewIngestPipeline(embedder port.Embedder, vector port.VectorIndex, lexical port.LexicalIndex, opts IngestOptions) *IngestPipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &IngestPipeline{
		embedder: embedder,
		vector:   vector,
		lexical:  lexical,
		opts:     opts,
	}
}

// Ingest runs the pipeline. The returned task is populated even on failure,
// so callers can report how far ingestion got; partial corpus ingestion is
// an accepted outcome, never silently hidden.
func (p *IngestPipeline) Ingest(ctx context.Context, params IngestParams) (*domain.IngestTask, error) {
	task := &domain.IngestTask{
		TaskID: uuid.NewString(),
		Status: domain.TaskValidating,
		DryRun: params.DryRun,
	}
	docID := params.DocID
	if docID == "" {
		docID = task.TaskID
	}

	ck, err := chunker.NewTextChunker(params.Strategy, params.Size, params.Overlap)
	if err != nil {
		return p.fail(task, err)
	}

	text, err := p.resolveInput(ctx, params)
	if err != nil {
		return p.fail(task, err)
	}

	task.Status = domain.TaskChunking
	tChunk := time.Now()
	chunks, err := ck.Chunk(docID, text, params.Meta)
	if err != nil {
		return p.fail(task, err)
	}
	task.Timings.ChunkMS = msSince(tChunk)
	task.RequestedChunks = len(chunks)

	if params.DryRun {
		task.PreviewChunks = len(chunks)
		task.Status = domain.TaskDone
		p.opts.Logger.Info("ingest dry run",
			"task_id", task.TaskID, "doc_id", docID,
			"preview_chunks", task.PreviewChunks, "chunking", ck.Describe())
		return task, nil
	}

	if len(chunks) == 0 {
		task.Status = domain.TaskDone
		return task, nil
	}

	if err := p.vector.CreateCollection(ctx, p.embedder.Dimension(), p.embedder.Metric()); err != nil {
		return p.fail(task, err)
	}

	chunks = p.dedupChunks(ctx, chunks, task)

	for start := 0; start < len(chunks); start += p.opts.BatchSize {
		end := start + p.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		if err := p.processBatch(ctx, task, params.Meta, chunks[start:end]); err != nil {
			return p.fail(task, err)
		}
		if p.opts.Progress != nil {
			p.opts.Progress(task.InsertedChunks, len(chunks))
		}
	}

	task.Status = domain.TaskInserting
	tFlush := time.Now()
	if err := p.vector.Flush(ctx); err != nil {
		return p.fail(task, fmt.Errorf("flush vector index: %w", err))
	}
	task.Timings.FlushMS = msSince(tFlush)

	task.Status = domain.TaskDone
	p.opts.Logger.Info("ingest done",
		"task_id", task.TaskID, "doc_id", docID,
		"requested_chunks", task.RequestedChunks,
		"inserted_chunks", task.InsertedChunks,
		"skipped_chunks", task.SkippedChunks,
		"chunk_ms", task.Timings.ChunkMS,
		"embed_ms", task.Timings.EmbedMS,
		"insert_ms", task.Timings.InsertMS,
		"flush_ms", task.Timings.FlushMS)
	return task, nil
}

// resolveInput returns literal text or fetches the referenced document.
func (p *IngestPipeline) resolveInput(ctx context.Context, params IngestParams) (string, error) {
	switch {
	case params.Text != "" && params.FileURL != "":
		return "", fmt.Errorf("%w: text and file_url are mutually exclusive", domain.ErrInvalidConfig)
	case params.Text != "":
		return params.Text, nil
	case params.FileURL != "":
		if p.opts.Fetcher == nil {
			return "", fmt.Errorf("%w: no fetcher configured for file_url ingestion", domain.ErrInvalidConfig)
		}
		body, err := p.opts.Fetcher.Fetch(ctx, params.FileURL)
		if err != nil {
			return "", err
		}
		return string(body), nil
	default:
		return "", fmt.Errorf("%w: either text or file_url must be provided", domain.ErrInvalidConfig)
	}
}

// dedupChunks drops chunks whose content hash was ingested within the dedup
// window. Store errors make dedup a no-op for that chunk; dedup is best
// effort, never a reason to fail a task.
func (p *IngestPipeline) dedupChunks(ctx context.Context, chunks []domain.Chunk, task *domain.IngestTask) []domain.Chunk {
	if p.opts.Dedup == nil {
		return chunks
	}
	kept := chunks[:0]
	for _, c := range chunks {
		key := cache.ChunkKey(c.Text)
		if _, seen, err := p.opts.Dedup.Get(ctx, key); err == nil && seen {
			task.SkippedChunks++
			continue
		}
		_ = p.opts.Dedup.Set(ctx, key, []byte{1}, p.opts.DedupTTL)
		kept = append(kept, c)
	}
	return kept
}

// processBatch embeds one batch and inserts it. The insert is retried once;
// a second failure reports the chunks committed by prior batches.
func (p *IngestPipeline) processBatch(ctx context.Context, task *domain.IngestTask, userMeta map[string]string, batch []domain.Chunk) error {
	task.Status = domain.TaskEmbedding
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	tEmbed := time.Now()
	vectors, err := p.embedder.Embed(ctx, texts)
	task.Timings.EmbedMS += msSince(tEmbed)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return fmt.Errorf("embed batch: got %d vectors for %d chunks", len(vectors), len(batch))
	}
	dim := p.embedder.Dimension()
	for _, v := range vectors {
		if len(v) != dim {
			return &domain.DimensionMismatchError{Want: dim, Got: len(v)}
		}
	}

	records := make([]port.VectorRecord, len(batch))
	for i, c := range batch {
		meta := make(map[string]string, len(userMeta)+1)
		for k, v := range userMeta {
			meta[k] = v
		}
		meta["text"] = c.Text
		records[i] = port.VectorRecord{
			DocID:   c.DocID,
			ChunkID: c.ChunkID,
			Vector:  vectors[i],
			Meta:    meta,
		}
	}

	task.Status = domain.TaskInserting
	tInsert := time.Now()
	err = p.vector.Insert(ctx, records)
	if err != nil {
		p.opts.Logger.Warn("batch insert failed, retrying once",
			"task_id", task.TaskID, "batch_size", len(records), "error", err)
		err = p.vector.Insert(ctx, records)
	}
	task.Timings.InsertMS += msSince(tInsert)
	if err != nil {
		return &domain.InsertError{Committed: task.InsertedChunks, Err: err}
	}

	for _, c := range batch {
		if err := p.lexical.Index(ctx, c.DocID, c.ChunkID, c.Text); err != nil {
			return fmt.Errorf("mirror chunk %s/%d into lexical index: %w", c.DocID, c.ChunkID, err)
		}
	}

	task.InsertedChunks += len(batch)
	return nil
}

func (p *IngestPipeline) fail(task *domain.IngestTask, err error) (*domain.IngestTask, error) {
	task.Status = domain.TaskFailed
	task.Error = err.Error()
	p.opts.Logger.Error("ingest failed", "task_id", task.TaskID, "error", err)
	return task, err
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
