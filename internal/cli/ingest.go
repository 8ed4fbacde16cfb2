package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"hybridrag/internal/adapter/chunker"
	"hybridrag/internal/adapter/fetch"
	"hybridrag/internal/adapter/fs"
	"hybridrag/internal/domain"
	"hybridrag/internal/usecase"
)

var (
	ingestText     string
	ingestURL      string
	ingestDir      string
	ingestDocID    string
	ingestStrategy string
	ingestSize     int
	ingestOverlap  int
	ingestDryRun   bool
	ingestJSON     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest text, a URL or a directory into the indexes",
	Long: `Chunk the input, embed the chunks and insert them into the vector index,
mirroring each chunk's text into the lexical index. With a path argument,
every file matching the configured include globs is ingested, its relative
path doubling as the doc id.

Examples:
  hybridrag ingest --text "Milvus is a vector database." --doc-id intro
  hybridrag ingest --url https://example.com/doc.txt
  hybridrag ingest ./docs --strategy sentence --size 800 --overlap 100
  hybridrag ingest --text "..." --dry-run    # Preview chunk count only`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "literal text to ingest")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "URL of a document to fetch and ingest")
	ingestCmd.Flags().StringVar(&ingestDocID, "doc-id", "", "document identifier (default is the task id)")
	ingestCmd.Flags().StringVar(&ingestStrategy, "strategy", "", "chunking strategy: char or sentence (default from config)")
	ingestCmd.Flags().IntVar(&ingestSize, "size", 0, "chunk size in characters (default from config)")
	ingestCmd.Flags().IntVar(&ingestOverlap, "overlap", -1, "chunk overlap in characters (default from config)")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "chunk and report counts without writing")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output task report as JSON")
	ingestCmd.MarkFlagsMutuallyExclusive("text", "url")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		ingestDir = args[0]
	}
	if ingestText == "" && ingestURL == "" && ingestDir == "" {
		return fmt.Errorf("provide --text, --url or a directory path")
	}
	if ingestDir != "" && (ingestText != "" || ingestURL != "") {
		return fmt.Errorf("a directory path cannot be combined with --text or --url")
	}

	cfg := GetConfig()
	ctx := cmd.Context()

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	strategy, size, overlap, err := chunkingParams()
	if err != nil {
		return err
	}

	opts := usecase.IngestOptions{
		Fetcher:   fetch.NewHTTPFetcher(0),
		BatchSize: cfg.Ingest.BatchSize,
		Logger:    logger,
	}
	if cfg.Ingest.Dedup {
		opts.Dedup = b.store
		opts.DedupTTL = time.Duration(cfg.Ingest.DedupTTLSecs) * time.Second
	}

	pipeline := usecase.NewIngestPipeline(b.embedder, b.vector, b.lexical, opts)

	base := usecase.IngestParams{
		DocID:    ingestDocID,
		Text:     ingestText,
		FileURL:  ingestURL,
		Strategy: strategy,
		Size:     size,
		Overlap:  overlap,
		DryRun:   ingestDryRun,
	}

	if ingestDir != "" {
		return runIngestDir(ctx, pipeline, base)
	}

	task, err := pipeline.Ingest(ctx, base)
	printTask(task)
	return err
}

// runIngestDir walks the directory with the configured globs and runs one
// ingest task per file, the file's relative path doubling as its doc id.
func runIngestDir(ctx context.Context, pipeline *usecase.IngestPipeline, base usecase.IngestParams) error {
	cfg := GetConfig()

	root, err := filepath.Abs(ingestDir)
	if err != nil {
		return fmt.Errorf("invalid directory: %w", err)
	}

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	files, err := walker.Walk(root)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if len(files) == 0 {
		fmt.Println("No files matched the configured include patterns.")
		return nil
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)

	var inserted, skipped, failed int
	for _, f := range files {
		text, err := fs.ReadFile(filepath.Join(root, f.Path))
		if err != nil {
			logger.Warn("skipping unreadable file", "path", f.Path, "error", err)
			failed++
			bar.Add(1)
			continue
		}

		params := base
		params.DocID = f.Path
		params.Text = text

		task, err := pipeline.Ingest(ctx, params)
		if err != nil {
			logger.Warn("file ingest failed", "path", f.Path, "error", err)
			failed++
		} else {
			inserted += task.InsertedChunks
			skipped += task.SkippedChunks
		}
		bar.Add(1)
	}
	bar.Finish()

	fmt.Printf("Ingested %d files: %d chunks inserted, %d deduplicated, %d files failed\n",
		len(files)-failed, inserted, skipped, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(files))
	}
	return nil
}

// chunkingParams merges flag overrides over the configured defaults.
func chunkingParams() (chunker.Strategy, int, int, error) {
	cfg := GetConfig()

	raw := cfg.Chunking.Strategy
	if ingestStrategy != "" {
		raw = ingestStrategy
	}
	strategy, err := chunker.ParseStrategy(raw)
	if err != nil {
		return "", 0, 0, err
	}

	size := cfg.Chunking.Size
	if ingestSize > 0 {
		size = ingestSize
	}
	overlap := cfg.Chunking.Overlap
	if ingestOverlap >= 0 {
		overlap = ingestOverlap
	}
	return strategy, size, overlap, nil
}

func printTask(task *domain.IngestTask) {
	if task == nil {
		return
	}
	if ingestJSON {
		output, _ := json.MarshalIndent(task, "", "  ")
		fmt.Println(string(output))
		return
	}
	fmt.Printf("Task %s: %s\n", task.TaskID, task.Status)
	if task.DryRun {
		fmt.Printf("  preview_chunks: %d\n", task.PreviewChunks)
		return
	}
	fmt.Printf("  chunks: %d requested, %d inserted, %d deduplicated\n",
		task.RequestedChunks, task.InsertedChunks, task.SkippedChunks)
	fmt.Printf("  timings: chunk %.1fms, embed %.1fms, insert %.1fms, flush %.1fms\n",
		task.Timings.ChunkMS, task.Timings.EmbedMS, task.Timings.InsertMS, task.Timings.FlushMS)
	if task.Error != "" {
		fmt.Printf("  error: %s\n", task.Error)
	}
}
