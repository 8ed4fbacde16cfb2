package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hybridrag/internal/adapter/retriever"
	"hybridrag/internal/domain"
	"hybridrag/internal/usecase"
)

var (
	queryText     string
	queryTopK     int
	queryHybrid   bool
	queryRerank   bool
	queryPage     int
	queryPageSize int
	queryDebug    bool
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search ingested documents",
	Long: `Search the ingested corpus. Hybrid mode runs the vector and lexical
searches in parallel and fuses the rankings with Reciprocal Rank Fusion;
without --hybrid only the vector index is consulted. If the vector backend
is unavailable the response degrades to the surviving signal and says so.

Examples:
  hybridrag query -q "vector database"
  hybridrag query -q "vector database" --hybrid --rerank
  hybridrag query -q "authentication" --hybrid --top-k 20 --page 2 --page-size 5
  hybridrag query -q "indexes" --hybrid --debug --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryHybrid, "hybrid", false, "fuse vector and lexical rankings")
	queryCmd.Flags().BoolVar(&queryRerank, "rerank", false, "rerank fused candidates (hybrid only)")
	queryCmd.Flags().IntVar(&queryPage, "page", 1, "result page, 1-based")
	queryCmd.Flags().IntVar(&queryPageSize, "page-size", 0, "results per page (default from config)")
	queryCmd.Flags().BoolVar(&queryDebug, "debug", false, "include per-signal lists and bypass the cache")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()

	b, err := openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	weights := retriever.Weights{
		Alpha: cfg.Retrieve.RerankAlpha,
		Beta:  cfg.Retrieve.RerankBeta,
		Gamma: cfg.Retrieve.RerankGamma,
		Delta: cfg.Retrieve.RerankDelta,
	}

	searcher := usecase.NewSearcher(b.embedder, b.vector, b.lexical, usecase.SearcherOptions{
		Reranker:       retriever.NewWeightedReranker(b.embedder, weights),
		Cache:          b.qcache,
		QueryLog:       b.qlog,
		Logger:         logger,
		RRFK:           cfg.Retrieve.RRFK,
		PoolMultiplier: cfg.Retrieve.PoolMultiplier,
		LegTimeout:     time.Duration(cfg.Retrieve.LegTimeoutMS) * time.Millisecond,
	})

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}
	pageSize := cfg.Retrieve.PageSize
	if queryPageSize > 0 {
		pageSize = queryPageSize
	}

	res, err := searcher.Query(ctx, usecase.QueryParams{
		Text:     queryText,
		TopK:     topK,
		Hybrid:   queryHybrid,
		Rerank:   queryRerank,
		Page:     queryPage,
		PageSize: pageSize,
		Debug:    queryDebug,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(output))
		return nil
	}
	printResult(res)
	return nil
}

func printResult(res *domain.QueryResult) {
	if res.Degraded {
		fmt.Printf("WARNING: degraded to %s (%s)\n\n", res.DegradedMode, res.DegradedReason)
	}
	if len(res.Results) == 0 {
		fmt.Println("No results found.")
		return
	}

	suffix := ""
	if res.CacheHit {
		suffix = " (cached)"
	}
	fmt.Printf("Found %d results for: %s%s\n\n", res.Pagination.Total, res.Query, suffix)

	offset := (res.Pagination.Page - 1) * res.Pagination.PageSize
	for i, r := range res.Results {
		fmt.Printf("--- [%d] %s#%d (%s) ---\n", offset+i+1, r.DocID, r.ChunkID, scoreSummary(r))
		text := r.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	fmt.Printf("page %d/%d, total_ms %.1f\n",
		res.Pagination.Page, pageCount(res.Pagination), res.Latency.TotalMS)
}

func scoreSummary(h domain.ScoredHit) string {
	switch {
	case h.RerankScore != nil:
		return fmt.Sprintf("rerank: %.4f", *h.RerankScore)
	case h.RRFScore != nil:
		return fmt.Sprintf("rrf: %.4f", *h.RRFScore)
	case h.VectorScore != nil:
		return fmt.Sprintf("vector: %.4f", *h.VectorScore)
	case h.LexicalScore != nil:
		return fmt.Sprintf("lexical: %.4f", *h.LexicalScore)
	default:
		return "unscored"
	}
}

func pageCount(p domain.Pagination) int {
	if p.PageSize <= 0 {
		return 1
	}
	n := (p.Total + p.PageSize - 1) / p.PageSize
	if n < 1 {
		n = 1
	}
	return n
}
