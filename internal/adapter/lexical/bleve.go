package lexical

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"hybridrag/internal/port"
)

// BleveIndex is the persistent lexical backend. Bleve's scorch segments
// give BM25-style scoring without holding the corpus in process memory.
type BleveIndex struct {
	index bleve.Index
}

// bleveChunk is the stored document shape; one per chunk.
type bleveChunk struct {
	DocID   string `json:"doc_id"`
	ChunkID int    `json:"chunk_id"`
	Text    string `json:"text"`
}

// OpenBleve opens the index at dir, creating it when absent.
func OpenBleve(dir string) (*BleveIndex, error) {
	index, err := bleve.Open(dir)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(dir, buildChunkMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func buildChunkMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "text"

	docMapping := bleve.NewDocumentMapping()

	textField := bleve.NewTextFieldMapping()
	textField.Store = true
	textField.Index = true
	docMapping.AddFieldMappingsAt("text", textField)

	docIDField := bleve.NewTextFieldMapping()
	docIDField.Store = true
	docIDField.Index = true
	docIDField.Analyzer = "keyword"
	docMapping.AddFieldMappingsAt("doc_id", docIDField)

	chunkIDField := bleve.NewNumericFieldMapping()
	chunkIDField.Store = true
	chunkIDField.Index = false
	docMapping.AddFieldMappingsAt("chunk_id", chunkIDField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Index adds one chunk. The bleve id is doc_id::chunk_id, so re-ingesting
// the same chunk overwrites rather than duplicates.
func (b *BleveIndex) Index(ctx context.Context, docID string, chunkID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := fmt.Sprintf("%s::%d", docID, chunkID)
	return b.index.Index(id, bleveChunk{DocID: docID, ChunkID: chunkID, Text: text})
}

// Search runs a match query over the text field and returns the top-k.
func (b *BleveIndex) Search(ctx context.Context, query string, topK int) ([]port.LexicalHit, error) {
	match := bleve.NewMatchQuery(query)
	match.SetField("text")

	req := bleve.NewSearchRequestOptions(match, topK, 0, false)
	req.Fields = []string{"doc_id", "chunk_id", "text"}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	hits := make([]port.LexicalHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := port.LexicalHit{Score: h.Score}
		if v, ok := h.Fields["doc_id"].(string); ok {
			hit.DocID = v
		}
		if v, ok := h.Fields["chunk_id"].(float64); ok {
			hit.ChunkID = int(v)
		}
		if v, ok := h.Fields["text"].(string); ok {
			hit.Text = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (b *BleveIndex) Close() error {
	return b.index.Close()
}
