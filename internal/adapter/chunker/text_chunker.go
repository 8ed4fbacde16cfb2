package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"hybridrag/internal/domain"
)

// Strategy selects how text is split.
type Strategy string

const (
	StrategyChar     Strategy = "char"
	StrategySentence Strategy = "sentence"
)

// TextChunker splits raw text into overlapping chunks. Offsets are rune
// offsets into the original text, so multi-byte input chunks the same way
// regardless of encoding width.
type TextChunker struct {
	strategy Strategy
	size     int
	overlap  int
}

// NewTextChunker validates the parameters and returns a chunker.
// Constraints: size > 0 and 0 <= overlap < size.
func NewTextChunker(strategy Strategy, size, overlap int) (*TextChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be > 0, got %d", domain.ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: 0 <= overlap < size must hold, got overlap=%d size=%d", domain.ErrInvalidConfig, overlap, size)
	}
	if strategy != StrategyChar && strategy != StrategySentence {
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidConfig, strategy)
	}
	return &TextChunker{strategy: strategy, size: size, overlap: overlap}, nil
}

// Chunk splits text into chunks. Empty text yields an empty slice; text
// shorter than size yields exactly one chunk.
func (c *TextChunker) Chunk(docID, text string, meta map[string]string) ([]domain.Chunk, error) {
	if text == "" {
		return nil, nil
	}
	runes := []rune(text)
	if c.strategy == StrategyChar {
		return c.chunkByChar(docID, runes, meta), nil
	}
	return c.chunkBySentence(docID, runes, meta), nil
}

func (c *TextChunker) chunkByChar(docID string, runes []rune, meta map[string]string) []domain.Chunk {
	var chunks []domain.Chunk

	n := len(runes)
	pos := 0
	cid := 0
	for pos < n {
		end := pos + c.size
		if end > n {
			end = n
		}
		chunks = append(chunks, domain.Chunk{
			DocID:   docID,
			ChunkID: cid,
			Text:    string(runes[pos:end]),
			Start:   pos,
			End:     end,
			Meta:    meta,
		})
		cid++
		if end == n {
			break
		}
		pos = end - c.overlap
	}
	return chunks
}

// sentenceSpan is a trimmed sentence with its rune offsets.
type sentenceSpan struct {
	start int
	end   int
}

// isSentenceBoundary reports runes that terminate a sentence. Newlines also
// act as boundaries so list-style corpora chunk at line breaks.
func isSentenceBoundary(r rune) bool {
	switch r {
	case '.', '!', '?', ';', '。', '！', '？', '；', '\n':
		return true
	}
	return false
}

// splitSentences returns trimmed sentence spans. Falls back to the whole
// text as one span when no boundary produces a non-empty sentence.
func splitSentences(runes []rune) []sentenceSpan {
	var spans []sentenceSpan

	last := 0
	n := len(runes)
	for i := 0; i <= n; i++ {
		atEnd := i == n
		if !atEnd && !isSentenceBoundary(runes[i]) {
			continue
		}
		end := i
		if !atEnd {
			// Keep the delimiter with the sentence, then swallow any
			// run of further delimiters and whitespace.
			end = i + 1
			for end < n && (isSentenceBoundary(runes[end]) || unicode.IsSpace(runes[end])) {
				end++
			}
			i = end - 1
		}
		if span, ok := trimSpan(runes, last, end); ok {
			spans = append(spans, span)
		}
		last = end
	}

	if len(spans) == 0 {
		spans = []sentenceSpan{{start: 0, end: n}}
	}
	return spans
}

// trimSpan narrows [start,end) to exclude surrounding whitespace.
func trimSpan(runes []rune, start, end int) (sentenceSpan, bool) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	if start >= end {
		return sentenceSpan{}, false
	}
	return sentenceSpan{start: start, end: end}, true
}

func (c *TextChunker) chunkBySentence(docID string, runes []rune, meta map[string]string) []domain.Chunk {
	sentences := splitSentences(runes)

	var chunks []domain.Chunk
	n := len(sentences)
	i := 0
	cid := 0

	for i < n {
		// Pack sentences greedily while the chunk stays within size.
		start := sentences[i].start
		end := sentences[i].end
		j := i
		for j+1 < n && sentences[j+1].end-start <= c.size {
			j++
			end = sentences[j].end
		}

		chunks = append(chunks, domain.Chunk{
			DocID:   docID,
			ChunkID: cid,
			Text:    string(runes[start:end]),
			Start:   start,
			End:     end,
			Meta:    meta,
		})
		cid++

		if j == n-1 {
			break
		}

		// Step the window back by overlap characters, snapped to the first
		// sentence starting at or after the desired position.
		desired := end - c.overlap
		if desired < start {
			desired = start
		}
		next := j + 1
		for k := i; k <= j; k++ {
			if sentences[k].start >= desired {
				next = k
				break
			}
		}
		if next <= i {
			next = i + 1 // always advance
		}
		i = next
	}

	return chunks
}

// Describe returns a short human-readable form for logs.
func (c *TextChunker) Describe() string {
	return fmt.Sprintf("%s size=%d overlap=%d", c.strategy, c.size, c.overlap)
}

// ParseStrategy converts a config string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyChar:
		return StrategyChar, nil
	case StrategySentence:
		return StrategySentence, nil
	}
	return "", fmt.Errorf("%w: unknown chunk strategy %q", domain.ErrInvalidConfig, s)
}
