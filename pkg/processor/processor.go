package processor

import (
	"github.com/sudeepbogati7/threat-news-summarizer/internal/models"
)

type ProcessorConfig struct {
	ChunkSize    int // window size in runes
	ChunkOverlap int // runes shared between consecutive windows
}

// Chunker splits normalized documents into overlapping text windows,
// preferring to cut on a paragraph, then a sentence, then a word
// boundary before falling back to a hard cut. Windows cover the source
// text completely: nothing is dropped at the seams.
type Chunker struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Chunker {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}

	return Chunker{
		config: config,
	}
}

// Split chunks a single document. Each chunk inherits the parent
// metadata unchanged; Overlap records exactly how many leading runes
// the chunk shares with its predecessor, so concatenating chunk texts
// with that prefix stripped reconstructs the document text.
func (c *Chunker) Split(doc models.Document) []models.Chunk {
	runes := []rune(doc.Text)

	if len(runes) <= c.config.ChunkSize {
		return []models.Chunk{{
			Text:     doc.Text,
			Ordinal:  0,
			Overlap:  0,
			Metadata: doc.Metadata,
		}}
	}

	var chunks []models.Chunk
	start := 0
	prevEnd := 0

	for {
		end := start + c.config.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.cutPoint(runes, start, end)
		}

		chunks = append(chunks, models.Chunk{
			Text:     string(runes[start:end]),
			Ordinal:  len(chunks),
			Overlap:  prevEnd - start,
			Metadata: doc.Metadata,
		})

		if end == len(runes) {
			break
		}

		prevEnd = end
		next := end - c.config.ChunkOverlap
		if next <= start {
			// Overlap would stall the walk; drop it for this seam.
			next = end
		}
		start = next
	}

	return chunks
}

// cutPoint picks where to end the window starting at start, given the
// hard limit of a full window. Boundaries are searched backward no
// further than half a window, so chunks never degenerate.
func (c *Chunker) cutPoint(runes []rune, start, limit int) int {
	floor := start + c.config.ChunkSize/2

	// Paragraph break
	for i := limit - 1; i > floor; i-- {
		if runes[i-1] == '\n' && runes[i] == '\n' {
			return i + 1
		}
	}

	// Sentence end
	for i := limit - 1; i > floor; i-- {
		if isSentenceEnd(runes[i-1]) && isWhitespace(runes[i]) {
			return i + 1
		}
	}

	// Word boundary
	for i := limit - 1; i > floor; i-- {
		if isWhitespace(runes[i]) {
			return i + 1
		}
	}

	return limit
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
