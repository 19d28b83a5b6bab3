// Package indexer provides document chunking and corpus indexing.
package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/counselhq/counsel/internal/models"
)

// separators is the layered split preference: paragraph breaks first, then
// line breaks, sentence ends, clause breaks, and finally single spaces.
var separators = []string{"\n\n", "\n", ". ", ", ", " "}

// Chunker splits text into overlapping character-bounded chunks, preferring
// to cut at semantic boundaries over hard character cuts.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into Chunks tagged with source=filename and
// chunk_id=filename_index (index is the chunk's 0-based position within the
// file). Empty or whitespace-only input yields nil.
func (c *Chunker) Chunk(text, filename string) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var chunks []models.Chunk
	start := 0
	n := len(text)
	for start < n {
		end := start + c.chunkSize
		if end >= n {
			end = n
		} else {
			end = c.splitPoint(text, start, end)
		}
		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			chunks = append(chunks, models.Chunk{
				Text:    piece,
				Source:  filename,
				ChunkID: fmt.Sprintf("%s_%d", filename, len(chunks)),
			})
		}
		if end >= n {
			break
		}
		next := end - c.chunkOverlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// splitPoint returns the cut index for the window (start, limit), preferring
// the latest occurrence of the highest-priority separator. When no separator
// exists in the window, cuts at limit snapped back to a rune boundary.
func (c *Chunker) splitPoint(text string, start, limit int) int {
	window := text[start:limit]
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i > 0 {
			return start + i + len(sep)
		}
	}
	for limit > start+1 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}
