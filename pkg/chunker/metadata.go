package chunker

import (
	"strings"

	"github.com/graphloom/graphloom/internal/util"
)

// Chunk is a bounded-size content unit with its position and navigation
// metadata. IDs are sequential and scoped to one document; PreviousID and
// NextID form a doubly-linked total order over the document's chunks and
// are nil at the ends.
//
// Start and End are best-effort byte offsets into the original text. A
// chunk whose content was transformed (context-prefixed fallback splits)
// may not be locatable; such chunks carry -1 offsets.
type Chunk struct {
	ID         int    `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	WordCount  int    `json:"word_count"`
	PreviousID *int   `json:"previous_id"`
	NextID     *int   `json:"next_id"`
}

// BuildChunks turns an ordered chunk-content list into Chunk records.
// Offsets are located by a forward search from the end of the previous
// match, falling back to a from-start search, and to -1 when the content
// cannot be found at all.
func BuildChunks(documentID string, source string, contents []string) []Chunk {
	chunks := make([]Chunk, 0, len(contents))
	searchFrom := 0

	for i, content := range contents {
		start, end := -1, -1
		if idx := strings.Index(source[searchFrom:], content); idx >= 0 {
			start = searchFrom + idx
			end = start + len(content)
			searchFrom = end
		} else if idx := strings.Index(source, content); idx >= 0 {
			start = idx
			end = start + len(content)
		}

		chunks = append(chunks, Chunk{
			ID:         i,
			DocumentID: documentID,
			Content:    content,
			Start:      start,
			End:        end,
			WordCount:  util.CountWords(content),
		})
	}

	for i := range chunks {
		if i > 0 {
			prev := chunks[i-1].ID
			chunks[i].PreviousID = &prev
		}
		if i < len(chunks)-1 {
			next := chunks[i+1].ID
			chunks[i].NextID = &next
		}
	}

	return chunks
}
