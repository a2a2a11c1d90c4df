package chunker

import (
	"fmt"
	"strings"

	"github.com/graphloom/graphloom/pkg/document"
	"github.com/graphloom/graphloom/pkg/logger"
)

const (
	// DefaultMaxDepth bounds recursion into subsections before the
	// sliding-window fallback takes over.
	DefaultMaxDepth = 4
	// DefaultOverlap is the window overlap fraction for fallback splits.
	DefaultOverlap = 0.2
)

// Chunker splits a parsed document into an ordered list of bounded-size
// content strings. Sections that fit within MaxSize are emitted whole;
// larger sections are packed greedily from their children, and structure
// that cannot be split any further falls back to a fixed-size sliding
// window over context-prefixed text.
//
// Chunks are emitted as contiguous slices of the source text wherever
// possible, so the metadata builder can locate them by offset. Only
// re-prefixed continuation chunks and windowed fallback chunks carry
// repeated header context that is absent from the source.
type Chunker struct {
	maxSize  int
	maxDepth int
	overlap  float64
}

// NewChunkerParams configures a Chunker.
//
// MaxSize is the target chunk size in bytes and must be positive.
// MaxDepth bounds section recursion; Overlap is the fallback window
// overlap as a fraction of the window size.
type NewChunkerParams struct {
	MaxSize  int
	MaxDepth int
	Overlap  float64
}

// NewChunker creates a Chunker. A non-positive MaxSize is a programmer
// error and is rejected.
func NewChunker(params NewChunkerParams) (*Chunker, error) {
	if params.MaxSize <= 0 {
		return nil, fmt.Errorf("chunker max size must be positive, got %d", params.MaxSize)
	}
	maxDepth := params.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	overlap := params.Overlap
	if overlap <= 0 {
		overlap = DefaultOverlap
	}
	if overlap > 0.5 {
		overlap = 0.5
	}
	return &Chunker{
		maxSize:  params.MaxSize,
		maxDepth: maxDepth,
		overlap:  overlap,
	}, nil
}

// MaxSize returns the configured chunk size bound.
func (c *Chunker) MaxSize() int {
	return c.maxSize
}

// Split chunks text using its parsed section tree. Text before the first
// root section is emitted ahead of it; a document with no sections at all
// degrades to a flat sliding-window split. Chunking is deterministic:
// the same text and configuration always yield the same chunk list.
func (c *Chunker) Split(text string, tree *document.Tree) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if tree == nil || tree.Empty() {
		return c.window(strings.TrimSpace(text))
	}

	var out []string

	preamble := strings.TrimSpace(text[:tree.Section(tree.Roots[0]).Start])
	if preamble != "" {
		if len(preamble) <= c.maxSize {
			out = append(out, preamble)
		} else {
			out = append(out, c.window(preamble)...)
		}
	}

	for _, root := range tree.Roots {
		c.splitSection(text, tree, root, 0, &out)
	}

	return out
}

// splitSection is the recursive heart of the chunker: emit whole when the
// section fits, window when recursion is exhausted, otherwise pack direct
// content and successive whole children greedily. Children are always
// processed in document order and no child is split across non-adjacent
// chunks.
func (c *Chunker) splitSection(text string, t *document.Tree, id int, depth int, out *[]string) {
	sec := t.Section(id)
	full := strings.TrimSpace(text[sec.Start:sec.End])
	if len(full) <= c.maxSize {
		*out = append(*out, full)
		return
	}

	if depth >= c.maxDepth || len(sec.Children) == 0 {
		*out = append(*out, c.window(c.ancestorPrefix(t, id)+full)...)
		return
	}

	header := document.HeaderLine(sec)

	// The accumulator is a span of source text. The first chunk of this
	// section starts at its header line; chunks after a flush are
	// re-prefixed with the header instead, since the span no longer
	// includes it.
	spanStart, spanEnd := -1, -1
	prefix := ""

	spanText := func() string {
		if spanStart < 0 {
			return ""
		}
		return strings.TrimSpace(text[spanStart:spanEnd])
	}
	chunkLen := func(end int) int {
		n := len(strings.TrimSpace(text[spanStart:end]))
		if prefix != "" {
			n += len(prefix) + 2
		}
		return n
	}
	flush := func() {
		txt := spanText()
		if txt != "" && txt != header {
			if prefix != "" {
				txt = prefix + "\n\n" + txt
			}
			if len(txt) > c.maxSize {
				logger.Warn("emitting oversized chunk", "size", len(txt), "max", c.maxSize)
			}
			*out = append(*out, txt)
		}
		spanStart, spanEnd = -1, -1
		prefix = header
	}

	contentEnd := sec.End
	if len(sec.Children) > 0 {
		contentEnd = t.Section(sec.Children[0]).Start
	}
	spanStart, spanEnd = sec.Start, contentEnd

	// Direct content alone can exceed the bound; split it before any
	// children are considered.
	if len(spanText()) > c.maxSize {
		*out = append(*out, c.window(c.ancestorPrefix(t, id)+spanText())...)
		spanStart, spanEnd = -1, -1
		prefix = header
	}

	for _, childID := range sec.Children {
		child := t.Section(childID)
		childLen := len(strings.TrimSpace(text[child.Start:child.End]))

		// A child that can never fit is flushed past and recursed into
		// directly, bypassing the accumulator.
		if childLen > c.maxSize {
			flush()
			c.splitSection(text, t, childID, depth+1, out)
			continue
		}

		if spanStart >= 0 && chunkLen(child.End) > c.maxSize {
			flush()
		}
		if spanStart < 0 {
			spanStart = child.Start
		}
		spanEnd = child.End
	}
	flush()
}

// ancestorPrefix walks up the parent chain and re-emits each ancestor's
// header line, so flat window splits keep their position in the document.
func (c *Chunker) ancestorPrefix(t *document.Tree, id int) string {
	var headers []string
	for parent := t.Section(id).Parent; parent >= 0; parent = t.Section(parent).Parent {
		headers = append(headers, document.HeaderLine(t.Section(parent)))
	}
	if len(headers) == 0 {
		return ""
	}
	var b strings.Builder
	for i := len(headers) - 1; i >= 0; i-- {
		b.WriteString(headers[i])
		b.WriteString("\n\n")
	}
	return b.String()
}
