package document

import (
	"regexp"
	"strings"
)

// DefaultMaxHeaderDepth is the deepest header level treated as a
// structural break.
const DefaultMaxHeaderDepth = 6

var (
	headerRe        = regexp.MustCompile(`^(#{1,6})[ \t]+(.*)$`)
	closingHashesRe = regexp.MustCompile(`[ \t]+#+[ \t]*$`)
)

// Parse scans text for markdown headers and builds the section tree.
//
// Parent assignment uses a stack: a new header becomes a child of the most
// recent still-open header with a strictly lower level. Headers deeper than
// maxDepth are not structural breaks; their lines fold into the content of
// the nearest open section. Headers inside fenced code blocks are ignored.
//
// A document with no headers yields an empty tree, not an error; the
// chunker handles that case with its flat fallback.
func Parse(text string, maxDepth int) *Tree {
	if maxDepth <= 0 || maxDepth > DefaultMaxHeaderDepth {
		maxDepth = DefaultMaxHeaderDepth
	}

	t := &Tree{}
	var contents []*strings.Builder
	var stack []int
	inFence := false

	for start := 0; start < len(text); {
		var line string
		var next int
		if nl := strings.IndexByte(text[start:], '\n'); nl < 0 {
			line = text[start:]
			next = len(text)
		} else {
			line = text[start : start+nl]
			next = start + nl + 1
		}

		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(strings.TrimSpace(trimmed), "```") {
			inFence = !inFence
		}

		var m []string
		if !inFence {
			m = headerRe.FindStringSubmatch(trimmed)
		}

		if m != nil && len(m[1]) <= maxDepth {
			level := len(m[1])
			title := strings.TrimSpace(closingHashesRe.ReplaceAllString(m[2], ""))

			for len(stack) > 0 && t.Sections[stack[len(stack)-1]].Level >= level {
				t.Sections[stack[len(stack)-1]].End = start
				stack = stack[:len(stack)-1]
			}

			parent := -1
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}

			id := len(t.Sections)
			t.Sections = append(t.Sections, Section{
				Level:  level,
				Title:  title,
				Parent: parent,
				Start:  start,
				End:    len(text),
			})
			contents = append(contents, &strings.Builder{})

			if parent >= 0 {
				t.Sections[parent].Children = append(t.Sections[parent].Children, id)
			} else {
				t.Roots = append(t.Roots, id)
			}
			stack = append(stack, id)
		} else if len(stack) > 0 {
			contents[stack[len(stack)-1]].WriteString(text[start:next])
		}

		start = next
	}

	for i := range t.Sections {
		t.Sections[i].Content = contents[i].String()
	}

	return t
}
