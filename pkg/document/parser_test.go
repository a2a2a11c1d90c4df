package document

import (
	"strings"
	"testing"
)

func TestParseHierarchy(t *testing.T) {
	text := "# A\n\npreface\n\n## B\n\nb body\n\n### C\n\nc body\n\n## D\n\nd body\n"

	tree := Parse(text, DefaultMaxHeaderDepth)

	if len(tree.Sections) != 4 {
		t.Fatalf("Parse() produced %d sections, want 4", len(tree.Sections))
	}
	if len(tree.Roots) != 1 || tree.Roots[0] != 0 {
		t.Fatalf("Parse() roots = %v, want [0]", tree.Roots)
	}

	a, b, cSec, d := tree.Section(0), tree.Section(1), tree.Section(2), tree.Section(3)

	if a.Title != "A" || a.Level != 1 || a.Parent != -1 {
		t.Errorf("root section = %+v, want title A level 1 parent -1", a)
	}
	if want := []int{1, 3}; len(a.Children) != 2 || a.Children[0] != want[0] || a.Children[1] != want[1] {
		t.Errorf("root children = %v, want %v", a.Children, want)
	}
	if b.Parent != 0 || d.Parent != 0 || cSec.Parent != 1 {
		t.Errorf("parents = %d/%d/%d, want 0/0/1", b.Parent, d.Parent, cSec.Parent)
	}

	if got := strings.TrimSpace(a.Content); got != "preface" {
		t.Errorf("section A content = %q, want %q", got, "preface")
	}
	if got := strings.TrimSpace(b.Content); got != "b body" {
		t.Errorf("section B content = %q, want %q", got, "b body")
	}
	if got := strings.TrimSpace(cSec.Content); got != "c body" {
		t.Errorf("section C content = %q, want %q", got, "c body")
	}
	if got := strings.TrimSpace(d.Content); got != "d body" {
		t.Errorf("section D content = %q, want %q", got, "d body")
	}
}

// Every child span must be contained in its parent's span, and siblings
// must be ordered and non-overlapping.
func TestParseSpanInvariants(t *testing.T) {
	text := "# A\n\nintro\n\n## B\n\none\n\n### C\n\ntwo\n\n## D\n\nthree\n\n# E\n\nfour\n"

	tree := Parse(text, DefaultMaxHeaderDepth)

	for id, sec := range tree.Sections {
		if sec.Start < 0 || sec.End > len(text) || sec.Start >= sec.End {
			t.Errorf("section %d span [%d,%d) out of bounds", id, sec.Start, sec.End)
		}
		if !strings.HasPrefix(text[sec.Start:], strings.Repeat("#", sec.Level)+" ") {
			t.Errorf("section %d span does not start at its header line", id)
		}
		for i, childID := range sec.Children {
			child := tree.Section(childID)
			if child.Start < sec.Start || child.End > sec.End {
				t.Errorf("child %d span [%d,%d) escapes parent %d span [%d,%d)",
					childID, child.Start, child.End, id, sec.Start, sec.End)
			}
			if i > 0 {
				prev := tree.Section(sec.Children[i-1])
				if prev.End > child.Start {
					t.Errorf("siblings %d and %d overlap: [%d,%d) then [%d,%d)",
						sec.Children[i-1], childID, prev.Start, prev.End, child.Start, child.End)
				}
			}
		}
	}

	for i := 1; i < len(tree.Roots); i++ {
		prev := tree.Section(tree.Roots[i-1])
		cur := tree.Section(tree.Roots[i])
		if prev.End > cur.Start {
			t.Errorf("root sections overlap: [%d,%d) then [%d,%d)", prev.Start, prev.End, cur.Start, cur.End)
		}
	}
}

func TestParseDeepHeadersFold(t *testing.T) {
	text := "# A\n\n### deep\n\ndeep body\n\n## B\n\nb body\n"

	tree := Parse(text, 2)

	if len(tree.Sections) != 2 {
		t.Fatalf("Parse() produced %d sections, want 2", len(tree.Sections))
	}
	a := tree.Section(0)
	if !strings.Contains(a.Content, "### deep") {
		t.Errorf("deep header not folded into parent content: %q", a.Content)
	}
	if !strings.Contains(a.Content, "deep body") {
		t.Errorf("deep body not folded into parent content: %q", a.Content)
	}
}

func TestParseIgnoresFencedHeaders(t *testing.T) {
	text := "# A\n\n```\n# not a header\n```\n\ntail\n"

	tree := Parse(text, DefaultMaxHeaderDepth)

	if len(tree.Sections) != 1 {
		t.Fatalf("Parse() produced %d sections, want 1", len(tree.Sections))
	}
	if !strings.Contains(tree.Section(0).Content, "# not a header") {
		t.Errorf("fenced line missing from content: %q", tree.Section(0).Content)
	}
}

func TestParseNoHeaders(t *testing.T) {
	tree := Parse("plain text with no structure at all", DefaultMaxHeaderDepth)

	if !tree.Empty() {
		t.Errorf("Parse() of header-free text should yield an empty tree, got %d sections", len(tree.Sections))
	}
}

func TestParseTitleForms(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "plain", text: "## Title\n", want: "Title"},
		{name: "closing hashes", text: "## Title ##\n", want: "Title"},
		{name: "trailing spaces", text: "##  Title  \n", want: "Title"},
		{name: "no trailing newline", text: "## Title", want: "Title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Parse(tt.text, DefaultMaxHeaderDepth)
			if len(tree.Sections) != 1 {
				t.Fatalf("Parse() produced %d sections, want 1", len(tree.Sections))
			}
			if got := tree.Section(0).Title; got != tt.want {
				t.Errorf("title = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseHashWithoutSpaceIsNotHeader(t *testing.T) {
	tree := Parse("#hashtag\n\ntext\n", DefaultMaxHeaderDepth)

	if !tree.Empty() {
		t.Errorf("#hashtag should not be a header, got %d sections", len(tree.Sections))
	}
}

func TestHeaderLine(t *testing.T) {
	s := &Section{Level: 3, Title: "Sub Sub"}
	if got := HeaderLine(s); got != "### Sub Sub" {
		t.Errorf("HeaderLine() = %q, want %q", got, "### Sub Sub")
	}
}
