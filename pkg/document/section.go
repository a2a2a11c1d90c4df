package document

// Section is one header-delimited node of a document. Sections live in a
// Tree arena and reference their parent and children by index, so the
// structure stays a flat slice with no owning pointers.
//
// Content holds the text between this section's header and the next
// structural header, exclusive of subsections. Start and End are byte
// offsets into the source text; the span of every child is contained in
// the span of its parent, and siblings are ordered and non-overlapping.
type Section struct {
	Level    int    `json:"level"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Parent   int    `json:"parent"`
	Children []int  `json:"children"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// Tree is an arena of sections produced by one parse. It is built once per
// document and not mutated afterwards.
type Tree struct {
	Sections []Section `json:"sections"`
	Roots    []int     `json:"roots"`
}

// Section returns the node with the given arena id.
func (t *Tree) Section(id int) *Section {
	return &t.Sections[id]
}

// Empty reports whether the parse found no structural headers.
func (t *Tree) Empty() bool {
	return len(t.Roots) == 0
}

// HeaderLine re-emits the markdown header line for a section.
func HeaderLine(s *Section) string {
	line := make([]byte, 0, s.Level+1+len(s.Title))
	for i := 0; i < s.Level; i++ {
		line = append(line, '#')
	}
	line = append(line, ' ')
	line = append(line, s.Title...)
	return string(line)
}
