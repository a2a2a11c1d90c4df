package extract

import "context"

// Entity is one entity sighting in an extraction fragment. Identity at
// this layer is the exact Name string; normalization happens only at the
// graph assembly boundary.
type Entity struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

// Relationship is a directed edge between two entity names, with the text
// context it was seen in.
type Relationship struct {
	Source   string `json:"source"`
	Relation string `json:"relation"`
	Target   string `json:"target"`
	Context  string `json:"context"`
}

// Result is the entities and relationships produced from one extraction
// unit (a chunk or a whole document), or from merging several fragments.
type Result struct {
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
}

// NewResult returns an empty, non-nil result. Callers always receive a
// well-formed result object, even for gated or empty documents.
func NewResult() *Result {
	return &Result{
		Entities:      []Entity{},
		Relationships: []Relationship{},
	}
}

// Extractor is the external knowledge extraction call. Implementations may
// be slow and may fail; the pipeline treats any failure as an empty result
// for that unit rather than aborting the document.
type Extractor interface {
	Extract(ctx context.Context, text string, contextHint string) (*Result, error)
}
