package document

// Type is a coarse hint about the format of a document's content. The
// ingestion core never parses binary formats; conversion to text happens
// upstream.
type Type string

const (
	TypeMarkdown Type = "markdown"
	TypePlain    Type = "plain"
	TypeOther    Type = "other"
)

// Document is the unit of ingestion: raw text plus a caller-supplied id
// and a format hint. The id becomes the provenance marker on every graph
// record the document contributes to.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Type    Type   `json:"type"`
}
