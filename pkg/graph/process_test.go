package graph

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/graphloom/graphloom/pkg/document"
	"github.com/graphloom/graphloom/pkg/extract"
	"github.com/graphloom/graphloom/pkg/store"
	"github.com/graphloom/graphloom/pkg/store/memstore"
	"github.com/graphloom/graphloom/pkg/strategy"
)

type mockExtractor struct {
	mu    sync.Mutex
	calls []string
	fn    func(text string, hint string) (*extract.Result, error)
}

func (m *mockExtractor) Extract(ctx context.Context, text string, hint string) (*extract.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()
	return m.fn(text, hint)
}

func (m *mockExtractor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func mustClient(t *testing.T, params NewClientParams) *Client {
	t.Helper()
	c, err := NewClient(params)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestProcessDocumentLevel(t *testing.T) {
	c := mustClient(t, NewClientParams{MaxChunkSize: 4000, TokenLimit: 4000})

	doc := &document.Document{
		ID:      "doc1",
		Type:    document.TypeMarkdown,
		Content: "# Notes\n\n" + strings.Repeat("plain prose about Python and Guido. ", 5),
	}
	ext := &mockExtractor{fn: func(text, hint string) (*extract.Result, error) {
		return &extract.Result{
			Entities: []extract.Entity{
				{Name: "Python", Type: "TECHNOLOGY", Category: "technology"},
				{Name: "Guido", Type: "PERSON", Category: "person"},
			},
			Relationships: []extract.Relationship{
				{Source: "Guido", Relation: "created", Target: "Python", Context: "origin"},
			},
		}, nil
	}}

	backend := memstore.New()
	assembler, err := store.NewAssembler(context.Background(), backend)
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}

	res, err := c.ProcessDocument(context.Background(), doc, ext, assembler)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}

	if res.Strategy != strategy.StrategyDocument {
		t.Errorf("strategy = %v, want document level", res.Strategy)
	}
	if got := ext.callCount(); got != 1 {
		t.Errorf("extractor called %d times, want 1", got)
	}
	if res.EntityCount != 2 || res.RelationCount != 1 {
		t.Errorf("counts = %d entities / %d relationships, want 2/1", res.EntityCount, res.RelationCount)
	}
	if len(res.FailedChunkIDs) != 0 {
		t.Errorf("failed chunks = %v, want none", res.FailedChunkIDs)
	}
	if res.Store == nil || len(res.Store.Failures) != 0 {
		t.Fatalf("store report = %+v, want clean", res.Store)
	}

	record, ok := assembler.Find("python")
	if !ok {
		t.Fatal("entity not assembled into graph")
	}
	if !reflect.DeepEqual(record.DocumentIDs, []string{"doc1"}) {
		t.Errorf("provenance = %v, want [doc1]", record.DocumentIDs)
	}
}

func TestProcessChunkLevelWithPartialFailure(t *testing.T) {
	c := mustClient(t, NewClientParams{
		MaxChunkSize:        200,
		TokenLimit:          10,
		ParallelExtractions: 2,
		MaxRetries:          2,
	})

	pad := strings.Repeat("filler words here ", 7)
	doc := &document.Document{
		ID:   "doc1",
		Type: document.TypeMarkdown,
		Content: fmt.Sprintf(
			"## One\n\nAlpha %s\n\n## Two\n\nFAILME %s\n\n## Three\n\nGamma %s\n",
			pad, pad, pad,
		),
	}

	ext := &mockExtractor{fn: func(text, hint string) (*extract.Result, error) {
		if strings.Contains(text, "FAILME") {
			return nil, errors.New("extractor unavailable")
		}
		res := extract.NewResult()
		if strings.Contains(text, "Alpha") {
			res.Entities = append(res.Entities,
				extract.Entity{Name: "Alpha", Category: "concept"},
				extract.Entity{Name: "Shared", Category: "concept"})
		}
		if strings.Contains(text, "Gamma") {
			res.Entities = append(res.Entities,
				extract.Entity{Name: "Shared", Category: "concept"},
				extract.Entity{Name: "Gamma", Category: "concept"})
		}
		return res, nil
	}}

	res, err := c.ProcessDocument(context.Background(), doc, ext, nil)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}

	if res.Strategy != strategy.StrategyChunk {
		t.Fatalf("strategy = %v, want chunk level", res.Strategy)
	}
	if len(res.Chunks) != 3 {
		t.Fatalf("chunked into %d, want 3", len(res.Chunks))
	}
	if !reflect.DeepEqual(res.FailedChunkIDs, []int{1}) {
		t.Errorf("failed chunks = %v, want [1]", res.FailedChunkIDs)
	}

	// Two clean chunks once each, the failing chunk retried twice.
	if got := ext.callCount(); got != 4 {
		t.Errorf("extractor called %d times, want 4", got)
	}

	var names []string
	for _, e := range res.Extraction.Entities {
		names = append(names, e.Name)
	}
	want := []string{"Alpha", "Shared", "Gamma"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("merged entities = %v, want %v", names, want)
	}
}

func TestProcessGatesShortDocument(t *testing.T) {
	c := mustClient(t, NewClientParams{MaxChunkSize: 4000})

	doc := &document.Document{ID: "doc1", Type: document.TypePlain, Content: "too short to bother"}
	ext := &mockExtractor{fn: func(text, hint string) (*extract.Result, error) {
		t.Error("extractor must not be called for a gated document")
		return extract.NewResult(), nil
	}}

	res, err := c.ProcessDocument(context.Background(), doc, ext, nil)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}

	if !res.Gated {
		t.Fatal("short document should be gated")
	}
	if !strings.Contains(res.GateReason, "minimum length") {
		t.Errorf("gate reason = %q", res.GateReason)
	}
	if len(res.Extraction.Entities) != 0 {
		t.Errorf("gated document yielded entities: %v", res.Extraction.Entities)
	}
	if len(res.Chunks) == 0 {
		t.Error("gated document should still be chunked")
	}
}

func TestProcessGatesCodeHeavyDocument(t *testing.T) {
	c := mustClient(t, NewClientParams{MaxChunkSize: 4000})

	doc := &document.Document{
		ID:      "doc1",
		Type:    document.TypeMarkdown,
		Content: "```\n" + strings.Repeat("x := compute(x)\n", 30) + "```\n",
	}
	ext := &mockExtractor{fn: func(text, hint string) (*extract.Result, error) {
		t.Error("extractor must not be called for a gated document")
		return extract.NewResult(), nil
	}}

	res, err := c.ProcessDocument(context.Background(), doc, ext, nil)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}

	if !res.Gated || !strings.Contains(res.GateReason, "code") {
		t.Errorf("gated=%v reason=%q, want code gate", res.Gated, res.GateReason)
	}
}

func TestProcessDocumentExtractionFailure(t *testing.T) {
	c := mustClient(t, NewClientParams{MaxChunkSize: 4000, MaxRetries: 2})

	doc := &document.Document{
		ID:      "doc1",
		Type:    document.TypePlain,
		Content: strings.Repeat("enough prose to pass the quality gate. ", 5),
	}
	ext := &mockExtractor{fn: func(text, hint string) (*extract.Result, error) {
		return nil, errors.New("extractor unavailable")
	}}

	res, err := c.ProcessDocument(context.Background(), doc, ext, nil)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}

	if got := ext.callCount(); got != 2 {
		t.Errorf("extractor called %d times, want 2 retries", got)
	}
	if len(res.FailedChunkIDs) != len(res.Chunks) {
		t.Errorf("failed chunks = %v, want every chunk", res.FailedChunkIDs)
	}
	if res.EntityCount != 0 || res.RelationCount != 0 {
		t.Errorf("counts = %d/%d, want 0/0", res.EntityCount, res.RelationCount)
	}
}

func TestProcessPlainDocumentSkipsParsing(t *testing.T) {
	c := mustClient(t, NewClientParams{MaxChunkSize: 4000})

	content := "# looks like a header\n\n" + strings.Repeat("but the type says plain text. ", 5)
	doc := &document.Document{ID: "doc1", Type: document.TypePlain, Content: content}
	ext := &mockExtractor{fn: func(text, hint string) (*extract.Result, error) {
		return extract.NewResult(), nil
	}}

	res, err := c.ProcessDocument(context.Background(), doc, ext, nil)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}

	if len(res.Chunks) != 1 {
		t.Fatalf("plain document chunked into %d, want 1 flat chunk", len(res.Chunks))
	}
	if res.Chunks[0].Content != strings.TrimSpace(content) {
		t.Errorf("flat chunk = %q", res.Chunks[0].Content)
	}
}

func TestProcessEmptyDocument(t *testing.T) {
	c := mustClient(t, NewClientParams{MaxChunkSize: 4000})

	doc := &document.Document{ID: "doc1", Type: document.TypePlain, Content: "   \n"}
	ext := &mockExtractor{fn: func(text, hint string) (*extract.Result, error) {
		t.Error("extractor must not be called for an empty document")
		return extract.NewResult(), nil
	}}

	res, err := c.ProcessDocument(context.Background(), doc, ext, nil)
	if err != nil {
		t.Fatalf("ProcessDocument() error = %v", err)
	}
	if len(res.Chunks) != 0 {
		t.Errorf("empty document produced chunks: %v", res.Chunks)
	}
	if ext.callCount() != 0 {
		t.Error("extractor called for empty document")
	}
}

func TestProcessNilArguments(t *testing.T) {
	c := mustClient(t, NewClientParams{MaxChunkSize: 4000})
	ext := &mockExtractor{fn: func(text, hint string) (*extract.Result, error) {
		return extract.NewResult(), nil
	}}

	if _, err := c.ProcessDocument(context.Background(), nil, ext, nil); err == nil {
		t.Error("nil document should be rejected")
	}
	doc := &document.Document{ID: "doc1", Content: "text"}
	if _, err := c.ProcessDocument(context.Background(), doc, nil, nil); err == nil {
		t.Error("nil extractor should be rejected")
	}
}

func TestNewClientRejectsBadParams(t *testing.T) {
	if _, err := NewClient(NewClientParams{MaxChunkSize: 0}); err == nil {
		t.Error("NewClient() without a chunk size should fail")
	}
	if _, err := NewClient(NewClientParams{MaxChunkSize: 100, TokenLimit: -5}); err == nil {
		t.Error("NewClient() with a negative token limit should fail")
	}
}
