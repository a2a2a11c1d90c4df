package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/graphloom/graphloom/internal/util"
	"github.com/graphloom/graphloom/pkg/chunker"
	"github.com/graphloom/graphloom/pkg/document"
	"github.com/graphloom/graphloom/pkg/extract"
	"github.com/graphloom/graphloom/pkg/logger"
	"github.com/graphloom/graphloom/pkg/store"
	"github.com/graphloom/graphloom/pkg/strategy"
)

// Result is the outcome of processing one document. Processing reports
// success with metadata rather than hard failures: extraction problems
// show up as failed chunk ids and store problems as per-record failures
// in the apply report.
type Result struct {
	DocumentID     string
	Strategy       strategy.Strategy
	Chunks         []chunker.Chunk
	Extraction     *extract.Result
	FailedChunkIDs []int
	EntityCount    int
	RelationCount  int
	Gated          bool
	GateReason     string
	Store          *store.ApplyReport
}

// ProcessDocument runs the full pipeline for one document and applies the
// merged extraction to the graph through the assembler. A nil assembler
// skips assembly, for callers that only want the merged result.
//
// Only programmer errors (nil document or extractor) return an error; a
// document that yields no chunks or fails the quality gate returns a valid
// result with an empty extraction.
func (c *Client) ProcessDocument(
	ctx context.Context,
	doc *document.Document,
	extractor extract.Extractor,
	assembler *store.Assembler,
) (*Result, error) {
	if doc == nil {
		return nil, errors.New("document must not be nil")
	}
	if extractor == nil {
		return nil, errors.New("extractor must not be nil")
	}

	res := &Result{
		DocumentID: doc.ID,
		Extraction: extract.NewResult(),
	}

	var tree *document.Tree
	if doc.Type == document.TypeMarkdown {
		tree = document.Parse(doc.Content, document.DefaultMaxHeaderDepth)
	} else {
		tree = &document.Tree{}
	}
	if doc.Type == document.TypeMarkdown && tree.Empty() {
		logger.Debug("no headers found, using flat fallback chunking", "document", doc.ID)
	}

	contents := c.chunker.Split(doc.Content, tree)
	res.Chunks = chunker.BuildChunks(doc.ID, doc.Content, contents)

	if len(res.Chunks) == 0 {
		logger.Warn("document produced no chunks", "document", doc.ID)
		return res, nil
	}

	if err := c.selector.ValidateForExtraction(doc.Content); err != nil {
		res.Gated = true
		res.GateReason = err.Error()
		logger.Info("document gated, skipping extraction", "document", doc.ID, "reason", err)
		return res, nil
	}

	res.Strategy = c.selector.Select(doc.Content)

	var merged *extract.Result
	switch res.Strategy {
	case strategy.StrategyDocument:
		merged = c.extractDocument(ctx, doc, res, extractor)
	default:
		merged = c.extractChunks(ctx, doc, res, extractor)
	}

	extract.CoerceCategories(merged)
	res.Extraction = merged
	res.EntityCount = len(merged.Entities)
	res.RelationCount = len(merged.Relationships)

	if assembler != nil {
		report := assembler.ApplyResult(ctx, doc.ID, merged)
		res.Store = report
		if len(report.Failures) > 0 {
			logger.Warn(
				"some graph records failed to persist",
				"document", doc.ID,
				"failed", len(report.Failures),
			)
		}
	}

	logger.Info(
		"document processed",
		"document", doc.ID,
		"strategy", res.Strategy.String(),
		"chunks", len(res.Chunks),
		"failed_chunks", len(res.FailedChunkIDs),
		"entities", res.EntityCount,
		"relationships", res.RelationCount,
	)

	return res, nil
}

// extractDocument runs one extraction over the whole document. A failure
// after retries contributes an empty result and marks every chunk failed.
func (c *Client) extractDocument(
	ctx context.Context,
	doc *document.Document,
	res *Result,
	extractor extract.Extractor,
) *extract.Result {
	frag, err := util.RetryWithContext(ctx, c.maxRetries, func(ctx context.Context) (*extract.Result, error) {
		return extractor.Extract(ctx, doc.Content, fmt.Sprintf("document %s", doc.ID))
	})
	if err != nil {
		logger.Warn("document extraction failed", "document", doc.ID, "err", err)
		for _, ch := range res.Chunks {
			res.FailedChunkIDs = append(res.FailedChunkIDs, ch.ID)
		}
		return extract.NewResult()
	}
	return extract.Merge([]*extract.Result{frag})
}

// extractChunks fans extraction out over the document's chunks with a
// bounded worker pool and joins before merging. Fragments are merged in
// chunk order, so the merged result is deterministic even when extraction
// calls complete out of order. A chunk that fails after retries
// contributes nothing and is recorded; the merge proceeds with whatever
// fragments were collected.
func (c *Client) extractChunks(
	ctx context.Context,
	doc *document.Document,
	res *Result,
	extractor extract.Extractor,
) *extract.Result {
	fragments := make([]*extract.Result, len(res.Chunks))
	var failed []int
	var failedMu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelExtractions)

	for i, ch := range res.Chunks {
		i, ch := i, ch
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				failedMu.Lock()
				failed = append(failed, ch.ID)
				failedMu.Unlock()
				return nil
			default:
				hint := fmt.Sprintf("document %s, chunk %d of %d", doc.ID, ch.ID+1, len(res.Chunks))
				frag, err := util.RetryWithContext(gCtx, c.maxRetries, func(ctx context.Context) (*extract.Result, error) {
					return extractor.Extract(ctx, ch.Content, hint)
				})
				if err != nil {
					logger.Warn("chunk extraction failed", "document", doc.ID, "chunk", ch.ID, "err", err)
					failedMu.Lock()
					failed = append(failed, ch.ID)
					failedMu.Unlock()
					return nil
				}
				fragments[i] = frag
				return nil
			}
		})
	}

	// Workers report failures through the failed list instead of
	// returning errors, so the join never cancels in-flight siblings.
	_ = g.Wait()

	sort.Ints(failed)
	res.FailedChunkIDs = failed

	return extract.Merge(fragments)
}
