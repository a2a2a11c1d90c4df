package graph

import (
	"fmt"

	"github.com/graphloom/graphloom/pkg/chunker"
	"github.com/graphloom/graphloom/pkg/strategy"
)

const (
	// DefaultParallelExtractions caps simultaneous extractor calls per
	// document.
	DefaultParallelExtractions = 4
	// DefaultMaxRetries bounds retries of one failing extractor call.
	DefaultMaxRetries = 3
)

// Client runs the document ingestion pipeline: parse, chunk, gate, select
// a strategy, extract, merge, and assemble into the graph.
//
// A Client should be created with NewClient and is safe for concurrent use
// across documents.
type Client struct {
	chunker             *chunker.Chunker
	selector            *strategy.Selector
	parallelExtractions int
	maxRetries          int
}

// NewClientParams defines the configuration for creating a Client.
//
// MaxChunkSize bounds chunk size in bytes and must be positive. TokenLimit
// is the estimated-token threshold between document-level and chunk-level
// extraction. Estimator defaults to the chars-per-token heuristic;
// pass a strategy.TiktokenEstimator when an exact count matters.
type NewClientParams struct {
	MaxChunkSize  int
	MaxChunkDepth int
	WindowOverlap float64

	TokenLimit       int
	Estimator        strategy.Estimator
	MinContentLength int
	MaxCodeRatio     float64

	ParallelExtractions int
	MaxRetries          int
}

// NewClient creates and returns a new Client configured with the provided
// parameters.
//
// Example:
//
//	client, err := graph.NewClient(graph.NewClientParams{
//		MaxChunkSize: 4000,
//		TokenLimit:   4000,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewClient(params NewClientParams) (*Client, error) {
	ch, err := chunker.NewChunker(chunker.NewChunkerParams{
		MaxSize:  params.MaxChunkSize,
		MaxDepth: params.MaxChunkDepth,
		Overlap:  params.WindowOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("configure chunker: %w", err)
	}

	selector, err := strategy.NewSelector(strategy.NewSelectorParams{
		TokenLimit:       params.TokenLimit,
		Estimator:        params.Estimator,
		MinContentLength: params.MinContentLength,
		MaxCodeRatio:     params.MaxCodeRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("configure strategy selector: %w", err)
	}

	parallel := params.ParallelExtractions
	if parallel <= 0 {
		parallel = DefaultParallelExtractions
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	return &Client{
		chunker:             ch,
		selector:            selector,
		parallelExtractions: parallel,
		maxRetries:          maxRetries,
	}, nil
}
