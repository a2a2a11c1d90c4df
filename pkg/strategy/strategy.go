package strategy

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy is the document-level-vs-chunk-level decision for how
// extraction is invoked.
type Strategy int

const (
	// StrategyDocument extracts once over the whole document.
	StrategyDocument Strategy = iota
	// StrategyChunk extracts once per chunk.
	StrategyChunk
)

func (s Strategy) String() string {
	switch s {
	case StrategyDocument:
		return "document"
	case StrategyChunk:
		return "chunk"
	default:
		return "unknown"
	}
}

const (
	// DefaultTokenLimit is the estimate above which extraction switches
	// to chunk level.
	DefaultTokenLimit = 4000
	// DefaultMinContentLength gates documents too short to be worth an
	// extractor call.
	DefaultMinContentLength = 100
	// DefaultMaxCodeRatio gates documents that are mostly fenced code.
	DefaultMaxCodeRatio = 0.7
)

// ErrContentTooShort and ErrMostlyCode are the content-quality gate
// rejections. Gated documents are still marked processed; they just yield
// an empty extraction result without an extractor call.
var (
	ErrContentTooShort = errors.New("content below minimum length for extraction")
	ErrMostlyCode      = errors.New("content is mostly fenced code blocks")
)

// Selector decides the extraction strategy for a document and gates
// documents whose content is unsuitable for extraction.
type Selector struct {
	tokenLimit   int
	estimator    Estimator
	minContent   int
	maxCodeRatio float64
}

// NewSelectorParams configures a Selector. A nil Estimator defaults to the
// chars-per-token heuristic; zero thresholds default to the package
// constants.
type NewSelectorParams struct {
	TokenLimit       int
	Estimator        Estimator
	MinContentLength int
	MaxCodeRatio     float64
}

// NewSelector creates a Selector. A negative TokenLimit is a programmer
// error and is rejected.
func NewSelector(params NewSelectorParams) (*Selector, error) {
	if params.TokenLimit < 0 {
		return nil, fmt.Errorf("token limit must not be negative, got %d", params.TokenLimit)
	}
	tokenLimit := params.TokenLimit
	if tokenLimit == 0 {
		tokenLimit = DefaultTokenLimit
	}
	estimator := params.Estimator
	if estimator == nil {
		estimator = HeuristicEstimator{CharsPerToken: DefaultCharsPerToken}
	}
	minContent := params.MinContentLength
	if minContent <= 0 {
		minContent = DefaultMinContentLength
	}
	maxCodeRatio := params.MaxCodeRatio
	if maxCodeRatio <= 0 {
		maxCodeRatio = DefaultMaxCodeRatio
	}
	return &Selector{
		tokenLimit:   tokenLimit,
		estimator:    estimator,
		minContent:   minContent,
		maxCodeRatio: maxCodeRatio,
	}, nil
}

// Select estimates the token cost of content and picks the strategy:
// estimates at or under the limit extract document-level, anything above
// extracts per chunk.
func (s *Selector) Select(content string) Strategy {
	if s.estimator.Estimate(content) <= s.tokenLimit {
		return StrategyDocument
	}
	return StrategyChunk
}

// ValidateForExtraction applies the content-quality gate. It must be
// checked before any extractor call so unsuitable documents never cost one.
func (s *Selector) ValidateForExtraction(content string) error {
	if len(strings.TrimSpace(content)) < s.minContent {
		return ErrContentTooShort
	}
	if codeRatio(content) > s.maxCodeRatio {
		return ErrMostlyCode
	}
	return nil
}

// codeRatio returns the proportion of characters that sit inside fenced
// code blocks, fence lines included.
func codeRatio(content string) float64 {
	if len(content) == 0 {
		return 0
	}
	inFence := false
	codeChars := 0
	for _, line := range strings.Split(content, "\n") {
		fenceLine := strings.HasPrefix(strings.TrimSpace(line), "```")
		if fenceLine || inFence {
			codeChars += len(line) + 1
		}
		if fenceLine {
			inFence = !inFence
		}
	}
	return float64(codeChars) / float64(len(content))
}
