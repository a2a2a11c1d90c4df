package strategy

import (
	"github.com/pkoukk/tiktoken-go"
)

// DefaultCharsPerToken is the average characters-per-token constant used
// by the heuristic estimator.
const DefaultCharsPerToken = 4

// Estimator estimates the token cost of a span of text.
type Estimator interface {
	Estimate(text string) int
}

// HeuristicEstimator divides character count by a fixed characters-per-token
// average, rounding up. It is deliberately cheap and approximate; strategy
// selection does not need an exact token count.
type HeuristicEstimator struct {
	CharsPerToken int
}

func (e HeuristicEstimator) Estimate(text string) int {
	cpt := e.CharsPerToken
	if cpt <= 0 {
		cpt = DefaultCharsPerToken
	}
	if len(text) == 0 {
		return 0
	}
	return (len(text) + cpt - 1) / cpt
}

// TiktokenEstimator counts tokens with a real BPE encoding. It is slower
// than the heuristic and only worth it when the token limit is tight.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenEstimator creates an estimator for the named encoding,
// e.g. "cl100k_base" or "o200k_base".
func NewTiktokenEstimator(encoding string) (*TiktokenEstimator, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenEstimator{enc: enc}, nil
}

func (e *TiktokenEstimator) Estimate(text string) int {
	return len(e.enc.Encode(text, nil, nil))
}
