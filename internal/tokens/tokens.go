// Package tokens counts tokens in text, either with a trained BPE tokenizer
// or with a cheap length-based estimate.
package tokens

import (
	"fmt"
	"math"

	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
)

const charsPerToken = 4

// TokenizerKind selects a Counter implementation.
type TokenizerKind string

const (
	TokenizerBPE      TokenizerKind = "bpe"
	TokenizerEstimate TokenizerKind = "estimate"
)

// Counter counts tokens in text.
type Counter interface {
	Count(text string) (int, error)
}

// NewCounter returns a Counter of the given kind. tok is required for
// TokenizerBPE and ignored otherwise.
func NewCounter(kind TokenizerKind, tok *bpe.Tokenizer) (Counter, error) {
	switch kind {
	case TokenizerBPE:
		if !tok.Trained() {
			return nil, fmt.Errorf("bpe counter: %w", bpe.ErrUntrainedState)
		}
		return &bpeCounter{tok: tok}, nil
	case TokenizerEstimate:
		return &estimatingCounter{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown tokenizer %q", bpe.ErrInvalidConfig, kind)
	}
}

type bpeCounter struct {
	tok *bpe.Tokenizer
}

func (c *bpeCounter) Count(text string) (int, error) {
	ids, err := c.tok.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// estimatingCounter approximates token count as ~4 bytes per token.
type estimatingCounter struct{}

func (*estimatingCounter) Count(text string) (int, error) {
	return Estimate(text), nil
}

func Estimate(text string) int {
	return int(math.Ceil(float64(len(text)) / float64(charsPerToken)))
}
