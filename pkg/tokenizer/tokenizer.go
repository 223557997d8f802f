package tokenizer

import (
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter reports how many tokens a text consumes for a given model.
type Counter interface {
	Count(text string) int
}

// Tiktoken counts tokens with the model's real BPE encoding.
type Tiktoken struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktoken resolves the encoding for model, falling back to
// cl100k_base when the model is unknown.
func NewTiktoken(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &Tiktoken{encoding: enc}, nil
}

// Count implements Counter.
func (t *Tiktoken) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}

// Heuristic is an upper-biased estimator used when the BPE tables are
// unavailable (offline environments, tests).
type Heuristic struct{}

// Count assumes roughly one token per two runes and never fewer tokens
// than words, over-estimating so prompt budgets stay safe.
func (Heuristic) Count(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	byRunes := (runes + 1) / 2
	if byRunes < words {
		return words
	}
	return byRunes
}

var (
	_ Counter = (*Tiktoken)(nil)
	_ Counter = Heuristic{}
)
