package segmenter

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter reports the token length of a text under the embedding
// tokenizer. Chunk sizing and the prompt budget both depend on it.
type TokenCounter interface {
	Count(text string) int
}

// NewCounter returns a TokenCounter backed by the cl100k_base encoding.
// If the encoding cannot be loaded it falls back to a character-based
// estimate so ingestion keeps working offline.
func NewCounter() TokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return EstimateCounter{}
	}
	return &tiktokenCounter{enc: enc}
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// EstimateCounter approximates 1 token per 4 characters. It is the offline
// fallback and the deterministic counter used in tests.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		return 1
	}
	return n
}
