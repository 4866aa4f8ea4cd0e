package chunker

import (
	"context"

	"github.com/bookquill/bookquill/internal/segmenter"
)

// ParagraphSplitter groups consecutive paragraphs into topic blocks of a
// fixed size. It is the default Splitter; a model-backed splitter can be
// swapped in without touching the engine.
type ParagraphSplitter struct {
	// GroupSize is the number of paragraphs per block. Defaults to 3.
	GroupSize int
}

func (p ParagraphSplitter) Split(_ context.Context, section segmenter.Section) ([][]string, error) {
	size := p.GroupSize
	if size <= 0 {
		size = 3
	}

	var groups [][]string
	for start := 0; start < len(section.Paragraphs); start += size {
		end := start + size
		if end > len(section.Paragraphs) {
			end = len(section.Paragraphs)
		}
		groups = append(groups, section.Paragraphs[start:end])
	}
	return groups, nil
}
