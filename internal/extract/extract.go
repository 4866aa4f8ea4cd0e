// Package extract reads manuscript files into pages for segmentation.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bookquill/bookquill/internal/segmenter"
)

// Source extracts the pages of a manuscript file.
type Source interface {
	// Pages returns the file's text split into pages.
	Pages(ctx context.Context, path string) ([]segmenter.Page, error)
	// Supports reports whether this source can handle the given path.
	Supports(path string) bool
}

// Text extracts plain-text and Markdown manuscripts. Form feed characters
// mark page breaks; a file without any is a single page.
type Text struct{}

var textExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

func (Text) Supports(path string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(path))]
}

func (Text) Pages(_ context.Context, path string) ([]segmenter.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	raw := strings.Split(string(data), "\f")
	pages := make([]segmenter.Page, 0, len(raw))
	for _, text := range raw {
		pages = append(pages, segmenter.Page{
			Number: len(pages) + 1,
			Text:   text,
		})
	}
	return pages, nil
}

// ForPath returns the first source that supports the path.
func ForPath(sources []Source, path string) (Source, error) {
	for _, s := range sources {
		if s.Supports(path) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
}
