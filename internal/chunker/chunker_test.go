package chunker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bookquill/bookquill/internal/config"
	"github.com/bookquill/bookquill/internal/segmenter"
)

func testConfig() config.ChunkingConfig {
	return config.ChunkingConfig{
		ChunkSize:          50,
		Overlap:            25,
		SemanticTokenFloor: 100,
		MaxSemanticCalls:   2,
	}
}

func makeSection(title string, sentenceCount int) segmenter.Section {
	var paragraphs []string
	for i := 0; i < sentenceCount; i++ {
		paragraphs = append(paragraphs, fmt.Sprintf("This is sentence number %d of the test body text.", i))
	}
	return segmenter.Section{Title: title, Paragraphs: paragraphs, StartPage: 1, EndPage: 1}
}

func TestSmallSectionBecomesStructuralChunk(t *testing.T) {
	e := NewEngine(testConfig(), segmenter.EstimateCounter{}, nil)

	section := segmenter.Section{
		Title:      "Chapter 1",
		Paragraphs: []string{"A short chapter."},
		StartPage:  3,
	}

	chunks := e.ChunkSections(context.Background(), []segmenter.Section{section})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Kind != KindStructural {
		t.Errorf("kind: got %q, want %q", chunks[0].Kind, KindStructural)
	}
	if chunks[0].PageNumber != 3 {
		t.Errorf("page: got %d, want 3", chunks[0].PageNumber)
	}
}

func TestOversizedSectionSplitsFixedWithOverlap(t *testing.T) {
	e := NewEngine(testConfig(), segmenter.EstimateCounter{}, nil)

	section := makeSection("Chapter 2", 30)
	chunks := e.ChunkSections(context.Background(), []segmenter.Section{section})

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Kind != KindFixed {
			t.Errorf("chunk %d kind: got %q, want %q", i, c.Kind, KindFixed)
		}
		if c.Ordinal != i {
			t.Errorf("chunk %d ordinal: got %d", i, c.Ordinal)
		}
	}

	// Overlap: the start of each chunk repeats the tail of the previous one.
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		firstSentence := splitSentences(chunks[i].Text)[0]
		if !strings.Contains(prev.Text, firstSentence) {
			t.Errorf("chunk %d does not overlap with its predecessor", i)
		}
	}
}

func TestChunkCoverage(t *testing.T) {
	e := NewEngine(testConfig(), segmenter.EstimateCounter{}, nil)

	section := makeSection("Chapter 3", 40)
	chunks := e.ChunkSections(context.Background(), []segmenter.Section{section})

	// Every sentence of the source must appear in ordinal-order concatenation.
	var all strings.Builder
	for _, c := range chunks {
		all.WriteString(c.Text)
		all.WriteString(" ")
	}
	joined := all.String()
	for _, sentence := range splitSentences(section.Text()) {
		if !strings.Contains(joined, sentence) {
			t.Errorf("sentence missing from chunk coverage: %q", sentence)
		}
	}
}

type countingSplitter struct {
	calls int
	fail  bool
}

func (c *countingSplitter) Split(_ context.Context, section segmenter.Section) ([][]string, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("splitter unavailable")
	}
	return ParagraphSplitter{}.Split(context.Background(), section)
}

func TestSemanticSplitSelectedForDenseSections(t *testing.T) {
	splitter := &countingSplitter{}
	e := NewEngine(testConfig(), segmenter.EstimateCounter{}, splitter)

	dense := makeSection("Introduction to the Theory", 30)
	plain := makeSection("Chapter 7", 30)

	chunks := e.ChunkSections(context.Background(), []segmenter.Section{dense, plain})

	if splitter.calls != 1 {
		t.Fatalf("expected 1 semantic call, got %d", splitter.calls)
	}
	sawSemantic := false
	for _, c := range chunks {
		if c.SectionTitle == dense.Title && c.Kind == KindSemantic {
			sawSemantic = true
		}
		if c.SectionTitle == plain.Title && c.Kind == KindSemantic {
			t.Error("plain chapter must not get semantic chunks")
		}
	}
	if !sawSemantic {
		t.Error("expected semantic chunks for dense section")
	}
}

func TestSemanticBudgetCap(t *testing.T) {
	splitter := &countingSplitter{}
	cfg := testConfig()
	cfg.MaxSemanticCalls = 1
	e := NewEngine(cfg, segmenter.EstimateCounter{}, splitter)

	sections := []segmenter.Section{
		makeSection("Introduction", 30),
		makeSection("Overview of Concepts", 30),
		makeSection("Discussion", 30),
	}
	e.ChunkSections(context.Background(), sections)

	if splitter.calls != 1 {
		t.Errorf("semantic calls: got %d, want 1 (budget cap)", splitter.calls)
	}
}

func TestSemanticFailureFallsBackToFixed(t *testing.T) {
	splitter := &countingSplitter{fail: true}
	e := NewEngine(testConfig(), segmenter.EstimateCounter{}, splitter)

	section := makeSection("Introduction", 30)
	chunks := e.ChunkSections(context.Background(), []segmenter.Section{section})

	if len(chunks) == 0 {
		t.Fatal("fallback produced no chunks")
	}
	for _, c := range chunks {
		if c.Kind != KindFixed {
			t.Errorf("fallback chunk kind: got %q, want %q", c.Kind, KindFixed)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one! Third? Trailing words without punctuation")
	want := []string{"First one.", "Second one!", "Third?", "Trailing words without punctuation"}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSplitSentencesKeepsAbbreviationsTogetherEnough(t *testing.T) {
	// Decimal numbers are not sentence boundaries.
	got := splitSentences("The value is 3.14 exactly. Done.")
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 sentences", got)
	}
}
