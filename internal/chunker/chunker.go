package chunker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bookquill/bookquill/internal/config"
	"github.com/bookquill/bookquill/internal/segmenter"
)

// Kind labels how a chunk was produced.
type Kind string

const (
	// KindStructural marks a section small enough to be a single chunk.
	KindStructural Kind = "structural"
	// KindSemantic marks chunks produced by topic-boundary splitting.
	KindSemantic Kind = "semantic"
	// KindFixed marks chunks produced by fixed-size windowing.
	KindFixed Kind = "fixed"
)

// Chunk is a retrieval unit produced from a structural section.
type Chunk struct {
	Text         string
	SectionTitle string
	Ordinal      int
	PageNumber   int
	Kind         Kind
	TokenCount   int
}

// Splitter detects topic boundaries within a section and returns groups of
// paragraphs. Implementations may call out to a model, so failures are
// expected and the engine falls back to fixed splitting.
type Splitter interface {
	Split(ctx context.Context, section segmenter.Section) ([][]string, error)
}

// abstractTitleKeywords mark sections dense enough to justify the cost of a
// semantic split.
var abstractTitleKeywords = []string{
	"introduction", "overview", "discussion", "theory",
	"foundations", "concepts", "background", "methodology",
}

// Engine applies hybrid chunking: structural sections pass through whole,
// oversized sections are split fixed-size, and a bounded number of dense
// sections get the more expensive semantic split.
type Engine struct {
	cfg      config.ChunkingConfig
	counter  segmenter.TokenCounter
	splitter Splitter
	logger   *slog.Logger
}

// NewEngine creates a chunking engine. splitter may be nil, in which case
// every section uses fixed splitting.
func NewEngine(cfg config.ChunkingConfig, counter segmenter.TokenCounter, splitter Splitter) *Engine {
	return &Engine{
		cfg:      cfg,
		counter:  counter,
		splitter: splitter,
		logger:   slog.Default(),
	}
}

// ChunkSections runs the chunking pipeline over a document's sections.
// Ordinals are assigned sequentially across the whole document.
func (e *Engine) ChunkSections(ctx context.Context, sections []segmenter.Section) []Chunk {
	var chunks []Chunk
	semanticCalls := 0

	for _, section := range sections {
		tokens := section.TokenCount
		if tokens == 0 {
			tokens = e.counter.Count(section.Text())
		}

		switch {
		case tokens <= e.cfg.ChunkSize:
			if text := section.Text(); text != "" {
				chunks = append(chunks, Chunk{
					Text:         text,
					SectionTitle: section.Title,
					PageNumber:   section.StartPage,
					Kind:         KindStructural,
					TokenCount:   tokens,
				})
			}

		case e.shouldUseSemantic(section, tokens, semanticCalls):
			semanticCalls++
			split, err := e.splitter.Split(ctx, section)
			if err != nil {
				e.logger.Warn("semantic split failed, falling back to fixed",
					"section", section.Title, "error", err)
				chunks = append(chunks, e.fixedChunks(section.Text(), section, KindFixed)...)
				continue
			}
			chunks = append(chunks, e.semanticChunks(split, section)...)

		default:
			chunks = append(chunks, e.fixedChunks(section.Text(), section, KindFixed)...)
		}
	}

	for i := range chunks {
		chunks[i].Ordinal = i
	}
	return chunks
}

// shouldUseSemantic decides whether a section warrants a semantic split.
// The call budget is a hard cap regardless of section properties.
func (e *Engine) shouldUseSemantic(section segmenter.Section, tokens, used int) bool {
	if e.splitter == nil || used >= e.cfg.MaxSemanticCalls {
		return false
	}
	if tokens < e.cfg.SemanticTokenFloor {
		return false
	}
	title := strings.ToLower(section.Title)
	for _, kw := range abstractTitleKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// semanticChunks converts paragraph groups into chunks, re-splitting any
// group that still exceeds the chunk size.
func (e *Engine) semanticChunks(groups [][]string, section segmenter.Section) []Chunk {
	var chunks []Chunk
	for _, group := range groups {
		text := strings.Join(group, " ")
		if text == "" {
			continue
		}
		tokens := e.counter.Count(text)
		if tokens > e.cfg.ChunkSize {
			chunks = append(chunks, e.fixedChunks(text, section, KindSemantic)...)
			continue
		}
		chunks = append(chunks, Chunk{
			Text:         text,
			SectionTitle: section.Title,
			PageNumber:   section.StartPage,
			Kind:         KindSemantic,
			TokenCount:   tokens,
		})
	}
	return chunks
}

// fixedChunks windows text into sentence buffers of at most ChunkSize tokens,
// carrying a trailing overlap into the next window so no boundary is lost to
// a hard cut.
func (e *Engine) fixedChunks(text string, section segmenter.Section, kind Kind) []Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []Chunk
	var buffer []string
	bufferTokens := 0

	emit := func() {
		if len(buffer) == 0 {
			return
		}
		joined := strings.Join(buffer, " ")
		chunks = append(chunks, Chunk{
			Text:         joined,
			SectionTitle: section.Title,
			PageNumber:   section.StartPage,
			Kind:         kind,
			TokenCount:   e.counter.Count(joined),
		})
	}

	for _, sentence := range sentences {
		tokens := e.counter.Count(sentence)
		if bufferTokens+tokens > e.cfg.ChunkSize && len(buffer) > 0 {
			emit()
			overlap := e.overlapTail(buffer)
			buffer = append(overlap, sentence)
			bufferTokens = e.counter.Count(strings.Join(buffer, " "))
			continue
		}
		buffer = append(buffer, sentence)
		bufferTokens += tokens
	}
	emit()

	return chunks
}

// overlapTail returns the trailing sentences of a window that fit the
// configured overlap budget: the last two if they fit, otherwise the last one.
func (e *Engine) overlapTail(buffer []string) []string {
	if e.cfg.Overlap <= 0 || len(buffer) == 0 {
		return nil
	}
	if len(buffer) >= 2 {
		tail := buffer[len(buffer)-2:]
		if e.counter.Count(strings.Join(tail, " ")) <= e.cfg.Overlap {
			return []string{tail[0], tail[1]}
		}
	}
	last := buffer[len(buffer)-1]
	if e.counter.Count(last) <= e.cfg.Overlap {
		return []string{last}
	}
	return nil
}

// splitSentences splits text at sentence-ending punctuation followed by
// whitespace.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(text)

	flush := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				flush()
			}
		}
	}
	flush()

	return sentences
}
