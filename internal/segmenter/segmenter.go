package segmenter

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// Page is one page of extracted document text. Extraction itself is the
// concern of an external collaborator; the segmenter only consumes its output.
type Page struct {
	Number int
	Text   string
}

// Section is a structural unit of a document: a heading plus the paragraphs
// under it, tagged with the page range it spans.
type Section struct {
	Title      string
	Paragraphs []string
	StartPage  int
	EndPage    int
	TokenCount int
}

// Text returns the section body as a single string.
func (s Section) Text() string {
	return strings.Join(s.Paragraphs, " ")
}

// ErrNoText indicates extraction produced no usable text. The document is
// marked failed and no chunks are produced.
var ErrNoText = errors.New("segmenter: document contains no extractable text")

// headingPatterns match common chapter and numbered-section headings.
var headingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^chapter\s+\d+`),
	regexp.MustCompile(`(?i)^part\s+[IVXLC\d]+\b`),
	regexp.MustCompile(`^\d+\.\s`),
	regexp.MustCompile(`^\d+\.\d+\s`),
	regexp.MustCompile(`^\d+\.\d+\.\d+\s`),
	regexp.MustCompile(`^[A-Z][A-Z\s]{9,}$`), // ALL CAPS
}

// Segmenter splits page-aware extracted text into structural sections.
type Segmenter struct {
	counter TokenCounter
}

// New creates a Segmenter using the given token counter.
func New(counter TokenCounter) *Segmenter {
	return &Segmenter{counter: counter}
}

// Segment converts extracted pages into an ordered list of sections.
// Headings delimit sections; text before the first heading (or a document
// with no headings at all) becomes a single untitled section.
func (s *Segmenter) Segment(pages []Page) ([]Section, error) {
	type line struct {
		text string
		page int
	}

	var lines []line
	for _, p := range pages {
		for _, raw := range strings.Split(p.Text, "\n") {
			lines = append(lines, line{text: strings.TrimSpace(raw), page: p.Number})
		}
	}

	hasText := false
	for _, l := range lines {
		if l.text != "" {
			hasText = true
			break
		}
	}
	if !hasText {
		return nil, ErrNoText
	}

	var sections []Section
	var current *Section
	var paragraph []string

	flushParagraph := func() {
		if len(paragraph) > 0 && current != nil {
			current.Paragraphs = append(current.Paragraphs, strings.Join(paragraph, " "))
			paragraph = nil
		}
	}

	flushSection := func() {
		flushParagraph()
		if current != nil && (current.Title != "" || len(current.Paragraphs) > 0) {
			current.TokenCount = s.counter.Count(current.Text())
			sections = append(sections, *current)
		}
		current = nil
	}

	for i, l := range lines {
		switch {
		case l.text == "":
			flushParagraph()

		case isHeading(l.text, nextNonEmpty(lines[i+1:], func(x line) string { return x.text })):
			flushSection()
			current = &Section{Title: l.text, StartPage: l.page, EndPage: l.page}

		default:
			if current == nil {
				current = &Section{StartPage: l.page, EndPage: l.page}
			}
			paragraph = append(paragraph, l.text)
			if l.page > current.EndPage {
				current.EndPage = l.page
			}
		}
	}
	flushSection()

	return sections, nil
}

// nextNonEmpty returns the first non-empty projection of rest, or "".
func nextNonEmpty[T any](rest []T, text func(T) string) string {
	for _, item := range rest {
		if t := text(item); t != "" {
			return t
		}
	}
	return ""
}

// isHeading reports whether a line looks like a section heading. A heading
// is short and either matches a known pattern or is title-cased and followed
// by body text.
func isHeading(text, following string) bool {
	if len(text) == 0 || len(text) > 120 {
		return false
	}

	for _, p := range headingPatterns {
		if p.MatchString(text) {
			return true
		}
	}

	// Short title-cased line followed by body text, not ending mid-sentence.
	if following == "" {
		return false
	}
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, ",") || strings.HasSuffix(text, ";") {
		return false
	}
	words := strings.Fields(text)
	if len(words) == 0 || len(words) > 8 {
		return false
	}
	titled := 0
	for _, w := range words {
		r := []rune(w)
		if unicode.IsUpper(r[0]) || unicode.IsDigit(r[0]) {
			titled++
		}
	}
	return titled == len(words)
}
