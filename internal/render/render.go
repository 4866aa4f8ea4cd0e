// Package render converts an answered question into a standalone HTML
// page, with the answer markdown rendered and sources listed as citations.
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/bookquill/bookquill/internal/answer"
)

// pageData holds the data passed to the HTML template.
type pageData struct {
	Question string
	Answer   template.HTML
	Sources  []sourceData
	Model    string
	Partial  bool
}

type sourceData struct {
	Index    int
	Title    string
	Section  string
	Page     int
	Location string
}

// AnswerHTML renders the result of a question as a self-contained HTML
// document.
func AnswerHTML(question string, result *answer.Result) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(result.Answer), &body); err != nil {
		return nil, fmt.Errorf("converting answer markdown: %w", err)
	}

	data := pageData{
		Question: question,
		Answer:   template.HTML(body.String()),
		Model:    result.Model,
		Partial:  result.Partial,
	}
	for i, src := range result.Sources {
		sd := sourceData{
			Index:   i + 1,
			Title:   src.Title,
			Section: src.SectionTitle,
			Page:    src.PageNumber,
		}
		sd.Location = src.Title
		if src.SectionTitle != "" {
			sd.Location += ", " + src.SectionTitle
		}
		if src.PageNumber > 0 {
			sd.Location += fmt.Sprintf(" (p. %d)", src.PageNumber)
		}
		data.Sources = append(data.Sources, sd)
	}

	tmpl, err := template.New("answer").Parse(answerTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing answer template: %w", err)
	}

	var out bytes.Buffer
	if err := tmpl.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("rendering answer page: %w", err)
	}
	return out.Bytes(), nil
}
