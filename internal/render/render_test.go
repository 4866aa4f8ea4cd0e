package render

import (
	"strings"
	"testing"

	"github.com/bookquill/bookquill/internal/answer"
)

func TestAnswerHTML(t *testing.T) {
	result := &answer.Result{
		Answer: "Focus **compounds** over time [1].\n\n```text\npractice daily\n```",
		Sources: []answer.Source{
			{Title: "Deep Work", SectionTitle: "Chapter 1", PageNumber: 12},
			{Title: "Atomic Habits", PageNumber: 3},
		},
		Model: "gpt-4o-mini",
	}

	out, err := AnswerHTML("How does focus develop?", result)
	if err != nil {
		t.Fatalf("AnswerHTML: %v", err)
	}
	page := string(out)

	for _, want := range []string{
		"How does focus develop?",
		"<strong>compounds</strong>",
		"Deep Work, Chapter 1 (p. 12)",
		"Atomic Habits (p. 3)",
		"gpt-4o-mini",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, "incomplete") {
		t.Error("complete answer should not carry the partial banner")
	}
}

func TestAnswerHTMLPartial(t *testing.T) {
	result := &answer.Result{Answer: "Half an ans", Partial: true}

	out, err := AnswerHTML("q", result)
	if err != nil {
		t.Fatalf("AnswerHTML: %v", err)
	}
	if !strings.Contains(string(out), "incomplete") {
		t.Error("partial answer should carry the partial banner")
	}
}

func TestAnswerHTMLEscapesQuestion(t *testing.T) {
	out, err := AnswerHTML("<script>alert(1)</script>", &answer.Result{Answer: "a"})
	if err != nil {
		t.Fatalf("AnswerHTML: %v", err)
	}
	if strings.Contains(string(out), "<script>alert(1)</script>") {
		t.Error("question should be HTML-escaped")
	}
}
