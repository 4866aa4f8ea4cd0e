package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bookquill/bookquill/internal/answer"
	"github.com/bookquill/bookquill/internal/engine"
)

// handleSearchLibrary runs a subscription-scoped search for the reader.
func (s *Server) handleSearchLibrary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	readerID := request.GetInt("reader_id", 0)
	if readerID <= 0 {
		return mcp.NewToolResultError("missing required parameter: reader_id"), nil
	}
	limit := request.GetInt("limit", 0)

	resp, err := s.engine.Search(ctx, int64(readerID), query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	switch resp.Outcome {
	case engine.OutcomeEmptyScope:
		return mcp.NewToolResultText("The reader has no active subscriptions, so there is nothing to search."), nil
	case engine.OutcomeNoMatch:
		return mcp.NewToolResultText("No passages in the reader's subscribed books matched the query."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(resp.Results)), nil
}

// handleAskLibrary drains a full answer stream and returns the assembled
// answer with its citations.
func (s *Server) handleAskLibrary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	readerID := request.GetInt("reader_id", 0)
	if readerID <= 0 {
		return mcp.NewToolResultError("missing required parameter: reader_id"), nil
	}

	var (
		sources []answer.Source
		text    strings.Builder
	)
	for ev := range s.engine.AnswerStream(ctx, int64(readerID), question) {
		switch ev.Type {
		case answer.EventSources:
			sources = ev.Sources
		case answer.EventChunk:
			text.WriteString(ev.Content)
		case answer.EventNoContext:
			return mcp.NewToolResultText("The reader's subscribed books contain nothing relevant to this question."), nil
		case answer.EventError:
			return mcp.NewToolResultError(fmt.Sprintf("answering failed: %s", ev.Err)), nil
		}
	}

	return mcp.NewToolResultText(formatAnswer(text.String(), sources)), nil
}

// handleListDocuments lists library documents, optionally filtered.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	authorID := int64(request.GetInt("author_id", 0))
	status := request.GetString("status", "")

	docs, err := s.docs.ListDocuments(ctx, authorID, status)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing documents failed: %v", err)), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents found."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d document(s):\n", len(docs)))
	for _, d := range docs {
		sb.WriteString(fmt.Sprintf("\n[%d] %s (author %d, status %s", d.ID, d.Title, d.AuthorID, d.Status))
		if d.ChunkCount > 0 {
			sb.WriteString(fmt.Sprintf(", %d chunks", d.ChunkCount))
		}
		if d.FailureReason != "" {
			sb.WriteString(fmt.Sprintf(", failure: %s", d.FailureReason))
		}
		sb.WriteString(")")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatSearchResults converts scored passages into a text format meant
// for agent consumption.
func formatSearchResults(results []engine.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d passage(s):\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Passage %d ---\n", i+1))
		location := r.Title
		if r.SectionTitle != "" {
			location += ", " + r.SectionTitle
		}
		if r.PageNumber > 0 {
			location += fmt.Sprintf(" (p. %d)", r.PageNumber)
		}
		sb.WriteString(fmt.Sprintf("Source: %s\n", location))
		if r.Kind != "" {
			sb.WriteString(fmt.Sprintf("Kind: %s\n", r.Kind))
		}
		sb.WriteString(fmt.Sprintf("Score: %.3f\n\n", r.Score))
		sb.WriteString(r.Text)
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatAnswer(text string, sources []answer.Source) string {
	var sb strings.Builder
	sb.WriteString(text)
	if len(sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for i, src := range sources {
			sb.WriteString(fmt.Sprintf("[%d] %s", i+1, src.Title))
			if src.SectionTitle != "" {
				sb.WriteString(", " + src.SectionTitle)
			}
			if src.PageNumber > 0 {
				sb.WriteString(fmt.Sprintf(" (p. %d)", src.PageNumber))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
