// Package answer turns reranked chunks into a streamed, grounded answer.
// The source set is fixed before generation starts, and no model call is
// made at all when nothing relevant was retrieved.
package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bookquill/bookquill/internal/config"
	"github.com/bookquill/bookquill/internal/llm"
	"github.com/bookquill/bookquill/internal/rerank"
	"github.com/bookquill/bookquill/internal/segmenter"
)

// EventType identifies a streamed answer event.
type EventType string

const (
	// EventSources announces the fixed source set before any tokens.
	EventSources EventType = "sources"
	// EventChunk carries one increment of answer text.
	EventChunk EventType = "answer_chunk"
	// EventComplete ends a successful stream.
	EventComplete EventType = "complete"
	// EventNoContext ends a stream that never started: nothing retrieved
	// cleared the relevance bar.
	EventNoContext EventType = "no_context"
	// EventError ends a failed or cancelled stream.
	EventError EventType = "error"
)

// Source is a citation for one chunk included in the prompt.
type Source struct {
	ChunkID      string `json:"chunk_id"`
	DocumentID   int64  `json:"document_id"`
	Title        string `json:"title"`
	SectionTitle string `json:"section_title,omitempty"`
	PageNumber   int    `json:"page_number"`
	// Excerpt is the chunk text the citation points at, so clients can
	// show the quoted passage without another lookup.
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
}

// Result is the final state of a stream.
type Result struct {
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	Model     string   `json:"model"`
	TokensIn  int      `json:"tokens_in"`
	TokensOut int      `json:"tokens_out"`
	// Partial is set when generation stopped before the model finished.
	Partial bool `json:"partial,omitempty"`
}

// Event is one message on an answer stream.
type Event struct {
	Type    EventType `json:"type"`
	Sources []Source  `json:"sources,omitempty"`
	Content string    `json:"content,omitempty"`
	Result  *Result   `json:"result,omitempty"`
	Err     string    `json:"error,omitempty"`
	// Cached marks events replayed from the answer cache.
	Cached bool `json:"cached,omitempty"`
}

// Orchestrator runs the generation phase of question answering.
type Orchestrator struct {
	provider llm.StreamProvider
	counter  segmenter.TokenCounter
	cfg      config.AnswerConfig
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(provider llm.StreamProvider, counter segmenter.TokenCounter, cfg config.AnswerConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{provider: provider, counter: counter, cfg: cfg, logger: logger}
}

// Stream answers the query from the given reranked chunks, emitting events
// on the returned channel. The channel is closed after a terminal event
// (complete, no_context or error). Event order is always: sources, zero or
// more answer chunks, then exactly one terminal.
func (o *Orchestrator) Stream(ctx context.Context, query string, scored []rerank.Scored) <-chan Event {
	events := make(chan Event)
	go func() {
		defer close(events)
		o.run(ctx, query, scored, events)
	}()
	return events
}

// Collect runs Stream to completion and returns the final result. Intended
// for callers without a streaming surface, like the CLI.
func (o *Orchestrator) Collect(ctx context.Context, query string, scored []rerank.Scored) (*Result, error) {
	var last Event
	for ev := range o.Stream(ctx, query, scored) {
		last = ev
	}
	switch last.Type {
	case EventComplete:
		return last.Result, nil
	case EventNoContext:
		return nil, ErrNoContext
	case EventError:
		if last.Result != nil && last.Result.Partial {
			return last.Result, fmt.Errorf("generation interrupted: %s", last.Err)
		}
		return nil, errors.New(last.Err)
	default:
		return nil, fmt.Errorf("stream ended without terminal event")
	}
}

// ErrNoContext is returned by Collect when nothing relevant was retrieved.
var ErrNoContext = errors.New("answer: no relevant context")

func (o *Orchestrator) run(ctx context.Context, query string, scored []rerank.Scored, events chan<- Event) {
	if len(scored) == 0 {
		o.emit(ctx, events, Event{Type: EventNoContext})
		return
	}

	prompt := o.assemble(query, scored)
	if len(prompt.sources) == 0 {
		o.emit(ctx, events, Event{Type: EventNoContext})
		return
	}

	// The source set is final from here on; it is announced before the
	// first token so clients can render citations immediately.
	if !o.emit(ctx, events, Event{Type: EventSources, Sources: prompt.sources}) {
		return
	}

	result := &Result{
		Sources:  prompt.sources,
		Model:    o.cfg.Model,
		TokensIn: prompt.tokens,
	}

	stream, err := o.provider.CompleteStream(ctx, llm.CompletionRequest{
		Model: o.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: prompt.user},
		},
		MaxTokens:   o.cfg.MaxAnswerTokens,
		Temperature: 0.2,
	})
	if err != nil {
		o.emit(ctx, events, Event{Type: EventError, Err: err.Error(), Result: result})
		return
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			result.Partial = result.Answer != ""
			result.TokensOut = o.counter.Count(result.Answer)
			o.logger.Warn("answer stream interrupted", "error", err, "partial", result.Partial)
			o.emit(ctx, events, Event{Type: EventError, Err: err.Error(), Result: result})
			return
		}
		if chunk.Content == "" {
			continue
		}
		result.Answer += chunk.Content
		if !o.emit(ctx, events, Event{Type: EventChunk, Content: chunk.Content}) {
			return
		}
	}

	result.TokensOut = o.counter.Count(result.Answer)
	o.emit(ctx, events, Event{Type: EventComplete, Result: result})
}

// emit sends an event unless the consumer is gone. Returns false when the
// context ended, in which case the stream must stop without a complete
// event.
func (o *Orchestrator) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
