// Package engine wires retrieval, reranking, caching, answering and usage
// accounting into the two operations everything else calls: Search and
// AnswerStream.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bookquill/bookquill/internal/answer"
	"github.com/bookquill/bookquill/internal/cache"
	"github.com/bookquill/bookquill/internal/config"
	"github.com/bookquill/bookquill/internal/embeddings"
	"github.com/bookquill/bookquill/internal/llm"
	"github.com/bookquill/bookquill/internal/rerank"
	"github.com/bookquill/bookquill/internal/retriever"
	"github.com/bookquill/bookquill/internal/scope"
	"github.com/bookquill/bookquill/internal/usage"
)

// Outcome classifies a search response.
type Outcome string

const (
	// OutcomeOK means results were found.
	OutcomeOK Outcome = "ok"
	// OutcomeEmptyScope means the reader has no subscriptions.
	OutcomeEmptyScope Outcome = "empty_scope"
	// OutcomeNoMatch means nothing cleared the relevance threshold.
	OutcomeNoMatch Outcome = "no_match"
)

// SearchResult is one scored chunk returned to the caller.
type SearchResult struct {
	ChunkID      string  `json:"chunk_id"`
	DocumentID   int64   `json:"document_id"`
	AuthorID     int64   `json:"author_id"`
	Title        string  `json:"title"`
	SectionTitle string  `json:"section_title,omitempty"`
	PageNumber   int     `json:"page_number"`
	Kind         string  `json:"kind"`
	Text         string  `json:"text"`
	Score        float64 `json:"score"`
	Similarity   float64 `json:"similarity"`
}

// SearchResponse is the full result of a search.
type SearchResponse struct {
	Outcome Outcome        `json:"outcome"`
	Results []SearchResult `json:"results"`
	// CacheTier names where the response came from: "", "session" or
	// "persistent".
	CacheTier string `json:"cache_tier,omitempty"`
	// Degraded is set when a cache tier failed and the search proceeded
	// without it.
	Degraded bool `json:"degraded,omitempty"`
}

// Session tier key prefixes. Search and answer payloads share one LRU, and
// a search fingerprint can equal an answer fingerprint when the search
// limit matches the answer chunk budget, so the keys carry the payload
// kind.
const (
	sessionSearchPrefix = "search:"
	sessionAnswerPrefix = "answer:"
)

// cachedAnswer is the session tier payload for an answered question.
type cachedAnswer struct {
	Answer  string          `json:"answer"`
	Sources []answer.Source `json:"sources"`
}

// Engine is the orchestration layer over the retrieval stack.
type Engine struct {
	cfg        *config.Config
	gateway    *embeddings.Gateway
	retriever  *retriever.Retriever
	reranker   *rerank.Reranker
	answerer   *answer.Orchestrator
	resolver   scope.Resolver
	session    *cache.Session
	persistent *cache.Persistent
	tracker    usage.Tracker
	logger     *slog.Logger
}

// Options configures an Engine.
type Options struct {
	Config     *config.Config
	Gateway    *embeddings.Gateway
	Retriever  *retriever.Retriever
	Reranker   *rerank.Reranker
	Answerer   *answer.Orchestrator
	Resolver   scope.Resolver
	Session    *cache.Session
	Persistent *cache.Persistent
	Tracker    usage.Tracker
	Logger     *slog.Logger
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracker == nil {
		opts.Tracker = usage.Nop{}
	}
	return &Engine{
		cfg:        opts.Config,
		gateway:    opts.Gateway,
		retriever:  opts.Retriever,
		reranker:   opts.Reranker,
		answerer:   opts.Answerer,
		resolver:   opts.Resolver,
		session:    opts.Session,
		persistent: opts.Persistent,
		tracker:    opts.Tracker,
		logger:     opts.Logger,
	}
}

// Search runs a scoped search for the reader. Cache tiers are consulted in
// order (session, persistent) before any embedding work happens.
func (e *Engine) Search(ctx context.Context, readerID int64, query string, limit int) (*SearchResponse, error) {
	start := time.Now()
	if limit <= 0 {
		limit = e.cfg.Search.DefaultLimit
	}

	authorScope, err := e.resolver.GetAccessScope(ctx, readerID)
	if err != nil {
		return nil, fmt.Errorf("resolving access scope: %w", err)
	}
	if len(authorScope) == 0 {
		return &SearchResponse{Outcome: OutcomeEmptyScope, Results: []SearchResult{}}, nil
	}

	fingerprint := cache.Fingerprint(query, authorScope, limit)
	degraded := false

	if payload, ok := e.session.Get(sessionSearchPrefix + fingerprint); ok {
		if resp := decodeSearch(payload); resp != nil {
			resp.CacheTier = "session"
			e.recordCacheHit(ctx, readerID, query, start)
			return resp, nil
		}
	}
	if e.persistent != nil {
		payload, ok, err := e.persistent.GetSearch(ctx, fingerprint)
		if err != nil {
			e.logger.Warn("persistent cache read failed", "error", err)
			degraded = true
		} else if ok {
			if resp := decodeSearch(payload); resp != nil {
				e.session.Put(sessionSearchPrefix+fingerprint, payload)
				resp.CacheTier = "persistent"
				e.recordCacheHit(ctx, readerID, query, start)
				return resp, nil
			}
		}
	}

	resp, tokens, err := e.searchUncached(ctx, query, authorScope, limit)
	if err != nil {
		e.recordSearch(ctx, readerID, query, tokens, start, err)
		return nil, err
	}
	resp.Degraded = degraded

	if resp.Outcome == OutcomeOK {
		if payload, merr := json.Marshal(resp); merr == nil {
			e.session.Put(sessionSearchPrefix+fingerprint, string(payload))
			if e.persistent != nil {
				if perr := e.persistent.PutSearch(ctx, fingerprint, string(payload)); perr != nil {
					e.logger.Warn("persistent cache write failed", "error", perr)
					resp.Degraded = true
				}
			}
		}
	}

	e.recordSearch(ctx, readerID, query, tokens, start, nil)
	return resp, nil
}

func (e *Engine) searchUncached(ctx context.Context, query string, authorScope []int64, limit int) (*SearchResponse, int, error) {
	kind, confidence := classifyQuery(query)
	e.logger.Debug("query routed", "kind", kind, "confidence", confidence)

	vec, _, err := e.gateway.EmbedQuery(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("embedding query: %w", err)
	}
	tokens := llm.EstimateTokens(query)

	candidates, err := e.retriever.Retrieve(ctx, vec, authorScope, kind.retrievalLimit(limit))
	if err != nil {
		return nil, tokens, err
	}
	if len(candidates) == 0 {
		return &SearchResponse{Outcome: OutcomeNoMatch, Results: []SearchResult{}}, tokens, nil
	}

	scored := e.reranker.Rerank(query, candidates, limit)
	results := make([]SearchResult, len(scored))
	for i, s := range scored {
		results[i] = SearchResult{
			ChunkID:      s.ChunkID,
			DocumentID:   s.DocumentID,
			AuthorID:     s.AuthorID,
			Title:        s.Title,
			SectionTitle: s.SectionTitle,
			PageNumber:   s.PageNumber,
			Kind:         s.Kind,
			Text:         s.Text,
			Score:        s.Score,
			Similarity:   s.Similarity,
		}
	}
	return &SearchResponse{Outcome: OutcomeOK, Results: results}, tokens, nil
}

// AnswerStream answers a question over the reader's subscribed catalogs,
// emitting answer events on the returned channel. Cached answers are
// replayed without a model call.
func (e *Engine) AnswerStream(ctx context.Context, readerID int64, query string) <-chan answer.Event {
	events := make(chan answer.Event)
	go func() {
		defer close(events)
		e.answerRun(ctx, readerID, query, events)
	}()
	return events
}

func (e *Engine) answerRun(ctx context.Context, readerID int64, query string, events chan<- answer.Event) {
	start := time.Now()

	authorScope, err := e.resolver.GetAccessScope(ctx, readerID)
	if err != nil {
		e.send(ctx, events, answer.Event{Type: answer.EventError, Err: err.Error()})
		return
	}
	if len(authorScope) == 0 {
		// No subscriptions means no context, not an error.
		e.send(ctx, events, answer.Event{Type: answer.EventNoContext})
		return
	}

	fingerprint := cache.Fingerprint(query, authorScope, e.cfg.Answer.MaxChunks)
	if payload, ok := e.session.Get(sessionAnswerPrefix + fingerprint); ok {
		var ca cachedAnswer
		if json.Unmarshal([]byte(payload), &ca) == nil {
			e.replay(ctx, events, ca.Answer, ca.Sources)
			e.recordCacheHit(ctx, readerID, query, start)
			return
		}
	}
	if e.persistent != nil {
		if cached, sourcesJSON, ok, cerr := e.persistent.GetAnswer(ctx, fingerprint); cerr == nil && ok {
			var sources []answer.Source
			if err := json.Unmarshal([]byte(sourcesJSON), &sources); err != nil {
				sources = nil
			}
			e.sessionPutAnswer(fingerprint, cached, sources)
			e.replay(ctx, events, cached, sources)
			e.recordCacheHit(ctx, readerID, query, start)
			return
		} else if cerr != nil {
			e.logger.Warn("answer cache read failed", "error", cerr)
		}
	}

	vec, _, err := e.gateway.EmbedQuery(ctx, query)
	if err != nil {
		e.recordAnswer(ctx, readerID, query, nil, start, err)
		e.send(ctx, events, answer.Event{Type: answer.EventError, Err: err.Error()})
		return
	}

	kind, _ := classifyQuery(query)
	candidates, err := e.retriever.Retrieve(ctx, vec, authorScope, kind.retrievalLimit(e.cfg.Answer.MaxChunks))
	if err != nil {
		e.recordAnswer(ctx, readerID, query, nil, start, err)
		e.send(ctx, events, answer.Event{Type: answer.EventError, Err: err.Error()})
		return
	}

	scored := e.reranker.Rerank(query, candidates, e.cfg.Answer.MaxChunks)

	var (
		forwarded strings.Builder
		recorded  bool
		terminal  bool
	)
	for ev := range e.answerer.Stream(ctx, query, scored) {
		switch ev.Type {
		case answer.EventChunk:
			forwarded.WriteString(ev.Content)
		case answer.EventComplete:
			e.storeAnswer(ctx, fingerprint, ev.Result)
			e.recordAnswer(ctx, readerID, query, ev.Result, start, nil)
			recorded, terminal = true, true
		case answer.EventError:
			e.recordAnswer(ctx, readerID, query, ev.Result, start, fmt.Errorf("%s", ev.Err))
			recorded, terminal = true, true
		case answer.EventNoContext:
			terminal = true
		}
		if !e.send(ctx, events, ev) {
			break
		}
	}
	if !terminal && !recorded {
		// The reader went away mid-stream. The tokens generated up to
		// that point were still paid for, so account for them from the
		// text that reached the engine.
		cause := ctx.Err()
		if cause == nil {
			cause = context.Canceled
		}
		partial := &answer.Result{
			Answer:    forwarded.String(),
			Model:     e.cfg.Answer.Model,
			TokensOut: llm.EstimateTokens(forwarded.String()),
			Partial:   true,
		}
		e.recordAnswer(ctx, readerID, query, partial, start, cause)
	}
}

// replay emits a cached answer as a normal event sequence.
func (e *Engine) replay(ctx context.Context, events chan<- answer.Event, answerText string, sources []answer.Source) {
	if !e.send(ctx, events, answer.Event{Type: answer.EventSources, Sources: sources, Cached: true}) {
		return
	}
	if !e.send(ctx, events, answer.Event{Type: answer.EventChunk, Content: answerText, Cached: true}) {
		return
	}
	e.send(ctx, events, answer.Event{
		Type:   answer.EventComplete,
		Cached: true,
		Result: &answer.Result{
			Answer:  answerText,
			Sources: sources,
			Model:   e.cfg.Answer.Model,
		},
	})
}

func (e *Engine) sessionPutAnswer(fingerprint, answerText string, sources []answer.Source) {
	payload, err := json.Marshal(cachedAnswer{Answer: answerText, Sources: sources})
	if err != nil {
		return
	}
	e.session.Put(sessionAnswerPrefix+fingerprint, string(payload))
}

func (e *Engine) storeAnswer(ctx context.Context, fingerprint string, result *answer.Result) {
	if result == nil {
		return
	}
	e.sessionPutAnswer(fingerprint, result.Answer, result.Sources)
	if e.persistent == nil {
		return
	}
	sources, err := json.Marshal(result.Sources)
	if err != nil {
		return
	}
	if err := e.persistent.PutAnswer(ctx, fingerprint, result.Answer, string(sources)); err != nil {
		e.logger.Warn("answer cache write failed", "error", err)
	}
}

func (e *Engine) send(ctx context.Context, events chan<- answer.Event, ev answer.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) recordSearch(ctx context.Context, readerID int64, query string, tokens int, start time.Time, cause error) {
	event := usage.Event{
		ReaderID:     readerID,
		Operation:    usage.OpSearch,
		Query:        query,
		Model:        e.cfg.Embedding.Model,
		TokensIn:     tokens,
		CostEstimate: llm.EstimateCost(e.cfg.Embedding.Model, tokens, 0),
		LatencyMS:    time.Since(start).Milliseconds(),
		Success:      cause == nil,
	}
	if cause != nil {
		event.ErrorMessage = cause.Error()
	}
	// Usage writes must land even when the request context is already
	// cancelled, otherwise interrupted operations vanish from accounting.
	if err := e.tracker.Record(context.WithoutCancel(ctx), event); err != nil {
		e.logger.Warn("recording search usage failed", "error", err)
	}
}

// recordCacheHit logs a zero-cost event so cache effectiveness shows up in
// usage summaries.
func (e *Engine) recordCacheHit(ctx context.Context, readerID int64, query string, start time.Time) {
	event := usage.Event{
		ReaderID:  readerID,
		Operation: usage.OpCacheHit,
		Query:     query,
		LatencyMS: time.Since(start).Milliseconds(),
		Success:   true,
	}
	if err := e.tracker.Record(context.WithoutCancel(ctx), event); err != nil {
		e.logger.Warn("recording cache hit failed", "error", err)
	}
}

func (e *Engine) recordAnswer(ctx context.Context, readerID int64, query string, result *answer.Result, start time.Time, cause error) {
	event := usage.Event{
		ReaderID:  readerID,
		Operation: usage.OpAnswer,
		Query:     query,
		Model:     e.cfg.Answer.Model,
		LatencyMS: time.Since(start).Milliseconds(),
		Success:   cause == nil,
	}
	if result != nil {
		event.TokensIn = result.TokensIn
		event.TokensOut = result.TokensOut
		event.CostEstimate = llm.EstimateCost(result.Model, result.TokensIn, result.TokensOut)
	}
	if cause != nil {
		event.ErrorMessage = cause.Error()
	}
	if err := e.tracker.Record(context.WithoutCancel(ctx), event); err != nil {
		e.logger.Warn("recording answer usage failed", "error", err)
	}
}

func decodeSearch(payload string) *SearchResponse {
	var resp SearchResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return nil
	}
	return &resp
}
