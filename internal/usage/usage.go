// Package usage records per-operation token and cost accounting so that
// spend on embeddings and answer generation is visible per reader.
package usage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/bookquill/bookquill/internal/db"
)

// Operation names recorded in usage events.
const (
	OpSearch = "search"
	OpAnswer = "answer"
	OpIngest = "ingest"
	// OpCacheHit marks a request served from cache at zero cost.
	OpCacheHit = "cache_hit"
)

// Event is one recorded unit of work.
type Event struct {
	ID           string
	ReaderID     int64
	Operation    string
	Query        string
	Model        string
	TokensIn     int
	TokensOut    int
	CostEstimate float64
	LatencyMS    int64
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}

// Tracker records usage events. Implementations must be safe for
// concurrent use.
type Tracker interface {
	Record(ctx context.Context, event Event) error
}

// Store persists usage events in SQLite and implements Tracker.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Record inserts a usage event. If event.ID is empty a UUID is generated.
func (s *Store) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	success := 0
	if event.Success {
		success = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_events (
			id, reader_id, operation, query, model,
			tokens_in, tokens_out, cost_estimate, latency_ms,
			success, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.ReaderID, event.Operation, event.Query, event.Model,
		event.TokensIn, event.TokensOut, event.CostEstimate, event.LatencyMS,
		success, event.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("inserting usage event: %w", err)
	}
	return nil
}

// Filter controls which events Query returns.
type Filter struct {
	ReaderID  int64
	Operation string
	Since     *time.Time
	Limit     int
}

// Query returns usage events matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter Filter) ([]Event, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.ReaderID > 0 {
		clauses = append(clauses, "reader_id = ?")
		args = append(args, filter.ReaderID)
	}
	if filter.Operation != "" {
		clauses = append(clauses, "operation = ?")
		args = append(args, filter.Operation)
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}

	query := `SELECT id, reader_id, operation, query, model, tokens_in, tokens_out,
	       cost_estimate, latency_ms, success, error_message, created_at
	FROM usage_events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying usage events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e       Event
			success int
			created string
		)
		err := rows.Scan(
			&e.ID, &e.ReaderID, &e.Operation, &e.Query, &e.Model,
			&e.TokensIn, &e.TokensOut, &e.CostEstimate, &e.LatencyMS,
			&success, &e.ErrorMessage, &created,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning usage event: %w", err)
		}
		e.Success = success == 1
		if t, perr := time.Parse(time.DateTime, created); perr == nil {
			e.CreatedAt = t
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Summary aggregates usage per operation.
type Summary struct {
	Operation string
	Count     int
	TokensIn  int
	TokensOut int
	Cost      float64
	Failures  int
}

// Summarize aggregates events since the given time, grouped by operation.
// A zero time aggregates everything.
func (s *Store) Summarize(ctx context.Context, since time.Time) ([]Summary, error) {
	query := `
		SELECT operation, COUNT(*), SUM(tokens_in), SUM(tokens_out),
		       SUM(cost_estimate), SUM(1 - success)
		FROM usage_events`
	var args []any
	if !since.IsZero() {
		query += " WHERE created_at >= ?"
		args = append(args, since.UTC().Format(time.DateTime))
	}
	query += " GROUP BY operation ORDER BY operation"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarizing usage: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.Operation, &sum.Count, &sum.TokensIn,
			&sum.TokensOut, &sum.Cost, &sum.Failures); err != nil {
			return nil, fmt.Errorf("scanning usage summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Nop is a Tracker that discards every event, for callers that have
// accounting disabled.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
