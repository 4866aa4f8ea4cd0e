package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bookquill/bookquill/internal/db"
)

// Persistent is the SQLite-backed cache tier. Search results and answers
// live in separate tables with independent TTLs; answers are worth keeping
// far longer than raw search payloads.
type Persistent struct {
	db        *db.DB
	searchTTL time.Duration
	answerTTL time.Duration
}

// NewPersistent creates a Persistent cache with TTLs in seconds. A TTL of
// zero or less means entries never expire.
func NewPersistent(database *db.DB, searchTTLSeconds, answerTTLSeconds int) *Persistent {
	return &Persistent{
		db:        database,
		searchTTL: time.Duration(searchTTLSeconds) * time.Second,
		answerTTL: time.Duration(answerTTLSeconds) * time.Second,
	}
}

// GetSearch returns the cached search payload for the fingerprint.
func (p *Persistent) GetSearch(ctx context.Context, fingerprint string) (string, bool, error) {
	return p.get(ctx, "search_cache", "payload", fingerprint, p.searchTTL)
}

// PutSearch stores a search payload.
func (p *Persistent) PutSearch(ctx context.Context, fingerprint, payload string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO search_cache (fingerprint, payload)
		VALUES (?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			payload = excluded.payload,
			created_at = datetime('now'),
			last_access = datetime('now')`,
		fingerprint, payload,
	)
	if err != nil {
		return fmt.Errorf("storing search result: %w", err)
	}
	return nil
}

// GetAnswer returns a cached answer and its serialized sources.
func (p *Persistent) GetAnswer(ctx context.Context, fingerprint string) (answer, sources string, ok bool, err error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT answer, sources, created_at FROM answer_cache WHERE fingerprint = ?`,
		fingerprint,
	)
	var createdAt string
	if err := row.Scan(&answer, &sources, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("reading answer cache: %w", err)
	}
	if p.expired(createdAt, p.answerTTL) {
		p.evict(ctx, "answer_cache", fingerprint)
		return "", "", false, nil
	}
	p.touch(ctx, "answer_cache", fingerprint)
	return answer, sources, true, nil
}

// PutAnswer stores an answer with its serialized sources.
func (p *Persistent) PutAnswer(ctx context.Context, fingerprint, answer, sources string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO answer_cache (fingerprint, answer, sources)
		VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			answer = excluded.answer,
			sources = excluded.sources,
			created_at = datetime('now'),
			last_access = datetime('now')`,
		fingerprint, answer, sources,
	)
	if err != nil {
		return fmt.Errorf("storing answer: %w", err)
	}
	return nil
}

// Prune deletes all expired entries from both tables and returns the
// number of rows removed.
func (p *Persistent) Prune(ctx context.Context) (int64, error) {
	var total int64
	for _, t := range []struct {
		table string
		ttl   time.Duration
	}{
		{"search_cache", p.searchTTL},
		{"answer_cache", p.answerTTL},
	} {
		if t.ttl <= 0 {
			continue
		}
		cutoff := time.Now().UTC().Add(-t.ttl).Format(time.DateTime)
		res, err := p.db.ExecContext(ctx,
			"DELETE FROM "+t.table+" WHERE created_at < ?", cutoff)
		if err != nil {
			return total, fmt.Errorf("pruning %s: %w", t.table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (p *Persistent) get(ctx context.Context, table, column, fingerprint string, ttl time.Duration) (string, bool, error) {
	row := p.db.QueryRowContext(ctx,
		"SELECT "+column+", created_at FROM "+table+" WHERE fingerprint = ?",
		fingerprint,
	)
	var payload, createdAt string
	if err := row.Scan(&payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %s: %w", table, err)
	}
	if p.expired(createdAt, ttl) {
		p.evict(ctx, table, fingerprint)
		return "", false, nil
	}
	p.touch(ctx, table, fingerprint)
	return payload, true, nil
}

func (p *Persistent) expired(createdAt string, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	t, err := time.Parse(time.DateTime, createdAt)
	if err != nil {
		return true
	}
	return time.Now().UTC().Sub(t) > ttl
}

func (p *Persistent) touch(ctx context.Context, table, fingerprint string) {
	// Best effort; a failed access-time bump is not worth failing the read.
	_, _ = p.db.ExecContext(ctx,
		"UPDATE "+table+" SET last_access = datetime('now') WHERE fingerprint = ?",
		fingerprint,
	)
}

func (p *Persistent) evict(ctx context.Context, table, fingerprint string) {
	_, _ = p.db.ExecContext(ctx,
		"DELETE FROM "+table+" WHERE fingerprint = ?", fingerprint)
}
