// Package scope maps readers to the set of authors whose catalogs they may
// search. Every retrieval path resolves the scope first and treats an empty
// result as "no access" rather than "no restriction".
package scope

import (
	"context"
	"fmt"
	"sort"

	"github.com/bookquill/bookquill/internal/db"
)

// Resolver reports which authors a reader is subscribed to.
type Resolver interface {
	GetAccessScope(ctx context.Context, readerID int64) ([]int64, error)
}

// Store manages subscriptions in SQLite and implements Resolver.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Subscribe grants a reader access to an author's catalog. Subscribing
// twice is a no-op.
func (s *Store) Subscribe(ctx context.Context, readerID, authorID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (reader_id, author_id) VALUES (?, ?)
		ON CONFLICT(reader_id, author_id) DO NOTHING`,
		readerID, authorID,
	)
	if err != nil {
		return fmt.Errorf("inserting subscription: %w", err)
	}
	return nil
}

// Unsubscribe revokes a reader's access to an author's catalog.
func (s *Store) Unsubscribe(ctx context.Context, readerID, authorID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM subscriptions WHERE reader_id = ? AND author_id = ?",
		readerID, authorID,
	)
	if err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	return nil
}

// GetAccessScope returns the sorted, deduplicated author ids the reader is
// subscribed to. A reader with no subscriptions gets an empty slice.
func (s *Store) GetAccessScope(ctx context.Context, readerID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT author_id FROM subscriptions WHERE reader_id = ? ORDER BY author_id",
		readerID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	authors := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		authors = append(authors, id)
	}
	return authors, rows.Err()
}

// Static is a fixed-scope Resolver, useful for single-tenant setups and
// tests.
type Static []int64

// GetAccessScope returns the fixed author set, sorted and deduplicated.
func (s Static) GetAccessScope(_ context.Context, _ int64) ([]int64, error) {
	return Normalize(s), nil
}

// Normalize sorts and deduplicates an author id set.
func Normalize(authors []int64) []int64 {
	out := make([]int64, 0, len(authors))
	seen := make(map[int64]struct{}, len(authors))
	for _, a := range authors {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
