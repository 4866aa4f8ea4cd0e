// Package docstore persists documents and their chunks in SQLite. The
// vector index only holds embeddings and lightweight metadata; chunk text
// lives here and is joined back in at retrieval time.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/bookquill/bookquill/internal/chunker"
	"github.com/bookquill/bookquill/internal/db"
)

// Document statuses as stored in the documents table.
const (
	StatusPending   = "pending"
	StatusChunking  = "chunking"
	StatusEmbedding = "embedding"
	StatusReady     = "ready"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a document or chunk does not exist.
var ErrNotFound = errors.New("docstore: not found")

// Document is a book or manuscript registered for ingestion.
type Document struct {
	ID            int64
	AuthorID      int64
	Title         string
	FilePath      string
	Status        string
	FailureReason string
	PageCount     int
	ChunkCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StoredChunk is a chunk row with its stable identifier and provenance.
type StoredChunk struct {
	ChunkID      string
	DocumentID   int64
	AuthorID     int64
	Ordinal      int
	PageNumber   int
	SectionTitle string
	Kind         chunker.Kind
	Text         string
	TokenCount   int
}

// Store provides CRUD operations for documents and chunks.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// CreateDocument registers a new document in pending status and returns it.
func (s *Store) CreateDocument(ctx context.Context, authorID int64, title, filePath string) (*Document, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (author_id, title, file_path, status)
		VALUES (?, ?, ?, ?)`,
		authorID, title, filePath, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading document id: %w", err)
	}
	return s.GetDocument(ctx, id)
}

// GetDocument retrieves a single document by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, author_id, title, file_path, status, failure_reason,
		       page_count, chunk_count, created_at, updated_at
		FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ListDocuments returns documents, optionally filtered by author (authorID > 0)
// and status (non-empty), newest first.
func (s *Store) ListDocuments(ctx context.Context, authorID int64, status string) ([]Document, error) {
	var (
		clauses []string
		args    []any
	)
	if authorID > 0 {
		clauses = append(clauses, "author_id = ?")
		args = append(args, authorID)
	}
	if status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, status)
	}

	query := `SELECT id, author_id, title, file_path, status, failure_reason,
	       page_count, chunk_count, created_at, updated_at FROM documents`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// UpdateStatus transitions a document to the given status. The failure
// reason is cleared unless the new status is failed.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status, failureReason string) error {
	if status != StatusFailed {
		failureReason = ""
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, failure_reason = ?, updated_at = datetime('now')
		WHERE id = ?`,
		status, failureReason, id,
	)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}
	return requireRow(res)
}

// SetCounts records the page and chunk counts measured during ingestion.
func (s *Store) SetCounts(ctx context.Context, id int64, pageCount, chunkCount int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET page_count = ?, chunk_count = ?, updated_at = datetime('now')
		WHERE id = ?`,
		pageCount, chunkCount, id,
	)
	if err != nil {
		return fmt.Errorf("updating document counts: %w", err)
	}
	return requireRow(res)
}

// SaveChunks stores the chunks for a document in one transaction and
// returns them with generated chunk ids. Any previously stored chunks for
// the document are replaced.
func (s *Store) SaveChunks(ctx context.Context, doc *Document, chunks []chunker.Chunk) ([]StoredChunk, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning chunk transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return nil, fmt.Errorf("clearing previous chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (
			chunk_id, document_id, author_id, ordinal, page_number,
			section_title, kind, text, token_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	stored := make([]StoredChunk, 0, len(chunks))
	for _, c := range chunks {
		sc := StoredChunk{
			ChunkID:      uuid.New().String(),
			DocumentID:   doc.ID,
			AuthorID:     doc.AuthorID,
			Ordinal:      c.Ordinal,
			PageNumber:   c.PageNumber,
			SectionTitle: c.SectionTitle,
			Kind:         c.Kind,
			Text:         c.Text,
			TokenCount:   c.TokenCount,
		}
		_, err := stmt.ExecContext(ctx,
			sc.ChunkID, sc.DocumentID, sc.AuthorID, sc.Ordinal, sc.PageNumber,
			sc.SectionTitle, string(sc.Kind), sc.Text, sc.TokenCount,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting chunk %d: %w", c.Ordinal, err)
		}
		stored = append(stored, sc)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing chunks: %w", err)
	}
	return stored, nil
}

// ListChunks returns all chunks of a document ordered by ordinal.
func (s *Store) ListChunks(ctx context.Context, documentID int64) ([]StoredChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, document_id, author_id, ordinal, page_number,
		       section_title, kind, text, token_count
		FROM chunks WHERE document_id = ? ORDER BY ordinal`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()
	return collectChunks(rows)
}

// GetChunksByID fetches chunks by their ids. Missing ids are skipped; the
// result is keyed by chunk id so callers can preserve their own ordering.
func (s *Store) GetChunksByID(ctx context.Context, ids []string) (map[string]StoredChunk, error) {
	if len(ids) == 0 {
		return map[string]StoredChunk{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, document_id, author_id, ordinal, page_number,
		       section_title, kind, text, token_count
		FROM chunks WHERE chunk_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching chunks by id: %w", err)
	}
	defer rows.Close()

	chunks, err := collectChunks(rows)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]StoredChunk, len(chunks))
	for _, c := range chunks {
		byID[c.ChunkID] = c
	}
	return byID, nil
}

// DeleteDocument removes a document. Its chunks are deleted by the
// ON DELETE CASCADE constraint.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*Document, error) {
	var (
		d                    Document
		createdAt, updatedAt string
	)
	err := sc.Scan(
		&d.ID, &d.AuthorID, &d.Title, &d.FilePath, &d.Status, &d.FailureReason,
		&d.PageCount, &d.ChunkCount, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	if t, perr := time.Parse(time.DateTime, createdAt); perr == nil {
		d.CreatedAt = t
	}
	if t, perr := time.Parse(time.DateTime, updatedAt); perr == nil {
		d.UpdatedAt = t
	}
	return &d, nil
}

func collectChunks(rows *sql.Rows) ([]StoredChunk, error) {
	var chunks []StoredChunk
	for rows.Next() {
		var (
			c    StoredChunk
			kind string
		)
		err := rows.Scan(
			&c.ChunkID, &c.DocumentID, &c.AuthorID, &c.Ordinal, &c.PageNumber,
			&c.SectionTitle, &kind, &c.Text, &c.TokenCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Kind = chunker.Kind(kind)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
