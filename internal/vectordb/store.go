package vectordb

import "context"

// VectorStore defines the interface for storing and searching chunk
// embeddings. Text is not stored here; callers join it back in from the
// document store using the chunk id.
type VectorStore interface {
	// Upsert adds or replaces entries in the store.
	Upsert(ctx context.Context, entries []Entry) error

	// Query returns the chunks most similar to the query vector, restricted
	// to the given author scope. An empty scope yields no results.
	Query(ctx context.Context, vector []float32, scope []int64, k int) ([]Match, error)

	// DeleteByDocument removes all entries belonging to the given document.
	DeleteByDocument(ctx context.Context, documentID int64) error

	// Persist saves the store's data to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the total number of entries in the store.
	Count() int
}

// Entry is a chunk embedding with the metadata needed for scoped search.
type Entry struct {
	ChunkID string
	Vector  []float32
	Meta    Meta
}

// Meta holds the filterable attributes of an indexed chunk.
type Meta struct {
	AuthorID     int64
	DocumentID   int64
	PageNumber   int
	SectionTitle string
	Kind         string
}

// Match pairs an indexed chunk with its cosine similarity to the query.
type Match struct {
	ChunkID    string
	Meta       Meta
	Similarity float32
}
