package vectordb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/bookquill/bookquill/internal/embeddings"
)

const collectionName = "library"

// ChromemStore implements VectorStore using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore. The embedder is
// only consulted for entries added without a precomputed vector; passing
// nil is fine when every entry carries one.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	cdb := chromem.NewDB()

	ef := chromem.EmbeddingFunc(func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("vectordb: no embedder configured")
	})
	if embedder != nil {
		ef = embeddings.ToChromemFunc(embedder)
	}

	col, err := cdb.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         cdb,
		collection: col,
		embedFunc:  ef,
	}, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        e.ChunkID,
			Embedding: e.Vector,
			Metadata:  metaToMap(e.Meta),
			// chromem refuses documents with neither content nor embedding,
			// and the embedding is always set here. The id doubles as
			// content so exports stay debuggable.
			Content: e.ChunkID,
		}
	}

	return s.collection.AddDocuments(ctx, docs, 1)
}

// Query fans out one filtered similarity query per author in scope and
// merges the results. Filtering happens inside each query; nothing outside
// the scope is ever scored against k.
func (s *ChromemStore) Query(ctx context.Context, vector []float32, scope []int64, k int) ([]Match, error) {
	if k <= 0 || len(scope) == 0 {
		return nil, nil
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	perAuthor := k
	if perAuthor > count {
		perAuthor = count
	}

	seen := make(map[string]struct{})
	var merged []Match
	for _, authorID := range scope {
		where := map[string]string{"author_id": strconv.FormatInt(authorID, 10)}
		results, err := s.collection.QueryEmbedding(ctx, vector, perAuthor, where, nil)
		if err != nil {
			return nil, fmt.Errorf("chromem query for author %d: %w", authorID, err)
		}
		for _, r := range results {
			if _, ok := seen[r.ID]; ok {
				continue
			}
			seen[r.ID] = struct{}{}
			merged = append(merged, Match{
				ChunkID:    r.ID,
				Meta:       mapToMeta(r.Metadata),
				Similarity: r.Similarity,
			})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}

func (s *ChromemStore) DeleteByDocument(ctx context.Context, documentID int64) error {
	where := map[string]string{"document_id": strconv.FormatInt(documentID, 10)}
	return s.collection.Delete(ctx, where, nil)
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(filepath.Join(dir, "vectors.gob.gz"), true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	err := s.db.ImportFromFile(filepath.Join(dir, "vectors.gob.gz"), "")
	if err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// metaToMap converts Meta to a flat map[string]string for chromem.
func metaToMap(m Meta) map[string]string {
	return map[string]string{
		"author_id":     strconv.FormatInt(m.AuthorID, 10),
		"document_id":   strconv.FormatInt(m.DocumentID, 10),
		"page_number":   strconv.Itoa(m.PageNumber),
		"section_title": m.SectionTitle,
		"kind":          m.Kind,
	}
}

// mapToMeta converts a flat map[string]string back to Meta.
func mapToMeta(m map[string]string) Meta {
	authorID, _ := strconv.ParseInt(m["author_id"], 10, 64)
	documentID, _ := strconv.ParseInt(m["document_id"], 10, 64)
	pageNumber, _ := strconv.Atoi(m["page_number"])

	return Meta{
		AuthorID:     authorID,
		DocumentID:   documentID,
		PageNumber:   pageNumber,
		SectionTitle: m["section_title"],
		Kind:         m["kind"],
	}
}
