package vectordb

import (
	"context"
	"testing"
)

func testMemoryStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	if err := s.Upsert(context.Background(), testEntries()); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return s
}

func TestMemoryQueryScopeAndOrder(t *testing.T) {
	s := testMemoryStore(t)

	matches, err := s.Query(context.Background(), []float32{1, 0, 0}, []int64{1, 2}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []string{"a1", "b1", "a2"}
	if len(matches) != len(want) {
		t.Fatalf("got %d matches, want %d", len(matches), len(want))
	}
	for i, id := range want {
		if matches[i].ChunkID != id {
			t.Errorf("matches[%d] = %s, want %s", i, matches[i].ChunkID, id)
		}
	}
}

func TestMemoryUpsertReplaces(t *testing.T) {
	s := testMemoryStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []Entry{{
		ChunkID: "a1",
		Vector:  []float32{0, 0, 1},
		Meta:    Meta{AuthorID: 1, DocumentID: 10},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Count(); got != 4 {
		t.Errorf("Count = %d, want 4", got)
	}

	matches, err := s.Query(ctx, []float32{0, 0, 1}, []int64{1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ChunkID != "a1" {
		t.Errorf("got %v", matches)
	}
}

func TestMemoryDeleteByDocument(t *testing.T) {
	s := testMemoryStore(t)

	if err := s.DeleteByDocument(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	if got := s.Count(); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func TestMemoryPersistAndLoad(t *testing.T) {
	s := testMemoryStore(t)
	dir := t.TempDir()
	ctx := context.Background()

	if err := s.Persist(ctx, dir); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	restored := NewMemoryStore()
	if err := restored.Load(ctx, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := restored.Count(); got != 4 {
		t.Errorf("Count = %d after load, want 4", got)
	}
}

func TestMemoryUpsertValidation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Upsert(ctx, []Entry{{ChunkID: "", Vector: []float32{1}}}); err == nil {
		t.Error("expected error for empty chunk id")
	}
	if err := s.Upsert(ctx, []Entry{{ChunkID: "x"}}); err == nil {
		t.Error("expected error for missing vector")
	}
}
