package scope

import (
	"context"
	"reflect"
	"testing"

	"github.com/bookquill/bookquill/internal/db"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestSubscribeAndResolve(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, authorID := range []int64{5, 2, 9} {
		if err := s.Subscribe(ctx, 1, authorID); err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
	}

	got, err := s.GetAccessScope(ctx, 1)
	if err != nil {
		t.Fatalf("GetAccessScope: %v", err)
	}
	if want := []int64{2, 5, 9}; !reflect.DeepEqual(got, want) {
		t.Errorf("scope = %v, want %v", got, want)
	}
}

func TestSubscribeIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Subscribe(ctx, 1, 4); err != nil {
		t.Fatal(err)
	}
	if err := s.Subscribe(ctx, 1, 4); err != nil {
		t.Fatalf("repeat Subscribe: %v", err)
	}

	got, err := s.GetAccessScope(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("scope = %v, want single author", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Subscribe(ctx, 1, 4); err != nil {
		t.Fatal(err)
	}
	if err := s.Unsubscribe(ctx, 1, 4); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	got, err := s.GetAccessScope(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("scope = %v, want empty", got)
	}
}

func TestEmptyScopeIsEmptyNotNil(t *testing.T) {
	s := testStore(t)

	got, err := s.GetAccessScope(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("scope = %#v, want empty non-nil slice", got)
	}
}

func TestScopesAreIsolatedPerReader(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Subscribe(ctx, 1, 10); err != nil {
		t.Fatal(err)
	}
	if err := s.Subscribe(ctx, 2, 20); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetAccessScope(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int64{10}; !reflect.DeepEqual(got, want) {
		t.Errorf("reader 1 scope = %v, want %v", got, want)
	}
}

func TestStaticResolver(t *testing.T) {
	r := Static{7, 3, 7, 1}
	got, err := r.GetAccessScope(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int64{1, 3, 7}; !reflect.DeepEqual(got, want) {
		t.Errorf("scope = %v, want %v", got, want)
	}
}
