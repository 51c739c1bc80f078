package store

import (
	"context"
	"os"
	"testing"
)

func newTestPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("WEATHERD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("WEATHERD_TEST_POSTGRES_DSN not set; skipping postgres tests")
	}

	s, err := NewPostgresStore(dsn)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	// Clean table before each test.
	s.db.ExecContext(context.Background(), "DELETE FROM stored_queries")

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore_CreateGetDelete(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	q := makeStoredQuery("q1", "London")
	if err := s.Create(ctx, q); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Location.Name != "London" {
		t.Errorf("name = %q, want %q", got.Location.Name, "London")
	}
	if len(got.Forecast) != len(q.Forecast) {
		t.Errorf("forecast length = %d, want %d", len(got.Forecast), len(q.Forecast))
	}

	if err := s.Delete(ctx, "q1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "q1"); err != ErrNotFound {
		t.Errorf("Get after Delete: err = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_ListInsertionOrder(t *testing.T) {
	s := newTestPostgresStore(t)
	ctx := context.Background()

	for _, id := range []string{"z", "m", "a"} {
		if err := s.Create(ctx, makeStoredQuery(id, "city "+id)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"z", "m", "a"}
	if len(list) != len(want) {
		t.Fatalf("got %d records, want %d", len(list), len(want))
	}
	for i := range want {
		if list[i].ID != want[i] {
			t.Errorf("list[%d].ID = %q, want %q", i, list[i].ID, want[i])
		}
	}
}
