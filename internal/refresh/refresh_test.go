package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/geo"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/store"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/weather"
)

type fakeRefresher struct {
	store   store.Store
	failIDs map[string]bool
	calls   []string
}

func (f *fakeRefresher) Refresh(ctx context.Context, id string) (*store.StoredQuery, error) {
	f.calls = append(f.calls, id)
	if f.failIDs[id] {
		return nil, errors.New("upstream down")
	}
	rec, err := f.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.UpdatedAt = time.Now().UTC()
	if err := f.store.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func storedQueryAt(id string, updatedAt time.Time) *store.StoredQuery {
	return &store.StoredQuery{
		ID:         id,
		Input:      "Oslo",
		Location:   geo.Location{Name: "Oslo", Country: "NO", Lat: 59.9139, Lon: 10.7522},
		Conditions: weather.Conditions{Temperature: 11.0, Description: "overcast clouds"},
		CreatedAt:  updatedAt,
		UpdatedAt:  updatedAt,
	}
}

func TestScheduler_RunOnceRefreshesStaleOnly(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close() //nolint:errcheck

	now := time.Now().UTC()
	_ = ms.Create(context.Background(), storedQueryAt("stale-1", now.Add(-2*time.Hour)))
	_ = ms.Create(context.Background(), storedQueryAt("fresh", now))
	_ = ms.Create(context.Background(), storedQueryAt("stale-2", now.Add(-90*time.Minute)))

	fr := &fakeRefresher{store: ms}
	s := NewScheduler(ms, fr, time.Minute, time.Hour, nil)
	s.RunOnce()

	if len(fr.calls) != 2 {
		t.Fatalf("refreshed %d records, want 2: %v", len(fr.calls), fr.calls)
	}
	for _, id := range fr.calls {
		if id == "fresh" {
			t.Error("fresh record should not have been refreshed")
		}
	}

	rec, err := ms.Get(context.Background(), "stale-1")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.UpdatedAt.After(now.Add(-time.Hour)) {
		t.Error("stale record was not updated")
	}
}

func TestScheduler_RunOnceKeepsGoingOnFailure(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close() //nolint:errcheck

	stale := time.Now().UTC().Add(-2 * time.Hour)
	_ = ms.Create(context.Background(), storedQueryAt("a", stale))
	_ = ms.Create(context.Background(), storedQueryAt("b", stale))
	_ = ms.Create(context.Background(), storedQueryAt("c", stale))

	fr := &fakeRefresher{store: ms, failIDs: map[string]bool{"b": true}}
	s := NewScheduler(ms, fr, time.Minute, time.Hour, nil)
	s.RunOnce()

	if len(fr.calls) != 3 {
		t.Fatalf("attempted %d refreshes, want 3: %v", len(fr.calls), fr.calls)
	}

	// The failed record keeps its old data.
	rec, err := ms.Get(context.Background(), "b")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.UpdatedAt.Equal(stale) {
		t.Errorf("failed record UpdatedAt = %v, want untouched %v", rec.UpdatedAt, stale)
	}
}

func TestScheduler_StartAndStop(t *testing.T) {
	ms := store.NewMemoryStore()
	defer ms.Close() //nolint:errcheck

	s := NewScheduler(ms, &fakeRefresher{store: ms}, time.Hour, time.Hour, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Stop()
}
