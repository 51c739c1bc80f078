package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/geo"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/places"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/store"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/video"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/weather"
)

type fakeResolver struct {
	loc geo.Location
	err error
}

func (f *fakeResolver) Resolve(_ context.Context, _ geo.Query) (geo.Location, error) {
	return f.loc, f.err
}

type fakeWeather struct {
	conditions  weather.Conditions
	forecast    []weather.ForecastDay
	currentErr  error
	forecastErr error
}

func (f *fakeWeather) Current(_ context.Context, _ geo.Location) (weather.Conditions, error) {
	return f.conditions, f.currentErr
}

func (f *fakeWeather) Forecast(_ context.Context, _ geo.Location, days int) ([]weather.ForecastDay, error) {
	if f.forecastErr != nil {
		return nil, f.forecastErr
	}
	if days < len(f.forecast) {
		return f.forecast[:days], nil
	}
	return f.forecast, nil
}

type fakePlaces struct {
	places []places.Place
	err    error
}

func (f *fakePlaces) Nearby(_ context.Context, _ geo.Location, _ int) ([]places.Place, error) {
	return f.places, f.err
}

type fakeVideos struct {
	videos []video.Video
	err    error
}

func (f *fakeVideos) Search(_ context.Context, _ string, _ int) ([]video.Video, error) {
	return f.videos, f.err
}

func london() geo.Location {
	return geo.Location{Name: "London", Country: "United Kingdom", Lat: 51.5074, Lon: -0.1278}
}

func fiveDays() []weather.ForecastDay {
	base := time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	days := make([]weather.ForecastDay, 5)
	for i := range days {
		days[i] = weather.ForecastDay{Date: base.AddDate(0, 0, i), TempMin: 10, TempMax: 20, Description: "clear sky"}
	}
	return days
}

func TestOrchestrator_ResolveAndFetch(t *testing.T) {
	ms := store.NewMemoryStore()
	o := NewOrchestrator(
		&fakeResolver{loc: london()},
		&fakeWeather{
			conditions: weather.Conditions{Temperature: 18.5, Humidity: 72, WindSpeed: 4.1, Description: "light rain", ObservedAt: time.Now().UTC()},
			forecast:   fiveDays(),
		},
		&fakePlaces{places: []places.Place{{Name: "British Museum"}}},
		&fakeVideos{videos: []video.Video{{Title: "London walk", URL: "https://www.youtube.com/watch?v=x"}}},
		ms, nil,
	)

	rec, err := o.ResolveAndFetch(context.Background(), geo.Query{Text: "London"}, Options{})
	if err != nil {
		t.Fatalf("ResolveAndFetch: %v", err)
	}

	if rec.ID == "" {
		t.Error("expected a generated id")
	}
	if rec.Input != "London" {
		t.Errorf("input = %q, want %q", rec.Input, "London")
	}
	if len(rec.Forecast) != 5 {
		t.Errorf("forecast length = %d, want 5", len(rec.Forecast))
	}
	if len(rec.Places) != 1 || len(rec.Videos) != 1 {
		t.Errorf("places = %d, videos = %d, want 1 each", len(rec.Places), len(rec.Videos))
	}

	// Exactly one record persisted, equal to the returned one.
	got, err := ms.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if got.Location.Name != "London" {
		t.Errorf("persisted name = %q, want %q", got.Location.Name, "London")
	}
	list, _ := ms.List(context.Background())
	if len(list) != 1 {
		t.Errorf("store holds %d records, want 1", len(list))
	}
}

func TestOrchestrator_ResolutionFailureSavesNothing(t *testing.T) {
	ms := store.NewMemoryStore()
	resErr := &geo.ResolutionError{Input: "xyzzy", Reason: geo.ReasonNotFound}
	o := NewOrchestrator(&fakeResolver{err: resErr}, &fakeWeather{}, nil, nil, ms, nil)

	_, err := o.ResolveAndFetch(context.Background(), geo.Query{Text: "xyzzy"}, Options{})
	var re *geo.ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *geo.ResolutionError", err)
	}

	list, _ := ms.List(context.Background())
	if len(list) != 0 {
		t.Errorf("store holds %d records after failed resolve, want 0", len(list))
	}
}

func TestOrchestrator_UpstreamFailureSavesNothing(t *testing.T) {
	tests := []struct {
		name string
		w    *fakeWeather
		p    *fakePlaces
		v    *fakeVideos
	}{
		{
			name: "current fails",
			w:    &fakeWeather{currentErr: errors.New("boom")},
		},
		{
			name: "forecast fails",
			w:    &fakeWeather{forecastErr: errors.New("boom")},
		},
		{
			name: "places fails",
			w:    &fakeWeather{forecast: fiveDays()},
			p:    &fakePlaces{err: errors.New("boom")},
		},
		{
			name: "videos fails",
			w:    &fakeWeather{forecast: fiveDays()},
			v:    &fakeVideos{err: errors.New("boom")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := store.NewMemoryStore()
			var p PlacesClient
			var v VideoClient
			if tt.p != nil {
				p = tt.p
			}
			if tt.v != nil {
				v = tt.v
			}
			o := NewOrchestrator(&fakeResolver{loc: london()}, tt.w, p, v, ms, nil)

			if _, err := o.ResolveAndFetch(context.Background(), geo.Query{Text: "London"}, Options{}); err == nil {
				t.Fatal("expected error, got nil")
			}
			list, _ := ms.List(context.Background())
			if len(list) != 0 {
				t.Errorf("store holds %d records after failed fetch, want 0", len(list))
			}
		})
	}
}

func TestOrchestrator_OptionalClientsSkipped(t *testing.T) {
	ms := store.NewMemoryStore()
	o := NewOrchestrator(&fakeResolver{loc: london()}, &fakeWeather{forecast: fiveDays()}, nil, nil, ms, nil)

	rec, err := o.ResolveAndFetch(context.Background(), geo.Query{Text: "London"}, Options{})
	if err != nil {
		t.Fatalf("ResolveAndFetch: %v", err)
	}
	if len(rec.Places) != 0 || len(rec.Videos) != 0 {
		t.Errorf("expected empty places/videos, got %d/%d", len(rec.Places), len(rec.Videos))
	}
}

func TestOrchestrator_Refresh(t *testing.T) {
	ms := store.NewMemoryStore()
	w := &fakeWeather{
		conditions: weather.Conditions{Temperature: 18.5, Description: "light rain"},
		forecast:   fiveDays(),
	}
	o := NewOrchestrator(&fakeResolver{loc: london()}, w, nil, nil, ms, nil)

	rec, err := o.ResolveAndFetch(context.Background(), geo.Query{Text: "London"}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	w.conditions.Temperature = 25.0
	got, err := o.Refresh(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("refresh changed id: %q -> %q", rec.ID, got.ID)
	}
	if got.Conditions.Temperature != 25.0 {
		t.Errorf("temperature = %v, want 25.0", got.Conditions.Temperature)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Error("refresh must preserve creation time")
	}
	if !got.UpdatedAt.After(rec.UpdatedAt) {
		t.Error("refresh must bump UpdatedAt")
	}
}

func TestOrchestrator_RefreshMissing(t *testing.T) {
	o := NewOrchestrator(&fakeResolver{loc: london()}, &fakeWeather{}, nil, nil, store.NewMemoryStore(), nil)

	_, err := o.Refresh(context.Background(), "no-such-id")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want store.ErrNotFound", err)
	}
}

func TestOrchestrator_RefreshFailureKeepsRecord(t *testing.T) {
	ms := store.NewMemoryStore()
	w := &fakeWeather{conditions: weather.Conditions{Temperature: 18.5}, forecast: fiveDays()}
	o := NewOrchestrator(&fakeResolver{loc: london()}, w, nil, nil, ms, nil)

	rec, err := o.ResolveAndFetch(context.Background(), geo.Query{Text: "London"}, Options{})
	if err != nil {
		t.Fatal(err)
	}

	w.currentErr = errors.New("boom")
	if _, err := o.Refresh(context.Background(), rec.ID); err == nil {
		t.Fatal("expected refresh error, got nil")
	}

	got, err := ms.Get(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Conditions.Temperature != 18.5 {
		t.Errorf("failed refresh mutated the record: temperature = %v", got.Conditions.Temperature)
	}
}
