// Package query sequences the resolve → fetch → persist workflow that
// turns a raw location input into a stored query record.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/geo"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/places"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/store"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/video"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/weather"
)

// WeatherClient fetches current conditions and a daily forecast.
type WeatherClient interface {
	Current(ctx context.Context, loc geo.Location) (weather.Conditions, error)
	Forecast(ctx context.Context, loc geo.Location, days int) ([]weather.ForecastDay, error)
}

// PlacesClient fetches nearby points of interest.
type PlacesClient interface {
	Nearby(ctx context.Context, loc geo.Location, count int) ([]places.Place, error)
}

// VideoClient searches for contextual media.
type VideoClient interface {
	Search(ctx context.Context, query string, count int) ([]video.Video, error)
}

// Options control how much auxiliary data a fetch gathers.
type Options struct {
	ForecastDays int
	PlacesCount  int
	VideosCount  int
}

func (o Options) withDefaults() Options {
	if o.ForecastDays <= 0 {
		o.ForecastDays = 5
	}
	if o.PlacesCount <= 0 {
		o.PlacesCount = 5
	}
	if o.VideosCount <= 0 {
		o.VideosCount = 3
	}
	return o
}

// Orchestrator wires the resolver, the upstream clients and the store into
// one workflow. The places and video clients are optional; when nil, the
// corresponding stage is skipped and the record carries empty slices.
type Orchestrator struct {
	resolver geo.Resolver
	weather  WeatherClient
	places   PlacesClient
	videos   VideoClient
	store    store.Store
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. resolver, weatherClient and s
// are required; placesClient and videoClient may be nil.
func NewOrchestrator(resolver geo.Resolver, weatherClient WeatherClient, placesClient PlacesClient, videoClient VideoClient, s store.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		resolver: resolver,
		weather:  weatherClient,
		places:   placesClient,
		videos:   videoClient,
		store:    s,
		logger:   logger,
	}
}

// ResolveAndFetch resolves the input, fetches weather and context data, and
// persists exactly one fully-populated StoredQuery. Any stage failure
// aborts the whole operation; nothing partial is ever saved.
func (o *Orchestrator) ResolveAndFetch(ctx context.Context, q geo.Query, opts Options) (*store.StoredQuery, error) {
	opts = opts.withDefaults()

	loc, err := o.resolver.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	o.logger.Info("location resolved", "input", q.Text, "name", loc.Label(), "lat", loc.Lat, "lon", loc.Lon)

	record, err := o.fetch(ctx, loc, opts)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record.ID = uuid.New().String()
	record.Input = q.Text
	if record.Input == "" {
		record.Input = loc.Label()
	}
	record.CreatedAt = now
	record.UpdatedAt = now

	if err := o.store.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting query: %w", err)
	}

	o.logger.Info("query stored",
		"id", record.ID,
		"location", loc.Label(),
		"forecast_days", len(record.Forecast),
		"places", len(record.Places),
		"videos", len(record.Videos),
	)
	return record, nil
}

// Refresh re-fetches all data for an existing record and updates it in
// place. The id, input and creation time are preserved. On any fetch
// failure the stored record is left untouched.
func (o *Orchestrator) Refresh(ctx context.Context, id string) (*store.StoredQuery, error) {
	existing, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	opts := Options{
		ForecastDays: len(existing.Forecast),
		PlacesCount:  len(existing.Places),
		VideosCount:  len(existing.Videos),
	}.withDefaults()

	record, err := o.fetch(ctx, existing.Location, opts)
	if err != nil {
		return nil, err
	}

	record.ID = existing.ID
	record.Input = existing.Input
	record.CreatedAt = existing.CreatedAt
	record.UpdatedAt = time.Now().UTC()

	if err := o.store.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting refresh: %w", err)
	}

	o.logger.Info("query refreshed", "id", record.ID, "location", record.Location.Label())
	return record, nil
}

// fetch gathers weather and context data for a resolved location. Weather
// is mandatory; places and videos run concurrently afterwards and fail the
// fetch when their client is configured but errors.
func (o *Orchestrator) fetch(ctx context.Context, loc geo.Location, opts Options) (*store.StoredQuery, error) {
	conditions, err := o.weather.Current(ctx, loc)
	if err != nil {
		return nil, err
	}
	forecast, err := o.weather.Forecast(ctx, loc, opts.ForecastDays)
	if err != nil {
		return nil, err
	}

	record := &store.StoredQuery{
		Location:   loc,
		Conditions: conditions,
		Forecast:   forecast,
	}

	g, gctx := errgroup.WithContext(ctx)
	if o.places != nil {
		g.Go(func() error {
			p, err := o.places.Nearby(gctx, loc, opts.PlacesCount)
			if err != nil {
				return err
			}
			record.Places = p
			return nil
		})
	}
	if o.videos != nil {
		g.Go(func() error {
			v, err := o.videos.Search(gctx, loc.Label()+" travel", opts.VideosCount)
			if err != nil {
				return err
			}
			record.Videos = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return record, nil
}
