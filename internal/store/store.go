package store

import (
	"context"
	"errors"
	"time"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/geo"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/places"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/video"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/weather"
)

// ErrNotFound is returned when no stored query exists for the given id.
var ErrNotFound = errors.New("stored query not found")

// StoredQuery is one persisted location query together with everything
// fetched for it. Weather fields are always fully populated; places and
// videos may be empty when the corresponding API was not configured.
type StoredQuery struct {
	ID         string                `json:"id"`
	Input      string                `json:"input"`
	Location   geo.Location          `json:"location"`
	Conditions weather.Conditions    `json:"conditions"`
	Forecast   []weather.ForecastDay `json:"forecast"`
	Places     []places.Place        `json:"places,omitempty"`
	Videos     []video.Video         `json:"videos,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
}

// Fields holds the user-editable subset of a stored query for partial
// updates. Nil pointers leave the field untouched.
type Fields struct {
	Input       *string  `json:"input,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// Store defines the interface for stored-query persistence.
// SQLite, PostgreSQL and in-memory implementations satisfy this interface.
type Store interface {
	// Create inserts a new stored query. The caller assigns the id;
	// duplicate ids are rejected.
	Create(ctx context.Context, q *StoredQuery) error

	// Get retrieves a stored query by id, or ErrNotFound.
	Get(ctx context.Context, id string) (*StoredQuery, error)

	// Update replaces a stored query in full, keeping its id and
	// insertion position. Returns ErrNotFound for unknown ids.
	Update(ctx context.Context, q *StoredQuery) error

	// UpdateFields applies a partial update and returns the resulting
	// record, or ErrNotFound.
	UpdateFields(ctx context.Context, id string, f Fields) (*StoredQuery, error)

	// Delete removes a stored query, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns all stored queries in insertion order.
	List(ctx context.Context) ([]StoredQuery, error)

	// Close closes the underlying storage.
	Close() error
}

// applyFields merges a partial update into a record and bumps UpdatedAt.
func applyFields(q *StoredQuery, f Fields) {
	if f.Input != nil {
		q.Input = *f.Input
	}
	if f.Temperature != nil {
		q.Conditions.Temperature = *f.Temperature
	}
	if f.Description != nil {
		q.Conditions.Description = *f.Description
	}
	q.UpdatedAt = time.Now().UTC()
}
