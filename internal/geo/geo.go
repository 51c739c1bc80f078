// Package geo resolves user location input into a canonical location
// accepted by the weather API.
package geo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Query is the raw user input: free text, or a coordinate pair.
type Query struct {
	Text string
	Lat  *float64
	Lon  *float64
}

// Coordinates reports whether the query carries an explicit coordinate
// pair, parsing "lat,lon" text if necessary.
func (q Query) Coordinates() (lat, lon float64, ok bool) {
	if q.Lat != nil && q.Lon != nil {
		return *q.Lat, *q.Lon, true
	}
	parts := strings.Split(q.Text, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// Empty reports whether the query carries no usable input.
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Text) == "" && (q.Lat == nil || q.Lon == nil)
}

// Location is a canonical, resolved location.
type Location struct {
	Name    string  `json:"name"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Label returns a human-readable name for the location.
func (l Location) Label() string {
	if l.Country != "" && l.Name != "" {
		return l.Name + ", " + l.Country
	}
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("%.4f,%.4f", l.Lat, l.Lon)
}

// Resolution failure reasons.
const (
	ReasonEmpty     = "empty input"
	ReasonNotFound  = "not found"
	ReasonAmbiguous = "ambiguous"
	ReasonInvalid   = "invalid coordinates"
)

// ResolutionError reports why an input could not be resolved.
type ResolutionError struct {
	Input  string
	Reason string
}

func (e *ResolutionError) Error() string {
	if e.Input == "" {
		return "resolving location: " + e.Reason
	}
	return fmt.Sprintf("resolving %q: %s", e.Input, e.Reason)
}

// Resolver turns raw user input into exactly one canonical location.
type Resolver interface {
	Resolve(ctx context.Context, q Query) (Location, error)
}
