package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/upstream"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org"

	// Nominatim's usage policy requires an identifying User-Agent.
	userAgent = "weatherd/1.0"
)

// Nominatim implements Resolver against the OpenStreetMap Nominatim
// geocoding service.
type Nominatim struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewNominatim creates a Nominatim resolver. baseURL may be empty for the
// public instance; client may be nil for a default bounded-timeout client.
func NewNominatim(baseURL string, client *http.Client, logger *slog.Logger) *Nominatim {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = upstream.NewClient(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Nominatim{baseURL: baseURL, client: client, logger: logger}
}

type searchResult struct {
	Lat        string  `json:"lat"`
	Lon        string  `json:"lon"`
	Importance float64 `json:"importance"`
	Address    struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
	DisplayName string `json:"display_name"`
}

func (r searchResult) location() (Location, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return Location{}, fmt.Errorf("parsing latitude %q: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return Location{}, fmt.Errorf("parsing longitude %q: %w", r.Lon, err)
	}

	name := r.Address.City
	if name == "" {
		name = r.Address.Town
	}
	if name == "" {
		name = r.Address.Village
	}
	if name == "" {
		name = r.Address.State
	}
	if name == "" {
		name = r.DisplayName
	}
	return Location{Name: name, Country: r.Address.Country, Lat: lat, Lon: lon}, nil
}

// Resolve maps a query to exactly one canonical location, or fails with a
// *ResolutionError. Exactly one upstream call is made.
func (n *Nominatim) Resolve(ctx context.Context, q Query) (Location, error) {
	if q.Empty() {
		return Location{}, &ResolutionError{Reason: ReasonEmpty}
	}

	if lat, lon, ok := q.Coordinates(); ok {
		return n.reverse(ctx, lat, lon)
	}
	return n.search(ctx, q.Text)
}

// reverse turns a coordinate pair into a named location. Coordinates with
// no reverse match (open ocean) stay valid: the pair itself becomes the
// canonical name rather than defaulting to some other place.
func (n *Nominatim) reverse(ctx context.Context, lat, lon float64) (Location, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Location{}, &ResolutionError{
			Input:  fmt.Sprintf("%g,%g", lat, lon),
			Reason: ReasonInvalid,
		}
	}

	u := fmt.Sprintf("%s/reverse?lat=%g&lon=%g&format=json&addressdetails=1", n.baseURL, lat, lon)

	var res searchResult
	err := upstream.GetJSON(ctx, n.client, "nominatim", u, http.Header{"User-Agent": {userAgent}}, &res)
	if err != nil {
		var ue *upstream.Error
		// Nominatim answers 404 for unmappable coordinates; the pair is
		// still a canonical location for the weather API.
		if errors.As(err, &ue) && ue.Kind == upstream.KindNotFound {
			return Location{Lat: lat, Lon: lon}, nil
		}
		return Location{}, err
	}

	if res.Lat == "" {
		// An "error" body with a 200 status; same oceanic case.
		return Location{Lat: lat, Lon: lon}, nil
	}

	loc, err := res.location()
	if err != nil {
		return Location{}, fmt.Errorf("nominatim reverse: %w", err)
	}
	// Keep the caller's coordinates; the reverse hit only names them.
	loc.Lat, loc.Lon = lat, lon
	return loc, nil
}

// search forward-geocodes free text. Two results are requested so the
// ambiguity policy can be applied: when the top two matches carry the same
// importance score the input is rejected rather than silently picking one.
func (n *Nominatim) search(ctx context.Context, text string) (Location, error) {
	u := fmt.Sprintf("%s/search?q=%s&format=json&addressdetails=1&limit=2", n.baseURL, url.QueryEscape(text))

	var results []searchResult
	if err := upstream.GetJSON(ctx, n.client, "nominatim", u, http.Header{"User-Agent": {userAgent}}, &results); err != nil {
		return Location{}, err
	}

	if len(results) == 0 {
		return Location{}, &ResolutionError{Input: text, Reason: ReasonNotFound}
	}

	if len(results) > 1 && results[0].Importance == results[1].Importance &&
		results[0].DisplayName != results[1].DisplayName {
		n.logger.Warn("ambiguous location input",
			"input", text,
			"first", results[0].DisplayName,
			"second", results[1].DisplayName,
		)
		return Location{}, &ResolutionError{Input: text, Reason: ReasonAmbiguous}
	}

	loc, err := results[0].location()
	if err != nil {
		return Location{}, fmt.Errorf("nominatim search: %w", err)
	}
	return loc, nil
}
