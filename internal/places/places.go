// Package places fetches nearby points of interest from the Google Places
// API to enrich a weather record with location context.
package places

import (
	"context"
	"fmt"
	"net/http"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/geo"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/upstream"
)

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

	// searchRadiusMeters bounds the nearby search around the resolved point.
	searchRadiusMeters = 5000
)

// Place is a nearby point of interest.
type Place struct {
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity,omitempty"`
	Rating   float64  `json:"rating,omitempty"`
	Types    []string `json:"types,omitempty"`
}

// Client wraps the Places nearby-search endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a places client. baseURL may be empty for the public
// API; client may be nil for a default bounded-timeout client.
func NewClient(baseURL, apiKey string, client *http.Client) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("google maps api key is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = upstream.NewClient(0)
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, client: client}, nil
}

type nearbyResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Name     string   `json:"name"`
		Vicinity string   `json:"vicinity"`
		Rating   float64  `json:"rating"`
		Types    []string `json:"types"`
	} `json:"results"`
}

// Nearby returns up to count points of interest within the search radius
// of the location.
func (c *Client) Nearby(ctx context.Context, loc geo.Location, count int) ([]Place, error) {
	if count <= 0 {
		count = 5
	}
	u := fmt.Sprintf("%s/nearbysearch/json?location=%g,%g&radius=%d&key=%s",
		c.baseURL, loc.Lat, loc.Lon, searchRadiusMeters, c.apiKey)

	var resp nearbyResponse
	if err := upstream.GetJSON(ctx, c.client, "places", u, nil, &resp); err != nil {
		return nil, err
	}

	// The Places API reports auth and quota problems in the body with a
	// 200 status.
	switch resp.Status {
	case "OK", "ZERO_RESULTS":
	case "REQUEST_DENIED":
		return nil, &upstream.Error{Service: "places", Kind: upstream.KindAuth, Err: fmt.Errorf("status %s", resp.Status)}
	case "OVER_QUERY_LIMIT":
		return nil, &upstream.Error{Service: "places", Kind: upstream.KindRateLimit, Err: fmt.Errorf("status %s", resp.Status)}
	default:
		return nil, &upstream.Error{Service: "places", Kind: upstream.KindBadResponse, Err: fmt.Errorf("status %s", resp.Status)}
	}

	if len(resp.Results) > count {
		resp.Results = resp.Results[:count]
	}
	result := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		result = append(result, Place{
			Name:     r.Name,
			Vicinity: r.Vicinity,
			Rating:   r.Rating,
			Types:    r.Types,
		})
	}
	return result, nil
}
