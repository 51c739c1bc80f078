// Package weather fetches current conditions and daily forecasts from the
// OpenWeather API.
package weather

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/geo"
	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/upstream"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Conditions is a snapshot of current weather at a location.
type Conditions struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	Description string    `json:"description"`
	ObservedAt  time.Time `json:"observed_at"`
}

// ForecastDay is one day of an ordered forecast sequence.
type ForecastDay struct {
	Date        time.Time `json:"date"`
	TempMin     float64   `json:"temp_min"`
	TempMax     float64   `json:"temp_max"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	Description string    `json:"description"`
}

// Client wraps the OpenWeather current-weather and forecast endpoints.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a weather client. baseURL may be empty for the public
// API; client may be nil for a default bounded-timeout client.
func NewClient(baseURL, apiKey string, client *http.Client) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openweather api key is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = upstream.NewClient(0)
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, client: client}, nil
}

type currentResponse struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt int64 `json:"dt"`
}

// Current fetches current conditions for a resolved location. Metric units.
func (c *Client) Current(ctx context.Context, loc geo.Location) (Conditions, error) {
	u := fmt.Sprintf("%s/weather?lat=%g&lon=%g&units=metric&appid=%s", c.baseURL, loc.Lat, loc.Lon, c.apiKey)

	var resp currentResponse
	if err := upstream.GetJSON(ctx, c.client, "openweather", u, nil, &resp); err != nil {
		return Conditions{}, err
	}

	cond := Conditions{
		Temperature: resp.Main.Temp,
		Humidity:    resp.Main.Humidity,
		WindSpeed:   resp.Wind.Speed,
		ObservedAt:  time.Unix(resp.Dt, 0).UTC(),
	}
	if len(resp.Weather) > 0 {
		cond.Description = resp.Weather[0].Description
	}
	return cond, nil
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			TempMin  float64 `json:"temp_min"`
			TempMax  float64 `json:"temp_max"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"list"`
}

// Forecast fetches the 3-hourly forecast and folds it into at most days
// daily summaries, ordered by date.
func (c *Client) Forecast(ctx context.Context, loc geo.Location, days int) ([]ForecastDay, error) {
	if days <= 0 {
		days = 5
	}
	u := fmt.Sprintf("%s/forecast?lat=%g&lon=%g&units=metric&appid=%s", c.baseURL, loc.Lat, loc.Lon, c.apiKey)

	var resp forecastResponse
	if err := upstream.GetJSON(ctx, c.client, "openweather", u, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.List) == 0 {
		return nil, &upstream.Error{
			Service: "openweather",
			Kind:    upstream.KindBadResponse,
			Err:     fmt.Errorf("forecast list is empty"),
		}
	}

	byDay := make(map[string]*ForecastDay)
	for _, item := range resp.List {
		ts := time.Unix(item.Dt, 0).UTC()
		key := ts.Format(time.DateOnly)

		day, ok := byDay[key]
		if !ok {
			day = &ForecastDay{
				Date:      time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC),
				TempMin:   item.Main.TempMin,
				TempMax:   item.Main.TempMax,
				Humidity:  item.Main.Humidity,
				WindSpeed: item.Wind.Speed,
			}
			if len(item.Weather) > 0 {
				day.Description = item.Weather[0].Description
			}
			byDay[key] = day
			continue
		}

		if item.Main.TempMin < day.TempMin {
			day.TempMin = item.Main.TempMin
		}
		if item.Main.TempMax > day.TempMax {
			day.TempMax = item.Main.TempMax
		}
		if item.Wind.Speed > day.WindSpeed {
			day.WindSpeed = item.Wind.Speed
		}
		// Prefer the midday entry's description over the first slot of the day.
		if ts.Hour() == 12 && len(item.Weather) > 0 {
			day.Description = item.Weather[0].Description
			day.Humidity = item.Main.Humidity
		}
	}

	result := make([]ForecastDay, 0, len(byDay))
	for _, d := range byDay {
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })

	if len(result) > days {
		result = result[:days]
	}
	return result, nil
}
