// Package video searches YouTube for footage related to a location so a
// stored query can link contextual media.
package video

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/upstream"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Video is a single contextual media link.
type Video struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Channel     string    `json:"channel,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Client wraps the YouTube Data API search endpoint.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a video client. baseURL may be empty for the public
// API; client may be nil for a default bounded-timeout client.
func NewClient(baseURL, apiKey string, client *http.Client) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if client == nil {
		client = upstream.NewClient(0)
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, client: client}, nil
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string    `json:"title"`
			ChannelTitle string    `json:"channelTitle"`
			PublishedAt  time.Time `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

// Search returns up to count videos matching the query.
func (c *Client) Search(ctx context.Context, query string, count int) ([]Video, error) {
	if count <= 0 {
		count = 3
	}
	u := fmt.Sprintf("%s/search?part=snippet&type=video&q=%s&maxResults=%d&key=%s",
		c.baseURL, url.QueryEscape(query), count, c.apiKey)

	var resp searchResponse
	if err := upstream.GetJSON(ctx, c.client, "youtube", u, nil, &resp); err != nil {
		return nil, err
	}

	result := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		result = append(result, Video{
			Title:       item.Snippet.Title,
			URL:         "https://www.youtube.com/watch?v=" + item.ID.VideoID,
			Channel:     item.Snippet.ChannelTitle,
			PublishedAt: item.Snippet.PublishedAt,
		})
	}
	return result, nil
}
