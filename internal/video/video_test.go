package video

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/n43ms/PMAccelerator-Assessment-Weather-App/internal/upstream"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	if _, err := NewClient("", "", nil); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != "Tokyo travel" {
			t.Errorf("q = %q, want %q", q.Get("q"), "Tokyo travel")
		}
		if q.Get("type") != "video" {
			t.Errorf("type = %q, want video", q.Get("type"))
		}
		if q.Get("maxResults") != "2" {
			t.Errorf("maxResults = %q, want 2", q.Get("maxResults"))
		}
		w.Write([]byte(`{"items":[
			{"id":{"videoId":"abc123"},
			 "snippet":{"title":"Tokyo in 4K","channelTitle":"City Walks","publishedAt":"2024-03-01T10:00:00Z"}},
			{"id":{},
			 "snippet":{"title":"Channel result, no video id","channelTitle":"Noise"}},
			{"id":{"videoId":"def456"},
			 "snippet":{"title":"Tokyo food tour","channelTitle":"Eats","publishedAt":"2024-05-20T08:30:00Z"}}
		]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "test-key", srv.Client())
	if err != nil {
		t.Fatal(err)
	}

	got, err := c.Search(context.Background(), "Tokyo travel", 2)
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d videos, want 2 (item without video id skipped)", len(got))
	}
	if got[0].Title != "Tokyo in 4K" {
		t.Errorf("Title = %q, want Tokyo in 4K", got[0].Title)
	}
	if got[0].URL != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("URL = %q, want watch url for abc123", got[0].URL)
	}
	if got[0].Channel != "City Walks" {
		t.Errorf("Channel = %q, want City Walks", got[0].Channel)
	}
	if got[1].URL != "https://www.youtube.com/watch?v=def456" {
		t.Errorf("URL = %q, want watch url for def456", got[1].URL)
	}
}

func TestClient_SearchEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "test-key", srv.Client())
	got, err := c.Search(context.Background(), "nothing here", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d videos, want 0", len(got))
	}
}

func TestClient_SearchAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, "test-key", srv.Client())
	_, err := c.Search(context.Background(), "Tokyo travel", 3)

	var upErr *upstream.Error
	if !errors.As(err, &upErr) {
		t.Fatalf("err = %v, want *upstream.Error", err)
	}
	if upErr.Kind != upstream.KindAuth {
		t.Errorf("Kind = %v, want %v", upErr.Kind, upstream.KindAuth)
	}
	if upErr.Service != "youtube" {
		t.Errorf("Service = %q, want youtube", upErr.Service)
	}
}
