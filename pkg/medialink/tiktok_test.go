package medialink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestTikTokExtractor_ExtractIdentity(t *testing.T) {
	extractor := NewTikTokExtractor()

	tests := []struct {
		name             string
		url              string
		expectedID       string
		expectedUsername string
	}{
		{
			name:             "Profile video path",
			url:              "https://www.tiktok.com/@jane.doe/video/7123456789012345678",
			expectedID:       "7123456789012345678",
			expectedUsername: "jane.doe",
		},
		{
			name:       "Bare video path",
			url:        "https://www.tiktok.com/video/7123456789012345678",
			expectedID: "7123456789012345678",
		},
		{
			name:       "vm short link",
			url:        "https://vm.tiktok.com/ZMabc123/",
			expectedID: "ZMabc123",
		},
		{
			name:       "vt short link",
			url:        "https://vt.tiktok.com/ZSxyz789/",
			expectedID: "ZSxyz789",
		},
		{
			name:       "t-token link",
			url:        "https://www.tiktok.com/t/ZTabc123/",
			expectedID: "ZTabc123",
		},
		{
			name: "No recognizable shape",
			url:  "https://www.tiktok.com/@jane.doe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, username := extractor.extractIdentity(tt.url)
			if id != tt.expectedID {
				t.Errorf("extractIdentity(%q) id = %q, want %q", tt.url, id, tt.expectedID)
			}
			if username != tt.expectedUsername {
				t.Errorf("extractIdentity(%q) username = %q, want %q", tt.url, username, tt.expectedUsername)
			}
		})
	}
}

func TestTikTokExtractor_ExtractWithEnrichment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("url") == "" {
			t.Error("expected original URL to be passed to the oEmbed endpoint")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"title": "Dance  video",
			"author_name": "jane",
			"thumbnail_url": "https://cdn.example.com/thumb.jpg",
			"html": "<blockquote></blockquote>"
		}`))
	}))
	defer server.Close()

	extractor := NewTikTokExtractor(WithOEmbedURL(server.URL))

	ref, err := extractor.Extract(context.Background(), "https://www.tiktok.com/@jane/video/12345")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ref.Platform != PlatformTikTok {
		t.Errorf("Platform = %q, want %q", ref.Platform, PlatformTikTok)
	}
	if ref.Identifier != "12345" {
		t.Errorf("Identifier = %q, want %q", ref.Identifier, "12345")
	}
	if ref.Username != "jane" {
		t.Errorf("Username = %q, want %q", ref.Username, "jane")
	}
	if ref.Title != "Dance video" {
		t.Errorf("Title = %q, want normalized %q", ref.Title, "Dance video")
	}
	if ref.AuthorName != "jane" {
		t.Errorf("AuthorName = %q, want %q", ref.AuthorName, "jane")
	}
	if ref.ThumbnailURL != "https://cdn.example.com/thumb.jpg" {
		t.Errorf("ThumbnailURL = %q", ref.ThumbnailURL)
	}
}

func TestTikTokExtractor_EnrichmentFailureDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	var observed []string
	extractor := NewTikTokExtractor(WithOEmbedURL(server.URL))
	extractor.Observe = func(status string, _ time.Duration) {
		observed = append(observed, status)
	}

	ref, err := extractor.Extract(context.Background(), "https://www.tiktok.com/@jane/video/12345")
	if err != nil {
		t.Fatalf("enrichment failure must not fail extraction, got error: %v", err)
	}

	if ref.Identifier != "12345" {
		t.Errorf("Identifier = %q, want %q", ref.Identifier, "12345")
	}
	if ref.Username != "jane" {
		t.Errorf("Username = %q, want %q", ref.Username, "jane")
	}
	if ref.Title != "@jane's TikTok" {
		t.Errorf("Title = %q, want synthesized fallback", ref.Title)
	}
	if len(observed) != 1 || observed[0] != "degraded" {
		t.Errorf("observed enrichment outcomes = %v, want single degraded", observed)
	}
}

func TestTikTokExtractor_EnrichmentFailureWithoutUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	extractor := NewTikTokExtractor(WithOEmbedURL(server.URL))

	ref, err := extractor.Extract(context.Background(), "https://vm.tiktok.com/ZMabc123/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref.Title != "TikTok video" {
		t.Errorf("Title = %q, want generic fallback", ref.Title)
	}
}

func TestTikTokExtractor_EnrichmentCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Once","author_name":"jane","thumbnail_url":"","html":""}`))
	}))
	defer server.Close()

	extractor := NewTikTokExtractor(WithOEmbedURL(server.URL))

	url := "https://www.tiktok.com/@jane/video/12345"
	for i := 0; i < 3; i++ {
		if _, err := extractor.Extract(context.Background(), url); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("oEmbed endpoint called %d times, want 1 (cached)", got)
	}
}

func TestTikTokExtractor_NonTikTokURL(t *testing.T) {
	extractor := NewTikTokExtractor()

	ref, err := extractor.Extract(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != nil {
		t.Errorf("expected nil reference for non-TikTok URL, got %+v", ref)
	}
}
