package medialink

import (
	"context"
	"testing"
)

func TestManager_Extract(t *testing.T) {
	manager := NewManager()

	tests := []struct {
		name         string
		url          string
		expectedPlat Platform
	}{
		{
			name:         "YouTube",
			url:          "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expectedPlat: PlatformYouTube,
		},
		{
			name:         "TikTok",
			url:          "https://vm.tiktok.com/ZMabc123/",
			expectedPlat: PlatformTikTok,
		},
		{
			name:         "Instagram",
			url:          "https://www.instagram.com/p/AbCdEfGhIjk/",
			expectedPlat: PlatformInstagram,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := manager.Extract(context.Background(), tt.url)
			if err != nil {
				t.Fatalf("Extract(%q) unexpected error: %v", tt.url, err)
			}
			if ref == nil {
				t.Fatalf("Extract(%q) = nil reference", tt.url)
			}
			if ref.Platform != tt.expectedPlat {
				t.Errorf("Platform = %q, want %q", ref.Platform, tt.expectedPlat)
			}
		})
	}
}

func TestManager_ExtractUnclaimed(t *testing.T) {
	manager := NewManager()

	ref, err := manager.Extract(context.Background(), "https://vimeo.com/12345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != nil {
		t.Errorf("expected nil reference for unclaimed URL, got %+v", ref)
	}
}

func TestManager_PriorityOrder(t *testing.T) {
	manager := NewManager()

	// A URL mentioning several platforms must be claimed by the highest
	// priority extractor.
	ref, err := manager.Extract(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ&from=tiktok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref == nil || ref.Platform != PlatformYouTube {
		t.Errorf("expected YouTube to win priority, got %+v", ref)
	}
}

func TestManager_CanExtract(t *testing.T) {
	manager := NewManager()

	if !manager.CanExtract("https://youtu.be/dQw4w9WgXcQ") {
		t.Error("expected YouTube short link to be claimed")
	}
	if manager.CanExtract("https://vimeo.com/12345678") {
		t.Error("expected unsupported URL to be unclaimed")
	}
}

func TestManager_TikTokAccessor(t *testing.T) {
	manager := NewManager()

	if manager.TikTok() == nil {
		t.Fatal("expected TikTok extractor to be wired")
	}
}
