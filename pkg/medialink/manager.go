package medialink

import (
	"context"
)

// Manager coordinates the per-platform extractors in fixed priority order.
type Manager struct {
	extractors []Extractor
}

// NewManager creates a new media link manager with all supported extractors.
func NewManager(opts ...TikTokOption) *Manager {
	return &Manager{
		extractors: []Extractor{
			NewYouTubeExtractor(),
			NewTikTokExtractor(opts...),
			NewInstagramExtractor(),
		},
	}
}

// TikTok returns the TikTok extractor for enrichment wiring.
func (m *Manager) TikTok() *TikTokExtractor {
	for _, e := range m.extractors {
		if t, ok := e.(*TikTokExtractor); ok {
			return t
		}
	}
	return nil
}

// Extract resolves a media link with the first extractor that claims it.
// A (nil, nil) return means no platform keyword matched; this is distinct
// from a recognized-but-malformed URL, which yields a Reference with the
// platform set and no identifier.
func (m *Manager) Extract(ctx context.Context, url string) (*Reference, error) {
	for _, extractor := range m.extractors {
		if extractor.CanExtract(url) {
			return extractor.Extract(ctx, url)
		}
	}
	return nil, nil
}

// CanExtract checks if any extractor claims the given URL.
func (m *Manager) CanExtract(url string) bool {
	for _, extractor := range m.extractors {
		if extractor.CanExtract(url) {
			return true
		}
	}
	return false
}
