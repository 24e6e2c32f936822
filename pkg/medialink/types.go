// Package medialink provides multi-platform media link classification and
// resolution for YouTube, TikTok and Instagram URLs.
package medialink

import (
	"context"
)

// Platform identifies the media service a URL belongs to.
type Platform string

const (
	// PlatformUnknown means the input is not yet URL-shaped.
	PlatformUnknown Platform = "unknown"
	// PlatformYouTube is a YouTube video, live stream or short.
	PlatformYouTube Platform = "youtube"
	// PlatformTikTok is a TikTok video.
	PlatformTikTok Platform = "tiktok"
	// PlatformInstagram is an Instagram post, reel or IGTV video.
	PlatformInstagram Platform = "instagram"
	// PlatformUnsupported means the input looked like a URL to an unhandled service.
	PlatformUnsupported Platform = "unsupported"
)

// Subtype describes the YouTube content shape. It is empty for other platforms.
type Subtype string

const (
	SubtypeVideo  Subtype = "video"
	SubtypeLive   Subtype = "live"
	SubtypeShorts Subtype = "shorts"
)

// Reference holds the classified, validated result of resolving a media URL.
type Reference struct {
	RawURL          string   `json:"raw_url"`
	Platform        Platform `json:"platform"`
	Identifier      string   `json:"identifier,omitempty"`
	Subtype         Subtype  `json:"subtype,omitempty"`
	Username        string   `json:"username,omitempty"`
	Title           string   `json:"title,omitempty"`
	AuthorName      string   `json:"author_name,omitempty"`
	ThumbnailURL    string   `json:"thumbnail_url,omitempty"`
	EmbedURL        string   `json:"embed_url,omitempty"`
	URLStartSeconds int      `json:"url_start_seconds,omitempty"`
	HasURLStart     bool     `json:"has_url_start,omitempty"`
}

// ValidationResult is the advisory outcome of the synchronous classification
// pass. It is recomputed on every input change and never persisted.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Platform   Platform `json:"platform,omitempty"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Extractor defines the interface for resolving media links from a single
// platform to a Reference.
type Extractor interface {
	// Extract derives a Reference from a media URL. A Reference with an
	// empty Identifier means the URL was recognized but malformed.
	Extract(ctx context.Context, url string) (*Reference, error)

	// CanExtract checks if this extractor claims the given URL.
	CanExtract(url string) bool
}
