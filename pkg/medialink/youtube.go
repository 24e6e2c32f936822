package medialink

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	// youtubeThumbnailTemplate derives a thumbnail deterministically from the video id.
	youtubeThumbnailTemplate = "https://img.youtube.com/vi/%s/hqdefault.jpg"
	// youtubeEmbedTemplate derives the embed player URL from the video id.
	youtubeEmbedTemplate = "https://www.youtube.com/embed/%s"
)

var (
	youtubeLiveFallbackRegex  = regexp.MustCompile(`(?i)/live/([A-Za-z0-9_-]+)`)
	youtubeQueryFallbackRegex = regexp.MustCompile(`(?i)[?&]v=([A-Za-z0-9_-]+)`)
	youtubeShortFallbackRegex = regexp.MustCompile(`(?i)youtu\.be/([A-Za-z0-9_-]+)`)

	youtubeStartParamRegex = regexp.MustCompile(`(?i)[?&](?:t|start)=(\d+)`)
)

// YouTubeExtractor resolves YouTube video, live and shorts links without any
// network access.
type YouTubeExtractor struct{}

// NewYouTubeExtractor creates a new YouTube link extractor.
func NewYouTubeExtractor() *YouTubeExtractor {
	return &YouTubeExtractor{}
}

// CanExtract claims any URL with a YouTube keyword, including shapes the
// quick classification check rejects. Live URLs with non-11-character ids
// still resolve through the fallback extraction paths.
func (e *YouTubeExtractor) CanExtract(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), "youtu")
}

// Extract derives the canonical video id, subtype and any start offset
// embedded in the URL query. When no id can be recovered the returned
// Reference carries the platform but no identifier, leaving the classifier's
// malformed-URL verdict in place.
func (e *YouTubeExtractor) Extract(_ context.Context, rawURL string) (*Reference, error) {
	if !e.CanExtract(rawURL) {
		return nil, nil
	}

	ref := &Reference{
		RawURL:   rawURL,
		Platform: PlatformYouTube,
	}

	id := e.extractVideoID(rawURL)
	if id == "" {
		return ref, nil
	}

	ref.Identifier = id
	ref.Subtype = e.subtype(rawURL)
	ref.ThumbnailURL = youtubeThumbnail(id)
	ref.EmbedURL = youtubeEmbed(id)

	if seconds, ok := e.startOffset(rawURL); ok {
		ref.URLStartSeconds = seconds
		ref.HasURLStart = true
	}

	return ref, nil
}

// extractVideoID runs the shape regex first, then falls back to the live
// path, the v= query parameter and the youtu.be short form, in that order.
// The fallbacks accept ids the shape check considers implausibly short.
func (e *YouTubeExtractor) extractVideoID(rawURL string) string {
	if m := youtubeShapeRegex.FindStringSubmatch(rawURL); len(m) > 1 && len(m[1]) >= minYouTubeIDLength {
		return m[1]
	}

	fallbacks := []*regexp.Regexp{
		youtubeLiveFallbackRegex,
		youtubeQueryFallbackRegex,
		youtubeShortFallbackRegex,
	}
	for _, re := range fallbacks {
		if m := re.FindStringSubmatch(rawURL); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}

	return ""
}

func (e *YouTubeExtractor) subtype(rawURL string) Subtype {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}

	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "live"):
		return SubtypeLive
	case strings.Contains(lower, "shorts"):
		return SubtypeShorts
	default:
		return SubtypeVideo
	}
}

// startOffset parses the t= or start= query parameter as integer seconds.
func (e *YouTubeExtractor) startOffset(rawURL string) (int, bool) {
	if u, err := url.Parse(rawURL); err == nil {
		for _, key := range []string{"t", "start"} {
			if value := u.Query().Get(key); value != "" {
				if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
					return seconds, true
				}
			}
		}
		return 0, false
	}

	// Partial input may not parse as a URL; scan the raw string instead.
	if m := youtubeStartParamRegex.FindStringSubmatch(rawURL); len(m) > 1 {
		if seconds, err := strconv.Atoi(m[1]); err == nil {
			return seconds, true
		}
	}
	return 0, false
}

func youtubeThumbnail(id string) string {
	return fmt.Sprintf(youtubeThumbnailTemplate, id)
}

func youtubeEmbed(id string) string {
	return fmt.Sprintf(youtubeEmbedTemplate, id)
}
