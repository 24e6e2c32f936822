package medialink

import (
	"regexp"
	"strings"
)

const (
	// minYouTubeIDLength is the shortest identifier the quick shape check accepts.
	minYouTubeIDLength = 8

	youtubeExampleURL   = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	tiktokExampleURL    = "https://www.tiktok.com/@username/video/1234567890"
	instagramExampleURL = "https://www.instagram.com/p/AbCdEfGhIjk/"

	supportedPlatformsHint = "Supported platforms: YouTube, TikTok, Instagram."
)

var (
	// youtubeShapeRegex requires a recognized path form followed by an
	// identifier of at least minYouTubeIDLength characters.
	youtubeShapeRegex = regexp.MustCompile(
		`(?i)(?:youtube\.com/(?:watch\?(?:[^#\s]*&)?v=|embed/|v/|live/|shorts/)|youtu\.be/|[?&]v=)([A-Za-z0-9_-]{8,})`)

	tiktokProfileRegex = regexp.MustCompile(`(?i)tiktok\.com/@([\w.-]+)/video/(\d+)`)
	tiktokShortRegex   = regexp.MustCompile(`(?i)(?:vm|vt)\.tiktok\.com/([A-Za-z0-9]+)`)
	tiktokTokenRegex   = regexp.MustCompile(`(?i)tiktok\.com/t/([A-Za-z0-9]+)`)

	instagramShapeRegex = regexp.MustCompile(`(?i)instagram\.com/(p|reel|tv)/([A-Za-z0-9_-]+)`)
)

// Classify performs the fast, synchronous classification pass over a raw URL
// string. It never touches the network and tolerates partial input, so it is
// safe to call on every keystroke.
func Classify(rawURL string) ValidationResult {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ValidationResult{Valid: false, Message: ""}
	}

	lower := strings.ToLower(trimmed)

	// Keyword checks run in fixed priority order; the first platform whose
	// keyword appears owns the verdict, valid shape or not.
	switch {
	case strings.Contains(lower, "youtu"):
		return classifyYouTube(trimmed)
	case strings.Contains(lower, "tiktok"):
		return classifyTikTok(trimmed)
	case strings.Contains(lower, "instagram"):
		return classifyInstagram(trimmed)
	}

	if strings.Contains(lower, "http") || strings.Contains(lower, "www.") {
		return ValidationResult{
			Valid:      false,
			Platform:   PlatformUnsupported,
			Message:    "This platform is not supported.",
			Suggestion: supportedPlatformsHint,
		}
	}

	return ValidationResult{
		Valid:   false,
		Message: "Enter a valid URL.",
	}
}

func classifyYouTube(rawURL string) ValidationResult {
	if youtubeShapeRegex.MatchString(rawURL) {
		return ValidationResult{
			Valid:    true,
			Platform: PlatformYouTube,
			Message:  "YouTube link detected.",
		}
	}

	return ValidationResult{
		Valid:      false,
		Platform:   PlatformYouTube,
		Message:    "This looks like a YouTube link, but the URL is incomplete or malformed.",
		Suggestion: "Example: " + youtubeExampleURL,
	}
}

func classifyTikTok(rawURL string) ValidationResult {
	if tiktokProfileRegex.MatchString(rawURL) ||
		tiktokShortRegex.MatchString(rawURL) ||
		tiktokTokenRegex.MatchString(rawURL) {
		return ValidationResult{
			Valid:    true,
			Platform: PlatformTikTok,
			Message:  "TikTok link detected.",
		}
	}

	return ValidationResult{
		Valid:      false,
		Platform:   PlatformTikTok,
		Message:    "This looks like a TikTok link, but the URL is incomplete or malformed.",
		Suggestion: "Example: " + tiktokExampleURL,
	}
}

func classifyInstagram(rawURL string) ValidationResult {
	if instagramShapeRegex.MatchString(rawURL) {
		return ValidationResult{
			Valid:    true,
			Platform: PlatformInstagram,
			Message:  "Instagram link detected.",
		}
	}

	return ValidationResult{
		Valid:      false,
		Platform:   PlatformInstagram,
		Message:    "This looks like an Instagram link, but the URL is incomplete or malformed.",
		Suggestion: "Example: " + instagramExampleURL,
	}
}
