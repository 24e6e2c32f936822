package medialink

import (
	"context"
	"fmt"
	"strings"
)

// instagramEmbedTemplate synthesizes the embed URL by appending embed/ to the
// canonical post URL.
const instagramEmbedTemplate = "https://www.instagram.com/%s/%s/embed/"

// InstagramExtractor resolves Instagram post, reel and IGTV links. No network
// enrichment is performed.
type InstagramExtractor struct{}

// NewInstagramExtractor creates a new Instagram link extractor.
func NewInstagramExtractor() *InstagramExtractor {
	return &InstagramExtractor{}
}

// CanExtract claims any URL with an Instagram keyword.
func (e *InstagramExtractor) CanExtract(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), "instagram")
}

// Extract derives the post id and post type from the path.
func (e *InstagramExtractor) Extract(_ context.Context, rawURL string) (*Reference, error) {
	if !e.CanExtract(rawURL) {
		return nil, nil
	}

	ref := &Reference{
		RawURL:   rawURL,
		Platform: PlatformInstagram,
	}

	m := instagramShapeRegex.FindStringSubmatch(rawURL)
	if len(m) < 3 {
		return ref, nil
	}

	postType := strings.ToLower(m[1])
	ref.Identifier = m[2]
	ref.EmbedURL = fmt.Sprintf(instagramEmbedTemplate, postType, ref.Identifier)

	return ref, nil
}
