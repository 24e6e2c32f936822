package medialink

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// tiktokVideoRegex accepts the bare /video/<id> path shape the quick
// classification check does not recognize on its own.
var tiktokVideoRegex = regexp.MustCompile(`(?i)tiktok\.com/video/(\d+)`)

const (
	// TikTokOEmbedURL is the TikTok oEmbed API endpoint.
	TikTokOEmbedURL = "https://www.tiktok.com/oembed"
	// tiktokEmbedTemplate derives the embed player URL from a numeric video id.
	tiktokEmbedTemplate = "https://www.tiktok.com/embed/v2/%s"
	// defaultEnrichCacheSize bounds the per-URL oEmbed response cache.
	defaultEnrichCacheSize = 256
)

// TikTokOEmbedResponse represents the response from TikTok's oEmbed API.
type TikTokOEmbedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
	HTML         string `json:"html"`
}

// TikTokExtractor resolves TikTok links. Metadata enrichment through the
// oEmbed endpoint is best-effort: a network or decode failure degrades to a
// reference with only the identifier, username and a synthesized title.
type TikTokExtractor struct {
	client    *http.Client
	oembedURL string
	cache     *lru.Cache[string, *TikTokOEmbedResponse]

	// Observe, when set, is called once per enrichment attempt with its
	// outcome ("success" or "degraded") and duration.
	Observe func(status string, elapsed time.Duration)
}

// TikTokOption configures a TikTokExtractor.
type TikTokOption func(*TikTokExtractor)

// WithOEmbedURL overrides the enrichment endpoint, mainly for tests.
func WithOEmbedURL(u string) TikTokOption {
	return func(e *TikTokExtractor) { e.oembedURL = u }
}

// WithEnrichTimeout sets the enrichment request timeout. Expiry follows the
// same degradation path as outright failure.
func WithEnrichTimeout(timeout time.Duration) TikTokOption {
	return func(e *TikTokExtractor) { e.client = newHTTPClient(timeout) }
}

// WithEnrichCacheSize bounds the per-URL oEmbed response cache.
func WithEnrichCacheSize(size int) TikTokOption {
	return func(e *TikTokExtractor) {
		if size > 0 {
			e.cache, _ = lru.New[string, *TikTokOEmbedResponse](size)
		}
	}
}

// NewTikTokExtractor creates a new TikTok link extractor.
func NewTikTokExtractor(opts ...TikTokOption) *TikTokExtractor {
	cache, _ := lru.New[string, *TikTokOEmbedResponse](defaultEnrichCacheSize)

	e := &TikTokExtractor{
		client:    newHTTPClient(defaultHTTPTimeout),
		oembedURL: TikTokOEmbedURL,
		cache:     cache,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CanExtract claims any URL with a TikTok keyword.
func (e *TikTokExtractor) CanExtract(rawURL string) bool {
	return strings.Contains(strings.ToLower(rawURL), "tiktok")
}

// Extract derives the video id and username, then attempts best-effort
// enrichment. Extraction never fails because the enrichment call failed.
func (e *TikTokExtractor) Extract(ctx context.Context, rawURL string) (*Reference, error) {
	if !e.CanExtract(rawURL) {
		return nil, nil
	}

	ref := &Reference{
		RawURL:   rawURL,
		Platform: PlatformTikTok,
	}

	id, username := e.extractIdentity(rawURL)
	if id == "" {
		return ref, nil
	}

	ref.Identifier = id
	ref.Username = username
	if isNumeric(id) {
		ref.EmbedURL = fmt.Sprintf(tiktokEmbedTemplate, id)
	}

	if oembed := e.enrich(ctx, rawURL); oembed != nil {
		ref.Title = normalizeTitle(oembed.Title)
		ref.AuthorName = oembed.AuthorName
		ref.ThumbnailURL = oembed.ThumbnailURL
		if ref.Username == "" && oembed.AuthorName != "" {
			ref.Username = strings.TrimPrefix(oembed.AuthorName, "@")
		}
	}

	if ref.Title == "" {
		ref.Title = synthesizeTikTokTitle(username)
	}

	return ref, nil
}

// extractIdentity pulls the video id and optional @handle from the four
// accepted path shapes: profile video, bare video, short link and /t/ token.
func (e *TikTokExtractor) extractIdentity(rawURL string) (id, username string) {
	if m := tiktokProfileRegex.FindStringSubmatch(rawURL); len(m) > 2 {
		return m[2], m[1]
	}
	if m := tiktokVideoRegex.FindStringSubmatch(rawURL); len(m) > 1 {
		return m[1], ""
	}
	if m := tiktokShortRegex.FindStringSubmatch(rawURL); len(m) > 1 {
		return m[1], ""
	}
	if m := tiktokTokenRegex.FindStringSubmatch(rawURL); len(m) > 1 {
		return m[1], ""
	}
	return "", ""
}

// enrich fetches oEmbed metadata for the original URL. A nil result means
// the call failed and the caller should degrade gracefully.
func (e *TikTokExtractor) enrich(ctx context.Context, rawURL string) *TikTokOEmbedResponse {
	if cached, ok := e.cache.Get(rawURL); ok {
		return cached
	}

	start := time.Now()
	var oembed TikTokOEmbedResponse
	err := fetchOEmbedJSON(ctx, e.client, e.oembedURL, rawURL, &oembed)
	e.observe(err, time.Since(start))
	if err != nil {
		return nil
	}

	e.cache.Add(rawURL, &oembed)
	return &oembed
}

func (e *TikTokExtractor) observe(err error, elapsed time.Duration) {
	if e.Observe == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "degraded"
	}
	e.Observe(status, elapsed)
}

func synthesizeTikTokTitle(username string) string {
	if username != "" {
		return fmt.Sprintf("@%s's TikTok", username)
	}
	return "TikTok video"
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
