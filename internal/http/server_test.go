package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mediaref/internal/core"
	"mediaref/internal/flood"
	"mediaref/internal/session"
	"mediaref/internal/store"
	"mediaref/pkg/medialink"
)

func newTestServer(t *testing.T, rateLimit int) *Server {
	t.Helper()

	cfg := core.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "content.db")

	contentStore, err := store.Open(cfg.Store, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = contentStore.Close()
	})

	// YouTube resolution is fully offline, so tests use the real manager
	// with YouTube URLs only.
	engine := core.NewOrchestrator(medialink.NewManager(), nil, zap.NewNop())

	sessions := session.NewStaticLookup(map[string]string{
		"tok-alpha": "user-1",
		"tok-beta":  "user-2",
	})

	gate := flood.New(rateLimit)
	t.Cleanup(gate.Stop)

	return NewServer(&cfg.Server, engine, contentStore, sessions, gate, nil, zap.NewNop())
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServer_Health(t *testing.T) {
	handler := newTestServer(t, 100).Handler()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := doJSON(t, handler, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestServer_Validate(t *testing.T) {
	handler := newTestServer(t, 100).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/validate", "", urlRequest{URL: "https://youtu.be/dQw4w9WgXcQ"})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decodeBody[medialink.ValidationResult](t, rec)
	assert.True(t, result.Valid)
	assert.Equal(t, medialink.PlatformYouTube, result.Platform)

	req := httptest.NewRequest(http.MethodPost, "/api/validate", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ItemURLFlow(t *testing.T) {
	handler := newTestServer(t, 100).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/items/item-1/url", "", urlRequest{URL: "https://youtu.be/dQw4w9WgXcQ?t=43"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		rec := doJSON(t, handler, http.MethodGet, "/api/items/item-1", "", nil)
		if rec.Code != http.StatusOK {
			return false
		}
		return decodeBody[core.ItemSnapshot](t, rec).State == "resolved"
	}, 5*time.Second, 10*time.Millisecond)

	rec = doJSON(t, handler, http.MethodGet, "/api/items/item-1", "", nil)
	snapshot := decodeBody[core.ItemSnapshot](t, rec)
	assert.Equal(t, "dQw4w9WgXcQ", snapshot.Reference.Identifier)
	assert.Equal(t, "0:43", snapshot.Window.UserStart)
	assert.Equal(t, 43, snapshot.Effective.StartSeconds)

	rec = doJSON(t, handler, http.MethodDelete, "/api/items/item-1", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/items/item-1", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_WindowOps(t *testing.T) {
	handler := newTestServer(t, 100).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/items/item-1/window/start", "", windowRequest{Value: "1:30"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[windowResponse](t, rec)
	assert.Equal(t, "1:30", resp.Window.UserStart)
	assert.Empty(t, resp.Warning)

	rec = doJSON(t, handler, http.MethodPost, "/api/items/item-1/window/start", "", windowRequest{Value: "12-30"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/items/item-1/window/end", "", windowRequest{Value: "1:00"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[windowResponse](t, rec)
	assert.Equal(t, core.EndBeforeStartWarning, resp.Warning)

	rec = doJSON(t, handler, http.MethodPost, "/api/items/item-1/window/apply", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/items/item-1/window/clear", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[windowResponse](t, rec)
	assert.Empty(t, resp.Window.UserStart)
	assert.Empty(t, resp.Window.UserEnd)
}

func TestServer_ContentAuth(t *testing.T) {
	handler := newTestServer(t, 100).Handler()

	payload := core.ContentPayload{Items: []core.ContentItem{{ImageURL: "https://cdn.example.com/a.jpg"}}}

	rec := doJSON(t, handler, http.MethodPost, "/api/content", "", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, handler, http.MethodPost, "/api/content", "bogus", payload)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_ContentLifecycle(t *testing.T) {
	handler := newTestServer(t, 100).Handler()

	payload := core.ContentPayload{
		Items: []core.ContentItem{
			{
				Media:  &medialink.Reference{RawURL: "https://youtu.be/dQw4w9WgXcQ", Platform: medialink.PlatformYouTube, Identifier: "dQw4w9WgXcQ"},
				Window: &core.PlaybackWindow{UserStart: "2:00", UserEnd: "1:00", UserOverrideActive: true},
			},
		},
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/content", "tok-alpha", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[createContentResponse](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, []string{core.EndBeforeStartWarning}, created.Warnings)

	rec = doJSON(t, handler, http.MethodGet, "/api/content/"+created.ID, "tok-alpha", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	record := decodeBody[core.ContentRecord](t, rec)
	assert.Equal(t, "user-1", record.OwnerID)

	rec = doJSON(t, handler, http.MethodGet, "/api/content/"+created.ID, "tok-beta", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/content/missing-id", "tok-alpha", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/api/content", "tok-alpha", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decodeBody[[]core.ContentRecord](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, created.ID, records[0].ID)

	rec = doJSON(t, handler, http.MethodGet, "/api/content", "tok-beta", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]core.ContentRecord](t, rec))
}

func TestServer_RateLimitStats(t *testing.T) {
	handler := newTestServer(t, 5).Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/validate", "tok-alpha", urlRequest{URL: "https://youtu.be/dQw4w9WgXcQ"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, handler, http.MethodGet, "/debug/ratelimit", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decodeBody[flood.Stats](t, rec)
	assert.Equal(t, 5, stats.LimitPerMinute)
	assert.Equal(t, 60, stats.WindowSeconds)
	assert.Equal(t, 1, stats.ActiveClients)
}

func TestServer_RateLimit(t *testing.T) {
	handler := newTestServer(t, 2).Handler()

	body := urlRequest{URL: "https://youtu.be/dQw4w9WgXcQ"}
	for i := 0; i < 2; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/validate", "tok-alpha", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/validate", "tok-alpha", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different client key still has budget.
	rec = doJSON(t, handler, http.MethodPost, "/api/validate", "tok-beta", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}
