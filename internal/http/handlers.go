package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"mediaref/internal/core"
	"mediaref/internal/flood"
	"mediaref/internal/session"
	"mediaref/internal/store"
)

type urlRequest struct {
	URL string `json:"url"`
}

type windowRequest struct {
	Value string `json:"value"`
}

type windowResponse struct {
	Window  core.PlaybackWindow `json:"window"`
	Warning string              `json:"warning,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type createContentResponse struct {
	ID       string   `json:"id"`
	Warnings []string `json:"warnings,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	s.writeJSON(w, http.StatusOK, s.engine.ValidateNow(req.URL))
}

func (s *Server) handleItemURL(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	itemID := r.PathValue("id")
	s.engine.OnURLChanged(itemID, req.URL)

	snapshot, _ := s.engine.Item(itemID)
	s.writeJSON(w, http.StatusAccepted, snapshot)
}

func (s *Server) handleItemGet(w http.ResponseWriter, r *http.Request) {
	snapshot, exists := s.engine.Item(r.PathValue("id"))
	if !exists {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "item not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleItemDelete(w http.ResponseWriter, r *http.Request) {
	s.engine.RemoveItem(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWindowStart(w http.ResponseWriter, r *http.Request) {
	s.handleWindowEdit(w, r, s.engine.SetWindowStart)
}

func (s *Server) handleWindowEnd(w http.ResponseWriter, r *http.Request) {
	s.handleWindowEdit(w, r, s.engine.SetWindowEnd)
}

func (s *Server) handleWindowEdit(
	w http.ResponseWriter,
	r *http.Request,
	edit func(itemID, text string) (core.PlaybackWindow, string, error),
) {
	var req windowRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	window, warning, err := edit(r.PathValue("id"), req.Value)
	if err != nil {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}

	s.writeJSON(w, http.StatusOK, windowResponse{Window: window, Warning: warning})
}

func (s *Server) handleWindowApply(w http.ResponseWriter, r *http.Request) {
	window, err := s.engine.ApplyDetectedWindow(r.PathValue("id"))
	if err != nil {
		s.writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, windowResponse{Window: window})
}

func (s *Server) handleWindowClear(w http.ResponseWriter, r *http.Request) {
	window := s.engine.ClearWindow(r.PathValue("id"))
	s.writeJSON(w, http.StatusOK, windowResponse{Window: window})
}

func (s *Server) handleContentCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := session.CurrentUser(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	var payload core.ContentPayload
	if !s.readJSON(w, r, &payload) {
		return
	}

	// Submission re-checks the soft time-range condition but, like edits,
	// reports it as warnings rather than rejecting.
	var warnings []string
	for _, item := range payload.Items {
		if item.Window == nil {
			continue
		}
		if warning := item.Window.Warning(); warning != "" {
			warnings = append(warnings, warning)
		}
	}

	id, err := s.store.CreateContent(r.Context(), user.ID, payload)
	if err != nil {
		s.logger.Error("Failed to store content", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to store content"})
		return
	}

	s.writeJSON(w, http.StatusCreated, createContentResponse{ID: id, Warnings: warnings})
}

func (s *Server) handleContentGet(w http.ResponseWriter, r *http.Request) {
	user, ok := session.CurrentUser(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	record, err := s.store.GetContent(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "content not found"})
			return
		}
		s.logger.Error("Failed to load content", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load content"})
		return
	}

	if record.OwnerID != user.ID {
		s.writeJSON(w, http.StatusForbidden, errorResponse{Error: "not the content owner"})
		return
	}

	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleContentList(w http.ResponseWriter, r *http.Request) {
	user, ok := session.CurrentUser(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	records, err := s.store.ListContentByOwner(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("Failed to list content", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to list content"})
		return
	}
	if records == nil {
		records = []core.ContentRecord{}
	}

	s.writeJSON(w, http.StatusOK, records)
}

// handleRateLimitStats reports the rate gate's client accounting for
// monitoring and debugging.
func (s *Server) handleRateLimitStats(w http.ResponseWriter, _ *http.Request) {
	if s.gate == nil {
		s.writeJSON(w, http.StatusOK, flood.Stats{})
		return
	}
	s.writeJSON(w, http.StatusOK, s.gate.GetStats())
}

// authenticated resolves the bearer token to a user and stores it on the
// request context.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
			return
		}

		user, ok := s.sessions.UserForToken(token)
		if !ok {
			s.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
			return
		}

		next(w, r.WithContext(session.WithUser(r.Context(), user)))
	}
}

// rateLimited rejects clients that exceed the per-minute request budget.
// Keystroke-driven endpoints get generous limits; the gate exists to stop
// runaway clients, not to throttle typing.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.gate != nil {
			key := bearerToken(r)
			if key == "" {
				key = r.RemoteAddr
			}
			if !s.gate.Allow(key) {
				s.metrics.RateLimitedTotal.Inc()
				s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
				return
			}
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
