package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/auth"
	"github.com/snappy-loop/gallery/internal/models"
	"github.com/snappy-loop/gallery/internal/services"
)

const (
	defaultStoryLimit = 50
	maxStoryLimit     = 200
)

// indexPage is the data for the index template.
type indexPage struct {
	Stories []*models.Story
}

// Index handles GET / with the gallery page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	stories, err := h.gallery.ListStories(r.Context(), defaultStoryLimit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list stories for index")
		http.Error(w, "gallery unavailable", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := executeTemplate(&buf, "index", indexPage{Stories: stories}); err != nil {
		log.Error().Err(err).Msg("Failed to render index")
		http.Error(w, "gallery unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// ListStories handles GET /v1/stories
func (h *Handler) ListStories(w http.ResponseWriter, r *http.Request) {
	limit := defaultStoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = min(parsed, maxStoryLimit)
		}
	}

	stories, err := h.gallery.ListStories(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err, "failed to list stories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stories": stories,
	})
}

// GetStory handles GET /v1/stories/{id}
func (h *Handler) GetStory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "story")
	if !ok {
		return
	}
	story, err := h.gallery.GetStory(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to get story")
		return
	}
	writeJSON(w, http.StatusOK, story)
}

// CreateStory handles POST /v1/stories. It writes the story synchronously.
func (h *Handler) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	keyID, keyErr := auth.GetAPIKeyID(r.Context())
	if h.quota != nil && keyErr == nil {
		if err := h.quota.CheckAndConsume(r.Context(), keyID, 1); err != nil {
			writeJSONError(w, http.StatusTooManyRequests, err.Error())
			return
		}
	}

	story, err := h.gallery.CreateStory(r.Context(), req.Prompt)
	if err != nil {
		if h.quota != nil && keyErr == nil {
			h.quota.Refund(keyID, 1)
		}
		if errors.Is(err, services.ErrValidation) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("Failed to create story")
		writeJSONError(w, http.StatusBadGateway, "the story could not be written")
		return
	}
	writeJSON(w, http.StatusCreated, story)
}
