package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/snappy-loop/gallery/internal/models"
	"github.com/snappy-loop/gallery/internal/services"
	"github.com/snappy-loop/gallery/internal/viewstate"
)

var errUnknownAction = errors.New("unknown action")

// clientActions are the transitions a visitor may send directly. Request
// results arrive from background tasks, and requests start through the
// narration and stories endpoints.
var clientActions = map[viewstate.ActionType]bool{
	viewstate.ActionSelectStory:      true,
	viewstate.ActionCloseStory:       true,
	viewstate.ActionSetTab:           true,
	viewstate.ActionOpenCreate:       true,
	viewstate.ActionCloseCreate:      true,
	viewstate.ActionSetPrompt:        true,
	viewstate.ActionNarrationStopped: true,
	viewstate.ActionNarrationEnded:   true,
	viewstate.ActionToggleAmbient:    true,
}

// CreateSession handles POST /v1/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	snap := h.sessions.Create()
	writeJSON(w, http.StatusCreated, SessionResponse{ID: snap.ID, State: snap.State})
}

// GetSession handles GET /v1/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}
	snap, err := h.sessions.Get(id)
	if err != nil {
		writeServiceError(w, err, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: snap.ID, State: snap.State})
}

// DeleteSession handles DELETE /v1/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}
	if err := h.sessions.Close(r.Context(), id); err != nil {
		writeServiceError(w, err, "failed to close session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DispatchAction handles POST /v1/sessions/{id}/actions
func (h *Handler) DispatchAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}
	var a viewstate.Action
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, err := h.applyClientAction(r.Context(), id, a)
	if err != nil {
		if errors.Is(err, errUnknownAction) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeServiceError(w, err, "failed to apply action")
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: id, State: st})
}

// applyClientAction validates a visitor action and dispatches it. Shared by
// the actions endpoint and the session socket.
func (h *Handler) applyClientAction(ctx context.Context, id uuid.UUID, a viewstate.Action) (viewstate.State, error) {
	if !viewstate.ValidAction(a.Type) {
		return viewstate.State{}, fmt.Errorf("%w: %q", errUnknownAction, a.Type)
	}
	if !clientActions[a.Type] {
		return viewstate.State{}, fmt.Errorf("%w: %q cannot be sent by clients", errUnknownAction, a.Type)
	}

	// Only fields visitors control are passed through.
	clean := viewstate.Action{Type: a.Type, StoryID: a.StoryID, Tab: a.Tab, Prompt: a.Prompt}
	if clean.Type == viewstate.ActionSelectStory {
		if clean.StoryID == nil {
			return viewstate.State{}, fmt.Errorf("%w: story_id is required", services.ErrValidation)
		}
		if _, err := h.gallery.GetStory(ctx, *clean.StoryID); err != nil {
			return viewstate.State{}, err
		}
	}
	return h.sessions.Dispatch(ctx, id, clean)
}

// StartNarration handles POST /v1/sessions/{id}/narration. The body is
// optional; without text the open story's vignette is read.
func (h *Handler) StartNarration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}
	var req models.NarrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.gallery.StartNarration(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err, "failed to start narration")
		return
	}
	writeRequestResult(w, res)
}

// StartStory handles POST /v1/sessions/{id}/stories
func (h *Handler) StartStory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}
	var req models.CreateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.gallery.StartStoryGeneration(r.Context(), id, req.Prompt)
	if err != nil {
		writeServiceError(w, err, "failed to start story generation")
		return
	}
	writeRequestResult(w, res)
}

// writeRequestResult answers 202 when a background request started and 200
// when the action was ignored or stopped playback.
func writeRequestResult(w http.ResponseWriter, res *services.RequestResult) {
	status := http.StatusOK
	if res.Accepted {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}
