package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/models"
	"github.com/snappy-loop/gallery/internal/playback"
	"github.com/snappy-loop/gallery/internal/services"
	"github.com/snappy-loop/gallery/internal/session"
	"github.com/snappy-loop/gallery/internal/viewstate"
	"github.com/snappy-loop/gallery/internal/wav"
)

// galleryService is the part of services.GalleryService the handlers use.
type galleryService interface {
	ListStories(ctx context.Context, limit int) ([]*models.Story, error)
	GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error)
	CreateStory(ctx context.Context, prompt string) (*models.Story, error)
	StartStoryGeneration(ctx context.Context, sessionID uuid.UUID, prompt string) (*services.RequestResult, error)
	StartNarration(ctx context.Context, sessionID uuid.UUID, req *models.NarrationRequest) (*services.RequestResult, error)
	EncodeBase64(payload, mimeType string) ([]byte, error)
}

// sessionStore is the part of session.Manager the handlers use.
type sessionStore interface {
	Create() session.Snapshot
	Get(id uuid.UUID) (session.Snapshot, error)
	Dispatch(ctx context.Context, id uuid.UUID, a viewstate.Action) (viewstate.State, error)
	Subscribe(id uuid.UUID) (<-chan viewstate.State, func(), error)
	Close(ctx context.Context, id uuid.UUID) error
}

// referenceLookup resolves live playback references.
type referenceLookup interface {
	Lookup(id uuid.UUID) (playback.Reference, bool)
}

// mediaStore serves containers kept in memory.
type mediaStore interface {
	Get(id uuid.UUID) ([]byte, string, bool)
}

// storyQuota limits story creation per API key (quota.Service).
type storyQuota interface {
	CheckAndConsume(ctx context.Context, apiKeyID uuid.UUID, units int64) error
	Refund(apiKeyID uuid.UUID, units int64)
}

// healthChecker reports dependency health.
type healthChecker interface {
	Health() error
}

// Deps are the handler dependencies. Media, Quota and DB may be nil.
type Deps struct {
	Gallery    galleryService
	Sessions   sessionStore
	References referenceLookup
	Media      mediaStore
	Quota      storyQuota
	DB         healthChecker
}

// Handler contains all HTTP handlers
type Handler struct {
	gallery    galleryService
	sessions   sessionStore
	references referenceLookup
	media      mediaStore
	quota      storyQuota
	db         healthChecker

	maxAudioBody int64
}

// NewHandler creates a new handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		gallery:      deps.Gallery,
		sessions:     deps.Sessions,
		references:   deps.References,
		media:        deps.Media,
		quota:        deps.Quota,
		db:           deps.DB,
		maxAudioBody: 32 << 20,
	}
}

// SessionResponse is the body returned for session reads and actions.
type SessionResponse struct {
	ID    uuid.UUID       `json:"id"`
	State viewstate.State `json:"state"`
}

func pathID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, wav.ErrMalformedInput),
		errors.Is(err, wav.ErrInvalidFormat):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case services.NotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msg(fallback)
		writeJSONError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
