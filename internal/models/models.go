package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey represents an API key allowed to spend generation budget
type APIKey struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	KeyHash   string    `json:"-"`
	Status    string    `json:"status"` // active, disabled
	CreatedAt time.Time `json:"created_at"`
}

// Mood tags the emotional register of a story
type Mood string

const (
	MoodDystopian  Mood = "DYSTOPIAN"
	MoodNostalgia  Mood = "NOSTALGIA"
	MoodIsolation  Mood = "ISOLATION"
	MoodArtificial Mood = "ARTIFICIAL"
)

// Story is one photograph in the gallery with its caption and vignette
type Story struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle"`
	Location  string    `json:"location"`
	Date      string    `json:"date"` // display date, e.g. 28.01.2026 or AI GENERATED
	Image     string    `json:"image"`
	Fact      string    `json:"fact"`
	Fiction   string    `json:"fiction"`
	Mood      Mood      `json:"mood"`
	Generated bool      `json:"generated"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateStoryRequest is the body of POST /v1/stories and POST /v1/sessions/{id}/stories
type CreateStoryRequest struct {
	Prompt string `json:"prompt"`
}

// NarrationRequest is the body of POST /v1/sessions/{id}/narration.
// Text overrides the story's vignette when set.
type NarrationRequest struct {
	StoryID *uuid.UUID `json:"story_id,omitempty"`
	Text    string     `json:"text,omitempty"`
}

// EncodeAudioRequest is the body of POST /v1/audio/wav
type EncodeAudioRequest struct {
	PCMBase64 string `json:"pcm_base64"`
	MIMEType  string `json:"mime_type,omitempty"` // e.g. audio/L16;codec=pcm;rate=24000
}

// Event types published to the events topic
const (
	EventStoryCreated      = "story.created"
	EventNarrationReady    = "narration.ready"
	EventNarrationReleased = "narration.released"
	EventSessionClosed     = "session.closed"
)

// Event is a gallery lifecycle event
type Event struct {
	ID          uuid.UUID              `json:"id"`
	Type        string                 `json:"type"`
	SessionID   *uuid.UUID             `json:"session_id,omitempty"`
	StoryID     *uuid.UUID             `json:"story_id,omitempty"`
	ReferenceID *uuid.UUID             `json:"reference_id,omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}
