package services

import (
	"context"
	"io"

	"github.com/snappy-loop/gallery/internal/catalog"
	"github.com/snappy-loop/gallery/internal/llm"
	"github.com/snappy-loop/gallery/internal/models"
	"github.com/snappy-loop/gallery/internal/playback"
	"github.com/snappy-loop/gallery/internal/session"
	"github.com/snappy-loop/gallery/internal/tasks"
)

// StoryWriter writes a vignette for a prompt (llm.Client).
type StoryWriter interface {
	GenerateStory(ctx context.Context, prompt string) (string, error)
}

// SpeechSynthesizer narrates text as raw PCM (llm.Client).
type SpeechSynthesizer interface {
	GenerateSpeech(ctx context.Context, text string) (*llm.Speech, error)
}

// CoverGenerator draws a cover photograph for a generated story (llm.Client).
type CoverGenerator interface {
	GenerateCoverImage(ctx context.Context, subject string) (*llm.Image, error)
}

// CoverStorage persists generated covers under a public URL (storage.Client).
type CoverStorage interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string, contentLength int64) error
	PublicURL(key string) string
}

// EventPublisher publishes gallery events (kafka.Producer). May be nil to skip publishing.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev *models.Event) error
}

// Deps are the collaborators of GalleryService. Covers, CoverStorage and
// Events are optional.
type Deps struct {
	Stories      catalog.Repository
	Writer       StoryWriter
	Speech       SpeechSynthesizer
	Covers       CoverGenerator
	CoverStorage CoverStorage
	Events       EventPublisher
	Sessions     *session.Manager
	Tasks        *tasks.Registry
	References   *playback.Registry
}
