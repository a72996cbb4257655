package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/catalog"
	"github.com/snappy-loop/gallery/internal/config"
	"github.com/snappy-loop/gallery/internal/llm"
	"github.com/snappy-loop/gallery/internal/metrics"
	"github.com/snappy-loop/gallery/internal/models"
	"github.com/snappy-loop/gallery/internal/playback"
	"github.com/snappy-loop/gallery/internal/session"
	"github.com/snappy-loop/gallery/internal/viewstate"
	"github.com/snappy-loop/gallery/internal/wav"
)

// ErrValidation marks errors caused by the caller's input.
var ErrValidation = errors.New("validation error")

// Generated story metadata. The vignette is the only generated part.
const (
	GeneratedTitle    = "UNTITLED MEMORY"
	GeneratedLocation = "IMAGINATION"
	GeneratedDate     = "AI GENERATED"
	GeneratedFact     = "เรื่องราวนี้ถูกสร้างขึ้นจาก AI ที่พยายามทำความเข้าใจความเหงาของมนุษย์ ข้อมูลความเป็นจริงยังคงเป็นปริศนา"
)

// narrationUnavailable is the neutral message shown when narration fails.
const narrationUnavailable = "narration is unavailable right now"

// RequestResult reports what a request action did to the session.
// Accepted is false when the request was ignored or toggled playback off.
type RequestResult struct {
	RequestID *uuid.UUID      `json:"request_id,omitempty"`
	Accepted  bool            `json:"accepted"`
	State     viewstate.State `json:"state"`
}

// GalleryService handles the gallery's business logic
type GalleryService struct {
	deps   Deps
	config *config.Config
}

// NewGalleryService creates a new GalleryService
func NewGalleryService(deps Deps, cfg *config.Config) *GalleryService {
	return &GalleryService{deps: deps, config: cfg}
}

// ListStories returns the catalog, newest first
func (s *GalleryService) ListStories(ctx context.Context, limit int) ([]*models.Story, error) {
	stories, err := s.deps.Stories.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return stories, nil
}

// GetStory returns one story
func (s *GalleryService) GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	return s.deps.Stories.Get(ctx, id)
}

func (s *GalleryService) validatePrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	if n := utf8.RuneCountInString(prompt); n > s.config.MaxPromptLength {
		return "", fmt.Errorf("%w: prompt is %d characters, maximum is %d", ErrValidation, n, s.config.MaxPromptLength)
	}
	return prompt, nil
}

// CreateStory writes a vignette for prompt and adds it to the catalog
func (s *GalleryService) CreateStory(ctx context.Context, prompt string) (*models.Story, error) {
	prompt, err := s.validatePrompt(prompt)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("prompt_length", len(prompt)).
		Msg("Generating story")

	fiction, err := s.deps.Writer.GenerateStory(ctx, prompt)
	if err != nil {
		metrics.RecordStory("failed")
		return nil, fmt.Errorf("failed to generate story: %w", err)
	}

	story := &models.Story{
		ID:        uuid.New(),
		Title:     GeneratedTitle,
		Subtitle:  prompt,
		Location:  GeneratedLocation,
		Date:      GeneratedDate,
		Fact:      GeneratedFact,
		Fiction:   fiction,
		Mood:      models.MoodArtificial,
		Generated: true,
		CreatedAt: time.Now(),
	}
	story.Image = s.coverFor(ctx, story.ID, prompt)

	if err := s.deps.Stories.Create(ctx, story); err != nil {
		metrics.RecordStory("failed")
		return nil, fmt.Errorf("failed to save story: %w", err)
	}
	metrics.RecordStory("created")

	log.Info().
		Str("story_id", story.ID.String()).
		Msg("Story created")

	s.publish(ctx, &models.Event{
		Type:    models.EventStoryCreated,
		StoryID: &story.ID,
		Meta:    map[string]interface{}{"prompt_length": utf8.RuneCountInString(prompt)},
	})
	return story, nil
}

// coverFor returns a generated cover URL, or the placeholder when covers are
// disabled or anything on the way fails.
func (s *GalleryService) coverFor(ctx context.Context, storyID uuid.UUID, prompt string) string {
	if !s.config.GenerateCovers || s.deps.Covers == nil || s.deps.CoverStorage == nil {
		return s.config.PlaceholderImage
	}
	key := "covers/" + storyID.String()
	if s.deps.CoverStorage.PublicURL(key) == "" {
		return s.config.PlaceholderImage
	}

	img, err := s.deps.Covers.GenerateCoverImage(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("story_id", storyID.String()).Msg("Cover generation failed, using placeholder")
		return s.config.PlaceholderImage
	}
	key += imageExtension(img.MimeType)
	if err := s.deps.CoverStorage.Upload(ctx, key, img.Data, img.MimeType, img.Size); err != nil {
		log.Warn().Err(err).Str("story_id", storyID.String()).Msg("Cover upload failed, using placeholder")
		return s.config.PlaceholderImage
	}
	return s.deps.CoverStorage.PublicURL(key)
}

func imageExtension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// StartStoryGeneration records a story request in the session and writes the
// story in the background. The result arrives as story_generated or
// story_failed; closing the create dialog cancels it.
func (s *GalleryService) StartStoryGeneration(ctx context.Context, sessionID uuid.UUID, prompt string) (*RequestResult, error) {
	prompt, err := s.validatePrompt(prompt)
	if err != nil {
		return nil, err
	}

	if _, err := s.deps.Sessions.Dispatch(ctx, sessionID, viewstate.Action{Type: viewstate.ActionSetPrompt, Prompt: prompt}); err != nil {
		return nil, err
	}

	reqID := uuid.New()
	accepted := false
	st, err := s.deps.Sessions.DispatchThen(ctx, sessionID,
		viewstate.Action{Type: viewstate.ActionStoryRequested, RequestID: &reqID},
		func(st viewstate.State) {
			if st.StoryRequestID == nil || *st.StoryRequestID != reqID {
				return
			}
			accepted = true
			s.deps.Tasks.StartWithID(context.Background(), reqID, sessionID, func(taskCtx context.Context) {
				s.runStoryGeneration(taskCtx, sessionID, reqID, prompt)
			})
		})
	if err != nil {
		return nil, err
	}

	res := &RequestResult{Accepted: accepted, State: st}
	if accepted {
		res.RequestID = &reqID
	}
	return res, nil
}

func (s *GalleryService) runStoryGeneration(ctx context.Context, sessionID, reqID uuid.UUID, prompt string) {
	callCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	story, err := s.CreateStory(callCtx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			log.Info().Str("request_id", reqID.String()).Msg("Story generation cancelled")
			return
		}
		log.Error().Err(err).Str("request_id", reqID.String()).Msg("Story generation failed")
		s.dispatchResult(sessionID, viewstate.Action{
			Type:      viewstate.ActionStoryFailed,
			RequestID: &reqID,
			Error:     "the story could not be written",
		})
		return
	}

	s.dispatchResult(sessionID, viewstate.Action{
		Type:      viewstate.ActionStoryGenerated,
		RequestID: &reqID,
		StoryID:   &story.ID,
	})
}

// StartNarration narrates the open story in the background. The result
// arrives as narration_ready or narration_failed. Requesting narration while
// it plays stops it instead.
func (s *GalleryService) StartNarration(ctx context.Context, sessionID uuid.UUID, req *models.NarrationRequest) (*RequestResult, error) {
	snap, err := s.deps.Sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	text := ""
	if req != nil {
		text = strings.TrimSpace(req.Text)
		if req.StoryID != nil && (snap.State.SelectedStoryID == nil || *snap.State.SelectedStoryID != *req.StoryID) {
			return nil, fmt.Errorf("%w: story %s is not open", ErrValidation, req.StoryID)
		}
	}
	if text == "" && snap.State.SelectedStoryID != nil {
		story, err := s.deps.Stories.Get(ctx, *snap.State.SelectedStoryID)
		if err != nil {
			return nil, fmt.Errorf("failed to load story: %w", err)
		}
		text = story.Fiction
	}
	if n := utf8.RuneCountInString(text); n > s.config.MaxNarrationChars {
		return nil, fmt.Errorf("%w: text is %d characters, maximum is %d", ErrValidation, n, s.config.MaxNarrationChars)
	}

	reqID := uuid.New()
	accepted := false
	st, err := s.deps.Sessions.DispatchThen(ctx, sessionID,
		viewstate.Action{Type: viewstate.ActionNarrationRequested, RequestID: &reqID},
		func(st viewstate.State) {
			if st.Narration.Status != viewstate.NarrationGenerating || st.Narration.RequestID == nil || *st.Narration.RequestID != reqID {
				return
			}
			accepted = true
			s.deps.Tasks.StartWithID(context.Background(), reqID, sessionID, func(taskCtx context.Context) {
				s.runNarration(taskCtx, sessionID, reqID, text)
			})
		})
	if err != nil {
		return nil, err
	}

	res := &RequestResult{Accepted: accepted, State: st}
	if accepted {
		res.RequestID = &reqID
	}
	return res, nil
}

func (s *GalleryService) runNarration(ctx context.Context, sessionID, reqID uuid.UUID, text string) {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	ref, err := s.narrate(callCtx, sessionID, text, false)
	if err != nil {
		if ctx.Err() != nil {
			metrics.RecordNarration("cancelled", start)
			log.Info().Str("request_id", reqID.String()).Msg("Narration cancelled")
			return
		}
		metrics.RecordNarration("failed", start)
		log.Error().Err(err).Str("request_id", reqID.String()).Msg("Narration failed")
		s.dispatchResult(sessionID, viewstate.Action{
			Type:      viewstate.ActionNarrationFailed,
			RequestID: &reqID,
			Error:     narrationUnavailable,
		})
		return
	}

	if !s.dispatchResult(sessionID, viewstate.Action{
		Type:        viewstate.ActionNarrationReady,
		RequestID:   &reqID,
		ReferenceID: &ref.ID,
		URL:         ref.URL,
	}) {
		// The session is gone; nothing will ever release the reference.
		s.deps.References.Release(context.Background(), ref.ID)
		return
	}
	metrics.RecordNarration("ready", start)
}

// narrate runs speech synthesis, container encoding and reference acquisition.
// Session narration replaces the session's current reference; detached
// narration leaves the owner's other references alone.
func (s *GalleryService) narrate(ctx context.Context, ownerID uuid.UUID, text string, detached bool) (*playback.Reference, error) {
	speech, err := s.deps.Speech.GenerateSpeech(ctx, text)
	if err != nil {
		return nil, err
	}

	container, mimeType, format, err := wrapSpeech(speech)
	if err != nil {
		return nil, err
	}

	// A cancelled request must not replace the session's current reference.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acquire := s.deps.References.Acquire
	if detached {
		acquire = s.deps.References.AcquireDetached
	}
	ref, err := acquire(ctx, ownerID, container, mimeType)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		s.deps.References.Release(context.WithoutCancel(ctx), ref.ID)
		return nil, err
	}

	s.publish(ctx, &models.Event{
		Type:        models.EventNarrationReady,
		SessionID:   &ownerID,
		ReferenceID: &ref.ID,
		Meta: map[string]interface{}{
			"voice":    speech.Voice,
			"model":    speech.Model,
			"format":   format,
			"size":     ref.Size,
			"duration": ref.Duration,
			"detached": detached,
		},
	})
	return ref, nil
}

// wrapSpeech turns provider audio into a playable container. Headerless PCM
// (or an unlabelled payload) is wrapped; any other audio type is already a
// container and passes through unchanged.
func wrapSpeech(speech *llm.Speech) (container []byte, mimeType, format string, err error) {
	if speech.MIMEType != "" && !wav.IsRawPCM(speech.MIMEType) {
		if !strings.HasPrefix(strings.ToLower(speech.MIMEType), "audio/") {
			metrics.RecordEncode("narration", "invalid_format", 0)
			return nil, "", "", fmt.Errorf("speech format: unsupported type %q", speech.MIMEType)
		}
		metrics.RecordEncode("narration", "passthrough", len(speech.PCM))
		return speech.PCM, speech.MIMEType, speech.MIMEType, nil
	}

	f, err := wav.FormatFromMIME(speech.MIMEType)
	if err != nil {
		metrics.RecordEncode("narration", "invalid_format", 0)
		return nil, "", "", fmt.Errorf("speech format: %w", err)
	}
	container, err = wav.EncodePCM(speech.PCM, f)
	if err != nil {
		metrics.RecordEncode("narration", encodeStatus(err), 0)
		return nil, "", "", fmt.Errorf("encode narration: %w", err)
	}
	metrics.RecordEncode("narration", "ok", len(container))
	return container, wav.MIMEType, f.String(), nil
}

// Narrate synthesises text outside any view session. The reference is owned
// by ownerID but never replaces another of its references; it lives until
// the reference TTL.
func (s *GalleryService) Narrate(ctx context.Context, ownerID uuid.UUID, text string) (*playback.Reference, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	if n := utf8.RuneCountInString(text); n > s.config.MaxNarrationChars {
		return nil, fmt.Errorf("%w: text is %d characters, maximum is %d", ErrValidation, n, s.config.MaxNarrationChars)
	}
	start := time.Now()
	ref, err := s.narrate(ctx, ownerID, text, true)
	if err != nil {
		metrics.RecordNarration("failed", start)
		return nil, err
	}
	metrics.RecordNarration("ready", start)
	return ref, nil
}

// EncodeBase64 wraps base64 PCM in a WAV container. The format is taken
// from mimeType parameters, defaulting to 24 kHz mono 16-bit.
func (s *GalleryService) EncodeBase64(payload, mimeType string) ([]byte, error) {
	format, err := wav.FormatFromMIME(mimeType)
	if err != nil {
		metrics.RecordEncode("api", "invalid_format", 0)
		return nil, err
	}
	out, err := wav.Encode(payload, format)
	if err != nil {
		metrics.RecordEncode("api", encodeStatus(err), 0)
		return nil, err
	}
	metrics.RecordEncode("api", "ok", len(out))
	return out, nil
}

func encodeStatus(err error) string {
	switch {
	case errors.Is(err, wav.ErrMalformedInput):
		return "malformed"
	case errors.Is(err, wav.ErrInvalidFormat):
		return "invalid_format"
	default:
		return "error"
	}
}

// dispatchResult applies the outcome of a background request. It reports
// false when the session no longer exists.
func (s *GalleryService) dispatchResult(sessionID uuid.UUID, a viewstate.Action) bool {
	_, err := s.deps.Sessions.Dispatch(context.Background(), sessionID, a)
	if errors.Is(err, session.ErrNotFound) {
		log.Debug().
			Str("session_id", sessionID.String()).
			Str("action", string(a.Type)).
			Msg("Session closed before result arrived")
		return false
	}
	return err == nil
}

func (s *GalleryService) publish(ctx context.Context, ev *models.Event) {
	if s.deps.Events == nil {
		return
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	if err := s.deps.Events.PublishEvent(context.WithoutCancel(ctx), ev); err != nil {
		log.Error().Err(err).Str("event", ev.Type).Msg("Failed to publish event")
	}
}

// NotFound reports whether err means the story or session does not exist.
func NotFound(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) || errors.Is(err, session.ErrNotFound)
}
