package grpcserver

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/playback"
	"github.com/snappy-loop/gallery/internal/services"
	"github.com/snappy-loop/gallery/internal/wav"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Audio is the part of the gallery service the audio server delegates to.
type Audio interface {
	EncodeBase64(payload, mimeType string) ([]byte, error)
	Narrate(ctx context.Context, ownerID uuid.UUID, text string) (*playback.Reference, error)
}

// AudioServer implements AudioServiceServer.
type AudioServer struct {
	audio Audio
}

// NewAudioServer returns a new AudioServer.
func NewAudioServer(audio Audio) *AudioServer {
	return &AudioServer{audio: audio}
}

// EncodeContainer wraps base64 PCM in a WAV container.
func (s *AudioServer) EncodeContainer(_ context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	fields := req.GetFields()
	payload := fields["pcm_base64"].GetStringValue()
	mimeType := fields["mime_type"].GetStringValue()

	out, err := s.audio.EncodeBase64(payload, mimeType)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bytes(out), nil
}

// Narrate synthesises text and returns a playback reference owned by the
// calling API key.
func (s *AudioServer) Narrate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text := req.GetFields()["text"].GetStringValue()

	ref, err := s.audio.Narrate(ctx, ownerFromContext(ctx), text)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(map[string]interface{}{
		"reference_id": ref.ID.String(),
		"url":          ref.URL,
		"mime_type":    ref.MIMEType,
		"size":         float64(ref.Size),
		"duration":     ref.Duration,
		"expires_at":   ref.ExpiresAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// toStatus maps service errors to gRPC codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, wav.ErrMalformedInput),
		errors.Is(err, wav.ErrInvalidFormat),
		errors.Is(err, services.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		log.Error().Err(err).Msg("Audio request failed")
		return status.Error(codes.Unavailable, "narration is unavailable right now")
	}
}
