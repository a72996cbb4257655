package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	unifiedgenai "google.golang.org/genai"
)

// ErrNoAudio is returned when the speech provider produced no audio data.
var ErrNoAudio = errors.New("speech provider returned no audio data")

// narrationToneHint steers the voice towards the gallery's register.
const narrationToneHint = "slow, quiet and melancholic, with long pauses"

// GenerateSpeech narrates text with the TTS model using response_modalities: ["audio"].
// The returned PCM is headerless; callers wrap it using Speech.MIMEType.
func (c *Client) GenerateSpeech(ctx context.Context, text string) (*Speech, error) {
	text = strings.TrimSpace(text)
	log.Debug().
		Int("text_length", len(text)).
		Msg("Generating speech")

	if text == "" {
		return nil, fmt.Errorf("%w: nothing to narrate", ErrNoAudio)
	}
	if c.unifiedClient == nil {
		return nil, fmt.Errorf("%w: TTS client not configured", ErrNoAudio)
	}

	contents := []*unifiedgenai.Content{
		{
			Role: "user",
			Parts: []*unifiedgenai.Part{
				unifiedgenai.NewPartFromText("[tone: " + narrationToneHint + "] " + text),
			},
		},
	}

	temp := float32(1.0)
	config := &unifiedgenai.GenerateContentConfig{
		Temperature:        &temp,
		ResponseModalities: []string{"audio"},
		SpeechConfig: &unifiedgenai.SpeechConfig{
			VoiceConfig: &unifiedgenai.VoiceConfig{
				PrebuiltVoiceConfig: &unifiedgenai.PrebuiltVoiceConfig{
					VoiceName: c.ttsVoice,
				},
			},
		},
	}

	log.Debug().
		Str("model", c.modelTTS).
		Str("voice", c.ttsVoice).
		Msg("Calling unified genai TTS GenerateContentStream")

	// Collect audio data from streaming response
	var audioBuffer bytes.Buffer
	var lastMimeType string

	for resp, err := range c.unifiedClient.Models.GenerateContentStream(ctx, c.modelTTS, contents, config) {
		if err != nil {
			return nil, fmt.Errorf("TTS stream error: %w", err)
		}
		if len(resp.Candidates) == 0 {
			continue
		}
		cand := resp.Candidates[0]
		if cand.Content == nil || cand.Content.Parts == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				audioBuffer.Write(part.InlineData.Data)
				if part.InlineData.MIMEType != "" {
					lastMimeType = part.InlineData.MIMEType
				}
			}
		}
	}

	if audioBuffer.Len() == 0 {
		return nil, ErrNoAudio
	}

	log.Info().
		Str("caller", "GenerateSpeech").
		Int("audio_size_bytes", audioBuffer.Len()).
		Str("voice", c.ttsVoice).
		Str("mime_type", lastMimeType).
		Msg("TTS audio generated")

	return &Speech{
		PCM:      audioBuffer.Bytes(),
		MIMEType: lastMimeType,
		Model:    c.modelTTS,
		Voice:    c.ttsVoice,
	}, nil
}
