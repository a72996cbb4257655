package llm

import (
	"bytes"
	"context"
	"fmt"
	"reflect"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
)

const coverPromptTemplate = `A grainy black and white photograph of a quiet, abandoned place: %s.
Empty, melancholic, wabi-sabi, soft natural light, no people, no text.`

// GenerateCoverImage generates a cover photograph for a generated story using strict IMAGE modality.
// Returns an error when no image client is configured or the model returns no image;
// callers fall back to the placeholder image URL.
func (c *Client) GenerateCoverImage(ctx context.Context, subject string) (*Image, error) {
	if c.genaiClient == nil {
		return nil, fmt.Errorf("image client not configured")
	}

	log.Debug().
		Str("subject", subject[:min(50, len(subject))]).
		Msg("Generating cover image")

	model := c.genaiClient.GenerativeModel(c.modelImage)
	// Strict modality: request native image output
	setResponseModality(model, []string{"IMAGE"})

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(coverPromptTemplate, subject)))
	if err != nil {
		return nil, fmt.Errorf("generate cover: %w", err)
	}

	logGeminiResponse("GenerateCoverImage", fmt.Sprintf("candidates=%d", len(resp.Candidates)))
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			blob, ok := part.(genai.Blob)
			if !ok || len(blob.Data) == 0 {
				continue
			}
			mimeType := blob.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			log.Info().
				Str("caller", "GenerateCoverImage").
				Int("image_size_bytes", len(blob.Data)).
				Str("mime_type", mimeType).
				Msg("Gemini response (image blob)")
			return &Image{
				Data:     bytes.NewReader(blob.Data),
				Size:     int64(len(blob.Data)),
				Model:    c.modelImage,
				MimeType: mimeType,
			}, nil
		}
	}

	return nil, fmt.Errorf("no image blob in response (strict modality: expected IMAGE)")
}

// setResponseModality sets model.ResponseModality when the genai SDK exposes it.
// Uses reflection so it no-ops on older SDKs that don't have the field.
func setResponseModality(model *genai.GenerativeModel, modalities []string) {
	v := reflect.ValueOf(model).Elem()
	f := v.FieldByName("ResponseModality")
	if !f.IsValid() || !f.CanSet() {
		log.Debug().Msg("ResponseModality not available on GenerativeModel (SDK may not support it yet)")
		return
	}
	if f.Kind() == reflect.Slice && f.Type().Elem().Kind() == reflect.String {
		f.Set(reflect.ValueOf(modalities))
	}
}
