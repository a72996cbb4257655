package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
)

// FallbackStory is shown when no model produced a vignette.
const FallbackStory = "ความเงียบกลืนกินเรื่องราวไปหมดแล้ว..."

// ErrEmptyPrompt is returned when there is nothing to write about.
var ErrEmptyPrompt = errors.New("prompt is empty")

const storySystemPrompt = `คุณคือนักเล่าเรื่องที่มีอารมณ์ละเอียดอ่อน เข้าใจความเหงา ความเศร้า และความงามของสถานที่รกร้าง (Tone: Melancholic, Nostalgic, Wabi-sabi).

จงแต่งเรื่องสั้นๆ (Fiction) ภาษาไทย ความยาวไม่เกิน 4-5 ประโยค เกี่ยวกับสิ่งที่ผู้ใช้ให้มา
ให้ความรู้สึกเหมือนกำลังรำลึกความหลัง หรือจินตนาการถึงคนที่เคยอยู่ที่นั่น เน้นอารมณ์ "หน่วงๆ" แต่สวยงาม
ตอบเฉพาะตัวเรื่องเท่านั้น ไม่ต้องมีคำอธิบายหรือหัวข้อ`

// GenerateStory writes a short melancholic vignette about prompt.
// Tries the text model first and the pro model second; when neither answers,
// returns FallbackStory with a nil error. Only an empty prompt is an error.
func (c *Client) GenerateStory(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	log.Debug().
		Int("prompt_length", len(prompt)).
		Msg("Generating story")

	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: storySystemPrompt}}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: fmt.Sprintf("เกี่ยวกับ \"%s\"", prompt)}}},
	}
	opts := []llms.CallOption{
		llms.WithTemperature(0.9),
		llms.WithMaxTokens(800),
	}

	candidates := []struct {
		name  string
		model llms.Model
	}{
		{c.modelText, c.llmText},
		{c.modelPro, c.llmPro},
	}
	for _, cand := range candidates {
		if cand.model == nil {
			continue
		}
		resp, err := cand.model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Warn().Err(err).Str("model", cand.name).Msg("Story generation failed, trying next model")
			continue
		}
		if len(resp.Choices) == 0 {
			continue
		}
		logGeminiResponse("GenerateStory", resp.Choices[0].Content)
		if story := strings.TrimSpace(resp.Choices[0].Content); story != "" {
			log.Info().Str("model", cand.name).Msg("Story generation complete")
			return story, nil
		}
		log.Warn().Str("model", cand.name).Msg("Model returned empty story")
	}

	log.Info().Msg("Story not generated, using fallback vignette")
	return FallbackStory, nil
}
