package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

// fakeModel is a scripted llms.Model.
type fakeModel struct {
	content string
	err     error
	calls   int
	lastMsg []llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	f.lastMsg = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.content}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestGenerateStory(t *testing.T) {
	tests := []struct {
		name    string
		text    *fakeModel
		pro     *fakeModel
		want    string
		wantPro int
	}{
		{"text model answers", &fakeModel{content: "  ฝุ่นบางๆ บนบันได  "}, &fakeModel{content: "pro"}, "ฝุ่นบางๆ บนบันได", 0},
		{"falls back to pro on error", &fakeModel{err: errors.New("quota")}, &fakeModel{content: "pro story"}, "pro story", 1},
		{"falls back to pro on empty", &fakeModel{content: "   "}, &fakeModel{content: "pro story"}, "pro story", 1},
		{"fallback vignette when both fail", &fakeModel{err: errors.New("down")}, &fakeModel{content: ""}, FallbackStory, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{modelText: "text", modelPro: "pro", llmText: tt.text, llmPro: tt.pro}
			got, err := c.GenerateStory(context.Background(), "abandoned bicycle")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if tt.pro.calls != tt.wantPro {
				t.Errorf("pro model called %d times, want %d", tt.pro.calls, tt.wantPro)
			}
		})
	}
}

func TestGenerateStory_PromptInMessages(t *testing.T) {
	m := &fakeModel{content: "ok"}
	c := &Client{llmText: m}
	if _, err := c.GenerateStory(context.Background(), "ตู้ไปรษณีย์"); err != nil {
		t.Fatal(err)
	}
	if len(m.lastMsg) != 2 {
		t.Fatalf("expected system + human message, got %d", len(m.lastMsg))
	}
	human, ok := m.lastMsg[1].Parts[0].(llms.TextContent)
	if !ok || !strings.Contains(human.Text, "ตู้ไปรษณีย์") {
		t.Errorf("prompt missing from human message: %+v", m.lastMsg[1].Parts)
	}
}

func TestGenerateStory_NoModelsUsesFallback(t *testing.T) {
	got, err := (&Client{}).GenerateStory(context.Background(), "x")
	if err != nil || got != FallbackStory {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestGenerateStory_EmptyPrompt(t *testing.T) {
	_, err := (&Client{}).GenerateStory(context.Background(), "   ")
	if !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("expected ErrEmptyPrompt, got %v", err)
	}
}

func TestGenerateStory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &fakeModel{err: context.Canceled}
	_, err := (&Client{llmText: m, llmPro: &fakeModel{content: "never"}}).GenerateStory(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateSpeech_NotConfigured(t *testing.T) {
	c := &Client{}
	if _, err := c.GenerateSpeech(context.Background(), "hello"); !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}
	if _, err := c.GenerateSpeech(context.Background(), "  "); !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio for empty text, got %v", err)
	}
}

func TestGenerateCoverImage_NotConfigured(t *testing.T) {
	if _, err := (&Client{}).GenerateCoverImage(context.Background(), "x"); err == nil {
		t.Error("expected error without image client")
	}
}

func TestEndpointRoundTripper(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := httpClientForEndpoint(srv.URL + "/gemini/")
	resp, err := client.Get("https://generativelanguage.googleapis.com/v1beta/models/m:generateContent?key=k")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if gotPath != "/gemini/v1beta/models/m:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "key=k" {
		t.Errorf("query = %q", gotQuery)
	}
}
