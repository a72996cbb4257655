package llm

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"google.golang.org/api/option"
	unifiedgenai "google.golang.org/genai"
)

// maxGeminiResponseLogBytes is the max length of a Gemini response body to log in full (to avoid huge logs).
const maxGeminiResponseLogBytes = 8192

// httpClientForEndpoint returns an http.Client that rewrites request URLs to the given base endpoint (e.g. http://host.docker.internal:31300/gemini).
func httpClientForEndpoint(baseEndpoint string) *http.Client {
	base, err := url.Parse(baseEndpoint)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", baseEndpoint).Msg("Invalid GEMINI_API_ENDPOINT, using default")
		return nil
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	return &http.Client{
		Transport: &endpointRoundTripper{base: base, next: http.DefaultTransport},
	}
}

// endpointRoundTripper rewrites request URLs to a custom base (scheme, host, path prefix).
type endpointRoundTripper struct {
	base *url.URL
	next http.RoundTripper
}

func (e *endpointRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.URL.Scheme = e.base.Scheme
	req2.URL.Host = e.base.Host
	req2.URL.Path = path.Join(e.base.Path, strings.TrimPrefix(req.URL.Path, "/"))
	if req.URL.RawQuery != "" {
		req2.URL.RawQuery = req.URL.RawQuery
	}
	return e.next.RoundTrip(req2)
}

// logGeminiResponse logs Gemini response text, truncating if over maxGeminiResponseLogBytes.
func logGeminiResponse(caller, raw string) {
	if len(raw) <= maxGeminiResponseLogBytes {
		log.Info().Str("caller", caller).Str("gemini_response", raw).Msg("Gemini response")
		return
	}
	log.Info().
		Str("caller", caller).
		Str("gemini_response", raw[:maxGeminiResponseLogBytes]+"... [truncated]").
		Int("gemini_response_len", len(raw)).
		Msg("Gemini response")
}

// Options configures the Gemini client. Empty model fields take defaults.
type Options struct {
	APIKey      string
	APIEndpoint string // optional base URL override for every Gemini call
	ModelText   string
	ModelPro    string
	ModelImage  string
	ModelTTS    string
	TTSVoice    string
}

// Client wraps the Gemini APIs used by the gallery
type Client struct {
	modelText     string
	modelPro      string
	modelImage    string
	modelTTS      string
	ttsVoice      string
	llmText       llms.Model           // story writer
	llmPro        llms.Model           // fallback story writer
	genaiClient   *genai.Client        // cover images (IMAGE modality)
	unifiedClient *unifiedgenai.Client // narration (AUDIO modality)
}

// Speech is raw audio returned by the TTS model. PCM is headerless; MIMEType
// carries its layout, e.g. "audio/L16;codec=pcm;rate=24000".
type Speech struct {
	PCM      []byte
	MIMEType string
	Model    string
	Voice    string
}

// Image represents a generated cover image
type Image struct {
	Data     io.Reader
	Size     int64
	Model    string
	MimeType string
}

// NewClient creates a new Gemini client. Sub-clients that fail to initialise are
// left nil and the matching operation falls back (story text, cover) or fails
// with ErrNoAudio (speech).
func NewClient(opts Options) *Client {
	if opts.ModelText == "" {
		opts.ModelText = "gemini-2.5-flash-preview-09-2025"
	}
	if opts.ModelPro == "" {
		opts.ModelPro = "gemini-2.5-pro"
	}
	if opts.ModelImage == "" {
		opts.ModelImage = "gemini-2.5-flash-image-preview"
	}
	if opts.ModelTTS == "" {
		opts.ModelTTS = "gemini-2.5-flash-preview-tts"
	}
	if opts.TTSVoice == "" {
		opts.TTSVoice = "Fenrir"
	}

	c := &Client{
		modelText:  opts.ModelText,
		modelPro:   opts.ModelPro,
		modelImage: opts.ModelImage,
		modelTTS:   opts.ModelTTS,
		ttsVoice:   opts.TTSVoice,
	}

	if opts.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set; story writer and narration will use fallbacks")
		return c
	}

	// Optional custom HTTP client for langchaingo when using a custom endpoint
	var langchaingoHTTPClient *http.Client
	if opts.APIEndpoint != "" {
		langchaingoHTTPClient = httpClientForEndpoint(opts.APIEndpoint)
	}

	newModel := func(model string) llms.Model {
		gOpts := []googleai.Option{googleai.WithAPIKey(opts.APIKey), googleai.WithDefaultModel(model)}
		if langchaingoHTTPClient != nil {
			gOpts = append(gOpts, googleai.WithHTTPClient(langchaingoHTTPClient))
		}
		m, err := googleai.New(context.Background(), gOpts...)
		if err != nil {
			log.Error().Err(err).Str("model", model).Msg("Failed to initialize text model")
			return nil
		}
		return m
	}
	c.llmText = newModel(opts.ModelText)
	c.llmPro = newModel(opts.ModelPro)

	genaiOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.APIEndpoint != "" {
		genaiOpts = append(genaiOpts, option.WithEndpoint(opts.APIEndpoint))
	}
	genaiClient, err := genai.NewClient(context.Background(), genaiOpts...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize genai client for cover images")
	} else {
		c.genaiClient = genaiClient
	}

	unifiedCfg := &unifiedgenai.ClientConfig{APIKey: opts.APIKey}
	if opts.APIEndpoint != "" {
		unifiedCfg.HTTPOptions = unifiedgenai.HTTPOptions{BaseURL: opts.APIEndpoint}
	}
	unifiedClient, err := unifiedgenai.NewClient(context.Background(), unifiedCfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize unified genai client for TTS")
	} else {
		c.unifiedClient = unifiedClient
	}

	log.Info().
		Str("model_text", c.modelText).
		Str("model_pro", c.modelPro).
		Str("model_image", c.modelImage).
		Str("model_tts", c.modelTTS).
		Str("tts_voice", c.ttsVoice).
		Str("api_endpoint", opts.APIEndpoint).
		Bool("genai_client", c.genaiClient != nil).
		Bool("unified_tts", c.unifiedClient != nil).
		Msg("LLM client initialized")

	return c
}

// Close releases the cover image client.
func (c *Client) Close() error {
	if c.genaiClient != nil {
		return c.genaiClient.Close()
	}
	return nil
}
