package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr   string
	GRPCAddr   string
	MCPAddr    string
	LogLevel   string
	PublicBase string // base URL used to build media links, e.g. http://localhost:8080

	// Database (optional; the catalog is kept in memory when empty)
	DatabaseURL string

	// Auth: plain keys accepted in addition to those stored in the database
	APIKeys []string

	// Quota on POST /v1/stories per API key; 0 disables it
	StoryQuota       int64
	StoryQuotaPeriod string // daily, weekly, monthly, yearly

	// Kafka (optional; events are not published when no brokers are set)
	KafkaBrokers       []string
	KafkaConsumerGroup string
	KafkaTopicEvents   string

	// S3/Storage (optional; narration references are served from memory when no bucket is set)
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool
	S3PublicURL string

	// Gemini API
	GeminiAPIKey      string
	GeminiAPIEndpoint string // if set, overrides default Gemini API base URL
	GeminiModelText   string // story writer, e.g. gemini-2.5-flash-preview-09-2025
	GeminiModelPro    string // fallback story writer
	GeminiModelImage  string // cover image generation
	GeminiModelTTS    string // narration, e.g. gemini-2.5-flash-preview-tts
	GeminiTTSVoice    string // prebuilt voice name, e.g. Fenrir

	// Gallery
	GenerateCovers     bool
	PlaceholderImage   string
	MaxPromptLength    int
	MaxNarrationChars  int
	ReferenceTTL       time.Duration
	SweepInterval      time.Duration
	SessionIdleTimeout time.Duration
	RequestTimeout     time.Duration
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; it never overrides the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:   getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:   getEnv("GRPC_ADDR", ":9090"),
		MCPAddr:    getEnv("MCP_ADDR", ":8081"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		PublicBase: strings.TrimSuffix(getEnv("PUBLIC_BASE_URL", ""), "/"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		APIKeys:          getEnvList("API_KEYS", nil),
		StoryQuota:       int64(getEnvInt("GALLERY_STORY_QUOTA", 100)),
		StoryQuotaPeriod: getEnv("GALLERY_STORY_QUOTA_PERIOD", "daily"),

		KafkaBrokers:       getEnvList("KAFKA_BROKERS", nil),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "gallery-worker-main"),
		KafkaTopicEvents:   getEnv("KAFKA_TOPIC_EVENTS", "gallery.events.v1"),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3UseSSL:    getEnvBool("S3_USE_SSL", false),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiAPIEndpoint: getEnv("GEMINI_API_ENDPOINT", ""),
		GeminiModelText:   getEnv("GEMINI_MODEL_TEXT", "gemini-2.5-flash-preview-09-2025"),
		GeminiModelPro:    getEnv("GEMINI_MODEL_PRO", "gemini-2.5-pro"),
		GeminiModelImage:  getEnv("GEMINI_MODEL_IMAGE", "gemini-2.5-flash-image-preview"),
		GeminiModelTTS:    getEnv("GEMINI_MODEL_TTS", "gemini-2.5-flash-preview-tts"),
		GeminiTTSVoice:    getEnv("GEMINI_TTS_VOICE", "Fenrir"),

		GenerateCovers:     getEnvBool("GALLERY_GENERATE_COVERS", false),
		PlaceholderImage:   getEnv("GALLERY_PLACEHOLDER_IMAGE", "https://images.unsplash.com/photo-1516738901171-8eb4fc2ab862?q=80&w=1000&auto=format&fit=crop"),
		MaxPromptLength:    clampMin(getEnvInt("GALLERY_MAX_PROMPT_LENGTH", 500), 1),
		MaxNarrationChars:  clampMin(getEnvInt("GALLERY_MAX_NARRATION_CHARS", 5000), 1),
		ReferenceTTL:       getEnvDuration("GALLERY_REFERENCE_TTL", 30*time.Minute),
		SweepInterval:      getEnvDuration("GALLERY_SWEEP_INTERVAL", time.Minute),
		SessionIdleTimeout: getEnvDuration("GALLERY_SESSION_IDLE_TIMEOUT", 2*time.Hour),
		RequestTimeout:     getEnvDuration("GALLERY_REQUEST_TIMEOUT", 2*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// clampMin returns v if v >= min, otherwise min. Used to ensure config values are in valid range.
func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
