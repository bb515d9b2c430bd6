package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Text generation providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const (
	defaultTextGenBaseURL = "https://api.deepseek.com/v1"
	defaultTextGenModel   = "deepseek-chat"
	defaultGeminiModel    = "gemini-1.5-flash"
)

// Config holds the configuration for the application.
type Config struct {
	Environment    string
	Port           string
	DatabasePath   string
	AllowedOrigins []string

	// Text generation
	TextGenProvider string
	TextGenBaseURL  string
	TextGenModel    string
	TextGenAPIKey   string
	GeminiAPIKey    string
	GeminiModel     string
	// TextGenRPM caps text generation requests per minute. Zero disables throttling.
	TextGenRPM int

	// RedisURL switches change notifications to Redis pub/sub when set.
	RedisURL string

	// RenderFontPath points at a TrueType or OpenType font for shopping list
	// images. Empty keeps the built-in Latin-1 face.
	RenderFontPath string

	// Telegram Config (optional)
	TelegramBotToken string
	TelegramChatID   int64
}

// NewFromEnv creates a new Config object from environment variables and
// checks that the configured text generation provider has its key.
func NewFromEnv() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateTextGen(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration from environment variables without
// requiring text generation credentials, for commands that never call a
// model. A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnv("PORT", "8080"),
		DatabasePath:    getEnv("DATABASE_PATH", "data/shared-menu.db"),
		AllowedOrigins:  splitList(getEnv("ALLOWED_ORIGINS", "*")),
		TextGenProvider: strings.ToLower(getEnv("TEXTGEN_PROVIDER", ProviderOpenAI)),
		TextGenBaseURL:  strings.TrimRight(getEnv("TEXTGEN_BASE_URL", defaultTextGenBaseURL), "/"),
		TextGenModel:    getEnv("TEXTGEN_MODEL", defaultTextGenModel),
		TextGenAPIKey:   os.Getenv("TEXTGEN_API_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", defaultGeminiModel),
		RedisURL:        os.Getenv("REDIS_URL"),
		RenderFontPath:  os.Getenv("RENDER_FONT_PATH"),
	}

	rpm, err := getEnvAsInt("TEXTGEN_RPM", 0)
	if err != nil {
		return nil, err
	}
	cfg.TextGenRPM = rpm

	// Telegram Config (optional, both values are needed for notifications)
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", chatID, err)
		}
		cfg.TelegramChatID = id
	}

	return cfg, nil
}

// ValidateTextGen reports an error when the selected provider is unknown or
// its API key is missing.
func (c *Config) ValidateTextGen() error {
	switch c.TextGenProvider {
	case ProviderOpenAI:
		if c.TextGenAPIKey == "" {
			return fmt.Errorf("TEXTGEN_API_KEY environment variable not set")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable not set")
		}
	default:
		return fmt.Errorf("unknown TEXTGEN_PROVIDER %q", c.TextGenProvider)
	}
	return nil
}

// TelegramEnabled reports whether notifications can be sent.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
