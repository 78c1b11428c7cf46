package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when no Gemini credential is available to the process.
var ErrMissingAPIKey = errors.New("gemini api key is not set")

const DefaultGeminiModel = "gemini-2.5-flash-image"

// GenerationAttempts is how many times one pose is tried before its batch fails.
const GenerationAttempts = 3

// retryBackoff is the total wait between attempts: 1s, then 2s.
const retryBackoff = 3 * time.Second

type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string
	GeminiAPIVersion string

	TelegramToken string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	WebAddr        string
	MaxUploadBytes int64

	MediaGroupDebounce time.Duration
	MaxConcurrent      int
	RequestTimeout     time.Duration
	HTTPTimeout        time.Duration
}

// Load reads the settings shared by the web server and the bot.
func Load() (Config, error) {
	cfg := Config{
		GeminiModel:        getEnv("GEMINI_MODEL", DefaultGeminiModel),
		GeminiBaseURL:      getEnv("GEMINI_BASE_URL", ""),
		GeminiAPIVersion:   getEnv("GEMINI_API_VERSION", ""),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		WebAddr:            getEnv("WEB_ADDR", ":8080"),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_MB", 25)) << 20,
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 0)) * time.Second,
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
	}

	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", getEnv("API_KEY", ""))
	if cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY is required: %w", ErrMissingAPIKey)
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 25 << 20
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	cfg.RequestTimeout = max(cfg.RequestTimeout, cfg.MinRequestTimeout())

	return cfg, nil
}

// MinRequestTimeout is the longest a batch can take when every pose uses all of
// its attempts and each attempt runs into the HTTP client timeout.
func (c Config) MinRequestTimeout() time.Duration {
	return GenerationAttempts*c.HTTPTimeout + retryBackoff
}

// LoadBot is Load plus the Telegram token.
func LoadBot() (Config, error) {
	cfg, err := Load()
	if err != nil {
		return Config{}, err
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if cfg.TelegramToken == "" {
		return Config{}, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
