package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr       string
	LogLevel       string
	RequestTimeout time.Duration
	SMS            SMSConfig
	HuggingFace    HuggingFaceConfig
	Telerivet      TelerivetConfig
}

type SMSConfig struct {
	AllowedNumbers  []string
	AllowlistFile   string
	TriggerWord     string
	RepeatTimeout   time.Duration
	CoalesceDelay   time.Duration
	MaxHistoryTurns int
	MaxSMSChars     int
}

type HuggingFaceConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type TelerivetConfig struct {
	APIKey     string
	ProjectID  string
	PhoneID    string
	APIBaseURL string
}

func Load() (Config, error) {
	var cfg Config

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	reqTimeout, err := parseDuration(getEnv("HTTP_CLIENT_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_CLIENT_TIMEOUT: %w", err)
	}
	cfg.RequestTimeout = reqTimeout

	repeatTimeout, err := parseDuration(getEnv("REPEAT_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REPEAT_TIMEOUT: %w", err)
	}

	coalesceDelay, err := parseDuration(getEnv("COALESCE_DELAY", "2s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse COALESCE_DELAY: %w", err)
	}

	maxTurns, err := parseIntDefault(os.Getenv("MAX_HISTORY_TURNS"), 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_HISTORY_TURNS: %w", err)
	}

	maxChars, err := parseIntDefault(os.Getenv("MAX_SMS_CHARS"), 1200)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_SMS_CHARS: %w", err)
	}

	cfg.SMS = SMSConfig{
		AllowedNumbers:  splitList(getEnv("ALLOWED_NUMBERS", "")),
		AllowlistFile:   getEnv("ALLOWLIST_FILE", ""),
		TriggerWord:     getEnv("TRIGGER_WORD", "Chat"),
		RepeatTimeout:   repeatTimeout,
		CoalesceDelay:   coalesceDelay,
		MaxHistoryTurns: maxTurns,
		MaxSMSChars:     maxChars,
	}

	cfg.HuggingFace = HuggingFaceConfig{
		APIKey:  getEnv("HUGGINGFACE_API_KEY", ""),
		BaseURL: getEnv("HUGGINGFACE_BASE_URL", "https://api-inference.huggingface.co"),
		Model:   getEnv("HUGGINGFACE_MODEL", "openchat/openchat-3.5"),
	}

	cfg.Telerivet = TelerivetConfig{
		APIKey:     getEnv("TELERIVET_API_KEY", ""),
		ProjectID:  getEnv("TELERIVET_PROJECT_ID", ""),
		PhoneID:    getEnv("TELERIVET_PHONE_ID", ""),
		APIBaseURL: getEnv("TELERIVET_API_BASE_URL", "https://api.telerivet.com"),
	}

	return cfg, nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("duration is empty")
	}
	return time.ParseDuration(value)
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

// parseIntDefault разбирает необязательное целое значение с дефолтом.
func parseIntDefault(value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

// splitList разбирает список, разделённый запятыми, пропуская пустые элементы.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
