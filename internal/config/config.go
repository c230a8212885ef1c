package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	LogLevel       string
	DataDir        string
	UploadDir      string
	MaxUploadBytes int64
	SessionTTL     time.Duration
	SessionStore   string
	SessionPath    string
	TaskStore      string
	TaskStorePath  string
	RequestTimeout time.Duration
	FetchMaxBytes  int64
	PromptPath     string
	PresetsPath    string
	Gemini         GeminiConfig
}

type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present; a missing file is fine.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.DataDir = getEnv("DATA_DIR", "data")
	cfg.UploadDir = getEnv("UPLOAD_DIR", filepath.Join(cfg.DataDir, "uploads"))
	cfg.SessionStore = getEnv("SESSION_STORE", "memory")
	cfg.SessionPath = getEnv("SESSION_STORE_PATH", filepath.Join(cfg.DataDir, "sessions.json"))
	cfg.TaskStore = getEnv("TASK_STORE", "file")
	cfg.TaskStorePath = getEnv("TASK_STORE_PATH", "")
	if cfg.TaskStorePath == "" {
		switch cfg.TaskStore {
		case "sqlite":
			cfg.TaskStorePath = filepath.Join(cfg.DataDir, "tasks.db")
		default:
			cfg.TaskStorePath = filepath.Join(cfg.DataDir, "tasks.json")
		}
	}
	cfg.PromptPath = getEnv("PROMPT_PATH", "")
	cfg.PresetsPath = getEnv("PRESETS_PATH", "")

	maxUpload, err := parseBytes(getEnv("MAX_UPLOAD_BYTES", ""), 16<<20)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_UPLOAD_BYTES: %w", err)
	}
	cfg.MaxUploadBytes = maxUpload

	fetchMax, err := parseBytes(getEnv("FETCH_MAX_BYTES", ""), 4<<20)
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_MAX_BYTES: %w", err)
	}
	cfg.FetchMaxBytes = fetchMax

	sessionTTL, err := parseDuration(getEnv("SESSION_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = sessionTTL

	reqTimeout, err := parseDuration(getEnv("HTTP_CLIENT_TIMEOUT", "120s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HTTP_CLIENT_TIMEOUT: %w", err)
	}
	cfg.RequestTimeout = reqTimeout

	cfg.Gemini = GeminiConfig{
		APIKey:     getEnv("GEMINI_API_KEY", ""),
		BaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		TextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		ImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.0-flash-preview-image-generation"),
	}

	return cfg, nil
}

func parseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, fmt.Errorf("duration is empty")
	}
	return time.ParseDuration(value)
}

// parseBytes parses an optional positive byte count with a default.
func parseBytes(value string, def int64) (int64, error) {
	if value == "" {
		return def, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("byte count must be positive, got %d", parsed)
	}
	return parsed, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}
