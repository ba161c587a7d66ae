package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Embedding providers.
const (
	EmbeddingProviderHash   = "hash"
	EmbeddingProviderOpenAI = "openai"
)

// Index backends.
const (
	IndexBackendMemory = "memory"
	IndexBackendQdrant = "qdrant"
)

// hashEmbeddingModelName identifies the offline embedder in index versions.
const hashEmbeddingModelName = "feature-hash-xxh64"

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string
	DBPath    string

	LLMBaseURL           string
	LLMModelName         string
	LLMAPIKey            string
	LLMDisabled          bool
	LLMTemperature       float32
	LLMMaxTokens         int
	LLMRequestsPerSecond float64

	EmbeddingProvider  string
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingAPIKey    string
	EmbeddingDim       int

	ChunkSize    int
	ChunkOverlap int
	DefaultK     int
	MaxK         int

	IndexBackend     string
	QdrantURL        string
	QdrantCollection string

	SessionIdleTimeout time.Duration
	MaxUploadBytes     int64
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the result.
// If a .env file exists in the current directory or one of its parents, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		DBPath:             getEnv("DB_PATH", "./data/study-assistant.db"),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMModelName:       getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
		LLMAPIKey:          getEnv("LLM_API_KEY", os.Getenv("GROQ_API_KEY")),
		EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", EmbeddingProviderHash)),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", ""),
		IndexBackend:       strings.ToLower(getEnv("INDEX_BACKEND", IndexBackendMemory)),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "study_chunks"),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.LLMDisabled, err = getBool("LLM_DISABLED", false); err != nil {
		return nil, err
	}
	temperature, err := getFloat("LLM_TEMPERATURE", 0.3)
	if err != nil {
		return nil, err
	}
	cfg.LLMTemperature = float32(temperature)
	if cfg.LLMMaxTokens, err = getInt("LLM_MAX_TOKENS", 1000); err != nil {
		return nil, err
	}
	if cfg.LLMRequestsPerSecond, err = getFloat("LLM_REQUESTS_PER_SECOND", 0); err != nil {
		return nil, err
	}
	if cfg.EmbeddingDim, err = getInt("EMBEDDING_DIM", 384); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = getInt("CHUNK_SIZE", 500); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getInt("CHUNK_OVERLAP", 50); err != nil {
		return nil, err
	}
	if cfg.DefaultK, err = getInt("RETRIEVAL_DEFAULT_K", 3); err != nil {
		return nil, err
	}
	if cfg.MaxK, err = getInt("RETRIEVAL_MAX_K", 20); err != nil {
		return nil, err
	}
	maxUpload, err := getInt("MAX_UPLOAD_BYTES", 10<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)

	idle := getEnv("SESSION_IDLE_TIMEOUT", "2h")
	if cfg.SessionIdleTimeout, err = time.ParseDuration(idle); err != nil {
		return nil, fmt.Errorf("SESSION_IDLE_TIMEOUT must be a duration: %w", err)
	}

	cfg.EmbeddingAPIKey = getEnv("EMBEDDING_API_KEY", cfg.LLMAPIKey)
	if cfg.EmbeddingModelName == "" {
		switch cfg.EmbeddingProvider {
		case EmbeddingProviderOpenAI:
			cfg.EmbeddingModelName = "text-embedding-3-small"
		default:
			cfg.EmbeddingModelName = hashEmbeddingModelName
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Create the data directory for the SQLite file
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// Validate checks value ranges and cross-field constraints.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	if !c.LLMDisabled && c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY (or GROQ_API_KEY) is required unless LLM_DISABLED=true")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", c.LLMTemperature)
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be greater than 0")
	}
	if c.LLMRequestsPerSecond < 0 {
		return fmt.Errorf("LLM_REQUESTS_PER_SECOND cannot be negative")
	}

	switch c.EmbeddingProvider {
	case EmbeddingProviderHash:
	case EmbeddingProviderOpenAI:
		if c.EmbeddingAPIKey == "" {
			return fmt.Errorf("EMBEDDING_API_KEY is required for the openai embedding provider")
		}
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be hash or openai, got %q", c.EmbeddingProvider)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be greater than 0")
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.DefaultK <= 0 || c.MaxK <= 0 {
		return fmt.Errorf("RETRIEVAL_DEFAULT_K and RETRIEVAL_MAX_K must be greater than 0")
	}
	if c.DefaultK > c.MaxK {
		return fmt.Errorf("RETRIEVAL_DEFAULT_K (%d) cannot exceed RETRIEVAL_MAX_K (%d)", c.DefaultK, c.MaxK)
	}

	switch c.IndexBackend {
	case IndexBackendMemory:
	case IndexBackendQdrant:
		if c.QdrantURL == "" || c.QdrantCollection == "" {
			return fmt.Errorf("QDRANT_URL and QDRANT_COLLECTION are required for the qdrant backend")
		}
	default:
		return fmt.Errorf("INDEX_BACKEND must be memory or qdrant, got %q", c.IndexBackend)
	}

	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be greater than 0")
	}
	return nil
}

// loadDotEnv loads .env from the working directory or the closest parent that has one.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}
