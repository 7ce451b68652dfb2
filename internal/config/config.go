package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the persona chat service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	// Completion provider selection: auto | groq | mistral | mock.
	ProviderMode string

	GroqAPIKey string
	GroqAPIURL string
	GroqModel  string

	MistralAPIKey string
	MistralAPIURL string
	MistralModel  string

	// Retry budget for one logical completion (all attempts combined).
	ProviderCallTimeout time.Duration
	ProviderTotalBudget time.Duration
	ProviderMaxRetries  int

	DatabaseURL string

	// Memory compaction tuning.
	MemoryRawWindow        int
	MemoryCompactEntries   int
	MemoryFallbackWindow   int
	MemoryIncludeAssistant bool
	CompactWorkers         int
	CompactQueueSize       int
	CompactTimeout         time.Duration

	DefaultPersona string
	RedactPII      bool

	// Static bearer tokens: "token:user[:profile]" entries separated by commas.
	// Empty means anonymous access (local/dev).
	AuthTokens string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "gigabhai"),
		AllowAnyOrigin:       false,
		ProviderMode:         envOrDefault("LLM_PROVIDER", "auto"),
		GroqAPIKey:           stringsTrimSpace("GROQ_API_KEY"),
		GroqAPIURL:           envOrDefault("GROQ_API_URL", "https://api.groq.com/openai/v1/chat/completions"),
		GroqModel:            envOrDefault("GROQ_MODEL", "llama3-70b-8192"),
		MistralAPIKey:        stringsTrimSpace("MISTRAL_API_KEY"),
		MistralAPIURL:        envOrDefault("MISTRAL_API_URL", "https://api.mistral.ai/v1/chat/completions"),
		MistralModel:         envOrDefault("MISTRAL_MODEL", "mistral-large-latest"),
		DatabaseURL:          stringsTrimSpace("DATABASE_URL"),
		DefaultPersona:       envOrDefault("DEFAULT_PERSONA", "swag_bhai"),
		AuthTokens:           stringsTrimSpace("AUTH_TOKENS"),
		ShutdownTimeout:      15 * time.Second,
		ProviderCallTimeout:  15 * time.Second,
		ProviderTotalBudget:  25 * time.Second,
		ProviderMaxRetries:   3,
		MemoryRawWindow:      100,
		MemoryCompactEntries: 10,
		MemoryFallbackWindow: 20,
		CompactWorkers:       2,
		CompactQueueSize:     64,
		CompactTimeout:       30 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ProviderCallTimeout, err = durationFromEnv("PROVIDER_CALL_TIMEOUT", cfg.ProviderCallTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ProviderTotalBudget, err = durationFromEnv("PROVIDER_TOTAL_BUDGET", cfg.ProviderTotalBudget)
	if err != nil {
		return Config{}, err
	}
	cfg.CompactTimeout, err = durationFromEnv("MEMORY_COMPACT_TIMEOUT", cfg.CompactTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ProviderMaxRetries, err = intFromEnv("PROVIDER_MAX_RETRIES", cfg.ProviderMaxRetries)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryRawWindow, err = intFromEnv("MEMORY_RAW_WINDOW", cfg.MemoryRawWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryCompactEntries, err = intFromEnv("MEMORY_COMPACT_ENTRIES", cfg.MemoryCompactEntries)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryFallbackWindow, err = intFromEnv("MEMORY_FALLBACK_WINDOW", cfg.MemoryFallbackWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.CompactWorkers, err = intFromEnv("MEMORY_COMPACT_WORKERS", cfg.CompactWorkers)
	if err != nil {
		return Config{}, err
	}
	cfg.CompactQueueSize, err = intFromEnv("MEMORY_COMPACT_QUEUE", cfg.CompactQueueSize)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryIncludeAssistant, err = boolFromEnv("MEMORY_INCLUDE_ASSISTANT", cfg.MemoryIncludeAssistant)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.RedactPII, err = boolFromEnv("APP_REDACT_PII", cfg.RedactPII)
	if err != nil {
		return Config{}, err
	}

	if cfg.ProviderMaxRetries <= 0 {
		return Config{}, fmt.Errorf("PROVIDER_MAX_RETRIES must be positive")
	}
	if cfg.ProviderCallTimeout <= 0 || cfg.ProviderTotalBudget <= 0 {
		return Config{}, fmt.Errorf("provider timeouts must be positive")
	}
	if cfg.MemoryRawWindow <= 0 {
		return Config{}, fmt.Errorf("MEMORY_RAW_WINDOW must be positive")
	}
	if cfg.MemoryCompactEntries <= 0 {
		return Config{}, fmt.Errorf("MEMORY_COMPACT_ENTRIES must be positive")
	}
	if cfg.MemoryFallbackWindow <= 0 {
		return Config{}, fmt.Errorf("MEMORY_FALLBACK_WINDOW must be positive")
	}
	if cfg.CompactWorkers <= 0 {
		return Config{}, fmt.Errorf("MEMORY_COMPACT_WORKERS must be positive")
	}
	if cfg.CompactQueueSize <= 0 {
		return Config{}, fmt.Errorf("MEMORY_COMPACT_QUEUE must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
