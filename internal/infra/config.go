package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cinegen/cinegen/internal/domain"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	LeonardoAPIKey   string
	LeonardoBaseURL  string
	GenerationModel  string
	PollMaxAttempts  int
	PollDelay        time.Duration
	BatchConcurrency int
	OutputDir        string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. The API credential is the only hard requirement; a
// run without it must fail before any network call.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		LeonardoAPIKey:   os.Getenv("LEONARDO_API_KEY"),
		LeonardoBaseURL:  getEnv("LEONARDO_API_URL", "https://cloud.leonardo.ai/api/rest/v1"),
		GenerationModel:  getEnv("GENERATION_MODEL", "creative"),
		PollMaxAttempts:  getEnvInt("POLL_MAX_ATTEMPTS", 30),
		PollDelay:        time.Second * time.Duration(getEnvInt("POLL_DELAY_SECONDS", 2)),
		BatchConcurrency: getEnvInt("BATCH_CONCURRENCY", 1),
		OutputDir:        getEnv("OUTPUT_DIR", "./output"),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.LeonardoAPIKey == "" {
		return nil, fmt.Errorf("LEONARDO_API_KEY is required: %w", domain.ErrMissingCredential)
	}
	if cfg.PollMaxAttempts < 1 {
		cfg.PollMaxAttempts = 1
	}
	if cfg.BatchConcurrency < 1 {
		cfg.BatchConcurrency = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
