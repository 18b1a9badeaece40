package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries everything the services need at construction time.
// All values come from the environment; a local .env file is honored
// when present so development does not depend on shell exports.
type Config struct {
	Port string

	ProjectID string
	Dataset   string
	Bucket    string

	GeminiModel string
	OCRLanguage string

	JWTSecret string

	HistoryLimit int
}

// Load reads configuration from the environment. GCP_PROJECT and JWT_SECRET
// are required; everything else has a default.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	projectID := os.Getenv("GCP_PROJECT")
	if projectID == "" {
		return nil, fmt.Errorf("config: GCP_PROJECT is not set")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is not set")
	}

	cfg := &Config{
		Port:         getenv("PORT", "8080"),
		ProjectID:    projectID,
		Dataset:      getenv("BQ_DATASET", "finyx"),
		Bucket:       os.Getenv("GCS_BUCKET"),
		GeminiModel:  getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		OCRLanguage:  getenv("OCR_LANGUAGE", "eng"),
		JWTSecret:    secret,
		HistoryLimit: 10,
	}

	if raw := os.Getenv("CHAT_HISTORY_LIMIT"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: invalid CHAT_HISTORY_LIMIT %q", raw)
		}
		cfg.HistoryLimit = n
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
