package config

import "testing"

func TestLoad_RequiresProject(t *testing.T) {
	t.Setenv("GCP_PROJECT", "")
	t.Setenv("JWT_SECRET", "s3cret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when GCP_PROJECT is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GCP_PROJECT", "finyx-test")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "")
	t.Setenv("BQ_DATASET", "")
	t.Setenv("CHAT_HISTORY_LIMIT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Dataset != "finyx" {
		t.Errorf("Dataset = %q, want finyx", cfg.Dataset)
	}
	if cfg.HistoryLimit != 10 {
		t.Errorf("HistoryLimit = %d, want 10", cfg.HistoryLimit)
	}
	if cfg.OCRLanguage != "eng" {
		t.Errorf("OCRLanguage = %q, want eng", cfg.OCRLanguage)
	}
}

func TestLoad_InvalidHistoryLimit(t *testing.T) {
	t.Setenv("GCP_PROJECT", "finyx-test")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CHAT_HISTORY_LIMIT", "zero")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric CHAT_HISTORY_LIMIT")
	}
}
