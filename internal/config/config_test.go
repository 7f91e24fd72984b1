package config

import (
	"testing"
	"time"
)

func TestLoadIncludesInferenceDefaults(t *testing.T) {
	t.Setenv("GEMINI_BASE_URL", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("GEMINI_TEMPERATURE", "")
	t.Setenv("GEMINI_TIMEOUT", "")

	cfg := Load()
	if cfg.GeminiBaseURL != "https://generativelanguage.googleapis.com" {
		t.Fatalf("expected default base URL, got %q", cfg.GeminiBaseURL)
	}
	if cfg.GeminiModel != "gemini-2.0-flash" {
		t.Fatalf("expected default model, got %q", cfg.GeminiModel)
	}
	if cfg.GeminiTemperature != 0.1 {
		t.Fatalf("expected default temperature 0.1, got %v", cfg.GeminiTemperature)
	}
	if cfg.GeminiTimeout != 120*time.Second {
		t.Fatalf("expected default timeout 120s, got %v", cfg.GeminiTimeout)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("GEMINI_TIMEOUT", "30s")
	t.Setenv("API_RATE_LIMIT_RPS", "5.5")
	t.Setenv("WORKER_PROCESS_BUDGET", "2m")

	cfg := Load()
	if cfg.GeminiModel != "gemini-2.5-pro" {
		t.Fatalf("expected model override, got %q", cfg.GeminiModel)
	}
	if cfg.GeminiTimeout != 30*time.Second {
		t.Fatalf("expected timeout 30s, got %v", cfg.GeminiTimeout)
	}
	if cfg.APIRateLimitRPS != 5.5 {
		t.Fatalf("expected rate limit 5.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.WorkerProcessBudget != 2*time.Minute {
		t.Fatalf("expected process budget 2m, got %v", cfg.WorkerProcessBudget)
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("API_RATE_LIMIT_BURST", "not-a-number")
	t.Setenv("GEMINI_TIMEOUT", "soon")

	cfg := Load()
	if cfg.APIRateLimitBurst != 40 {
		t.Fatalf("expected fallback burst 40, got %d", cfg.APIRateLimitBurst)
	}
	if cfg.GeminiTimeout != 120*time.Second {
		t.Fatalf("expected fallback timeout 120s, got %v", cfg.GeminiTimeout)
	}
}
