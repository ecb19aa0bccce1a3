package config

import (
	"os"
	"testing"
	"time"
)

var allKeys = []string{
	"PORT", "API_KEY", "LOG_LEVEL", "GEMINI_API_KEY", "GEMINI_MODEL",
	"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "REPLY_PROVIDER", "AGENT_TEMPERATURE",
	"AGENT_MAX_TOKENS", "REPLY_TIMEOUT", "GUVI_CALLBACK_URL", "CALLBACK_MAX_ATTEMPTS",
	"CALLBACK_TIMEOUT", "REDIS_URL", "DATABASE_URL", "STORE_BACKEND", "SESSION_TTL",
	"SCAM_DETECTION_THRESHOLD", "MIN_MESSAGES_FOR_CALLBACK", "DETECTION_POLICY",
	"NATS_URL", "NATS_TOKEN", "SWEEP_SCHEDULE", "SWEEP_MAX_AGE", "RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST", "SLACK_BOT_TOKEN", "SLACK_CHANNEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Port)
	}
	if cfg.APIKey != DefaultAPIKey {
		t.Errorf("expected placeholder api key, got %q", cfg.APIKey)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.DetectionThreshold != 4 {
		t.Errorf("expected threshold 4, got %d", cfg.DetectionThreshold)
	}
	if cfg.MinMessagesForCallback != 8 {
		t.Errorf("expected min messages 8, got %d", cfg.MinMessagesForCallback)
	}
	if cfg.SessionTTL() != 24*time.Hour {
		t.Errorf("expected 24h ttl, got %s", cfg.SessionTTL())
	}
	if cfg.CallbackMaxAttempts != 3 {
		t.Errorf("expected 3 callback attempts, got %d", cfg.CallbackMaxAttempts)
	}
	if cfg.CallbackTimeout != 10*time.Second {
		t.Errorf("expected 10s callback timeout, got %s", cfg.CallbackTimeout)
	}
	if cfg.DetectionPolicy != "per_message" {
		t.Errorf("expected per_message policy, got %q", cfg.DetectionPolicy)
	}
	if cfg.StoreBackend != "auto" {
		t.Errorf("expected auto store backend, got %q", cfg.StoreBackend)
	}
	if cfg.GeminiModel != "gemini-1.5-flash" {
		t.Errorf("expected default gemini model, got %q", cfg.GeminiModel)
	}
	if cfg.SweepAge() != cfg.SessionTTL() {
		t.Errorf("expected sweep age to default to ttl, got %s", cfg.SweepAge())
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9999")
	t.Setenv("API_KEY", "s3cr3t")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SESSION_TTL", "60")
	t.Setenv("SCAM_DETECTION_THRESHOLD", "6")
	t.Setenv("MIN_MESSAGES_FOR_CALLBACK", "3")
	t.Setenv("DETECTION_POLICY", "cumulative")
	t.Setenv("CALLBACK_TIMEOUT", "2s")
	t.Setenv("SWEEP_MAX_AGE", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Port)
	}
	if cfg.APIKey != "s3cr3t" {
		t.Errorf("expected custom api key, got %q", cfg.APIKey)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("expected custom redis url, got %q", cfg.RedisURL)
	}
	if cfg.SessionTTL() != time.Minute {
		t.Errorf("expected 1m ttl, got %s", cfg.SessionTTL())
	}
	if cfg.DetectionThreshold != 6 || cfg.MinMessagesForCallback != 3 {
		t.Errorf("unexpected thresholds: %d / %d", cfg.DetectionThreshold, cfg.MinMessagesForCallback)
	}
	if cfg.DetectionPolicy != "cumulative" {
		t.Errorf("expected cumulative policy, got %q", cfg.DetectionPolicy)
	}
	if cfg.CallbackTimeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %s", cfg.CallbackTimeout)
	}
	if cfg.SweepAge() != 30*time.Minute {
		t.Errorf("expected 30m sweep age, got %s", cfg.SweepAge())
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "notanumber")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed PORT")
	}
}

func TestValidate_DefaultsWarn(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st := cfg.Validate()
	if !st.Valid {
		t.Errorf("defaults should be valid, issues: %v", st.Issues)
	}
	if len(st.Warnings) != 3 {
		t.Errorf("expected 3 warnings (api key, model key, storage), got %v", st.Warnings)
	}
	if st.Summary["api_key_set"] != false {
		t.Errorf("expected api_key_set false, got %v", st.Summary["api_key_set"])
	}
}

func TestValidate_BadPolicy(t *testing.T) {
	cfg := Config{
		APIKey:                 "k",
		DetectionPolicy:        "sometimes",
		StoreBackend:           "auto",
		DetectionThreshold:     4,
		MinMessagesForCallback: 8,
	}

	st := cfg.Validate()
	if st.Valid {
		t.Fatal("expected invalid status")
	}
	if len(st.Issues) != 1 {
		t.Errorf("expected 1 issue, got %v", st.Issues)
	}
}
