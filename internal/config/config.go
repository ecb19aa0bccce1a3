package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultAPIKey is the placeholder shipped in examples. Running with it is allowed
// but reported by Validate.
const DefaultAPIKey = "YOUR_SECRET_API_KEY"

type Config struct {
	Port     int    `env:"PORT" envDefault:"8000"`
	APIKey   string `env:"API_KEY" envDefault:"YOUR_SECRET_API_KEY"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	GeminiModel      string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel   string        `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-20250514"`
	ReplyProvider    string        `env:"REPLY_PROVIDER" envDefault:"auto"`
	AgentTemperature float64       `env:"AGENT_TEMPERATURE" envDefault:"0.9"`
	AgentMaxTokens   int           `env:"AGENT_MAX_TOKENS" envDefault:"150"`
	ReplyTimeout     time.Duration `env:"REPLY_TIMEOUT" envDefault:"15s"`

	CallbackURL         string        `env:"GUVI_CALLBACK_URL" envDefault:"https://hackathon.guvi.in/api/updateHoneyPotFinalResult"`
	CallbackMaxAttempts int           `env:"CALLBACK_MAX_ATTEMPTS" envDefault:"3"`
	CallbackTimeout     time.Duration `env:"CALLBACK_TIMEOUT" envDefault:"10s"`

	RedisURL      string `env:"REDIS_URL"`
	DatabaseURL   string `env:"DATABASE_URL"`
	StoreBackend  string `env:"STORE_BACKEND" envDefault:"auto"`
	SessionTTLSec int    `env:"SESSION_TTL" envDefault:"86400"`

	DetectionThreshold     int    `env:"SCAM_DETECTION_THRESHOLD" envDefault:"4"`
	MinMessagesForCallback int    `env:"MIN_MESSAGES_FOR_CALLBACK" envDefault:"8"`
	DetectionPolicy        string `env:"DETECTION_POLICY" envDefault:"per_message"`

	NatsURL   string `env:"NATS_URL"`
	NatsToken string `env:"NATS_TOKEN"`

	SlackBotToken string `env:"SLACK_BOT_TOKEN"`
	SlackChannel  string `env:"SLACK_CHANNEL"`

	SweepSchedule string        `env:"SWEEP_SCHEDULE" envDefault:"@every 1h"`
	SweepMaxAge   time.Duration `env:"SWEEP_MAX_AGE"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

// Load reads an optional .env file and then the process environment.
// Variables already present in the environment win over the .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// SessionTTL is the backend expiry applied on every save.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

// SweepAge is the idle age after which the maintenance sweep drops a session.
func (c Config) SweepAge() time.Duration {
	if c.SweepMaxAge > 0 {
		return c.SweepMaxAge
	}
	return c.SessionTTL()
}

// Status is the outcome of Validate.
type Status struct {
	Valid    bool           `json:"valid"`
	Issues   []string       `json:"issues"`
	Warnings []string       `json:"warnings"`
	Summary  map[string]any `json:"config"`
}

// Validate reports configuration problems without failing startup.
func (c Config) Validate() Status {
	var issues, warnings []string

	if c.APIKey == "" {
		issues = append(issues, "API_KEY is empty - every request would be rejected")
	} else if c.APIKey == DefaultAPIKey {
		warnings = append(warnings, "API_KEY is using default value - please set a secure key")
	}
	if c.GeminiAPIKey == "" && c.AnthropicAPIKey == "" {
		warnings = append(warnings, "GEMINI_API_KEY not set - agent will use fallback responses")
	}
	if c.RedisURL == "" && c.DatabaseURL == "" {
		warnings = append(warnings, "REDIS_URL not set - using in-memory storage (not persistent)")
	}
	if c.CallbackURL == "" {
		warnings = append(warnings, "GUVI_CALLBACK_URL not set - final reports will be skipped")
	}
	switch c.DetectionPolicy {
	case "per_message", "cumulative":
	default:
		issues = append(issues, fmt.Sprintf("DETECTION_POLICY %q is not one of per_message, cumulative", c.DetectionPolicy))
	}
	switch c.StoreBackend {
	case "auto", "memory", "redis", "postgres":
	default:
		issues = append(issues, fmt.Sprintf("STORE_BACKEND %q is not one of auto, memory, redis, postgres", c.StoreBackend))
	}
	if c.DetectionThreshold <= 0 {
		issues = append(issues, "SCAM_DETECTION_THRESHOLD must be positive")
	}
	if c.MinMessagesForCallback <= 0 {
		issues = append(issues, "MIN_MESSAGES_FOR_CALLBACK must be positive")
	}

	return Status{
		Valid:    len(issues) == 0,
		Issues:   issues,
		Warnings: warnings,
		Summary: map[string]any{
			"api_key_set":               c.APIKey != "" && c.APIKey != DefaultAPIKey,
			"gemini_key_set":            c.GeminiAPIKey != "",
			"anthropic_key_set":         c.AnthropicAPIKey != "",
			"redis_url_set":             c.RedisURL != "",
			"database_url_set":          c.DatabaseURL != "",
			"guvi_callback_url":         c.CallbackURL,
			"log_level":                 c.LogLevel,
			"scam_threshold":            c.DetectionThreshold,
			"min_messages_for_callback": c.MinMessagesForCallback,
			"detection_policy":          c.DetectionPolicy,
			"slack_alerts":              c.SlackBotToken != "" && c.SlackChannel != "",
		},
	}
}
