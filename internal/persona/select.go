package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sounak-star/ai-agent-honeypot/internal/anthropic"
)

// Provider names accepted by NewModel.
const (
	ProviderAuto      = "auto"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

type ModelOptions struct {
	Provider        string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	Sampling        Sampling
}

// NewModel builds the reply model once at startup. In auto mode Gemini wins
// over Anthropic and the absence of both keys yields Unavailable.
func NewModel(ctx context.Context, opts ModelOptions, logger *slog.Logger) (Model, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Provider {
	case ProviderNone:
		return Unavailable{}, nil

	case ProviderGemini:
		m, err := NewGeminiModel(ctx, GeminiOptions{APIKey: opts.GeminiAPIKey, Model: opts.GeminiModel, Sampling: opts.Sampling})
		if err != nil {
			return nil, err
		}
		return m, nil

	case ProviderAnthropic:
		if opts.AnthropicAPIKey == "" {
			return nil, errors.New("anthropic api key is required")
		}
		return NewAnthropicModel(anthropic.NewClient(opts.AnthropicAPIKey, opts.AnthropicModel), opts.Sampling), nil

	case ProviderAuto, "":
		if opts.GeminiAPIKey != "" {
			m, err := NewGeminiModel(ctx, GeminiOptions{APIKey: opts.GeminiAPIKey, Model: opts.GeminiModel, Sampling: opts.Sampling})
			if err == nil {
				return m, nil
			}
			logger.Error("failed to initialise gemini client", "error", err)
		}
		if opts.AnthropicAPIKey != "" {
			return NewAnthropicModel(anthropic.NewClient(opts.AnthropicAPIKey, opts.AnthropicModel), opts.Sampling), nil
		}
		logger.Warn("no reply model key provided, using fallback responses")
		return Unavailable{}, nil

	default:
		return nil, fmt.Errorf("unknown reply provider %q", opts.Provider)
	}
}
