// Package persona produces the honeypot's in-character replies. A model is
// asked first and a canned fallback is used whenever it cannot answer.
package persona

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Sounak-star/ai-agent-honeypot/internal/metrics"
	"github.com/Sounak-star/ai-agent-honeypot/internal/session"
)

// ErrUnavailable is returned by models that are not configured.
var ErrUnavailable = errors.New("reply model unavailable")

// Accepted model replies are strictly longer than minReplyLen and strictly
// shorter than maxReplyLen characters.
const (
	minReplyLen = 10
	maxReplyLen = 500
)

// Model is a text generator the persona can drive.
type Model interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Unavailable is the model used when no provider is configured.
type Unavailable struct{}

func (Unavailable) Name() string { return "none" }

func (Unavailable) Generate(context.Context, string, string) (string, error) {
	return "", ErrUnavailable
}

type Generator struct {
	model   Model
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewGenerator wraps model. A nil model behaves like Unavailable and a
// non-positive timeout leaves the caller's deadline in charge.
func NewGenerator(model Model, timeout time.Duration, logger *slog.Logger, m *metrics.Metrics) *Generator {
	if model == nil {
		model = Unavailable{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{model: model, timeout: timeout, logger: logger, metrics: m}
}

// ModelName reports which provider backs the generator.
func (g *Generator) ModelName() string {
	return g.model.Name()
}

// Generate always returns a reply. Model failures, timeouts and out-of-range
// replies fall back to the canned list.
func (g *Generator) Generate(ctx context.Context, latest string, history []session.Message) string {
	fallback := Fallback(len(history))

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(latest, history)
	g.logger.Debug("generating reply", "model", g.model.Name(), "prompt_len", len(prompt))

	reply, err := g.model.Generate(ctx, systemPrompt, prompt)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			g.logger.Debug("no reply model configured, using fallback")
		} else {
			g.logger.Warn("reply generation failed, using fallback", "model", g.model.Name(), "error", err)
		}
		g.metrics.Reply(metrics.ReplyFallback)
		return fallback
	}

	reply = strings.TrimSpace(reply)
	if n := utf8.RuneCountInString(reply); n <= minReplyLen || n >= maxReplyLen {
		g.logger.Warn("generated reply out of range, using fallback", "model", g.model.Name(), "length", n)
		g.metrics.Reply(metrics.ReplyFallback)
		return fallback
	}

	g.metrics.Reply(metrics.ReplyModel)
	return reply
}
