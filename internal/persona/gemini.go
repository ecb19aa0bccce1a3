package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Sampling settings shared by every provider.
type Sampling struct {
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
}

// DefaultSampling favours natural variation in short replies.
var DefaultSampling = Sampling{Temperature: 0.9, TopP: 0.95, TopK: 40, MaxTokens: 150}

// GeminiModel generates replies through the Gemini API.
type GeminiModel struct {
	client   *genai.Client
	model    string
	sampling Sampling
}

// GeminiOptions configures NewGeminiModel. BaseURL is only set in tests.
type GeminiOptions struct {
	APIKey   string
	Model    string
	Sampling Sampling
	BaseURL  string
}

func NewGeminiModel(ctx context.Context, opts GeminiOptions) (*GeminiModel, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if opts.Model == "" {
		opts.Model = "gemini-1.5-flash"
	}

	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: opts.Model, sampling: opts.Sampling}, nil
}

func (g *GeminiModel) Name() string { return "gemini/" + g.model }

func (g *GeminiModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.sampling.Temperature)),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}
	if g.sampling.TopP > 0 {
		config.TopP = genai.Ptr(float32(g.sampling.TopP))
	}
	if g.sampling.TopK > 0 {
		config.TopK = genai.Ptr(float32(g.sampling.TopK))
	}
	if g.sampling.MaxTokens > 0 {
		config.MaxOutputTokens = int32(g.sampling.MaxTokens)
	}

	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
