package persona

import (
	"context"

	"github.com/Sounak-star/ai-agent-honeypot/internal/anthropic"
)

// AnthropicModel adapts the Messages API client to Model.
type AnthropicModel struct {
	client   *anthropic.Client
	sampling Sampling
}

func NewAnthropicModel(client *anthropic.Client, sampling Sampling) *AnthropicModel {
	return &AnthropicModel{client: client, sampling: sampling}
}

func (a *AnthropicModel) Name() string { return "anthropic/" + a.client.Model() }

func (a *AnthropicModel) Generate(ctx context.Context, system, prompt string) (string, error) {
	p := anthropic.Params{MaxTokens: a.sampling.MaxTokens}
	temp := a.sampling.Temperature
	p.Temperature = &temp
	if a.sampling.TopK > 0 {
		topK := a.sampling.TopK
		p.TopK = &topK
	}
	return a.client.Complete(ctx, system, []anthropic.Message{{Role: "user", Content: prompt}}, p)
}
