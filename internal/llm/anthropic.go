package llm

import (
	"context"

	"github.com/sells-group/prospect-research/pkg/anthropic"
)

type anthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates the Anthropic provider. SDK retries are
// disabled; Client handles retry.
func NewAnthropicProvider(apiKey, baseURL string) Provider {
	opts := []anthropic.Option{anthropic.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &anthropicProvider{client: anthropic.NewClient(apiKey, opts...)}
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Complete(ctx context.Context, model, prompt string, opts Options) (string, error) {
	temp := opts.Temperature
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       model,
		MaxTokens:   int64(opts.MaxTokens),
		System:      opts.System,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", withStatus(err, anthropic.StatusCode(err))
	}
	resp.Usage.LogCost(model, "analysis")
	return resp.Text(), nil
}
