package completion

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIProvider implements Provider using OpenAI or an OpenAI-compatible
// chat completion API.
type OpenAIProvider struct {
	client *openai.LLM
	model  string
}

// NewOpenAIProvider creates a provider backed by OpenAI or a compatible
// endpoint (baseURL optional).
func NewOpenAIProvider(apiKey, baseURL, model string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return &OpenAIProvider{client: client, model: model}, nil
}

func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Response, error) {
	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, p.client, req.Prompt, opts...)
	if err != nil {
		return Response{}, fmt.Errorf("openai completion failed: %w", err)
	}
	return Response{Text: text}, nil
}
