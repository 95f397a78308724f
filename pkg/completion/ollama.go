package completion

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaProvider implements Provider using a local Ollama server.
type OllamaProvider struct {
	client *ollama.LLM
	model  string
}

// NewOllamaProvider creates a provider backed by an Ollama server.
// url: Ollama server URL (e.g. "http://localhost:11434").
// model: chat/completion model name (e.g. "llama3.1").
func NewOllamaProvider(url, model string) (*OllamaProvider, error) {
	if url == "" {
		return nil, fmt.Errorf("ollama URL is required")
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model name is required")
	}

	client, err := ollama.New(
		ollama.WithServerURL(url),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{client: client, model: model}, nil
}

func (p *OllamaProvider) Complete(ctx context.Context, req Request) (Response, error) {
	var opts []llms.CallOption
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	text, err := llms.GenerateFromSinglePrompt(ctx, p.client, req.Prompt, opts...)
	if err != nil {
		return Response{}, fmt.Errorf("ollama completion failed: %w", err)
	}
	return Response{Text: text}, nil
}
