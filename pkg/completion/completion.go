// Package completion provides text-completion providers for the
// retrieval gate's slow path and HyDE. It mirrors the constructor and
// error-wrapping style of pkg/embedder's Ollama/OpenAI providers, built
// on the same github.com/tmc/langchaingo client types.
package completion

import "context"

// Request is a single completion call.
type Request struct {
	Prompt    string
	MaxTokens int
}

// Response is a completion result.
type Response struct {
	Text string
}

// Provider MUST tolerate failure: callers (gate, HyDE) treat an error as
// "no completion available" and degrade gracefully rather than aborting.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
