package config

import "testing"

func TestCodeEmbedderGetters(t *testing.T) {
	cfg := &Config{
		OllamaModel: "nomic-embed-text",
		OpenAIModel: "text-embedding-3-large",
	}

	if got := cfg.GetCodeOllamaModel(); got != "nomic-embed-text" {
		t.Errorf("GetCodeOllamaModel() = %q, want %q", got, "nomic-embed-text")
	}
	if got := cfg.GetCodeOpenAIModel(); got != "text-embedding-3-large" {
		t.Errorf("GetCodeOpenAIModel() = %q, want %q", got, "text-embedding-3-large")
	}
	if cfg.HasCodeSpecificEmbedder() {
		t.Error("HasCodeSpecificEmbedder() = true, want false")
	}
}

func TestCodeEmbedderGettersWithOverrides(t *testing.T) {
	cfg := &Config{
		OllamaModel:     "nomic-embed-text",
		OpenAIModel:     "text-embedding-3-large",
		CodeOllamaModel: "jina/jina-embeddings-v2-base-code",
		CodeOpenAIModel: "text-embedding-3-small",
	}

	if got := cfg.GetCodeOllamaModel(); got != "jina/jina-embeddings-v2-base-code" {
		t.Errorf("GetCodeOllamaModel() = %q, want %q", got, "jina/jina-embeddings-v2-base-code")
	}
	if got := cfg.GetCodeOpenAIModel(); got != "text-embedding-3-small" {
		t.Errorf("GetCodeOpenAIModel() = %q, want %q", got, "text-embedding-3-small")
	}
	if !cfg.HasCodeSpecificEmbedder() {
		t.Error("HasCodeSpecificEmbedder() = false, want true")
	}
}

func TestCodeEmbedderGettersPartialOverride(t *testing.T) {
	cfg := &Config{
		OllamaModel:     "nomic-embed-text",
		OpenAIModel:     "text-embedding-3-large",
		CodeOllamaModel: "jina/jina-embeddings-v2-base-code",
	}

	if got := cfg.GetCodeOllamaModel(); got != "jina/jina-embeddings-v2-base-code" {
		t.Errorf("GetCodeOllamaModel() = %q, want %q", got, "jina/jina-embeddings-v2-base-code")
	}
	if got := cfg.GetCodeOpenAIModel(); got != "text-embedding-3-large" {
		t.Errorf("GetCodeOpenAIModel() = %q, want %q", got, "text-embedding-3-large")
	}
	if !cfg.HasCodeSpecificEmbedder() {
		t.Error("HasCodeSpecificEmbedder() = false, want true")
	}
}

func TestValidateRequiresSurrealDBURL(t *testing.T) {
	cfg := &Config{OllamaModel: "nomic-embed-text"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error when SurrealDBURL is empty")
	}

	cfg.SurrealDBURL = "ws://localhost:8000/rpc"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateRequiresAnEmbedder(t *testing.T) {
	cfg := &Config{SurrealDBURL: "ws://localhost:8000/rpc"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error when no embedder is configured")
	}
}
