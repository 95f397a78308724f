package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config is the configuration needed to build an Embedder. Both providers
// are plain HTTP collaborators: no in-process model binaries.
type Config struct {
	// Ollama configuration
	OllamaURL   string
	OllamaModel string

	// OpenAI configuration
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
}

// NewEmbedderFromConfig builds an Embedder from the available configuration.
// Priority: Ollama > OpenAI. Returns an error if neither is configured.
func NewEmbedderFromConfig(cfg *Config) (Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	if cfg.OllamaURL != "" {
		if cfg.OllamaModel == "" {
			return nil, fmt.Errorf("ollama URL provided but model is missing")
		}
		return NewOllamaEmbedder(cfg.OllamaURL, cfg.OllamaModel)
	}

	if cfg.OpenAIKey != "" {
		if cfg.OpenAIModel == "" {
			cfg.OpenAIModel = "text-embedding-3-large"
		}
		return NewOpenAIEmbedder(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	}

	return nil, fmt.Errorf("no valid embedder configuration found: either OLLAMA_URL or OPENAI_API_KEY must be provided")
}

// NewEmbedderFromEnv reads the embedder configuration from environment
// variables: OLLAMA_URL, OLLAMA_EMBEDDING_MODEL, OPENAI_API_KEY,
// OPENAI_API_BASE, OPENAI_EMBEDDING_MODEL.
func NewEmbedderFromEnv() (Embedder, error) {
	cfg := &Config{
		OllamaURL:     getEnv("OLLAMA_URL", ""),
		OllamaModel:   getEnv("OLLAMA_EMBEDDING_MODEL", ""),
		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_API_BASE", ""),
		OpenAIModel:   getEnv("OPENAI_EMBEDDING_MODEL", ""),
	}

	return NewEmbedderFromConfig(cfg)
}

// ValidateConfig checks that the embedder configuration is usable.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	hasOllama := cfg.OllamaURL != ""
	hasOpenAI := cfg.OpenAIKey != ""

	if !hasOllama && !hasOpenAI {
		return fmt.Errorf("at least one embedder must be configured (Ollama or OpenAI)")
	}

	if hasOllama {
		if cfg.OllamaModel == "" {
			return fmt.Errorf("ollama model is required when ollama URL is provided")
		}
		if !isValidURL(cfg.OllamaURL) {
			return fmt.Errorf("invalid ollama URL: %s", cfg.OllamaURL)
		}
	}

	if hasOpenAI {
		if cfg.OpenAIKey == "" {
			return fmt.Errorf("openai API key cannot be empty")
		}
		if cfg.OpenAIBaseURL != "" && !isValidURL(cfg.OpenAIBaseURL) {
			return fmt.Errorf("invalid openai base URL: %s", cfg.OpenAIBaseURL)
		}
	}

	return nil
}

// GetEmbedderType returns the provider name that would be used for cfg.
func GetEmbedderType(cfg *Config) string {
	if cfg == nil {
		return "none"
	}

	if cfg.OllamaURL != "" {
		return "ollama"
	}

	if cfg.OpenAIKey != "" {
		return "openai"
	}

	return "none"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func isValidURL(url string) bool {
	if url == "" {
		return false
	}
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// MainConfig is the subset of the application configuration the embedder
// factory needs to build a default embedder.
type MainConfig interface {
	GetOllamaURL() string
	GetOllamaModel() string
	GetOpenAIKey() string
	GetOpenAIURL() string
	GetOpenAIModel() string
}

// CodeMainConfig extends MainConfig with code-specific embedding model
// getters, so a specialized code embedding model can be used for code
// indexing while a different model handles documentation and conversation
// text.
type CodeMainConfig interface {
	MainConfig
	GetCodeOllamaModel() string
	GetCodeOpenAIModel() string
	HasCodeSpecificEmbedder() bool
}

// NewEmbedderFromMainConfig builds an embedder from the application's main
// configuration object.
func NewEmbedderFromMainConfig(mainCfg MainConfig) (Embedder, error) {
	if mainCfg == nil {
		return nil, fmt.Errorf("main configuration is required")
	}

	cfg := &Config{
		OllamaURL:     mainCfg.GetOllamaURL(),
		OllamaModel:   mainCfg.GetOllamaModel(),
		OpenAIKey:     mainCfg.GetOpenAIKey(),
		OpenAIBaseURL: mainCfg.GetOpenAIURL(),
		OpenAIModel:   mainCfg.GetOpenAIModel(),
	}

	return NewEmbedderFromConfig(cfg)
}

// NewCodeEmbedderFromMainConfig builds an embedder specifically for code
// indexing. If a code-specific model is configured it is used; otherwise
// this returns (nil, nil), signaling the caller to reuse the default
// embedder for code as well.
func NewCodeEmbedderFromMainConfig(mainCfg CodeMainConfig) (Embedder, error) {
	if mainCfg == nil {
		return nil, fmt.Errorf("main configuration is required")
	}

	if !mainCfg.HasCodeSpecificEmbedder() {
		return nil, nil
	}

	cfg := &Config{
		OllamaURL:     mainCfg.GetOllamaURL(),
		OllamaModel:   mainCfg.GetCodeOllamaModel(),
		OpenAIKey:     mainCfg.GetOpenAIKey(),
		OpenAIBaseURL: mainCfg.GetOpenAIURL(),
		OpenAIModel:   mainCfg.GetCodeOpenAIModel(),
	}

	return NewEmbedderFromConfig(cfg)
}
