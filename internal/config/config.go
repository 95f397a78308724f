// Package config holds the configuration for the retrieval-core server.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/contextforge/retrieval-core/pkg/version"
)

// Config holds the configuration for the retrieval-core server.
type Config struct {
	// HTTP exposes POST /v1/projects/{project}/query.
	HTTP     bool   `mapstructure:"http"`
	HTTPAddr string `mapstructure:"http-addr"`

	// SurrealDB connection.
	SurrealDBURL       string `mapstructure:"surrealdb-url"`
	SurrealDBUser      string `mapstructure:"surrealdb-user"`
	SurrealDBPass      string `mapstructure:"surrealdb-pass"`
	SurrealDBNamespace string `mapstructure:"surrealdb-namespace"`
	SurrealDBDatabase  string `mapstructure:"surrealdb-database"`

	// Ollama embedding/completion configuration
	OllamaURL       string `mapstructure:"ollama-url"`
	OllamaModel     string `mapstructure:"ollama-model"`
	OllamaChatModel string `mapstructure:"ollama-chat-model"`
	// OpenAI-compatible embedding/completion configuration
	OpenAIKey   string `mapstructure:"openai-key"`
	OpenAIURL   string `mapstructure:"openai-url"`
	OpenAIModel string `mapstructure:"openai-model"`
	// Code-specific embedding model configuration: lets code entities be
	// embedded with a different model than documentation/conversation text.
	CodeOllamaModel string `mapstructure:"code-ollama-model"`
	CodeOpenAIModel string `mapstructure:"code-openai-model"`

	// Chunking configuration for embeddings
	ChunkSize    int `mapstructure:"chunk-size"`
	ChunkOverlap int `mapstructure:"chunk-overlap"`

	// Retrieval pipeline tuning.
	GateCacheTTL       time.Duration `mapstructure:"gate-cache-ttl"`
	GateDisabled       bool          `mapstructure:"gate-disabled"`
	MaxResults         int           `mapstructure:"max-results"`
	MaxContextTokens   int           `mapstructure:"max-context-tokens"`
	MinScore           float64       `mapstructure:"min-score"`
	SynonymOverridePath string       `mapstructure:"synonym-override-path"`

	LogFile string `mapstructure:"log"`
	// When true, disables all logging output to stdout/stderr.
	DisableOutputLog bool `mapstructure:"disable-output-log"`
}

// Load loads the configuration from CLI flags and environment variables.
func Load() (*Config, error) {
	pflag.String("config", "", "Path to YAML configuration file")

	pflag.Bool("http", false, "Enable HTTP JSON API transport")
	pflag.String("http-addr", ":8080", "Address to bind HTTP transport (host:port), can also be set via RETRIEVAL_HTTP_ADDR")

	pflag.String("surrealdb-url", "", "URL for the remote SurrealDB instance")
	pflag.String("surrealdb-user", "root", "Username for SurrealDB")
	pflag.String("surrealdb-pass", "root", "Password for SurrealDB")
	pflag.String("surrealdb-namespace", "retrieval", "Namespace for SurrealDB")
	pflag.String("surrealdb-database", "retrieval", "Database for SurrealDB")

	pflag.String("ollama-url", "http://localhost:11434", "URL for the Ollama server")
	pflag.String("ollama-model", "", "Ollama model to use for embeddings")
	pflag.String("ollama-chat-model", "", "Ollama model to use for completion (gate slow path, HyDE)")
	pflag.String("openai-key", "", "OpenAI API key")
	pflag.String("openai-url", "https://api.openai.com/v1", "OpenAI base URL")
	pflag.String("openai-model", "text-embedding-3-large", "OpenAI model to use for embeddings")
	pflag.String("code-ollama-model", "", "Ollama model to use for code embeddings")
	pflag.String("code-openai-model", "", "OpenAI model to use for code embeddings")

	pflag.Int("chunk-size", 800, "Maximum chunk size in characters for text splitting")
	pflag.Int("chunk-overlap", 100, "Overlap between chunks in characters")

	pflag.Duration("gate-cache-ttl", 5*time.Minute, "TTL for the retrieval gate's slow-path decision cache (0 disables caching)")
	pflag.Bool("gate-disabled", false, "Disable the retrieval gate (always retrieve)")
	pflag.Int("max-results", 20, "Maximum number of results assembled into context")
	pflag.Int("max-context-tokens", 4000, "Token budget for assembled context")
	pflag.Float64("min-score", 0.1, "Minimum relevance score for a candidate to be included")
	pflag.String("synonym-override-path", "", "Path to a YAML file of synonym-group overrides")

	pflag.String("log", "", "Path to the log file (logs will be written to both stdout and file)")
	pflag.Bool("disable-output-log", false, "Disable logging to stdout/stderr; only write to log file if configured")

	flag.Bool("version", false, "Print version and exit")
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Parse()

	if ver := pflag.Lookup("version"); ver != nil && ver.Value.String() == "true" {
		fmt.Println(version.Describe())
		os.Exit(0)
	}

	v := viper.New()

	configPath := pflag.Lookup("config").Value.String()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFound := false

		if homeDir, err := os.UserHomeDir(); err == nil {
			var standardConfigPath string

			if runtime.GOOS == "darwin" {
				standardConfigPath = filepath.Join(homeDir, "Library", "Application Support", "retrieval-core", "config.yaml")
			} else {
				standardConfigPath = filepath.Join(homeDir, ".config", "retrieval-core", "config.yaml")
			}

			if _, err := os.Stat(standardConfigPath); err == nil {
				v.SetConfigFile(standardConfigPath)
				if err := v.ReadInConfig(); err == nil {
					configFound = true
					slog.Info("using configuration file from standard location", "path", standardConfigPath)
				}
			}
		}

		if !configFound {
			slog.Info("no configuration file found, using environment variables and defaults")
		}
	}

	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, fmt.Errorf("failed to bind pflags: %w", err)
	}

	v.SetEnvPrefix("RETRIEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.OllamaModel == "" && c.OpenAIKey == "" {
		return errors.New("at least one embedder (Ollama or OpenAI) must be configured")
	}

	if c.SurrealDBURL == "" {
		return errors.New("a SurrealDB URL must be provided")
	}

	return nil
}

// GetOllamaURL returns the Ollama server URL.
func (c *Config) GetOllamaURL() string {
	return c.OllamaURL
}

// GetOllamaModel returns the Ollama embedding model name.
func (c *Config) GetOllamaModel() string {
	return c.OllamaModel
}

// GetOpenAIKey returns the OpenAI API key.
func (c *Config) GetOpenAIKey() string {
	return c.OpenAIKey
}

// GetOpenAIURL returns the OpenAI base URL.
func (c *Config) GetOpenAIURL() string {
	return c.OpenAIURL
}

// GetOpenAIModel returns the OpenAI embedding model name.
func (c *Config) GetOpenAIModel() string {
	return c.OpenAIModel
}

// GetCodeOllamaModel returns the Ollama model for code embeddings.
// If not set, returns the default Ollama model.
func (c *Config) GetCodeOllamaModel() string {
	if c.CodeOllamaModel != "" {
		return c.CodeOllamaModel
	}
	return c.OllamaModel
}

// GetCodeOpenAIModel returns the OpenAI model for code embeddings.
// If not set, returns the default OpenAI model.
func (c *Config) GetCodeOpenAIModel() string {
	if c.CodeOpenAIModel != "" {
		return c.CodeOpenAIModel
	}
	return c.OpenAIModel
}

// HasCodeSpecificEmbedder returns true if a code-specific embedding model is configured.
func (c *Config) HasCodeSpecificEmbedder() bool {
	return c.CodeOllamaModel != "" || c.CodeOpenAIModel != ""
}

// GetChunkSize returns the chunk size for text splitting.
func (c *Config) GetChunkSize() int {
	if c.ChunkSize <= 0 {
		return 800
	}
	return c.ChunkSize
}

// GetChunkOverlap returns the overlap between chunks.
func (c *Config) GetChunkOverlap() int {
	if c.ChunkOverlap < 0 {
		return 100
	}
	return c.ChunkOverlap
}

// GetSurrealDBNamespace returns the SurrealDB namespace.
func (c *Config) GetSurrealDBNamespace() string {
	if c.SurrealDBNamespace == "" {
		return "retrieval"
	}
	return c.SurrealDBNamespace
}

// GetSurrealDBDatabase returns the SurrealDB database.
func (c *Config) GetSurrealDBDatabase() string {
	if c.SurrealDBDatabase == "" {
		return "retrieval"
	}
	return c.SurrealDBDatabase
}

// Getenv reads an environment variable or returns a default value.
func Getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SetupLogging configures slog output.
func (c *Config) SetupLogging() error {
	var writers []io.Writer

	if !c.DisableOutputLog {
		writers = append(writers, os.Stdout)
	}

	if c.LogFile != "" {
		logFile, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", c.LogFile, err)
		}
		writers = append(writers, logFile)
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	multiWriter := io.MultiWriter(writers...)

	handler := slog.NewTextHandler(multiWriter, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: false,
	})

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return nil
}
