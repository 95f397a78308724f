// Package main is the entry point for retrievalctl: either a one-shot CLI
// query or an HTTP JSON API server exposing the retrieval pipeline. It
// loads config, builds a root context with graceful shutdown, and runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contextforge/retrieval-core/internal/config"
	"github.com/contextforge/retrieval-core/internal/gate"
	"github.com/contextforge/retrieval-core/internal/query"
	"github.com/contextforge/retrieval-core/internal/retrieval"
	"github.com/contextforge/retrieval-core/internal/store"
	"github.com/contextforge/retrieval-core/internal/store/surreal"
	"github.com/contextforge/retrieval-core/internal/transport"
	"github.com/contextforge/retrieval-core/pkg/completion"
	"github.com/contextforge/retrieval-core/pkg/embedder"
	"github.com/spf13/pflag"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.SetupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "error configuring logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	emb, err := embedder.NewEmbedderFromMainConfig(cfg)
	if err != nil {
		log.Fatalf("failed to build embedder: %v", err)
	}

	var completionProvider completion.Provider
	if cfg.OllamaChatModel != "" {
		completionProvider, err = completion.NewOllamaProvider(cfg.OllamaURL, cfg.OllamaChatModel)
		if err != nil {
			log.Fatalf("failed to build completion provider: %v", err)
		}
	}

	synonyms, err := query.DefaultSynonymTable()
	if err != nil {
		log.Fatalf("failed to load synonym table: %v", err)
	}
	if cfg.SynonymOverridePath != "" {
		if err := synonyms.MergeOverrideFile(cfg.SynonymOverridePath); err != nil {
			log.Fatalf("failed to load synonym overrides: %v", err)
		}
	}

	db, err := surreal.Connect(ctx, surreal.Config{
		URL:       cfg.SurrealDBURL,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		Namespace: cfg.GetSurrealDBNamespace(),
		Database:  cfg.GetSurrealDBDatabase(),
	}, slog.Default())
	if err != nil {
		log.Fatalf("failed to connect to surrealdb: %v", err)
	}

	registry := store.NewNameRegistry()
	projectStore := func(projectID string) (store.ProjectStore, error) {
		if err := registry.Register(projectID); err != nil {
			return store.ProjectStore{}, err
		}
		s := surreal.New(db, projectID, slog.Default())
		if err := s.InitSchema(ctx); err != nil {
			return store.ProjectStore{}, fmt.Errorf("init schema for project %q: %w", projectID, err)
		}
		return s.ProjectStore(), nil
	}

	service := retrieval.New(retrieval.Deps{
		ProjectStore:       projectStore,
		Embedder:           emb,
		CompletionProvider: completionProvider,
		GateOpts: gate.Opts{
			Provider: completionProvider,
			CacheTTL: cfg.GateCacheTTL,
			Disabled: cfg.GateDisabled,
		},
		SynonymTable: synonyms,
	})

	if cfg.HTTP {
		runHTTP(ctx, cfg, service)
		return
	}

	runCLIQuery(ctx, service)
}

// runHTTP serves the retrieval pipeline until ctx is cancelled.
func runHTTP(ctx context.Context, cfg *config.Config, service *retrieval.Service) {
	t := transport.NewHTTPTransport(cfg.HTTPAddr, service)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = t.Shutdown(shutdownCtx)
	}()

	if err := t.Start(); err != nil {
		log.Fatalf("http transport error: %v", err)
	}
}

// runCLIQuery runs a single query from the remaining command-line
// arguments: retrievalctl <project> <query text...>.
func runCLIQuery(ctx context.Context, service *retrieval.Service) {
	args := pflag.Args()
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: retrievalctl <project> <query text...>")
		os.Exit(1)
	}

	projectID := args[0]
	queryText := args[1]
	for _, a := range args[2:] {
		queryText += " " + a
	}

	result, err := service.QueryContext(ctx, projectID, queryText, retrieval.DefaultOptions())
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("failed to encode result: %v", err)
	}
}
