// Package transport exposes the retrieval pipeline over plain net/http:
// a CORS-aware JSON handler and a server with graceful Start/Shutdown.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/contextforge/retrieval-core/internal/assemble"
	"github.com/contextforge/retrieval-core/internal/retrieval"
	"github.com/contextforge/retrieval-core/internal/store"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
	headerCORSOrigin  = "Access-Control-Allow-Origin"
	headerCORSMethods = "Access-Control-Allow-Methods"
	headerCORSHeaders = "Access-Control-Allow-Headers"
	corsMethods       = "GET, POST, OPTIONS"
	corsOrigin        = "*"
	corsHeaders       = "Content-Type"
)

// HTTPTransport serves POST /v1/projects/{project}/query over plain HTTP.
type HTTPTransport struct {
	addr    string
	server  *http.Server
	mux     *http.ServeMux
	service *retrieval.Service
}

// NewHTTPTransport creates a new HTTP transport bound to service.
func NewHTTPTransport(addr string, service *retrieval.Service) *HTTPTransport {
	mux := http.NewServeMux()
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	t := &HTTPTransport{addr: addr, server: server, mux: mux, service: service}
	mux.HandleFunc("/health", t.handleHealth)
	mux.HandleFunc("/v1/projects/", t.handleQuery)
	return t
}

func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// queryRequest is the POST /v1/projects/{project}/query request body.
type queryRequest struct {
	Query         string   `json:"query"`
	Gate          *bool    `json:"gate,omitempty"`
	HyDE          bool     `json:"hyde,omitempty"`
	Decompose     bool     `json:"decompose,omitempty"`
	Expand        *bool    `json:"expand,omitempty"`
	IncludeTypes  []string `json:"includeTypes,omitempty"`
	MaxResults    int      `json:"maxResults,omitempty"`
	MaxTokens     int      `json:"maxTokens,omitempty"`
	MinScore      float64  `json:"minScore,omitempty"`
	Format        string   `json:"format,omitempty"`
	GroupByType   bool     `json:"groupByType,omitempty"`
	IncludeSources *bool   `json:"includeSources,omitempty"`
}

type queryResponse struct {
	Context    string           `json:"context"`
	Sources    []assemble.Source `json:"sources,omitempty"`
	Confidence float64          `json:"confidence"`
	TokensUsed int              `json:"tokensUsed"`
	Truncated  bool             `json:"truncated"`
}

// handleQuery parses /v1/projects/{project}/query and runs the pipeline.
func (t *HTTPTransport) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		t.setCORSHeaders(w)
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	projectID, ok := parseProjectID(r.URL.Path)
	if !ok {
		http.Error(w, "expected /v1/projects/{project}/query", http.StatusNotFound)
		return
	}

	t.setCORSHeaders(w)
	w.Header().Set(headerContentType, contentTypeJSON)

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("failed to decode query request", "error", err)
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	opts := retrieval.DefaultOptions()
	applyOverrides(&opts, req)

	result, err := t.service.QueryContext(r.Context(), projectID, req.Query, opts)
	if err != nil {
		slog.Error("query context failed", "project", projectID, "error", err)
		http.Error(w, fmt.Sprintf("query failed: %v", err), http.StatusInternalServerError)
		return
	}

	resp := queryResponse{
		Context:    result.Context,
		Sources:    result.Sources,
		Confidence: result.Confidence,
		TokensUsed: result.TokensUsed,
		Truncated:  result.Truncated,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode query response", "error", err)
	}
}

func applyOverrides(opts *retrieval.Options, req queryRequest) {
	if req.Gate != nil {
		opts.Gate = *req.Gate
	}
	opts.HyDE = req.HyDE
	opts.Decompose = req.Decompose
	if req.Expand != nil {
		opts.Expand = *req.Expand
	}
	if req.IncludeSources != nil {
		opts.IncludeSources = *req.IncludeSources
	}
	if req.MaxResults > 0 {
		opts.MaxResults = req.MaxResults
	}
	if req.MaxTokens > 0 {
		opts.MaxTokens = req.MaxTokens
	}
	if req.MinScore > 0 {
		opts.MinScore = req.MinScore
	}
	if req.Format != "" {
		opts.Format = assemble.Format(req.Format)
	}
	opts.GroupByType = req.GroupByType
	if len(req.IncludeTypes) > 0 {
		types := make([]store.EntityType, len(req.IncludeTypes))
		for i, t := range req.IncludeTypes {
			types[i] = store.EntityType(t)
		}
		opts.IncludeTypes = types
	}
}

// parseProjectID extracts {project} from /v1/projects/{project}/query.
func parseProjectID(path string) (string, bool) {
	const prefix = "/v1/projects/"
	const suffix = "/query"
	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	if id == "" {
		return "", false
	}
	return id, true
}

func (t *HTTPTransport) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set(headerCORSOrigin, corsOrigin)
	w.Header().Set(headerCORSMethods, corsMethods)
	w.Header().Set(headerCORSHeaders, corsHeaders)
}

// Start starts the HTTP server.
func (t *HTTPTransport) Start() error {
	slog.Info("starting HTTP transport server", "address", t.addr)
	return t.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (t *HTTPTransport) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP transport server")
	return t.server.Shutdown(ctx)
}
