// Package surreal is the production store: it implements every interface
// in internal/store against a remote SurrealDB instance, using the
// project's sanitized id as the table-name prefix. It always dials a
// remote SurrealDB endpoint over the wire driver; there is no embedded or
// in-process database mode.
package surreal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/contextforge/retrieval-core/internal/store"
)

// Config configures the connection to a remote SurrealDB instance.
type Config struct {
	URL       string
	Username  string
	Password  string
	Namespace string
	Database  string
	Timeout   time.Duration
}

// Store is a project-scoped handle over one shared SurrealDB connection.
// Every table name it touches is prefixed with the project's sanitized
// id, so many projects can share one namespace/database safely.
type Store struct {
	db        *surrealdb.DB
	projectID string
	logger    *slog.Logger
}

// Connect dials SurrealDB, authenticates, and selects the configured
// namespace/database. The caller is responsible for calling Close.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*surrealdb.DB, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "retrieval"
	}
	if cfg.Database == "" {
		cfg.Database = "retrieval"
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to surrealdb", "url", cfg.URL, "namespace", cfg.Namespace, "database", cfg.Database)

	db, err := surrealdb.New(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to surrealdb: %w", err)
	}

	if cfg.Username != "" && cfg.Password != "" {
		if _, err := db.SignIn(map[string]interface{}{"user": cfg.Username, "pass": cfg.Password}); err != nil {
			return nil, fmt.Errorf("authenticate with surrealdb: %w", err)
		}
	}

	if err := db.Use(cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("select surrealdb namespace/database: %w", err)
	}

	return db, nil
}

// New returns a project-scoped Store over an already-connected db.
func New(db *surrealdb.DB, projectID string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, projectID: projectID, logger: logger}
}

// table returns the project-prefixed name for a logical table.
func (s *Store) table(logical string) string {
	return store.TableName(s.projectID, logical)
}

// ProjectStore bundles this Store's four interface implementations the
// way memstore.ProjectStore does, so callers can swap backends freely.
func (s *Store) ProjectStore() store.ProjectStore {
	return store.ProjectStore{
		Entities:      (*entityStore)(s),
		Relationships: (*relationshipStore)(s),
		Embeddings:    (*embeddingIndex)(s),
		Feedback:      (*feedbackStore)(s),
	}
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	_, err := surrealdb.Query[[]map[string]interface{}](s.db, "SELECT 1", nil)
	return err
}
