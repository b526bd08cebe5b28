// Package db provides PostgreSQL access for the reference questionnaire corpus.
// Lexical search uses full-text search over a 'simple' tsvector; dense search
// uses pgvector cosine distance.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// schemaStatements create the corpus table and its indexes. The vector width
// matches the embedding model.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS reference_documents (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title TEXT NOT NULL,
		domain TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		fingerprint TEXT NOT NULL UNIQUE,
		embedding vector(%d),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, EmbeddingDimensions),
	`CREATE INDEX IF NOT EXISTS reference_documents_fts_idx
		ON reference_documents USING GIN (to_tsvector('simple', title || ' ' || content))`,
	`CREATE INDEX IF NOT EXISTS reference_documents_domain_idx ON reference_documents (domain)`,
}

// EmbeddingDimensions is the width of the embedding column.
const EmbeddingDimensions = 768

// EnsureSchema creates the corpus table if it does not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
