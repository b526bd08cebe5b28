package db

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/autosurvey/internal/types"
	"github.com/pgvector/pgvector-go"
)

// ReferenceInput holds the fields for inserting or updating a reference document
type ReferenceInput struct {
	Title       string
	Domain      string
	Content     string
	Fingerprint string
	Embedding   []float32
}

// UpsertReference inserts a reference document, or updates the document with
// the same fingerprint.
func (db *DB) UpsertReference(ctx context.Context, input *ReferenceInput) (*types.ReferenceDocument, error) {
	var embedding any
	if len(input.Embedding) > 0 {
		if len(input.Embedding) != EmbeddingDimensions {
			return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(input.Embedding), EmbeddingDimensions)
		}
		embedding = pgvector.NewVector(input.Embedding)
	}

	var id uuid.UUID
	doc := types.ReferenceDocument{
		Title:       input.Title,
		Domain:      input.Domain,
		Content:     input.Content,
		Fingerprint: input.Fingerprint,
		Embedding:   input.Embedding,
	}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO reference_documents (title, domain, content, fingerprint, embedding)
		 VALUES ($1, $2, $3, $4, $5::vector)
		 ON CONFLICT (fingerprint) DO UPDATE SET
		     title = $1,
		     domain = $2,
		     content = $3,
		     embedding = COALESCE($5::vector, reference_documents.embedding),
		     updated_at = NOW()
		 RETURNING id, created_at`,
		input.Title, input.Domain, input.Content, input.Fingerprint, embedding,
	).Scan(&id, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert reference document: %w", err)
	}

	doc.ID = id.String()
	return &doc, nil
}

// GetReferenceByFingerprint retrieves a reference document by content fingerprint.
// Returns nil when no document matches.
func (db *DB) GetReferenceByFingerprint(ctx context.Context, fingerprint string) (*types.ReferenceDocument, error) {
	var id uuid.UUID
	var doc types.ReferenceDocument
	err := db.pool.QueryRow(ctx,
		`SELECT id, title, domain, content, fingerprint, created_at
		 FROM reference_documents WHERE fingerprint = $1`,
		fingerprint,
	).Scan(&id, &doc.Title, &doc.Domain, &doc.Content, &doc.Fingerprint, &doc.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reference document: %w", err)
	}
	doc.ID = id.String()
	return &doc, nil
}

// CountReferences returns the number of documents in the corpus.
func (db *DB) CountReferences(ctx context.Context) (int, error) {
	var count int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reference_documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reference documents: %w", err)
	}
	return count, nil
}

// DeleteReference removes a reference document by ID.
func (db *DB) DeleteReference(ctx context.Context, id string) error {
	docID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid reference id %q: %w", id, err)
	}
	if _, err := db.pool.Exec(ctx, `DELETE FROM reference_documents WHERE id = $1`, docID); err != nil {
		return fmt.Errorf("failed to delete reference document: %w", err)
	}
	return nil
}

// SearchLexical returns documents matching any term by prefix, ranked by ts_rank.
func (db *DB) SearchLexical(ctx context.Context, terms []string, limit int) ([]types.ReferenceDocument, error) {
	query := BuildTSQuery(terms)
	if query == "" {
		return nil, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, title, domain, content
		 FROM reference_documents
		 WHERE to_tsvector('simple', title || ' ' || content) @@ to_tsquery('simple', $1)
		 ORDER BY ts_rank(to_tsvector('simple', title || ' ' || content), to_tsquery('simple', $1)) DESC, created_at
		 LIMIT $2`,
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run lexical search: %w", err)
	}
	return scanReferences(rows)
}

// SearchDense returns the embedded documents nearest to vector by cosine distance.
func (db *DB) SearchDense(ctx context.Context, vector []float32, limit int) ([]types.ReferenceDocument, error) {
	if len(vector) == 0 {
		return nil, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, title, domain, content
		 FROM reference_documents
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`,
		pgvector.NewVector(vector), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run dense search: %w", err)
	}
	return scanReferences(rows)
}

func scanReferences(rows pgx.Rows) ([]types.ReferenceDocument, error) {
	defer rows.Close()

	var docs []types.ReferenceDocument
	for rows.Next() {
		var id uuid.UUID
		var doc types.ReferenceDocument
		if err := rows.Scan(&id, &doc.Title, &doc.Domain, &doc.Content); err != nil {
			return nil, fmt.Errorf("failed to scan reference document: %w", err)
		}
		doc.ID = id.String()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reference documents: %w", err)
	}
	return docs, nil
}

// BuildTSQuery renders terms as an OR-joined prefix tsquery. Characters other
// than letters and digits are dropped so user text cannot inject operators.
func BuildTSQuery(terms []string) string {
	var parts []string
	seen := make(map[string]bool)
	for _, term := range terms {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, term)
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		parts = append(parts, cleaned+":*")
	}
	return strings.Join(parts, " | ")
}
