package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/autosurvey/internal/keywords"
	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/prompts"
	"github.com/jonathan/autosurvey/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Store is the corpus index the retriever searches.
type Store interface {
	// SearchLexical returns documents matching any of terms, best first.
	SearchLexical(ctx context.Context, terms []string, limit int) ([]types.ReferenceDocument, error)
	// SearchDense returns the documents nearest to vector, best first.
	SearchDense(ctx context.Context, vector []float32, limit int) ([]types.ReferenceDocument, error)
}

// Retriever runs hybrid search and summarizes the hits into a RetrievedContext.
type Retriever struct {
	store    Store
	embedder llm.Embedder
	client   llm.Client
	logger   *zap.Logger
}

// NewRetriever creates a Retriever. A nil store behaves as an empty corpus;
// a nil embedder disables dense search.
func NewRetriever(store Store, embedder llm.Embedder, client llm.Client, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{store: store, embedder: embedder, client: client, logger: logger}
}

// Search retrieves reference questionnaires for query. An empty corpus or no
// hits yields the no-match context, never an error.
func (r *Retriever) Search(ctx context.Context, query string, params types.RetrievalParams) (types.RetrievedContext, error) {
	if r.store == nil {
		return types.NoContext(), nil
	}

	docs, err := r.hybridSearch(ctx, query, params)
	if err != nil {
		return types.RetrievedContext{}, err
	}
	if len(docs) == 0 {
		r.logger.Info("no reference documents matched", zap.String("query", query))
		return types.NoContext(), nil
	}

	prompt, err := prompts.Render("retrieval.json", "summarize-references", map[string]string{
		"Query":     query,
		"Documents": FormatDocuments(docs),
		"NoMatch":   types.NoReferenceNote,
	})
	if err != nil {
		return types.RetrievedContext{}, err
	}

	summary, err := r.client.GenerateContent(ctx, prompt, llm.TierStandard)
	if err != nil {
		return types.RetrievedContext{}, llm.AsGenerationError("reference summary", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" || strings.Contains(summary, types.NoReferenceNote) {
		return types.NoContext(), nil
	}

	sources := make([]string, len(docs))
	for i, doc := range docs {
		sources[i] = doc.Title
	}
	return types.RetrievedContext{Text: summary, Sources: sources}, nil
}

func (r *Retriever) hybridSearch(ctx context.Context, query string, params types.RetrievalParams) ([]ScoredDocument, error) {
	var lexical, dense []types.ReferenceDocument
	terms := keywords.Tokenize(query)

	g, gctx := errgroup.WithContext(ctx)
	if len(terms) > 0 {
		g.Go(func() error {
			docs, err := r.store.SearchLexical(gctx, terms, params.ResultCount)
			if err != nil {
				return fmt.Errorf("lexical search failed: %w", err)
			}
			lexical = docs
			return nil
		})
	}
	if r.embedder != nil {
		g.Go(func() error {
			vectors, err := r.embedder.Embed(gctx, []string{query})
			if err != nil {
				return fmt.Errorf("query embedding failed: %w", err)
			}
			if len(vectors) == 0 {
				return nil
			}
			docs, err := r.store.SearchDense(gctx, vectors[0], params.ResultCount)
			if err != nil {
				return fmt.Errorf("dense search failed: %w", err)
			}
			dense = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := Fuse(lexical, dense, params, params.ResultCount)
	r.logger.Debug("hybrid search complete",
		zap.Int("lexical_hits", len(lexical)),
		zap.Int("dense_hits", len(dense)),
		zap.Int("fused", len(fused)))
	return fused, nil
}

// FormatDocuments renders hits for the summary prompt, tagging each with its domain.
func FormatDocuments(docs []ScoredDocument) string {
	formatted := make([]string, len(docs))
	for i, doc := range docs {
		domain := doc.Domain
		if domain == "" {
			domain = "N/A"
		}
		formatted[i] = fmt.Sprintf("[도메인: %s] %s\n", domain, doc.Content)
	}
	return strings.Join(formatted, "\n---\n")
}
