package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/autosurvey/internal/db"
	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Defaults for Indexer batching.
const (
	DefaultBatchSize   = 16
	DefaultConcurrency = 4
)

// Store is the corpus index the Indexer writes to.
type Store interface {
	GetReferenceByFingerprint(ctx context.Context, fingerprint string) (*types.ReferenceDocument, error)
	UpsertReference(ctx context.Context, input *db.ReferenceInput) (*types.ReferenceDocument, error)
}

// Summary counts the outcome of an indexing run.
type Summary struct {
	Loaded   int `json:"loaded"`
	Skipped  int `json:"skipped"`
	Upserted int `json:"upserted"`
}

// Indexer embeds documents and upserts them into a Store.
type Indexer struct {
	store       Store
	embedder    llm.Embedder
	logger      *zap.Logger
	batchSize   int
	concurrency int
	// Force re-embeds documents whose fingerprint is already stored.
	Force bool
}

// NewIndexer creates an Indexer. A nil embedder stores documents for lexical
// search only.
func NewIndexer(store Store, embedder llm.Embedder, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		store:       store,
		embedder:    embedder,
		logger:      logger,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
	}
}

// Index stores docs. Batches are embedded concurrently.
func (ix *Indexer) Index(ctx context.Context, docs []Document) (Summary, error) {
	summary := Summary{Loaded: len(docs)}

	pending := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if !ix.Force {
			existing, err := ix.store.GetReferenceByFingerprint(ctx, doc.Fingerprint)
			if err != nil {
				return summary, fmt.Errorf("failed to check %s: %w", doc.Path, err)
			}
			if existing != nil {
				summary.Skipped++
				continue
			}
		}
		pending = append(pending, doc)
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(ix.concurrency)
	for start := 0; start < len(pending); start += ix.batchSize {
		end := min(start+ix.batchSize, len(pending))
		batch := pending[start:end]
		g.Go(func() error {
			n, err := ix.indexBatch(gCtx, batch)
			mu.Lock()
			summary.Upserted += n
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	ix.logger.Info("corpus indexed",
		zap.Int("loaded", summary.Loaded),
		zap.Int("skipped", summary.Skipped),
		zap.Int("upserted", summary.Upserted))
	return summary, nil
}

func (ix *Indexer) indexBatch(ctx context.Context, batch []Document) (int, error) {
	var vectors [][]float32
	if ix.embedder != nil {
		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.Title + "\n" + doc.Content
		}
		var err error
		vectors, err = ix.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed batch starting at %s: %w", batch[0].Path, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(batch))
		}
	}

	for i, doc := range batch {
		input := &db.ReferenceInput{
			Title:       doc.Title,
			Domain:      doc.Domain,
			Content:     doc.Content,
			Fingerprint: doc.Fingerprint,
		}
		if vectors != nil {
			input.Embedding = vectors[i]
		}
		if _, err := ix.store.UpsertReference(ctx, input); err != nil {
			return i, fmt.Errorf("failed to store %s: %w", doc.Path, err)
		}
		ix.logger.Debug("reference stored", zap.String("path", doc.Path), zap.String("domain", doc.Domain))
	}
	return len(batch), nil
}
