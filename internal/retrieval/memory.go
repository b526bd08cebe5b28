package retrieval

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/autosurvey/internal/db"
	"github.com/jonathan/autosurvey/internal/keywords"
	"github.com/jonathan/autosurvey/internal/types"
)

// MemoryStore is an in-process Store for small corpora loaded at startup.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   []types.ReferenceDocument
	tokens []map[string]bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add appends documents. Documents without an embedding are only reachable by
// lexical search.
func (s *MemoryStore) Add(docs ...types.ReferenceDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		s.add(doc)
	}
}

func (s *MemoryStore) add(doc types.ReferenceDocument) {
	set := make(map[string]bool)
	for _, tok := range keywords.Tokenize(doc.Title + " " + doc.Content) {
		set[tok] = true
	}
	s.docs = append(s.docs, doc)
	s.tokens = append(s.tokens, set)
}

// GetReferenceByFingerprint returns the stored document with fingerprint, or
// nil when there is none.
func (s *MemoryStore) GetReferenceByFingerprint(_ context.Context, fingerprint string) (*types.ReferenceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.docs {
		if s.docs[i].Fingerprint == fingerprint {
			doc := s.docs[i]
			return &doc, nil
		}
	}
	return nil, nil
}

// UpsertReference adds a document, replacing one with the same fingerprint.
// It lets the ingestion indexer fill a MemoryStore when no database is configured.
func (s *MemoryStore) UpsertReference(_ context.Context, input *db.ReferenceInput) (*types.ReferenceDocument, error) {
	doc := types.ReferenceDocument{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Domain:      input.Domain,
		Content:     input.Content,
		Fingerprint: input.Fingerprint,
		Embedding:   input.Embedding,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].Fingerprint == input.Fingerprint {
			doc.ID = s.docs[i].ID
			s.docs = append(s.docs[:i], s.docs[i+1:]...)
			s.tokens = append(s.tokens[:i], s.tokens[i+1:]...)
			break
		}
	}
	s.add(doc)
	return &doc, nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// SearchLexical ranks documents by the number of distinct terms they contain.
func (s *MemoryStore) SearchLexical(_ context.Context, terms []string, limit int) ([]types.ReferenceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		idx   int
		score int
	}
	var hits []hit
	for i, set := range s.tokens {
		score := 0
		seen := make(map[string]bool, len(terms))
		for _, term := range terms {
			if set[term] && !seen[term] {
				seen[term] = true
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{idx: i, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	return s.collect(len(hits), limit, func(i int) int { return hits[i].idx }), nil
}

// SearchDense ranks embedded documents by cosine similarity to vector.
func (s *MemoryStore) SearchDense(_ context.Context, vector []float32, limit int) ([]types.ReferenceDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type hit struct {
		idx   int
		score float64
	}
	var hits []hit
	for i, doc := range s.docs {
		if len(doc.Embedding) == 0 || len(doc.Embedding) != len(vector) {
			continue
		}
		hits = append(hits, hit{idx: i, score: cosine(vector, doc.Embedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	return s.collect(len(hits), limit, func(i int) int { return hits[i].idx }), nil
}

func (s *MemoryStore) collect(n, limit int, index func(int) int) []types.ReferenceDocument {
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]types.ReferenceDocument, n)
	for i := 0; i < n; i++ {
		out[i] = s.docs[index(i)]
	}
	return out
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
