package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "조사 개요 요약\n- 목적: mock", nil
}

func (m *MockLLMClient) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return "{}", nil
}

func (m *MockLLMClient) GenerateForProfile(_ context.Context, _ string, _ string) (string, error) {
	return "", nil
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

type fakeStore struct {
	mu        sync.Mutex
	lexical   []types.ReferenceDocument
	dense     []types.ReferenceDocument
	err       error
	gotTerms  []string
	gotVector []float32
	gotLimits []int
}

func (s *fakeStore) SearchLexical(_ context.Context, terms []string, limit int) ([]types.ReferenceDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotTerms = terms
	s.gotLimits = append(s.gotLimits, limit)
	return s.lexical, s.err
}

func (s *fakeStore) SearchDense(_ context.Context, vector []float32, limit int) ([]types.ReferenceDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotVector = vector
	s.gotLimits = append(s.gotLimits, limit)
	return s.dense, nil
}

type fakeEmbedder struct {
	err error
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (e *fakeEmbedder) Close() error { return nil }

var params = types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 2}

func TestSearch_SummarizesFusedDocuments(t *testing.T) {
	store := &fakeStore{
		lexical: []types.ReferenceDocument{{ID: "1", Title: "강의평가", Domain: "교육", Content: "Q1. 강의에 만족하십니까?"}},
		dense:   []types.ReferenceDocument{{ID: "2", Title: "학생실태", Domain: "교육", Content: "SQ1. 학년은?"}},
	}
	var gotPrompt string
	client := &MockLLMClient{
		GenerateContentFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			gotPrompt = prompt
			assert.Equal(t, llm.TierStandard, tier)
			return "  조사 개요 요약\n- 목적: 강의 만족도  ", nil
		},
	}

	ctx, err := NewRetriever(store, &fakeEmbedder{}, client, nil).
		Search(context.Background(), "대학생 강의 만족도", params)

	require.NoError(t, err)
	assert.False(t, ctx.NoMatch)
	assert.Equal(t, "조사 개요 요약\n- 목적: 강의 만족도", ctx.Text)
	assert.ElementsMatch(t, []string{"강의평가", "학생실태"}, ctx.Sources)
	assert.Contains(t, gotPrompt, "[도메인: 교육] Q1. 강의에 만족하십니까?")
	assert.Contains(t, gotPrompt, "\n---\n")
	assert.Equal(t, []string{"대학생", "강의", "만족도"}, store.gotTerms)
	assert.Equal(t, []float32{1, 0, 0}, store.gotVector)
	assert.Equal(t, []int{2, 2}, store.gotLimits)
}

func TestSearch_NilStoreIsNoMatch(t *testing.T) {
	ctx, err := NewRetriever(nil, nil, &MockLLMClient{}, nil).Search(context.Background(), "q", params)

	require.NoError(t, err)
	assert.True(t, ctx.NoMatch)
	assert.Equal(t, types.NoReferenceNote, ctx.PromptText())
}

func TestSearch_EmptyCorpusIsNoMatch(t *testing.T) {
	called := false
	client := &MockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			called = true
			return "", nil
		},
	}

	ctx, err := NewRetriever(&fakeStore{}, &fakeEmbedder{}, client, nil).
		Search(context.Background(), "대학생 강의", params)

	require.NoError(t, err)
	assert.True(t, ctx.NoMatch)
	assert.False(t, called, "no summary call without hits")
}

func TestSearch_SummaryReportsNoMatch(t *testing.T) {
	store := &fakeStore{lexical: []types.ReferenceDocument{{ID: "1", Content: "무관한 문서"}}}
	client := &MockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return types.NoReferenceNote, nil
		},
	}

	ctx, err := NewRetriever(store, nil, client, nil).Search(context.Background(), "대학생 강의", params)

	require.NoError(t, err)
	assert.True(t, ctx.NoMatch)
}

func TestSearch_StoreErrorSurfaces(t *testing.T) {
	boom := errors.New("connection refused")
	store := &fakeStore{err: boom}

	_, err := NewRetriever(store, nil, &MockLLMClient{}, nil).Search(context.Background(), "대학생 강의", params)

	assert.ErrorIs(t, err, boom)
}

func TestSearch_SummaryErrorIsGenerationError(t *testing.T) {
	store := &fakeStore{lexical: []types.ReferenceDocument{{ID: "1", Content: "문서"}}}
	client := &MockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("503")
		},
	}

	_, err := NewRetriever(store, nil, client, nil).Search(context.Background(), "대학생 강의", params)

	var genErr *llm.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "reference summary", genErr.Operation)
}

func TestFormatDocuments(t *testing.T) {
	out := FormatDocuments([]ScoredDocument{
		{ReferenceDocument: types.ReferenceDocument{Domain: "교육", Content: "A"}},
		{ReferenceDocument: types.ReferenceDocument{Content: "B"}},
	})

	assert.Equal(t, "[도메인: 교육] A\n\n---\n[도메인: N/A] B\n", out)
}
