package generation

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateForProfileFunc func(ctx context.Context, prompt string, profile string) (string, error)
}

func (m *MockLLMClient) GenerateContent(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return "{}", nil
}

func (m *MockLLMClient) GenerateForProfile(ctx context.Context, prompt string, profile string) (string, error) {
	if m.GenerateForProfileFunc != nil {
		return m.GenerateForProfileFunc(ctx, prompt, profile)
	}
	return "### 응답자 특성 문항\nSQ1. 성별?\n- ① 남\n- ② 여\n\n### 본 문항\nQ1. 만족?\n- ① 예\n- ② 아니오\n", nil
}

func (m *MockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

var record = &types.RequirementRecord{
	Purpose:            "소방장비 운영 실태 파악",
	TargetPopulation:   "소방공무원",
	Variables:          []string{"운영 실태", "관리 체계"},
	RequestedItemCount: "10문항",
}

func TestGenerate_UsesProfileAndContext(t *testing.T) {
	var gotPrompt, gotProfile string
	client := &MockLLMClient{
		GenerateForProfileFunc: func(_ context.Context, prompt string, profile string) (string, error) {
			gotPrompt, gotProfile = prompt, profile
			return "```markdown\n### 응답자 특성 문항\nSQ1. 계급은?\n- ① 소방사\n\n### 본 문항\nQ1. 장비 관리가 적절합니까?\n- ① 예\n```", nil
		},
	}

	draft, err := NewGenerator(client, nil).Generate(context.Background(), record,
		types.RetrievedContext{Text: "조사 개요 요약\n- 목적: 장비 실태"}, "autosurvey-public")

	require.NoError(t, err)
	assert.Equal(t, "autosurvey-public", gotProfile)
	assert.Contains(t, gotPrompt, "소방공무원")
	assert.Contains(t, gotPrompt, "운영 실태, 관리 체계")
	assert.Contains(t, gotPrompt, "조사 개요 요약")
	assert.Contains(t, gotPrompt, "설문 요구사항:\n없음")
	assert.Equal(t, "### 응답자 특성 문항\nSQ1. 계급은?\n- ① 소방사\n\n### 본 문항\nQ1. 장비 관리가 적절합니까?\n- ① 예\n", draft)
}

func TestGenerate_NoContextNote(t *testing.T) {
	var gotPrompt string
	client := &MockLLMClient{
		GenerateForProfileFunc: func(_ context.Context, prompt string, _ string) (string, error) {
			gotPrompt = prompt
			return "Q1. 질문\n", nil
		},
	}

	_, err := NewGenerator(client, nil).Generate(context.Background(), record, types.NoContext(), "general-purpose")

	require.NoError(t, err)
	assert.Contains(t, gotPrompt, types.NoReferenceNote)
}

func TestGenerate_NoItemsIsMalformed(t *testing.T) {
	client := &MockLLMClient{
		GenerateForProfileFunc: func(_ context.Context, _ string, _ string) (string, error) {
			return "설문지를 생성할 수 없습니다.", nil
		},
	}

	draft, err := NewGenerator(client, nil).Generate(context.Background(), record, types.NoContext(), "general-purpose")

	assert.Empty(t, draft)
	var malformed *llm.MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, "draft generation", malformed.Stage)
}

func TestGenerate_CallErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		timeout bool
	}{
		{"failure", errors.New("model overloaded"), false},
		{"timeout", &llm.TimeoutError{Operation: "generate for profile general-purpose"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockLLMClient{
				GenerateForProfileFunc: func(_ context.Context, _ string, _ string) (string, error) {
					return "", tt.err
				},
			}

			_, err := NewGenerator(client, nil).Generate(context.Background(), record, types.NoContext(), "general-purpose")

			require.Error(t, err)
			assert.Equal(t, tt.timeout, llm.IsTimeout(err))
		})
	}
}
