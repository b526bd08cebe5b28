package retrieval

import (
	"testing"

	"github.com/jonathan/autosurvey/internal/types"
	"github.com/stretchr/testify/assert"
)

func vars(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "변수"
	}
	return out
}

func TestTune(t *testing.T) {
	tests := []struct {
		name      string
		itemCount string
		variables int
		want      types.RetrievalParams
	}{
		{"base", "10문항", 3, types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 1}},
		{"empty count", "", 0, types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 1}},
		{"fifty or more with five variables", "50개 이상", 5, types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 2}},
		{"sixty", "약 60개", 2, types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 2}},
		{"seventy overrides fifty", "70문항", 1, types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 3}},
		{"range uses largest figure", "50~80문항", 1, types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 3}},
		{"thousands separator", "1,000문항", 1, types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 3}},
		{"open ended without figure", "이상", 1, types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 3}},
		{"small figure with open ended phrase", "30문항 이상", 1, types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 1}},
		{"plus suffix", "50+", 1, types.RetrievalParams{SparseWeight: 0.3, DenseWeight: 0.7, ResultCount: 2}},
		{"broad topic", "10문항", 6, types.RetrievalParams{SparseWeight: 0.2, DenseWeight: 0.8, ResultCount: 1}},
		{"broad topic and seventy", "70 or more", 8, types.RetrievalParams{SparseWeight: 0.2, DenseWeight: 0.8, ResultCount: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &types.RequirementRecord{RequestedItemCount: tt.itemCount, Variables: vars(tt.variables)}
			got := Tune(record)

			assert.InDelta(t, tt.want.SparseWeight, got.SparseWeight, 1e-9)
			assert.InDelta(t, tt.want.DenseWeight, got.DenseWeight, 1e-9)
			assert.Equal(t, tt.want.ResultCount, got.ResultCount)
			assert.NoError(t, got.Validate())
		})
	}
}

func TestTune_ResultCountMonotonic(t *testing.T) {
	prev := 0
	for _, count := range []string{"5", "49", "50", "69", "70", "500"} {
		got := Tune(&types.RequirementRecord{RequestedItemCount: count}).ResultCount
		assert.GreaterOrEqual(t, got, prev, "count %s", count)
		prev = got
	}
}

func TestBuildQuery(t *testing.T) {
	record := &types.RequirementRecord{
		Purpose:            "온라인 강의 만족도 조사",
		TargetPopulation:   "대학생",
		Variables:          []string{"강의 질", "교수 피드백"},
		SpecialConstraints: "교수자 피드백 문항을 포함할 것",
	}

	assert.Equal(t,
		"대학생을(를) 대상으로 하는 설문 중 온라인 강의 만족도 조사와 관련된 예시를 찾아줘. 특히 강의 질, 교수 피드백 항목을 포함하고, 교수자 피드백 문항을 포함할 것.",
		BuildQuery(record))

	record.SpecialConstraints = "  "
	assert.Equal(t,
		"대학생을(를) 대상으로 하는 설문 중 온라인 강의 만족도 조사와 관련된 예시를 찾아줘. 특히 강의 질, 교수 피드백 항목을 포함해줘.",
		BuildQuery(record))
}

func TestBuildQuery_Deterministic(t *testing.T) {
	record := &types.RequirementRecord{Purpose: "p", TargetPopulation: "t", Variables: []string{"a", "b"}}
	assert.Equal(t, BuildQuery(record), BuildQuery(record))
}
