package questionnaire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in      string
		section Section
		number  int
		ok      bool
	}{
		{"Q3", SectionCore, 3, true},
		{"sq1", SectionRespondent, 1, true},
		{" Q 12 ", SectionCore, 12, true},
		{"Q03", SectionCore, 3, true},
		{"Q0", "", 0, false},
		{"all", "", 0, false},
		{"전체", "", 0, false},
		{"Q", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			section, number, ok := ParseLabel(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.section, section)
			assert.Equal(t, tt.number, number)
		})
	}
}

func TestMentionedLabels(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single korean", "Q3을 7점 척도로 바꿔주세요", []string{"Q3"}},
		{"respondent", "SQ1 다음에 연령 문항을 추가해주세요", []string{"SQ1"}},
		{"several", "q2와 Q5, 그리고 Q2를 삭제", []string{"Q2", "Q5"}},
		{"spaced", "Q 4 문항 보기 수정", []string{"Q4"}},
		{"none", "전체적으로 더 구체적으로 써주세요", nil},
		{"embedded word", "FAQ1 is not a label", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MentionedLabels(tt.text))
		})
	}
}

func TestSplitTargets(t *testing.T) {
	assert.Equal(t, []string{"Q3"}, SplitTargets("Q3"))
	assert.Equal(t, []string{"Q3", "SQ2"}, SplitTargets("Q3, sq2"))
	assert.Nil(t, SplitTargets("all"))
	assert.Nil(t, SplitTargets("Q3, 전체"))
	assert.Nil(t, SplitTargets(""))
}
