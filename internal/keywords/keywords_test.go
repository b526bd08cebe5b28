package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_RanksByFrequency(t *testing.T) {
	text := "대학생을 대상으로 온라인 강의 만족도를 조사하고자 합니다. 강의 질과 교수자의 피드백, 강의 만족도를 평가합니다."

	got := NewExtractor(3).Extract(text)

	assert.Equal(t, []string{"강의", "만족도", "대학생"}, got)
}

func TestExtract_EmptyAndStopwordOnly(t *testing.T) {
	e := NewExtractor(0)

	assert.Empty(t, e.Extract(""))
	assert.Empty(t, e.Extract("   \n\t "))
	assert.Empty(t, e.Extract("조사 설문 대상 !!!"))
	assert.NotNil(t, e.Extract(""), "empty result is a list, not nil")
}

func TestExtract_DefaultCount(t *testing.T) {
	text := "가나 다라 마바 사아 자차 카타 파하 거너 더러 머버 서어 저처"

	got := NewExtractor(0).Extract(text)

	assert.Len(t, got, DefaultCount)
	assert.Equal(t, "가나", got[0])
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "particles stripped",
			text: "소방공무원을 대상으로 장비의 운영",
			want: []string{"소방공무원", "대상", "장비", "운영"},
		},
		{
			name: "punctuation and latin lowercased",
			text: "NPS(순추천지수)와 CSAT!",
			want: []string{"nps", "순추천지수", "csat"},
		},
		{
			name: "single rune tokens dropped",
			text: "a 나 10 Q3",
			want: []string{"10", "q3"},
		},
		{
			name: "short stem keeps whole token",
			text: "질을",
			want: []string{"질을"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}
