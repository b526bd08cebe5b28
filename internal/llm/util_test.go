package llm

import (
	"testing"
)

func TestCleanJSONBlock_MarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "code block with language",
			input:    "```javascript\n{\"key\": \"value\"}\n```",
			expected: `{"key": "value"}`,
		},
		{
			name:     "plain JSON",
			input:    `{"key": "value"}`,
			expected: `{"key": "value"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestCleanJSONBlock_PreambleText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "preamble before JSON object",
			input:    "As requested, here is the JSON:\n{\"purpose\": \"만족도\"}",
			expected: `{"purpose": "만족도"}`,
		},
		{
			name:     "conversational preamble",
			input:    "요청하신 피드백을 분석했습니다. 결과는 다음과 같습니다:\n\n{\"edit_kind\": \"item-modify\", \"target_item\": \"Q3\"}",
			expected: `{"edit_kind": "item-modify", "target_item": "Q3"}`,
		},
		{
			name:     "preamble with multiple sentences",
			input:    "I read the request. It targets students. Here is the result: {\"variables\": [\"satisfaction\"]}",
			expected: `{"variables": ["satisfaction"]}`,
		},
		{
			name:     "preamble before JSON array",
			input:    "Here are the items:\n[\"Q1\", \"Q2\"]",
			expected: `["Q1", "Q2"]`,
		},
		{
			name:     "JSON with trailing text",
			input:    "{\"key\": \"value\"}\n\nLet me know if you need anything else!",
			expected: `{"key": "value"}`,
		},
		{
			name:     "nested objects",
			input:    "Output:\n{\"outer\": {\"inner\": \"value\"}}",
			expected: `{"outer": {"inner": "value"}}`,
		},
		{
			name:     "JSON with escaped quotes",
			input:    "Result: {\"message\": \"He said \\\"hello\\\"\"}",
			expected: `{"message": "He said \"hello\""}`,
		},
		{
			name:     "deeply nested",
			input:    "Here: {\"a\": {\"b\": {\"c\": {\"d\": \"deep\"}}}}",
			expected: `{"a": {"b": {"c": {"d": "deep"}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanJSONBlock(tt.input)
			if result != tt.expected {
				t.Errorf("CleanJSONBlock() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple object",
			input:    `{"key": "value"}`,
			expected: `{"key": "value"}`,
		},
		{
			name:     "nested objects",
			input:    `{"outer": {"inner": "value"}}`,
			expected: `{"outer": {"inner": "value"}}`,
		},
		{
			name:     "object with array",
			input:    `{"items": [1, 2, 3]}`,
			expected: `{"items": [1, 2, 3]}`,
		},
		{
			name:     "object with trailing text",
			input:    `{"key": "value"} and some more text`,
			expected: `{"key": "value"}`,
		},
		{
			name:     "string with braces inside",
			input:    `{"instruction": "Q3의 {척도}를 바꿔줘"}`,
			expected: `{"instruction": "Q3의 {척도}를 바꿔줘"}`,
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "not starting with brace",
			input:    "not json",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractJSONObject(tt.input)
			if result != tt.expected {
				t.Errorf("extractJSONObject() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple array",
			input:    `["a", "b", "c"]`,
			expected: `["a", "b", "c"]`,
		},
		{
			name:     "nested arrays",
			input:    `[[1, 2], [3, 4]]`,
			expected: `[[1, 2], [3, 4]]`,
		},
		{
			name:     "array of objects",
			input:    `[{"id": 1}, {"id": 2}]`,
			expected: `[{"id": 1}, {"id": 2}]`,
		},
		{
			name:     "array with trailing text",
			input:    `[1, 2, 3] extra stuff`,
			expected: `[1, 2, 3]`,
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "not starting with bracket",
			input:    "not array",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractJSONArray(tt.input)
			if result != tt.expected {
				t.Errorf("extractJSONArray() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestCleanJSONBlock_FencedWithPreamble(t *testing.T) {
	input := "Here you go:\n```json\n{\"domain\": \"education\"}\n```"
	// Fence not at start: preamble is skipped and the object extracted
	if got := CleanJSONBlock(input); got != `{"domain": "education"}` {
		t.Errorf("CleanJSONBlock() = %q", got)
	}
}

func TestCleanJSONBlock_NoJSON(t *testing.T) {
	if got := CleanJSONBlock("  no structured output  "); got != "no structured output" {
		t.Errorf("CleanJSONBlock() = %q", got)
	}
}

func TestCleanJSONBlock_Unbalanced(t *testing.T) {
	// Truncated output is returned as-is so the caller's decoder reports it
	input := `{"purpose": "x"`
	if got := CleanJSONBlock(input); got != input {
		t.Errorf("CleanJSONBlock() = %q", got)
	}
}

func TestCleanTextBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Q1. a\n", "Q1. a"},
		{"bare fence", "```\nQ1. a\n```", "Q1. a"},
		{"language tag", "```markdown\n### 본 문항\nQ1. a\n```\n", "### 본 문항\nQ1. a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanTextBlock(tt.input); got != tt.expected {
				t.Errorf("CleanTextBlock() = %q, want %q", got, tt.expected)
			}
		})
	}
}
