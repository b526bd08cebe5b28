// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "RequirementRecord")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint rendered into the prompt
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
	Enum        []string
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("다음 구조와 정확히 일치하는 JSON만 반환하세요:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (필수)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if len(field.Enum) > 0 {
			sb.WriteString(fmt.Sprintf(" [허용 값: %s]", strings.Join(field.Enum, ", ")))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("주의:\n")
	sb.WriteString("- 입력에 없는 내용은 지어내지 말고 빈 문자열로 두세요.\n")
	sb.WriteString("- 마크다운, 설명, 코드 블록 없이 JSON 객체만 반환하세요.\n\n")

	sb.WriteString("입력:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// --- Predefined Schemas ---

// RequirementRecordSchema returns the extraction schema for free-form survey requests.
func RequirementRecordSchema(preamble string) ExtractionSchema {
	return ExtractionSchema{
		Name:        "RequirementRecord",
		Description: preamble,
		Fields: []SchemaField{
			{
				Name:        "purpose",
				Description: "조사 목적",
				Required:    true,
			},
			{
				Name:        "target_population",
				Description: "조사 대상 응답자",
				Required:    true,
			},
			{
				Name:        "variables",
				Type:        "[\"string\"]",
				Description: "측정하려는 주요 변수, 언급된 순서대로",
				Required:    true,
			},
			{
				Name:        "requested_item_count",
				Description: "요청된 문항 수 표현을 그대로 (예: \"50개 이상\")",
			},
			{
				Name:        "special_constraints",
				Description: "기타 특별 요청사항",
			},
		},
	}
}

// StructuredFeedbackSchema returns the extraction schema for reviewer feedback.
func StructuredFeedbackSchema(preamble string, editKinds, priorities []string, targetAll string) ExtractionSchema {
	return ExtractionSchema{
		Name:        "StructuredFeedback",
		Description: preamble,
		Fields: []SchemaField{
			{
				Name:        "edit_kind",
				Description: "수정 유형",
				Required:    true,
				Enum:        editKinds,
			},
			{
				Name:        "target_item",
				Description: fmt.Sprintf("대상 문항 번호 (예: Q3, SQ2). 설문 전체가 대상이면 \"%s\"", targetAll),
				Required:    true,
			},
			{
				Name:        "instruction",
				Description: "구체적인 수정 지시",
				Required:    true,
			},
			{
				Name:        "priority",
				Description: "우선순위",
				Required:    true,
				Enum:        priorities,
			},
		},
	}
}
