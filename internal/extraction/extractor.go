// Package extraction turns a free-text survey request into a RequirementRecord.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/prompts"
	"github.com/jonathan/autosurvey/internal/schemas"
	"github.com/jonathan/autosurvey/internal/types"
	"go.uber.org/zap"
)

const stage = "requirement extraction"

// keyAliases maps the Korean field names models tend to answer with onto the
// record's JSON keys.
var keyAliases = map[string]string{
	"조사목적":     "purpose",
	"조사 목적":    "purpose",
	"조사대상":     "target_population",
	"조사 대상":    "target_population",
	"주요측정변수":   "variables",
	"주요 측정 변수": "variables",
	"측정변수":     "variables",
	"요청문항수":    "requested_item_count",
	"요청 문항 수":  "requested_item_count",
	"문항수":      "requested_item_count",
	"특수요구사항":   "special_constraints",
	"특수 요구사항":  "special_constraints",
	"설문요구사항":   "special_constraints",
}

// Extractor produces requirement records with the standard model tier.
type Extractor struct {
	client llm.Client
	logger *zap.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(client llm.Client, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{client: client, logger: logger}
}

// Extract builds a RequirementRecord from raw text and mined keywords.
// Output that does not parse into the record shape yields a
// *llm.MalformedResponseError and no record.
func (e *Extractor) Extract(ctx context.Context, rawText string, keywords []string) (*types.RequirementRecord, error) {
	prompt, err := buildPrompt(rawText, keywords)
	if err != nil {
		return nil, err
	}

	raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, llm.AsGenerationError(stage, err)
	}

	record, err := ParseRecord(raw)
	if err != nil {
		e.logger.Warn("requirement extraction returned malformed output",
			zap.Error(err), zap.Int("raw_length", len(raw)))
		return nil, err
	}

	e.logger.Debug("requirement extracted",
		zap.String("purpose", record.Purpose),
		zap.Strings("variables", record.Variables),
		zap.String("requested_item_count", record.RequestedItemCount))
	return record, nil
}

func buildPrompt(rawText string, keywords []string) (string, error) {
	preamble, err := prompts.Get("extraction.json", "extract-requirements-preamble")
	if err != nil {
		return "", err
	}
	input, err := prompts.Render("extraction.json", "extract-requirements-input", map[string]string{
		"Text":     rawText,
		"Keywords": strings.Join(keywords, ", "),
	})
	if err != nil {
		return "", err
	}
	return llm.BuildExtractionPrompt(llm.RequirementRecordSchema(preamble), input), nil
}

// ParseRecord decodes model output into a RequirementRecord. Korean field
// names are accepted, a comma-separated variable string is split and a
// numeric item count is kept as text.
func ParseRecord(raw string) (*types.RequirementRecord, error) {
	cleaned := llm.CleanJSONBlock(raw)
	if cleaned == "" {
		return nil, malformed(raw, fmt.Errorf("empty response"))
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, malformed(raw, fmt.Errorf("response is not a JSON object: %w", err))
	}

	normalized := normalizeFields(fields)
	data, err := json.Marshal(normalized)
	if err != nil {
		return nil, malformed(raw, err)
	}
	if err := schemas.Validate(schemas.RequirementRecord, string(data)); err != nil {
		return nil, malformed(raw, err)
	}

	var record types.RequirementRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, malformed(raw, err)
	}
	trimRecord(&record)
	if err := record.Validate(); err != nil {
		return nil, malformed(raw, err)
	}
	return &record, nil
}

func normalizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		name := strings.TrimSpace(key)
		if alias, ok := keyAliases[name]; ok {
			name = alias
		}
		out[name] = value
	}

	if s, ok := out["variables"].(string); ok {
		out["variables"] = splitList(s)
	}
	if out["variables"] == nil {
		if _, present := out["variables"]; present {
			out["variables"] = []string{}
		}
	}
	for _, key := range []string{"requested_item_count", "special_constraints"} {
		switch v := out[key].(type) {
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case nil:
			delete(out, key)
		}
	}
	return out
}

func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '、' || r == '\n'
	})
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

func trimRecord(r *types.RequirementRecord) {
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.TargetPopulation = strings.TrimSpace(r.TargetPopulation)
	r.RequestedItemCount = strings.TrimSpace(r.RequestedItemCount)
	r.SpecialConstraints = strings.TrimSpace(r.SpecialConstraints)
	vars := make([]string, 0, len(r.Variables))
	for _, v := range r.Variables {
		if v = strings.TrimSpace(v); v != "" {
			vars = append(vars, v)
		}
	}
	r.Variables = vars
}

func malformed(raw string, cause error) error {
	return &llm.MalformedResponseError{Stage: stage, Raw: raw, Cause: cause}
}
