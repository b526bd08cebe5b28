// Package feedback turns free-text revision requests into structured edit
// directives. Structuring never fails outright: any problem degrades to the
// fallback directive that carries the reviewer's text verbatim.
package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/autosurvey/internal/llm"
	"github.com/jonathan/autosurvey/internal/prompts"
	"github.com/jonathan/autosurvey/internal/questionnaire"
	"github.com/jonathan/autosurvey/internal/schemas"
	"github.com/jonathan/autosurvey/internal/types"
	"go.uber.org/zap"
)

const stage = "feedback structuring"

var kindAliases = map[string]types.EditKind{
	"문항수정":  types.EditItemModify,
	"수정":    types.EditItemModify,
	"문항추가":  types.EditItemAdd,
	"추가":    types.EditItemAdd,
	"문항삭제":  types.EditItemDelete,
	"삭제":    types.EditItemDelete,
	"형식변경":  types.EditFormatChange,
	"순서조정":  types.EditReorder,
	"순서변경":  types.EditReorder,
	"전체재구성": types.EditFullRewrite,
	"전체수정":  types.EditFullRewrite,
}

var priorityAliases = map[string]types.Priority{
	"높음": types.PriorityHigh,
	"상":  types.PriorityHigh,
	"중간": types.PriorityMedium,
	"보통": types.PriorityMedium,
	"중":  types.PriorityMedium,
	"낮음": types.PriorityLow,
	"하":  types.PriorityLow,
}

var allAliases = map[string]bool{
	"all":   true,
	"전체":    true,
	"전체 문항": true,
	"설문 전체": true,
	"*":     true,
}

// Result is the outcome of structuring one feedback text.
type Result struct {
	Feedback types.StructuredFeedback
	// FallbackReason is set when Feedback is the fallback directive.
	FallbackReason string
}

// UsedFallback reports whether structuring degraded to the fallback directive.
func (r Result) UsedFallback() bool {
	return r.FallbackReason != ""
}

// Structurer classifies feedback with the lite model tier.
type Structurer struct {
	client llm.Client
	logger *zap.Logger
}

// NewStructurer creates a Structurer.
func NewStructurer(client llm.Client, logger *zap.Logger) *Structurer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Structurer{client: client, logger: logger}
}

// Structure classifies feedbackText against the current questionnaire.
func (s *Structurer) Structure(ctx context.Context, current, feedbackText string) Result {
	prompt, err := buildPrompt(current, feedbackText)
	if err != nil {
		return s.fallback(feedbackText, err)
	}

	raw, err := s.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return s.fallback(feedbackText, llm.AsGenerationError(stage, err))
	}

	fb, err := ParseFeedback(raw)
	if err != nil {
		return s.fallback(feedbackText, err)
	}
	if fb.Instruction == "" {
		fb.Instruction = feedbackText
	}
	applyMentionedLabels(fb, feedbackText)

	s.logger.Debug("feedback structured",
		zap.String("edit_kind", string(fb.EditKind)),
		zap.String("target_item", fb.TargetItem),
		zap.String("priority", string(fb.Priority)))
	return Result{Feedback: *fb}
}

func (s *Structurer) fallback(feedbackText string, cause error) Result {
	s.logger.Warn("feedback structuring failed, using fallback directive", zap.Error(cause))
	return Result{
		Feedback:       types.FallbackFeedback(feedbackText),
		FallbackReason: cause.Error(),
	}
}

func buildPrompt(current, feedbackText string) (string, error) {
	preamble, err := prompts.Get("feedback.json", "structure-feedback-preamble")
	if err != nil {
		return "", err
	}
	input, err := prompts.Render("feedback.json", "structure-feedback-input", map[string]string{
		"Questionnaire": current,
		"Feedback":      feedbackText,
	})
	if err != nil {
		return "", err
	}

	kinds := make([]string, len(types.AllEditKinds))
	for i, k := range types.AllEditKinds {
		kinds[i] = string(k)
	}
	priorities := []string{string(types.PriorityHigh), string(types.PriorityMedium), string(types.PriorityLow)}
	schema := llm.StructuredFeedbackSchema(preamble, kinds, priorities, types.TargetAll)
	return llm.BuildExtractionPrompt(schema, input), nil
}

// ParseFeedback decodes model output into a StructuredFeedback. Korean kind,
// priority and target names are mapped onto their ids; an unknown priority
// becomes medium.
func ParseFeedback(raw string) (*types.StructuredFeedback, error) {
	cleaned := llm.CleanJSONBlock(raw)
	if cleaned == "" {
		return nil, malformed(raw, fmt.Errorf("empty response"))
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, malformed(raw, fmt.Errorf("response is not a JSON object: %w", err))
	}

	if v, ok := fields["edit_kind"].(string); ok {
		fields["edit_kind"] = string(NormalizeKind(v))
	}
	if v, ok := fields["target_item"].(string); ok {
		fields["target_item"] = NormalizeTarget(v)
	}
	priority, _ := fields["priority"].(string)
	fields["priority"] = string(NormalizePriority(priority))
	if v, ok := fields["instruction"].(string); ok {
		fields["instruction"] = strings.TrimSpace(v)
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return nil, malformed(raw, err)
	}
	if err := schemas.Validate(schemas.StructuredFeedback, string(data)); err != nil {
		return nil, malformed(raw, err)
	}

	var fb types.StructuredFeedback
	if err := json.Unmarshal(data, &fb); err != nil {
		return nil, malformed(raw, err)
	}
	return &fb, nil
}

// NormalizeKind maps an English id, a snake_case id or a Korean name onto an
// edit kind. Unknown names are returned as given so validation rejects them.
func NormalizeKind(s string) types.EditKind {
	trimmed := strings.TrimSpace(s)
	if kind, ok := kindAliases[strings.Join(strings.Fields(trimmed), "")]; ok {
		return kind
	}
	id := strings.ToLower(trimmed)
	id = strings.NewReplacer("_", "-", " ", "-").Replace(id)
	return types.EditKind(id)
}

// NormalizePriority maps a priority name onto its id, defaulting to medium.
func NormalizePriority(s string) types.Priority {
	trimmed := strings.TrimSpace(s)
	if p, ok := priorityAliases[trimmed]; ok {
		return p
	}
	switch p := types.Priority(strings.ToLower(trimmed)); p {
	case types.PriorityHigh, types.PriorityMedium, types.PriorityLow:
		return p
	}
	return types.PriorityMedium
}

// NormalizeTarget maps whole-document targets onto the "all" sentinel and
// canonicalizes item labels.
func NormalizeTarget(s string) string {
	trimmed := strings.TrimSpace(s)
	if allAliases[strings.ToLower(trimmed)] {
		return types.TargetAll
	}
	if labels := questionnaire.SplitTargets(trimmed); len(labels) > 0 {
		return strings.Join(labels, ", ")
	}
	return trimmed
}

// applyMentionedLabels makes labels written in the feedback text win over a
// model target that disagrees with them.
func applyMentionedLabels(fb *types.StructuredFeedback, feedbackText string) {
	if fb.EditKind == types.EditFullRewrite {
		return
	}
	mentioned := questionnaire.MentionedLabels(feedbackText)
	if len(mentioned) == 0 {
		return
	}
	known := make(map[string]bool, len(mentioned))
	for _, l := range mentioned {
		known[l] = true
	}
	targets := questionnaire.SplitTargets(fb.TargetItem)
	agrees := len(targets) > 0
	for _, t := range targets {
		if !known[t] {
			agrees = false
			break
		}
	}
	if !agrees {
		fb.TargetItem = strings.Join(mentioned, ", ")
	}
}

func malformed(raw string, cause error) error {
	return &llm.MalformedResponseError{Stage: stage, Raw: raw, Cause: cause}
}
