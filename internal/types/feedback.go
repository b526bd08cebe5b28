package types

import (
	"github.com/go-playground/validator/v10"
)

// EditKind classifies a revision request. The set is closed.
type EditKind string

// Edit kinds
const (
	EditItemModify   EditKind = "item-modify"
	EditItemAdd      EditKind = "item-add"
	EditItemDelete   EditKind = "item-delete"
	EditFormatChange EditKind = "format-change"
	EditReorder      EditKind = "reorder"
	EditFullRewrite  EditKind = "full-rewrite"
)

// AllEditKinds lists every edit kind in display order.
var AllEditKinds = []EditKind{
	EditItemModify, EditItemAdd, EditItemDelete, EditFormatChange, EditReorder, EditFullRewrite,
}

// Valid reports whether k is one of the closed-set edit kinds.
func (k EditKind) Valid() bool {
	for _, known := range AllEditKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Structural reports whether the edit changes item numbering.
func (k EditKind) Structural() bool {
	switch k {
	case EditItemAdd, EditItemDelete, EditReorder, EditFullRewrite:
		return true
	default:
		return false
	}
}

// Priority ranks a revision request.
type Priority string

// Priorities
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TargetAll is the target_item sentinel for edits that apply to the whole questionnaire.
const TargetAll = "all"

// StructuredFeedback is the classified, targeted form of a free-text revision request.
type StructuredFeedback struct {
	EditKind    EditKind `json:"edit_kind" validate:"required,oneof=item-modify item-add item-delete format-change reorder full-rewrite"`
	TargetItem  string   `json:"target_item" validate:"required"`
	Instruction string   `json:"instruction" validate:"required"`
	Priority    Priority `json:"priority" validate:"required,oneof=high medium low"`
}

// FallbackFeedback returns the directive used when structuring fails.
// The original feedback text is kept verbatim as the instruction.
func FallbackFeedback(feedbackText string) StructuredFeedback {
	return StructuredFeedback{
		EditKind:    EditItemModify,
		TargetItem:  TargetAll,
		Instruction: feedbackText,
		Priority:    PriorityMedium,
	}
}

// TargetsAll reports whether the feedback applies to the whole questionnaire.
func (f *StructuredFeedback) TargetsAll() bool {
	return f.TargetItem == TargetAll
}

// Validate validates the StructuredFeedback using the validator.
func (f *StructuredFeedback) Validate() error {
	validate := validator.New()
	return validate.Struct(f)
}
