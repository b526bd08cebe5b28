package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// NoReferenceNote is the context text used when retrieval finds no relevant document.
const NoReferenceNote = "관련 설문지가 없습니다."

// RetrievalParams controls the breadth and weighting of hybrid retrieval.
type RetrievalParams struct {
	SparseWeight float64 `json:"sparse_weight" validate:"gte=0,lte=1"`
	DenseWeight  float64 `json:"dense_weight" validate:"gte=0,lte=1"`
	ResultCount  int     `json:"result_count" validate:"min=1"`
}

// Validate validates the RetrievalParams using the validator.
func (p *RetrievalParams) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// RetrievedContext is the summarized reference material returned by the retriever.
// NoMatch marks the "no relevant document" sentinel; it is a valid state, not an error.
type RetrievedContext struct {
	Text    string   `json:"text"`
	NoMatch bool     `json:"no_match"`
	Sources []string `json:"sources,omitempty"`
}

// NoContext returns the sentinel context for an empty or non-matching corpus.
func NoContext() RetrievedContext {
	return RetrievedContext{Text: NoReferenceNote, NoMatch: true}
}

// PromptText returns the text to place in a prompt's reference slot.
func (c RetrievedContext) PromptText() string {
	if c.NoMatch || strings.TrimSpace(c.Text) == "" {
		return NoReferenceNote
	}
	return c.Text
}
