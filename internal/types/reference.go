package types

import "time"

// ReferenceDocument is one questionnaire in the retrieval corpus.
type ReferenceDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Domain      string    `json:"domain"`
	Content     string    `json:"content"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Embedding   []float32 `json:"-"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}
