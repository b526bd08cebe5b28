package types

import "time"

// VersionEntry is one immutable questionnaire version in a session's history.
type VersionEntry struct {
	Version       int       `json:"version"`
	Questionnaire string    `json:"questionnaire"`
	CreatedAt     time.Time `json:"created_at"`
}
