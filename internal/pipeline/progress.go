package pipeline

// ProgressEvent represents a state transition or notice during a session
type ProgressEvent struct {
	State    State  `json:"state"`
	Category string `json:"category"`
	Message  string `json:"message"`
	Warning  bool   `json:"warning,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when session progress occurs
type ProgressCallback func(event ProgressEvent)
