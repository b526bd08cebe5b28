package pipeline

// State is a position in the session state machine.
type State string

// States
const (
	StateIdle            State = "idle"
	StateExtracting      State = "extracting"
	StateRetrieving      State = "retrieving"
	StateClassifying     State = "classifying"
	StateGenerating      State = "generating"
	StateDrafted         State = "drafted"
	StateFeedbackPending State = "feedback_pending"
	StateRevising        State = "revising"
	StateApproved        State = "approved"
)

// transitions lists the states reachable from each state. Reset is allowed
// from anywhere and is not listed.
var transitions = map[State][]State{
	StateIdle:            {StateExtracting},
	StateExtracting:      {StateRetrieving, StateIdle},
	StateRetrieving:      {StateClassifying, StateIdle},
	StateClassifying:     {StateGenerating, StateIdle},
	StateGenerating:      {StateDrafted, StateIdle},
	StateDrafted:         {StateFeedbackPending, StateApproved},
	StateFeedbackPending: {StateRevising, StateDrafted},
	StateRevising:        {StateDrafted},
	StateApproved:        {},
}

// CanTransition reports whether the machine may move from one state to another.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Busy reports whether a collaborator call is running in this state.
func (s State) Busy() bool {
	switch s {
	case StateExtracting, StateRetrieving, StateClassifying, StateGenerating, StateFeedbackPending, StateRevising:
		return true
	default:
		return false
	}
}

// Category groups a state by the stage of work it belongs to.
func (s State) Category() string {
	switch s {
	case StateExtracting:
		return CategoryAnalysis
	case StateRetrieving, StateClassifying:
		return CategoryRetrieval
	case StateGenerating, StateDrafted:
		return CategoryDrafting
	case StateFeedbackPending, StateRevising:
		return CategoryRevision
	default:
		return CategorySession
	}
}

// Progress categories
const (
	CategoryAnalysis  = "analysis"
	CategoryRetrieval = "retrieval"
	CategoryDrafting  = "drafting"
	CategoryRevision  = "revision"
	CategorySession   = "session"
)
