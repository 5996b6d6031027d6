package workflow

// State represents an expense claim state in the approval lifecycle
type State string

const (
	StateDraft     State = "DRAFT"
	StateSubmitted State = "SUBMITTED"
	StatePending   State = "PENDING"
	StateApproved  State = "APPROVED"
	StateRejected  State = "REJECTED"
	StatePaid      State = "PAID"
)

var validStates = map[State]bool{
	StateDraft:     true,
	StateSubmitted: true,
	StatePending:   true,
	StateApproved:  true,
	StateRejected:  true,
	StatePaid:      true,
}

var terminalStates = map[State]bool{
	StateRejected: true,
	StatePaid:     true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
