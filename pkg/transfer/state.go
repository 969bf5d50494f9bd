package transfer

// SessionState is the lifecycle of one protocol connection, shared by both
// ends.
type SessionState int

const (
	StateInit SessionState = iota
	StateHandshaking
	StateActive
	StateComplete
	StateFailed
)

// String returns a human-readable string representation of the session state
func (s SessionState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true once the session can no longer change state.
func (s SessionState) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

// CanTransitionTo checks if a state transition is valid
func (s SessionState) CanTransitionTo(next SessionState) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case StateInit:
		return next == StateHandshaking || next == StateFailed
	case StateHandshaking:
		return next == StateActive || next == StateFailed
	case StateActive:
		return next == StateComplete || next == StateFailed
	}
	return false
}
