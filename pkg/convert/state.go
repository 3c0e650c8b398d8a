package convert

// State is the phase of a conversion session
type State int

const (
	StateIdle State = iota
	StateQuotePending
	StateQuoteReady
	StateApproving
	StateSubmitting
	StateSuccess
	StateFailed
	StateCancelled
)

var stateNames = [...]string{
	StateIdle:         "idle",
	StateQuotePending: "quote-pending",
	StateQuoteReady:   "quote-ready",
	StateApproving:    "approving",
	StateSubmitting:   "submitting",
	StateSuccess:      "success",
	StateFailed:       "failed",
	StateCancelled:    "cancelled",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// IsTerminal reports whether a submission has finished
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateCancelled
}

// busy reports whether an on-chain action is running; input changes do not
// move a busy session back to idle
func (s State) busy() bool {
	return s == StateApproving || s == StateSubmitting
}
