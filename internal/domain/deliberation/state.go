package deliberation

// Status is the workflow state of a deliberation run. Transitions are
// one-directional; a run that fails to collect enough opinions terminates
// in StatusBlockedIncomplete and the only retry is a fresh run.
type Status string

const (
	StatusProposed          Status = "PROPOSED"
	StatusReviewing         Status = "REVIEWING"
	StatusSynthesized       Status = "SYNTHESIZED"
	StatusDecided           Status = "DECIDED"
	StatusPersisted         Status = "PERSISTED"
	StatusBlockedIncomplete Status = "BLOCKED_INCOMPLETE"
)

var transitions = map[Status][]Status{
	StatusProposed:    {StatusReviewing},
	StatusReviewing:   {StatusSynthesized, StatusBlockedIncomplete},
	StatusSynthesized: {StatusDecided},
	StatusDecided:     {StatusPersisted},
}

// CanTransition reports whether from -> to is a legal state change.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}
