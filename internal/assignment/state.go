package assignment

import "time"

// CanTransition reports whether the state machine permits from -> to.
// Legal edges:
//
//	PENDING  -> ACCEPTED | REJECTED | CANCELED
//	ACCEPTED -> COMPLETED | CANCELED
//
// COMPLETED is reachable only through a prior accept. Terminal states
// have no outgoing edges.
func CanTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateAccepted || to == StateRejected || to == StateCanceled
	case StateAccepted:
		return to == StateCompleted || to == StateCanceled
	}
	return false
}

// transition applies to onto a, stamping UpdatedAt and, on the first
// referee response, ResponseAt. Returns ErrInvalidTransition for
// illegal edges instead of mutating.
func (a *Assignment) transition(to State, comment string, now time.Time) error {
	if !CanTransition(a.State, to) {
		return ErrInvalidTransition
	}
	a.State = to
	a.UpdatedAt = now
	if (to == StateAccepted || to == StateRejected) && a.ResponseAt == nil {
		ts := now
		a.ResponseAt = &ts
	}
	if comment != "" {
		a.Comment = comment
	}
	return nil
}
