package assignment

import (
	"errors"
	"time"

	"refpay.org/internal/catalog"
)

// Role is the duty a referee performs at one match.
type Role string

const (
	RoleFirstReferee  Role = "FIRST_REFEREE"
	RoleSecondReferee Role = "SECOND_REFEREE"
	RoleThirdReferee  Role = "THIRD_REFEREE"
	RoleAnnotator     Role = "ANNOTATOR"
	RoleTimekeeper    Role = "TIMEKEEPER"
	RoleOperator24    Role = "OPERATOR_24"
)

// Roles lists every role in a fixed order, used for deterministic
// iteration over per-role aggregates.
var Roles = []Role{
	RoleFirstReferee,
	RoleSecondReferee,
	RoleThirdReferee,
	RoleAnnotator,
	RoleTimekeeper,
	RoleOperator24,
}

// ParseRole validates a wire value.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleFirstReferee, RoleSecondReferee, RoleThirdReferee,
		RoleAnnotator, RoleTimekeeper, RoleOperator24:
		return Role(s), nil
	}
	return "", ErrValidation
}

// RoleSpecialty returns the specialty a role demands: the three
// on-court roles need FIELD, the three table-side roles need TABLE.
func RoleSpecialty(r Role) catalog.Specialty {
	switch r {
	case RoleFirstReferee, RoleSecondReferee, RoleThirdReferee:
		return catalog.SpecialtyField
	default:
		return catalog.SpecialtyTable
	}
}

// State is the assignment lifecycle state. PENDING is initial;
// REJECTED, COMPLETED and CANCELED are terminal. CANCELED records a
// match called off from under the referee, distinct from the referee
// declining.
type State string

const (
	StatePending   State = "PENDING"
	StateAccepted  State = "ACCEPTED"
	StateRejected  State = "REJECTED"
	StateCompleted State = "COMPLETED"
	StateCanceled  State = "CANCELED"
)

// ParseState validates a wire value.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePending, StateAccepted, StateRejected, StateCompleted, StateCanceled:
		return State(s), nil
	}
	return "", ErrValidation
}

// Terminal reports whether no further transition may leave s.
func (s State) Terminal() bool {
	switch s {
	case StateRejected, StateCompleted, StateCanceled:
		return true
	}
	return false
}

// Assignment pairs one referee with one match in one role and carries
// its own acceptance lifecycle. State changes only through Service
// transitions.
type Assignment struct {
	ID         string     `json:"id"`
	MatchID    string     `json:"match_id"`
	RefereeID  string     `json:"referee_id"`
	Role       Role       `json:"role"`
	State      State      `json:"state"`
	ResponseAt *time.Time `json:"response_at,omitempty"`
	Comment    string     `json:"comment,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

var (
	ErrNotFound          = errors.New("assignment: not found")
	ErrValidation        = errors.New("assignment: validation failed")
	ErrInvalidTransition = errors.New("assignment: invalid state transition")
	ErrScheduleConflict  = errors.New("assignment: referee schedule conflict")
)

// MatchWindow is how long a match is assumed to occupy a referee from
// its scheduled start, for the overlap check in BulkAssign.
const MatchWindow = 2 * time.Hour
