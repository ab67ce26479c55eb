package assignment

import (
	"context"
	"sort"
	"sync"
	"time"

	"refpay.org/internal/catalog"
	"refpay.org/internal/ids"
	"refpay.org/internal/period"
)

// Service owns assignment records and enforces the lifecycle state
// machine. Mutations are atomic per assignment; BulkAssign and
// CancelAll are atomic per match.
type Service interface {
	BulkAssign(ctx context.Context, matchID string, refereeIDs []string, roles []Role) ([]Assignment, error)
	Accept(ctx context.Context, id, comment string) (Assignment, error)
	Reject(ctx context.Context, id, comment string) (Assignment, error)
	Complete(ctx context.Context, id string) (Assignment, error)
	CancelAll(ctx context.Context, matchID string) ([]Assignment, error)

	FindByID(ctx context.Context, id string) (Assignment, error)
	FindByMatch(ctx context.Context, matchID string) ([]Assignment, error)
	FindByReferee(ctx context.Context, refereeID string) ([]Assignment, error)
	FindByRefereeAndState(ctx context.Context, refereeID string, state State) ([]Assignment, error)
	FindByRefereeAndMonth(ctx context.Context, refereeID string, month period.Month) ([]Assignment, error)
	CountByState(ctx context.Context, state State) (int, error)
}

// InMemory implements Service with in-process concurrency safety.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[string]*Assignment
	catalog catalog.Store
	now     func() time.Time
}

var _ Service = (*InMemory)(nil)

// NewInMemory creates an empty registry backed by the given catalog.
func NewInMemory(cat catalog.Store) *InMemory {
	return &InMemory{
		byID:    make(map[string]*Assignment),
		catalog: cat,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source. Only intended for test use.
func (s *InMemory) SetClock(now func() time.Time) { s.now = now }

// BulkAssign replaces the match's assignment set with fresh PENDING
// assignments pairing refereeIDs[i] with roles[i]. The whole batch is
// validated before anything is written; a failure leaves the previous
// set intact.
func (s *InMemory) BulkAssign(ctx context.Context, matchID string, refereeIDs []string, roles []Role) ([]Assignment, error) {
	if len(refereeIDs) != len(roles) || len(refereeIDs) == 0 {
		return nil, ErrValidation
	}
	for _, r := range roles {
		if _, err := ParseRole(string(r)); err != nil {
			return nil, ErrValidation
		}
	}
	seen := make(map[string]struct{}, len(refereeIDs))
	for _, id := range refereeIDs {
		if id == "" {
			return nil, ErrValidation
		}
		if _, dup := seen[id]; dup {
			return nil, ErrValidation
		}
		seen[id] = struct{}{}
	}

	match, err := s.catalog.GetMatch(ctx, matchID)
	if err != nil {
		return nil, ErrNotFound
	}

	referees := make([]catalog.Referee, len(refereeIDs))
	for i, id := range refereeIDs {
		ref, err := s.catalog.GetReferee(ctx, id)
		if err != nil {
			return nil, ErrNotFound
		}
		if !ref.Active {
			return nil, ErrValidation
		}
		if !ref.Specialty.Covers(RoleSpecialty(roles[i])) {
			return nil, ErrValidation
		}
		referees[i] = ref
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range refereeIDs {
		if err := s.conflictLocked(ctx, id, match); err != nil {
			return nil, err
		}
	}

	// Replace: the previous set for this match goes away unconditionally.
	for id, a := range s.byID {
		if a.MatchID == matchID {
			delete(s.byID, id)
		}
	}

	now := s.now()
	created := make([]Assignment, 0, len(refereeIDs))
	for i, refID := range refereeIDs {
		a := &Assignment{
			ID:        ids.New(),
			MatchID:   matchID,
			RefereeID: refID,
			Role:      roles[i],
			State:     StatePending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.byID[a.ID] = a
		created = append(created, *a)
	}
	sortAssignments(created)
	return created, nil
}

// conflictLocked rejects a new PENDING assignment when the referee
// already holds a PENDING or ACCEPTED assignment on another match
// whose window overlaps the target match's window.
func (s *InMemory) conflictLocked(ctx context.Context, refereeID string, target catalog.Match) error {
	tStart := target.StartsAt
	tEnd := target.StartsAt.Add(MatchWindow)
	for _, a := range s.byID {
		if a.RefereeID != refereeID || a.MatchID == target.ID {
			continue
		}
		if a.State != StatePending && a.State != StateAccepted {
			continue
		}
		other, err := s.catalog.GetMatch(ctx, a.MatchID)
		if err != nil {
			continue
		}
		oStart := other.StartsAt
		oEnd := other.StartsAt.Add(MatchWindow)
		if tStart.Before(oEnd) && oStart.Before(tEnd) {
			return ErrScheduleConflict
		}
	}
	return nil
}

func (s *InMemory) Accept(ctx context.Context, id, comment string) (Assignment, error) {
	return s.apply(id, StateAccepted, comment)
}

func (s *InMemory) Reject(ctx context.Context, id, comment string) (Assignment, error) {
	return s.apply(id, StateRejected, comment)
}

func (s *InMemory) Complete(ctx context.Context, id string) (Assignment, error) {
	return s.apply(id, StateCompleted, "")
}

func (s *InMemory) apply(id string, to State, comment string) (Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return Assignment{}, ErrNotFound
	}
	if err := a.transition(to, comment, s.now()); err != nil {
		return Assignment{}, err
	}
	return *a, nil
}

// CancelAll moves every non-terminal assignment for the match to
// CANCELED and returns exactly the rows this call changed. Terminal
// assignments keep their state and are not returned.
func (s *InMemory) CancelAll(ctx context.Context, matchID string) ([]Assignment, error) {
	if _, err := s.catalog.GetMatch(ctx, matchID); err != nil {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	canceled := make([]Assignment, 0)
	for _, a := range s.byID {
		if a.MatchID != matchID || a.State.Terminal() {
			continue
		}
		if err := a.transition(StateCanceled, "", now); err != nil {
			continue
		}
		canceled = append(canceled, *a)
	}
	sortAssignments(canceled)
	return canceled, nil
}

func (s *InMemory) FindByID(ctx context.Context, id string) (Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return Assignment{}, ErrNotFound
	}
	return *a, nil
}

func (s *InMemory) FindByMatch(ctx context.Context, matchID string) ([]Assignment, error) {
	return s.filter(func(a *Assignment) bool { return a.MatchID == matchID }), nil
}

func (s *InMemory) FindByReferee(ctx context.Context, refereeID string) ([]Assignment, error) {
	return s.filter(func(a *Assignment) bool { return a.RefereeID == refereeID }), nil
}

func (s *InMemory) FindByRefereeAndState(ctx context.Context, refereeID string, state State) ([]Assignment, error) {
	return s.filter(func(a *Assignment) bool {
		return a.RefereeID == refereeID && a.State == state
	}), nil
}

// FindByRefereeAndMonth returns the referee's assignments whose match
// starts inside the calendar month, bounds inclusive.
func (s *InMemory) FindByRefereeAndMonth(ctx context.Context, refereeID string, month period.Month) ([]Assignment, error) {
	candidates := s.filter(func(a *Assignment) bool { return a.RefereeID == refereeID })
	out := candidates[:0]
	for _, a := range candidates {
		match, err := s.catalog.GetMatch(ctx, a.MatchID)
		if err != nil {
			continue
		}
		if month.Contains(match.StartsAt) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *InMemory) CountByState(ctx context.Context, state State) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.byID {
		if a.State == state {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) filter(keep func(*Assignment) bool) []Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Assignment
	for _, a := range s.byID {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sortAssignments(out)
	return out
}

// sortAssignments orders by creation then id so query results and
// settlement inputs are deterministic.
func sortAssignments(list []Assignment) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
