package rates

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"refpay.org/internal/assignment"
	"refpay.org/internal/catalog"
	"refpay.org/internal/ids"
)

var (
	ErrNotFound     = errors.New("rates: not found")
	ErrNotResolved  = errors.New("rates: no active rate for key")
	ErrDuplicateKey = errors.New("rates: active entry already exists for key")
	ErrValidation   = errors.New("rates: validation failed")
)

// Entry is a configured pay amount for one (tournament, rank, role)
// key. Amounts are opaque fixed-point integers; no floats anywhere in
// the money path.
type Entry struct {
	ID           string          `json:"id"`
	TournamentID string          `json:"tournament_id"`
	Rank         catalog.Rank    `json:"rank"`
	Role         assignment.Role `json:"role"`
	Amount       int64           `json:"amount"`
	Active       bool            `json:"active"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BaseAmount is the fixed per-rank base used by Create. The values are
// load-bearing for settlement totals and must not drift.
func BaseAmount(rank catalog.Rank) int64 {
	switch rank {
	case catalog.RankFIBA:
		return 1_500_000
	case catalog.RankFirst:
		return 800_000
	case catalog.RankSecond:
		return 500_000
	case catalog.RankThird:
		return 300_000
	case catalog.RankFormation:
		return 150_000
	default:
		return 100_000
	}
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	TournamentID string
	Rank         catalog.Rank
	Role         assignment.Role
	ActiveOnly   bool
	Search       string
}

// Service resolves and administers rate entries. The active key
// (tournament, rank, role) is unique: Resolve never has to pick among
// candidates.
type Service interface {
	Resolve(ctx context.Context, tournamentID string, rank catalog.Rank, role assignment.Role) (int64, error)
	Create(ctx context.Context, tournamentID string, rank catalog.Rank, role assignment.Role, supplement int64, description string) (Entry, error)
	Update(ctx context.Context, id string, amount int64, description string) (Entry, error)
	Deactivate(ctx context.Context, id string) (Entry, error)
	Activate(ctx context.Context, id string) (Entry, error)
	FindByID(ctx context.Context, id string) (Entry, error)
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// InMemory implements Service with in-process concurrency safety.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

var _ Service = (*InMemory)(nil)

// NewInMemory creates an empty rate table.
func NewInMemory() *InMemory {
	return &InMemory{
		entries: make(map[string]*Entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Resolve returns the amount of the unique active entry for the key.
func (s *InMemory) Resolve(ctx context.Context, tournamentID string, rank catalog.Rank, role assignment.Role) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Active && e.TournamentID == tournamentID && e.Rank == rank && e.Role == role {
			return e.Amount, nil
		}
	}
	return 0, ErrNotResolved
}

// Create computes the amount as BaseAmount(rank) + supplement and
// stores an active entry. An existing active entry for the same key is
// rejected; deactivate it first.
func (s *InMemory) Create(ctx context.Context, tournamentID string, rank catalog.Rank, role assignment.Role, supplement int64, description string) (Entry, error) {
	if strings.TrimSpace(tournamentID) == "" {
		return Entry{}, ErrValidation
	}
	if _, err := assignment.ParseRole(string(role)); err != nil {
		return Entry{}, ErrValidation
	}
	if supplement < 0 {
		return Entry{}, ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Active && e.TournamentID == tournamentID && e.Rank == rank && e.Role == role {
			return Entry{}, ErrDuplicateKey
		}
	}

	now := s.now()
	e := &Entry{
		ID:           ids.New(),
		TournamentID: tournamentID,
		Rank:         rank,
		Role:         role,
		Amount:       BaseAmount(rank) + supplement,
		Active:       true,
		Description:  description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.entries[e.ID] = e
	return *e, nil
}

// Update changes the amount and description of an entry in place. The
// lookup key is immutable; recreate the entry to re-key it.
func (s *InMemory) Update(ctx context.Context, id string, amount int64, description string) (Entry, error) {
	if amount < 0 {
		return Entry{}, ErrValidation
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	e.Amount = amount
	e.Description = description
	e.UpdatedAt = s.now()
	return *e, nil
}

func (s *InMemory) Deactivate(ctx context.Context, id string) (Entry, error) {
	return s.setActive(id, false)
}

// Activate re-enables an entry, refusing to create a second active
// entry for the same key.
func (s *InMemory) Activate(ctx context.Context, id string) (Entry, error) {
	return s.setActive(id, true)
}

func (s *InMemory) setActive(id string, active bool) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if active && !e.Active {
		for _, other := range s.entries {
			if other.ID != id && other.Active &&
				other.TournamentID == e.TournamentID && other.Rank == e.Rank && other.Role == e.Role {
				return Entry{}, ErrDuplicateKey
			}
		}
	}
	if e.Active != active {
		e.Active = active
		e.UpdatedAt = s.now()
	}
	return *e, nil
}

func (s *InMemory) FindByID(ctx context.Context, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return *e, nil
}

func (s *InMemory) List(ctx context.Context, f Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []Entry
	for _, e := range s.entries {
		if f.TournamentID != "" && e.TournamentID != f.TournamentID {
			continue
		}
		if f.Rank != "" && e.Rank != f.Rank {
			continue
		}
		if f.Role != "" && e.Role != f.Role {
			continue
		}
		if f.ActiveOnly && !e.Active {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Description), search) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
