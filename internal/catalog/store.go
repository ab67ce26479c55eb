package catalog

import (
	"context"
	"sync"
)

// Store is the read-only catalog the core consumes. Record CRUD lives
// outside this service.
type Store interface {
	GetReferee(ctx context.Context, id string) (Referee, error)
	GetMatch(ctx context.Context, id string) (Match, error)
	GetTournament(ctx context.Context, id string) (Tournament, error)
	ListReferees(ctx context.Context) ([]Referee, error)
}

// InMemory implements Store for tests and single-process runs.
type InMemory struct {
	mu          sync.RWMutex
	referees    map[string]Referee
	matches     map[string]Match
	tournaments map[string]Tournament
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty catalog.
func NewInMemory() *InMemory {
	return &InMemory{
		referees:    make(map[string]Referee),
		matches:     make(map[string]Match),
		tournaments: make(map[string]Tournament),
	}
}

// PutReferee upserts a referee record.
func (s *InMemory) PutReferee(r Referee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.referees[r.ID] = r
}

// PutMatch upserts a match record.
func (s *InMemory) PutMatch(m Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = m
}

// PutTournament upserts a tournament record.
func (s *InMemory) PutTournament(t Tournament) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tournaments[t.ID] = t
}

func (s *InMemory) GetReferee(ctx context.Context, id string) (Referee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.referees[id]
	if !ok {
		return Referee{}, ErrNotFound
	}
	return r, nil
}

func (s *InMemory) GetMatch(ctx context.Context, id string) (Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return Match{}, ErrNotFound
	}
	return m, nil
}

func (s *InMemory) GetTournament(ctx context.Context, id string) (Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[id]
	if !ok {
		return Tournament{}, ErrNotFound
	}
	return t, nil
}

func (s *InMemory) ListReferees(ctx context.Context) ([]Referee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Referee, 0, len(s.referees))
	for _, r := range s.referees {
		out = append(out, r)
	}
	return out, nil
}
