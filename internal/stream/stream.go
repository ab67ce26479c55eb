package stream

import (
	"context"
	"sync"
	"time"

	"refpay.org/internal/assignment"
)

// Event describes one assignment transition for live consumers
// (operator dashboards subscribed over SSE).
type Event struct {
	AssignmentID string           `json:"assignment_id"`
	MatchID      string           `json:"match_id"`
	RefereeID    string           `json:"referee_id"`
	Role         assignment.Role  `json:"role"`
	State        assignment.State `json:"state"`
	Timestamp    time.Time        `json:"timestamp"`
}

// FromAssignment builds the event for an assignment's current state.
func FromAssignment(a assignment.Assignment) Event {
	return Event{
		AssignmentID: a.ID,
		MatchID:      a.MatchID,
		RefereeID:    a.RefereeID,
		Role:         a.Role,
		State:        a.State,
		Timestamp:    a.UpdatedAt,
	}
}

// Stream fan-outs transition events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will
// receive events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
