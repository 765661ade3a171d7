package history

import (
	"context"
	"sync"
	"time"
)

// Outcome classifies how a reconciliation pass ended.
type Outcome string

const (
	OutcomeActive  Outcome = "active"
	OutcomeWaiting Outcome = "waiting"
	OutcomeBlocked Outcome = "blocked"
	OutcomeError   Outcome = "error"
)

// Event is one reconciliation pass exported to external systems.
type Event struct {
	Trigger    string    `json:"trigger"`
	Outcome    Outcome   `json:"outcome"`
	Message    string    `json:"message"`
	Instance   string    `json:"instance"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink is a destination for reconciliation events (analytics and
// audit systems). Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// MemorySink buffers events in memory. Used in tests and as a default
// when no external sink is configured.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Send(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
