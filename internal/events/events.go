// Package events defines the domain-event port. Aggregates queue events on an
// embedded Recorder; stores hand the queue to a Publisher inside the same
// transaction (or lock) as the write and clear it once the write commits.
// Dispatch is the Publisher's concern.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a fact emitted by an aggregate.
type Event interface {
	EventType() string
	AggregateType() string
	AggregateID() string
	OccurredAt() time.Time
}

// Recorder queues events on an aggregate until persistence drains them.
// The zero value is ready to use.
type Recorder struct {
	pending []Event
}

// Record appends e to the queue.
func (r *Recorder) Record(e Event) {
	r.pending = append(r.pending, e)
}

// PendingEvents returns a copy of the queue without clearing it.
func (r *Recorder) PendingEvents() []Event {
	out := make([]Event, len(r.pending))
	copy(out, r.pending)
	return out
}

// DrainEvents returns the queue and clears it.
func (r *Recorder) DrainEvents() []Event {
	out := r.pending
	r.pending = nil
	return out
}

// Publisher dispatches events. Implementations that write to the database must
// honour a transaction carried in ctx (see pkg/platform/tx).
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, ...Event) error { return nil }

// InMemory keeps published events for inspection.
type InMemory struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (p *InMemory) Publish(_ context.Context, events ...Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

// FailWith makes subsequent Publish calls return err. Pass nil to recover.
func (p *InMemory) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Published returns a copy of everything published so far.
func (p *InMemory) Published() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Envelope is the transport form of an event, shared by the outbox and the
// broker relay.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// Seal wraps e in an Envelope with a fresh id.
func Seal(e Event) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", e.EventType(), err)
	}
	return Envelope{
		ID:            uuid.NewString(),
		AggregateType: e.AggregateType(),
		AggregateID:   e.AggregateID(),
		EventType:     e.EventType(),
		OccurredAt:    e.OccurredAt(),
		Payload:       payload,
	}, nil
}
