// Package memory provides an in-memory EventSink for tests and for runs
// that only want events echoed into the final report.
package memory

import (
	"context"
	"sync"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var _ outbound.EventSink = (*EventSink)(nil)

// EventSink stores every published step event.
type EventSink struct {
	mu     sync.RWMutex
	events []entity.StepEvent
	closed bool

	onPublish func(entity.StepEvent)
}

func NewEventSink() *EventSink {
	return &EventSink{events: make([]entity.StepEvent, 0)}
}

// Publish stores the event. Events published after Close are dropped.
func (s *EventSink) Publish(ctx context.Context, event entity.StepEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.events = append(s.events, event)
	if s.onPublish != nil {
		s.onPublish(event)
	}
	return nil
}

func (s *EventSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Events returns a copy of all published events in order.
func (s *EventSink) Events() []entity.StepEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]entity.StepEvent, len(s.events))
	copy(result, s.events)
	return result
}

// States returns the state of every published event in order.
func (s *EventSink) States() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	states := make([]string, len(s.events))
	for i, e := range s.events {
		states[i] = e.State
	}
	return states
}

// OnPublish sets a callback invoked for every stored event.
func (s *EventSink) OnPublish(fn func(entity.StepEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onPublish = fn
}
