// Package events delivers committed domain events to read models and
// subscribers.
package events

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/UkralStul/agora/internal/domain"
)

// Emitter receives the events of one committed transaction, in order.
// Emitters must not block for long: the ledger calls them while holding its
// write lock, so anything that does network I/O goes behind an Async.
type Emitter interface {
	Emit(ctx context.Context, events []domain.Event) error
}

// Fanout emits to every emitter and returns all of their errors combined.
type Fanout []Emitter

func (f Fanout) Emit(ctx context.Context, events []domain.Event) error {
	var err error
	for _, e := range f {
		err = multierr.Append(err, e.Emit(ctx, events))
	}
	return err
}

// Nop drops everything.
type Nop struct{}

func (Nop) Emit(context.Context, []domain.Event) error { return nil }

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *Recorder) Emit(_ context.Context, events []domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
