package events

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/UkralStul/agora/internal/domain"
)

// Async hands batches to next from its own goroutine, in the order they were
// emitted. Emit never blocks: when the queue is full the batch is dropped and
// the drop is reported to the caller.
type Async struct {
	next    Emitter
	queue   chan []domain.Event
	timeout time.Duration
	log     *zap.Logger
	done    chan struct{}
}

// NewAsync starts the delivery goroutine. Each batch gets its own timeout,
// independent of the context Emit was called with.
func NewAsync(next Emitter, size int, timeout time.Duration, log *zap.Logger) *Async {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Async{
		next:    next,
		queue:   make(chan []domain.Event, size),
		timeout: timeout,
		log:     log.With(zap.String("module", "events")),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Emit(_ context.Context, events []domain.Event) error {
	select {
	case a.queue <- events:
		return nil
	default:
		return errors.Errorf("event queue full, dropped %d events", len(events))
	}
}

func (a *Async) run() {
	defer close(a.done)
	for batch := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Emit(ctx, batch); err != nil {
			a.log.Warn("async emit failed", zap.Int("events", len(batch)), zap.Error(err))
		}
		cancel()
	}
}

// Close delivers what is queued and stops. Emit must not be called after
// Close.
func (a *Async) Close() {
	close(a.queue)
	<-a.done
}
