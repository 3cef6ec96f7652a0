package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/UkralStul/agora/internal/domain"
)

// LogEmitter writes one structured line per event.
type LogEmitter struct {
	log *zap.Logger
}

func NewLogEmitter(log *zap.Logger) *LogEmitter {
	return &LogEmitter{log: log.With(zap.String("module", "events"))}
}

func (l *LogEmitter) Emit(_ context.Context, events []domain.Event) error {
	for _, e := range events {
		l.log.Info("event",
			zap.String("event", string(e.Kind)),
			zap.String("id", e.ID),
			zap.Uint64("seq", e.Seq),
			zap.String("entity", e.Entity),
			zap.String("entity_id", e.EntityID),
			zap.String("actor", string(e.Actor)),
			zap.Time("at", e.At),
		)
	}
	return nil
}
