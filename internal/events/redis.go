package events

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/UkralStul/agora/internal/domain"
	"github.com/UkralStul/agora/internal/json"
)

// RedisPublisher publishes each event as JSON on a pub/sub channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Emit(ctx context.Context, events []domain.Event) error {
	var errs error
	for _, e := range events {
		jsonstr, err := json.Marshal(e)
		if err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "marshal event %s", e.ID))
			continue
		}
		if err := p.rdb.Publish(ctx, p.channel, jsonstr).Err(); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "publish event %s", e.ID))
		}
	}
	return errs
}
