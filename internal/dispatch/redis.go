package dispatch

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/filmio/pageload/pkg/api"
)

const DefaultKeyPrefix = "pageload:"

// RedisDispatcher pushes run events onto a list per function; workers pop them with BLPOP.
type RedisDispatcher struct {
	db        redis.UniversalClient
	keyPrefix string
}

func NewRedisDispatcher(db redis.UniversalClient, keyPrefix string) *RedisDispatcher {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisDispatcher{db: db, keyPrefix: keyPrefix}
}

func QueueKey(keyPrefix, functionId string) string {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return keyPrefix + functionId
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, functionId string, payload api.WorkerPayload) error {
	data, err := Encode(payload)
	if err != nil {
		return err
	}
	return errors.WithStack(d.db.RPush(ctx, QueueKey(d.keyPrefix, functionId), data).Err())
}
