package worker

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/filmio/pageload/internal/common/loaderrors"
	"github.com/filmio/pageload/internal/common/util"
	"github.com/filmio/pageload/internal/dispatch"
	"github.com/filmio/pageload/internal/pageload/configuration"
)

const defaultQueueGroup = "pageload-workers"

// NewSource connects to the queue the configured dispatcher publishes to. Lambda and log dispatch have
// no queue to consume.
func NewSource(config configuration.DispatchConfiguration, functionName string) (Source, func(), error) {
	switch config.Type {
	case configuration.DispatcherRedis:
		// The source owns db and closes it in Close.
		db := redis.NewUniversalClient(config.Redis.Redis.AsUniversalOptions())
		return NewRedisSource(db, dispatch.QueueKey(config.Redis.KeyPrefix, functionName), 0), func() {}, nil
	case configuration.DispatcherPulsar:
		client, err := dispatch.NewPulsarClient(config.Pulsar)
		if err != nil {
			return nil, nil, err
		}
		subscription := config.Pulsar.SubscriptionName
		if subscription == "" {
			subscription = functionName
		}
		source, err := NewPulsarSource(client, functionName, subscription, 0)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return source, client.Close, nil
	case configuration.DispatcherNats:
		conn, err := nats.Connect(dispatch.NatsURL(config.Nats))
		if err != nil {
			return nil, nil, errors.WithStack(err)
		}
		queueGroup := config.Nats.QueueGroup
		if queueGroup == "" {
			queueGroup = defaultQueueGroup
		}
		source, err := NewNatsSource(conn, functionName, queueGroup, 0)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return source, conn.Close, nil
	default:
		return nil, nil, errors.WithStack(&loaderrors.ErrInvalidArgument{
			Name:    "dispatch.type",
			Value:   config.Type,
			Message: "serve consumes redis, pulsar or nats queues",
		})
	}
}

// Serve runs a worker until ctx is cancelled and releases the source afterwards.
func Serve(ctx context.Context, source Source, cleanup func(), handler EventHandler, concurrency int) error {
	defer cleanup()
	defer util.CloseResource("event source", source)
	return NewWorker(source, handler, concurrency).Run(ctx)
}
