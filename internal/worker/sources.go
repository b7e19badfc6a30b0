package worker

import (
	"context"
	"time"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/filmio/pageload/internal/common/logging"
	"github.com/filmio/pageload/internal/common/util"
)

const DefaultPollInterval = 10 * time.Second

// RedisSource pops run events pushed by the redis dispatcher.
type RedisSource struct {
	db           redis.UniversalClient
	key          string
	pollInterval time.Duration
}

func NewRedisSource(db redis.UniversalClient, key string, pollInterval time.Duration) *RedisSource {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &RedisSource{db: db, key: key, pollInterval: pollInterval}
}

func (s *RedisSource) Receive(ctx context.Context) (*Message, error) {
	result, err := s.db.BLPop(ctx, s.pollInterval, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, errors.WithStack(err)
	}
	// BLPOP answers with the key followed by the value.
	return &Message{Data: []byte(result[1])}, nil
}

func (s *RedisSource) Close() error {
	return errors.WithStack(s.db.Close())
}

// PulsarSource reads a topic through a shared subscription so events spread over every worker.
type PulsarSource struct {
	consumer     pulsar.Consumer
	pollInterval time.Duration
}

func NewPulsarSource(client pulsar.Client, topic string, subscription string, pollInterval time.Duration) (*PulsarSource, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	consumer, err := client.Subscribe(pulsar.ConsumerOptions{
		Topic:            topic,
		SubscriptionName: subscription,
		Type:             pulsar.Shared,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &PulsarSource{consumer: consumer, pollInterval: pollInterval}, nil
}

func (s *PulsarSource) Receive(ctx context.Context) (*Message, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.pollInterval)
	msg, err := s.consumer.Receive(ctxWithTimeout)
	cancel()
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, nil
	} else if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Message{
		Data: msg.Payload(),
		Ack: func(ctx context.Context) {
			util.RetryUntilSuccess(
				ctx,
				func() error { return s.consumer.Ack(msg) },
				func(err error) {
					logging.WithStacktrace(log.WithField("PulsarId", msg.ID()), err).Warn("acking pulsar message failed")
					time.Sleep(time.Second)
				},
			)
		},
	}, nil
}

func (s *PulsarSource) Close() error {
	s.consumer.Close()
	return nil
}

// NatsSource joins a queue group so each event is delivered to one worker only.
type NatsSource struct {
	sub          *nats.Subscription
	pollInterval time.Duration
}

func NewNatsSource(conn *nats.Conn, subject string, queueGroup string, pollInterval time.Duration) (*NatsSource, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	sub, err := conn.QueueSubscribeSync(subject, queueGroup)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &NatsSource{sub: sub, pollInterval: pollInterval}, nil
}

func (s *NatsSource) Receive(ctx context.Context) (*Message, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.pollInterval)
	defer cancel()
	msg, err := s.sub.NextMsgWithContext(ctxWithTimeout)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, nil
	} else if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Message{Data: msg.Data}, nil
}

func (s *NatsSource) Close() error {
	return errors.WithStack(s.sub.Unsubscribe())
}
