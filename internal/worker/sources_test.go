package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmio/pageload/internal/pageload/configuration"
)

type fakePulsarMessage struct {
	pulsar.Message
	payload []byte
}

func (m *fakePulsarMessage) Payload() []byte { return m.payload }

type fakeConsumer struct {
	pulsar.Consumer
	messages chan pulsar.Message
	acked    []pulsar.Message
	closed   bool
}

func (c *fakeConsumer) Receive(ctx context.Context) (pulsar.Message, error) {
	select {
	case msg := <-c.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConsumer) Ack(msg pulsar.Message) error {
	c.acked = append(c.acked, msg)
	return nil
}

func (c *fakeConsumer) Close() { c.closed = true }

type fakePulsarClient struct {
	pulsar.Client
	consumer *fakeConsumer
	options  pulsar.ConsumerOptions
}

func (c *fakePulsarClient) Subscribe(options pulsar.ConsumerOptions) (pulsar.Consumer, error) {
	c.options = options
	return c.consumer, nil
}

func TestPulsarSource(t *testing.T) {
	consumer := &fakeConsumer{messages: make(chan pulsar.Message, 1)}
	client := &fakePulsarClient{consumer: consumer}

	source, err := NewPulsarSource(client, "child", "pageload", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "child", client.options.Topic)
	assert.Equal(t, "pageload", client.options.SubscriptionName)
	assert.Equal(t, pulsar.Shared, client.options.Type)

	sent := &fakePulsarMessage{payload: encode(t, "smoke-0")}
	consumer.messages <- sent
	msg, err := source.Receive(context.Background())
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, sent.payload, msg.Data)
	assert.Empty(t, consumer.acked)

	msg.Ack(context.Background())
	require.Len(t, consumer.acked, 1)
	assert.Same(t, sent, consumer.acked[0])

	require.NoError(t, source.Close())
	assert.True(t, consumer.closed)
}

func TestPulsarSource_IdleAndCancelled(t *testing.T) {
	client := &fakePulsarClient{consumer: &fakeConsumer{messages: make(chan pulsar.Message)}}
	source, err := NewPulsarSource(client, "child", "pageload", 10*time.Millisecond)
	require.NoError(t, err)

	msg, err := source.Receive(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, msg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = source.Receive(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServe_ReleasesRedisClient(t *testing.T) {
	server := miniredis.RunT(t)
	config := configuration.DispatchConfiguration{Type: configuration.DispatcherRedis}
	config.Redis.Redis.Addrs = []string{server.Addr()}

	source, cleanup, err := NewSource(config, "child")
	require.NoError(t, err)
	db := source.(*RedisSource).db
	require.NoError(t, db.Ping(context.Background()).Err())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, Serve(ctx, source, cleanup, &recordingHandler{}, 1))

	assert.ErrorIs(t, db.Ping(context.Background()).Err(), redis.ErrClosed)
}
