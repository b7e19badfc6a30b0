package dispatch

import (
	"context"
	"sync"

	"github.com/apache/pulsar-client-go/pulsar"
	"github.com/pkg/errors"

	"github.com/filmio/pageload/pkg/api"
)

// PulsarDispatcher publishes run events to a topic per function. Producers are created on first use
// and kept until Close.
type PulsarDispatcher struct {
	client    pulsar.Client
	producers map[string]pulsar.Producer
	mutex     sync.Mutex
}

func NewPulsarDispatcher(client pulsar.Client) *PulsarDispatcher {
	return &PulsarDispatcher{
		client:    client,
		producers: map[string]pulsar.Producer{},
	}
}

func (d *PulsarDispatcher) Dispatch(ctx context.Context, functionId string, payload api.WorkerPayload) error {
	data, err := Encode(payload)
	if err != nil {
		return err
	}
	producer, err := d.producer(functionId)
	if err != nil {
		return err
	}
	_, err = producer.Send(ctx, &pulsar.ProducerMessage{
		Payload: data,
		Key:     payload.RunId,
	})
	return errors.WithStack(err)
}

func (d *PulsarDispatcher) producer(topic string) (pulsar.Producer, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if p, ok := d.producers[topic]; ok {
		return p, nil
	}
	p, err := d.client.CreateProducer(pulsar.ProducerOptions{Topic: topic})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	d.producers[topic] = p
	return p, nil
}

func (d *PulsarDispatcher) Close() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	for topic, p := range d.producers {
		p.Close()
		delete(d.producers, topic)
	}
}
