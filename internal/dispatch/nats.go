package dispatch

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/filmio/pageload/pkg/api"
)

const defaultFlushTimeout = 5 * time.Second

// NatsDispatcher publishes run events on a subject per function. A dispatch counts as accepted once
// the server has acknowledged the flush that follows the publish.
type NatsDispatcher struct {
	conn *nats.Conn
}

func NewNatsDispatcher(conn *nats.Conn) *NatsDispatcher {
	return &NatsDispatcher{conn: conn}
}

func (d *NatsDispatcher) Dispatch(ctx context.Context, functionId string, payload api.WorkerPayload) error {
	data, err := Encode(payload)
	if err != nil {
		return err
	}
	if err := d.conn.Publish(functionId, data); err != nil {
		return errors.WithStack(err)
	}
	timeout := defaultFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	return errors.WithStack(d.conn.FlushTimeout(timeout))
}
