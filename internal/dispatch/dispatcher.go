// Package dispatch hands worker payloads to the fabric that launches session runners.
//
// Every implementation is fire-and-forget: Dispatch returns as soon as the fabric has accepted the
// request and never observes the worker's outcome. Payloads travel as run events so that a single
// invocation surface can serve both planning and session runs.
package dispatch

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/filmio/pageload/pkg/api"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, functionId string, payload api.WorkerPayload) error
}

// Func adapts an ordinary function to a Dispatcher.
type Func func(ctx context.Context, functionId string, payload api.WorkerPayload) error

func (f Func) Dispatch(ctx context.Context, functionId string, payload api.WorkerPayload) error {
	return f(ctx, functionId, payload)
}

// Encode serialises payload as a run event.
func Encode(payload api.WorkerPayload) ([]byte, error) {
	data, err := json.Marshal(api.NewRunEvent(payload))
	return data, errors.WithStack(err)
}

// Decode parses and validates an event received from a queue.
func Decode(data []byte) (api.Event, error) {
	event := api.Event{}
	if err := json.Unmarshal(data, &event); err != nil {
		return event, errors.WithStack(err)
	}
	return event, event.Validate()
}
