package api

import (
	"github.com/pkg/errors"

	"github.com/filmio/pageload/internal/common/loaderrors"
)

type EventKind string

const (
	EventKindPlan EventKind = "plan"
	EventKindRun  EventKind = "run"
)

// Event is the message accepted by every invocation surface. Exactly one of Config and Payload is set,
// selected by Kind.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Config  *RunConfig     `json:"config,omitempty"`
	Payload *WorkerPayload `json:"payload,omitempty"`
}

func NewPlanEvent(config RunConfig) Event {
	return Event{Kind: EventKindPlan, Config: &config}
}

func NewRunEvent(payload WorkerPayload) Event {
	return Event{Kind: EventKindRun, Payload: &payload}
}

// Validate checks that the body matching Kind is present.
func (e Event) Validate() error {
	switch e.Kind {
	case EventKindPlan:
		if e.Config == nil {
			return errors.WithStack(&loaderrors.ErrInvalidArgument{
				Name:    "config",
				Value:   nil,
				Message: "plan events must carry a config",
			})
		}
	case EventKindRun:
		if e.Payload == nil {
			return errors.WithStack(&loaderrors.ErrInvalidArgument{
				Name:    "payload",
				Value:   nil,
				Message: "run events must carry a payload",
			})
		}
	default:
		return errors.WithStack(&loaderrors.ErrInvalidArgument{
			Name:    "kind",
			Value:   e.Kind,
			Message: "expected plan or run",
		})
	}
	return nil
}
