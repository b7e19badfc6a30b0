// Package handler is the single invocation surface shared by the CLI, the queue workers and the Lambda
// entry point.
package handler

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/filmio/pageload/internal/common/util"
	"github.com/filmio/pageload/pkg/api"
)

// Done is reported for every invocation that finished without a fatal error.
const Done = "Done"

type Planner interface {
	Plan(ctx context.Context, config api.RunConfig) error
}

type Runner interface {
	Run(ctx context.Context, payload api.WorkerPayload) error
}

type Handler struct {
	planner Planner
	runner  Runner
}

// NewHandler builds a handler. Either side may be nil when the process only serves the other kind.
func NewHandler(planner Planner, runner Runner) *Handler {
	return &Handler{planner: planner, runner: runner}
}

func (h *Handler) Handle(ctx context.Context, event api.Event) (string, error) {
	if err := event.Validate(); err != nil {
		return "", err
	}
	switch event.Kind {
	case api.EventKindPlan:
		if h.planner == nil {
			return "", errors.New("this process does not plan runs")
		}
		log.WithField("testId", event.Config.TestId).Info("planning run")
		if err := h.planner.Plan(ctx, *event.Config); err != nil {
			return "", err
		}
	case api.EventKindRun:
		if h.runner == nil {
			return "", errors.New("this process does not run sessions")
		}
		log.WithField("runId", event.Payload.RunId).Infof("running session over %d urls", len(event.Payload.Urls))
		if err := h.runner.Run(ctx, *event.Payload); err != nil {
			return "", err
		}
	}
	return Done, nil
}

// HandleJson decodes a JSON or YAML event and handles it.
func (h *Handler) HandleJson(ctx context.Context, data []byte) (string, error) {
	event := api.Event{}
	if err := util.UnmarshalJsonOrYaml(data, &event); err != nil {
		return "", errors.WithMessage(err, "error decoding event")
	}
	return h.Handle(ctx, event)
}
