package dispatch

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/filmio/pageload/pkg/api"
)

// LogDispatcher only logs what would have been dispatched. Used for dry runs.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, functionId string, payload api.WorkerPayload) error {
	log.WithFields(log.Fields{
		"function": functionId,
		"runId":    payload.RunId,
		"urls":     payload.Urls,
	}).Info("dry run: not dispatching worker")
	return nil
}
