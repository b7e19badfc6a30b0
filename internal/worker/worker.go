// Package worker consumes run events from a queue and runs the sessions they describe.
package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/filmio/pageload/internal/common/logging"
)

const errorBackoff = time.Second

type Message struct {
	Data []byte
	// Ack confirms delivery to the broker. Nil for sources without acknowledgement.
	Ack func(ctx context.Context)
}

type Source interface {
	// Receive blocks until a message arrives or the source's poll interval passes, in which case it
	// returns a nil message and a nil error.
	Receive(ctx context.Context) (*Message, error)
	Close() error
}

type EventHandler interface {
	HandleJson(ctx context.Context, data []byte) (string, error)
}

type Worker struct {
	source      Source
	handler     EventHandler
	concurrency int
}

func NewWorker(source Source, handler EventHandler, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{source: source, handler: handler, concurrency: concurrency}
}

// Run handles messages with at most concurrency sessions in flight until ctx is cancelled, then waits
// for running sessions to return. Messages are acknowledged before they are handled, so a session is
// never run twice.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	slots := make(chan struct{}, w.concurrency)

	log.Infof("worker started with %d slots", w.concurrency)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case slots <- struct{}{}:
		}

		msg, err := w.source.Receive(ctx)
		if err != nil {
			<-slots
			if ctx.Err() != nil {
				break loop
			}
			logging.WithStacktrace(log.NewEntry(log.StandardLogger()), err).Warn("receiving event failed")
			select {
			case <-ctx.Done():
			case <-time.After(errorBackoff):
			}
			continue
		}
		if msg == nil {
			<-slots
			continue
		}
		if msg.Ack != nil {
			msg.Ack(ctx)
		}
		g.Go(func() error {
			defer func() { <-slots }()
			w.handle(ctx, msg.Data)
			return nil
		})
	}
	err := g.Wait()
	log.Info("worker stopped")
	return err
}

func (w *Worker) handle(ctx context.Context, data []byte) {
	result, err := w.handler.HandleJson(ctx, data)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("session cancelled by shutdown")
			return
		}
		logging.WithStacktrace(log.NewEntry(log.StandardLogger()), err).Error("event failed")
		return
	}
	log.Debug(result)
}
