package dispatch

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	log "github.com/sirupsen/logrus"

	"github.com/filmio/pageload/pkg/api"
)

// WithRetry makes dispatch acknowledged: a rejected dispatch is retried up to attempts times in total.
// With attempts <= 1 the dispatcher is returned unchanged and delivery stays at-most-once.
func WithRetry(inner Dispatcher, attempts uint, delay time.Duration) Dispatcher {
	if attempts <= 1 {
		return inner
	}
	return &retryingDispatcher{inner: inner, attempts: attempts, delay: delay}
}

type retryingDispatcher struct {
	inner    Dispatcher
	attempts uint
	delay    time.Duration
}

func (d *retryingDispatcher) Dispatch(ctx context.Context, functionId string, payload api.WorkerPayload) error {
	return retry.Do(
		func() error {
			return d.inner.Dispatch(ctx, functionId, payload)
		},
		retry.Context(ctx),
		retry.Attempts(d.attempts),
		retry.Delay(d.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithField("runId", payload.RunId).Warnf("dispatch attempt %d failed: %s", n+1, err)
		}),
	)
}
