package dispatch

import (
	"context"

	"github.com/filmio/pageload/internal/pageload/metrics"
	"github.com/filmio/pageload/pkg/api"
)

// Instrument counts rejected dispatches under the given dispatcher name.
func Instrument(name string, inner Dispatcher) Dispatcher {
	return Func(func(ctx context.Context, functionId string, payload api.WorkerPayload) error {
		err := inner.Dispatch(ctx, functionId, payload)
		if err != nil {
			metrics.DispatchFailures.WithLabelValues(name).Inc()
		}
		return err
	})
}
