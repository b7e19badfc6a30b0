package util

import (
	"context"
)

// RetryUntilSuccess calls performAction until it succeeds or ctx is cancelled, passing every failure to onError.
func RetryUntilSuccess(ctx context.Context, performAction func() error, onError func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			err := performAction()
			if err == nil {
				return
			} else {
				onError(err)
			}
		}
	}
}
