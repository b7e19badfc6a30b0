// Package pageload wires configuration into planners, session runners and handlers.
package pageload

import (
	"context"

	"github.com/pkg/errors"
	"k8s.io/utils/clock"

	"github.com/filmio/pageload/internal/blobstore"
	"github.com/filmio/pageload/internal/browser"
	"github.com/filmio/pageload/internal/common/util"
	"github.com/filmio/pageload/internal/dispatch"
	"github.com/filmio/pageload/internal/handler"
	"github.com/filmio/pageload/internal/imagediff"
	"github.com/filmio/pageload/internal/pageload/configuration"
	"github.com/filmio/pageload/internal/planner"
	"github.com/filmio/pageload/internal/session"
	"github.com/filmio/pageload/internal/sink"
)

// NewPlanner connects the configured dispatcher. The cleanup function must be called once planning is over.
func NewPlanner(ctx context.Context, config configuration.Configuration) (*planner.Planner, func(), error) {
	dispatcher, cleanup, err := dispatch.New(ctx, config.Dispatch)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "error creating dispatcher")
	}
	return planner.NewPlanner(
		dispatcher,
		config.FunctionName,
		config.Planner,
		clock.RealClock{},
		util.NewTimeSeededRand(),
	), cleanup, nil
}

func NewRunner(ctx context.Context, config configuration.Configuration) (*session.Runner, error) {
	store, err := blobstore.New(ctx, config.BlobStore)
	if err != nil {
		return nil, errors.WithMessage(err, "error creating blob store")
	}
	return session.NewRunner(
		config.Session,
		browser.NewChromeLauncher(config.Session.Browser, config.Session.NavigationTimeout),
		store,
		sink.NewWebhookSink(config.Sink),
		imagediff.NewReferenceDiffer(config.Session.ReferenceImage, config.Session.PixelThreshold),
		session.NewHttpEgressLookup(config.Session.EgressIPURL, config.Session.EgressIPCacheTTL),
		clock.RealClock{},
		util.NewTimeSeededRand(),
	), nil
}

// NewHandler builds a handler able to plan runs and run sessions.
func NewHandler(ctx context.Context, config configuration.Configuration) (*handler.Handler, func(), error) {
	runner, err := NewRunner(ctx, config)
	if err != nil {
		return nil, nil, err
	}
	p, cleanup, err := NewPlanner(ctx, config)
	if err != nil {
		return nil, nil, err
	}
	return handler.NewHandler(p, runner), cleanup, nil
}
