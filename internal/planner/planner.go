// Package planner turns a run definition into a paced sequence of dispatched session runners.
package planner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/filmio/pageload/internal/common/loaderrors"
	"github.com/filmio/pageload/internal/dispatch"
	"github.com/filmio/pageload/internal/pageload/configuration"
	"github.com/filmio/pageload/internal/pageload/metrics"
	"github.com/filmio/pageload/pkg/api"
)

const DefaultDispatchDelay = 500 * time.Millisecond

type Planner struct {
	dispatcher    dispatch.Dispatcher
	functionId    string
	dispatchDelay time.Duration
	projectsFile  string
	clock         clock.Clock
	random        *rand.Rand
}

func NewPlanner(
	dispatcher dispatch.Dispatcher,
	functionId string,
	config configuration.PlannerConfiguration,
	clock clock.Clock,
	random *rand.Rand,
) *Planner {
	return &Planner{
		dispatcher:    dispatcher,
		functionId:    functionId,
		dispatchDelay: config.DispatchDelay,
		projectsFile:  config.ProjectsFile,
		clock:         clock,
		random:        random,
	}
}

// Plan dispatches every worker of the run and returns once the last one has been handed over. It does
// not wait for any worker to finish. The first dispatch error aborts the rest of the run.
func (p *Planner) Plan(ctx context.Context, config api.RunConfig) error {
	config, err := p.withProjects(config)
	if err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	logger := log.WithFields(log.Fields{
		"testId":   config.TestId,
		"testType": config.TestType,
	})
	start := p.clock.Now()
	switch config.TestType {
	case api.TestTypeFlat:
		err = p.planFlat(ctx, logger, config)
	case api.TestTypeStep:
		err = p.planStep(ctx, logger, config)
	}
	if err != nil {
		return err
	}
	logger.Infof("dispatched %d workers in %s", config.TotalSessions(), p.clock.Since(start))
	return nil
}

func (p *Planner) planFlat(ctx context.Context, logger *log.Entry, config api.RunConfig) error {
	for a := 0; a < config.NumberOfUsers; a++ {
		payload := api.WorkerPayload{
			RunId:  fmt.Sprintf("%s-%d", config.TestId, a),
			Urls:   p.flatUrls(config),
			Jwt:    copyJwt(config.Jwt),
			Test:   config.Test,
			TestId: config.TestId,
		}
		if err := p.dispatch(ctx, logger, config.TestType, payload); err != nil {
			return err
		}
	}
	return nil
}

// flatUrls is the explore page followed by k projects sampled with replacement. Without random
// projects an explicit url list is used as is.
func (p *Planner) flatUrls(config api.RunConfig) []string {
	k := config.NumberOfRandomProjectURLs
	if k == 0 && len(config.Urls) > 0 {
		return append([]string(nil), config.Urls...)
	}
	urls := make([]string, 0, k+1)
	urls = append(urls, api.ExploreAnchor)
	for i := 0; i < k; i++ {
		urls = append(urls, config.ProjectSlugs[p.random.Intn(len(config.ProjectSlugs))])
	}
	return urls
}

func (p *Planner) planStep(ctx context.Context, logger *log.Entry, config api.RunConfig) error {
	schedule := config.StepSchedule()
	logger.Infof("step schedule %v for a target of %d sessions", schedule, config.NumberOfUsers+1)

	// Each step is paced to last stepTime in total, assuming a dispatch costs no more than the delay.
	stepPause := config.StepDuration() - p.dispatchDelay
	if stepPause < 0 {
		stepPause = 0
	}
	timeToStay := config.DwellDuration().Milliseconds()

	index := 0
	for step, sessions := range schedule {
		stepLogger := logger.WithField("step", step)
		stepLogger.Infof("starting step with %d sessions", sessions)
		for b := 0; b < sessions; b++ {
			payload := api.WorkerPayload{
				RunId:        fmt.Sprintf("%s-%d-%d", config.TestId, step, index+1),
				Urls:         []string{config.Links[index]},
				Jwt:          copyJwt(config.Jwt),
				Test:         config.Test,
				TestId:       config.TestId,
				Name:         fmt.Sprintf("%s #%d", config.TestId, index+1),
				TimeToStayMs: timeToStay,
			}
			if err := p.dispatch(ctx, stepLogger, config.TestType, payload); err != nil {
				return err
			}
			index++
		}
		if step == len(schedule)-1 {
			break
		}
		if err := p.sleep(ctx, stepPause); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) dispatch(ctx context.Context, logger *log.Entry, testType api.TestType, payload api.WorkerPayload) error {
	if err := p.sleep(ctx, p.dispatchDelay); err != nil {
		return err
	}

	logger.WithField("runId", payload.RunId).Debugf("dispatching worker for %v", payload.Urls)
	if err := p.dispatcher.Dispatch(ctx, p.functionId, payload); err != nil {
		return errors.WithStack(&loaderrors.ErrDispatchFailed{
			RunId:    payload.RunId,
			Function: p.functionId,
			Err:      err,
		})
	}
	metrics.WorkersDispatched.WithLabelValues(testType.String()).Inc()
	return nil
}

// sleep waits d on the planner clock and returns early with the context error once ctx is done.
func (p *Planner) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return errors.WithStack(err)
	}
	timer := p.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case <-timer.C():
		return nil
	}
}

func (p *Planner) withProjects(config api.RunConfig) (api.RunConfig, error) {
	if config.TestType != api.TestTypeFlat || config.NumberOfRandomProjectURLs <= 0 ||
		len(config.ProjectSlugs) > 0 || p.projectsFile == "" {
		return config, nil
	}
	slugs, err := LoadProjectSlugs(p.projectsFile)
	if err != nil {
		return config, err
	}
	config.ProjectSlugs = slugs
	return config, nil
}

func copyJwt(jwt *string) *string {
	if jwt == nil {
		return nil
	}
	c := *jwt
	return &c
}
