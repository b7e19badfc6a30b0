package planner

import (
	"context"
	"math/rand"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clock "k8s.io/utils/clock/testing"

	"github.com/filmio/pageload/internal/common/loaderrors"
	"github.com/filmio/pageload/internal/pageload/configuration"
	"github.com/filmio/pageload/pkg/api"
)

var startTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type dispatched struct {
	functionId string
	payload    api.WorkerPayload
	at         time.Time
}

type recordingDispatcher struct {
	clock      *clock.FakeClock
	dispatched []dispatched
	failOn     int
	mutex      sync.Mutex
}

func (r *recordingDispatcher) Dispatch(_ context.Context, functionId string, payload api.WorkerPayload) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.failOn > 0 && len(r.dispatched)+1 == r.failOn {
		return errors.New("throttled")
	}
	r.dispatched = append(r.dispatched, dispatched{functionId: functionId, payload: payload, at: r.clock.Now()})
	return nil
}

func (r *recordingDispatcher) count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.dispatched)
}

func (r *recordingDispatcher) payloads() []api.WorkerPayload {
	out := make([]api.WorkerPayload, len(r.dispatched))
	for i, d := range r.dispatched {
		out[i] = d.payload
	}
	return out
}

func setupPlanner(config configuration.PlannerConfiguration) (*Planner, *recordingDispatcher, *clock.FakeClock) {
	fakeClock := clock.NewFakeClock(startTime)
	dispatcher := &recordingDispatcher{clock: fakeClock}
	if config.DispatchDelay == 0 {
		config.DispatchDelay = DefaultDispatchDelay
	}
	return NewPlanner(dispatcher, "child", config, fakeClock, rand.New(rand.NewSource(1))), dispatcher, fakeClock
}

// plan runs Plan and advances the fake clock one dispatch delay at a time while the planner waits. Every
// wait in these tests is a whole number of dispatch delays, so each timer fires exactly on time.
func plan(ctx context.Context, planner *Planner, fakeClock *clock.FakeClock, config api.RunConfig) error {
	done := make(chan error, 1)
	go func() { done <- planner.Plan(ctx, config) }()
	for {
		select {
		case err := <-done:
			return err
		default:
		}
		if fakeClock.HasWaiters() {
			fakeClock.Step(DefaultDispatchDelay)
		} else {
			runtime.Gosched()
		}
	}
}

func TestPlan_FlatExploreOnly(t *testing.T) {
	planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{})
	testType, err := api.ParseTestType("1")
	require.NoError(t, err)

	err = plan(context.Background(), planner, fakeClock, api.RunConfig{
		TestType:                  testType,
		TestId:                    "smoke",
		NumberOfUsers:             3,
		NumberOfRandomProjectURLs: 0,
	})
	require.NoError(t, err)

	require.Len(t, dispatcher.dispatched, 3)
	for i, d := range dispatcher.dispatched {
		assert.Equal(t, "child", d.functionId)
		assert.Equal(t, []string{"/explore"}, d.payload.Urls)
		assert.Nil(t, d.payload.Jwt)
		assert.Equal(t, startTime.Add(time.Duration(i+1)*DefaultDispatchDelay), d.at)
	}
	assert.Equal(t, "smoke-0", dispatcher.dispatched[0].payload.RunId)
	assert.Equal(t, "smoke-2", dispatcher.dispatched[2].payload.RunId)
	assert.Equal(t, 1500*time.Millisecond, fakeClock.Since(startTime))
}

func TestPlan_FlatRandomProjects(t *testing.T) {
	slugs := []string{"/project/a", "/project/b", "/project/c"}
	for users := 0; users <= 6; users++ {
		for k := 1; k <= 4; k++ {
			planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{})
			err := plan(context.Background(), planner, fakeClock, api.RunConfig{
				TestType:                  api.TestTypeFlat,
				TestId:                    "random",
				NumberOfUsers:             users,
				NumberOfRandomProjectURLs: k,
				ProjectSlugs:              slugs,
			})
			require.NoError(t, err)
			require.Len(t, dispatcher.dispatched, users)
			for _, payload := range dispatcher.payloads() {
				require.Len(t, payload.Urls, k+1)
				assert.Equal(t, "/explore", payload.Urls[0])
				for _, url := range payload.Urls[1:] {
					assert.Contains(t, slugs, url)
				}
			}
		}
	}
}

func TestPlan_FlatExplicitUrls(t *testing.T) {
	planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{})
	jwt := "token"
	config := api.RunConfig{
		TestType:      api.TestTypeFlat,
		TestId:        "explicit",
		NumberOfUsers: 2,
		Jwt:           &jwt,
		Urls:          []string{"/explore", "/leaderboard"},
	}
	require.NoError(t, plan(context.Background(), planner, fakeClock, config))

	payloads := dispatcher.payloads()
	require.Len(t, payloads, 2)
	assert.Equal(t, []string{"/explore", "/leaderboard"}, payloads[0].Urls)
	require.NotNil(t, payloads[0].Jwt)
	assert.Equal(t, "token", *payloads[0].Jwt)

	// payloads never share state with each other or the config
	payloads[0].Urls[0] = "/mutated"
	*payloads[0].Jwt = "mutated"
	assert.Equal(t, "/explore", payloads[1].Urls[0])
	assert.Equal(t, "token", *payloads[1].Jwt)
	assert.Equal(t, "/explore", config.Urls[0])
}

func TestPlan_FlatProjectsFile(t *testing.T) {
	planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{
		ProjectsFile: filepath.Join("testdata", "stage.json"),
	})
	err := plan(context.Background(), planner, fakeClock, api.RunConfig{
		TestType:                  api.TestTypeFlat,
		TestId:                    "stage",
		NumberOfUsers:             4,
		NumberOfRandomProjectURLs: 3,
	})
	require.NoError(t, err)
	for _, payload := range dispatcher.payloads() {
		for _, url := range payload.Urls[1:] {
			assert.Contains(t, []string{"/project/the-last-frame", "/project/night-shift"}, url)
		}
	}
}

func TestPlan_Idempotent(t *testing.T) {
	config := api.RunConfig{
		TestType:                  api.TestTypeFlat,
		TestId:                    "again",
		NumberOfUsers:             5,
		NumberOfRandomProjectURLs: 2,
		ProjectSlugs:              []string{"/project/a", "/project/b", "/project/c", "/project/d"},
	}
	shapes := func() []string {
		planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{})
		require.NoError(t, plan(context.Background(), planner, fakeClock, config))
		var out []string
		for _, p := range dispatcher.payloads() {
			out = append(out, p.RunId, strings.Join(p.Urls, ","))
			assert.Len(t, p.Urls, 3)
		}
		return out
	}
	assert.Equal(t, shapes(), shapes())
}

func TestPlan_StepScenario(t *testing.T) {
	planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{})
	testType, err := api.ParseTestType("2")
	require.NoError(t, err)
	links := []string{"/project/a", "/project/b", "/project/c", "/project/d", "/project/e"}

	err = plan(context.Background(), planner, fakeClock, api.RunConfig{
		TestType:      testType,
		TestId:        "ramp",
		NumberOfUsers: 9,
		UserIncrease:  5,
		StepTime:      1,
		TimeToStay:    2,
		Links:         links,
	})
	require.NoError(t, err)

	require.Len(t, dispatcher.dispatched, 5)
	for i, d := range dispatcher.dispatched {
		assert.Equal(t, []string{links[i]}, d.payload.Urls)
		assert.Equal(t, int64(120000), d.payload.TimeToStayMs)
		assert.Equal(t, startTime.Add(time.Duration(i+1)*DefaultDispatchDelay), d.at)
	}
	assert.Equal(t, "ramp-0-1", dispatcher.dispatched[0].payload.RunId)
	assert.Equal(t, "ramp #5", dispatcher.dispatched[4].payload.Name)
	// five dispatches, then the rest of the one minute step; the empty last step adds nothing
	assert.Equal(t, 5*DefaultDispatchDelay+time.Minute-DefaultDispatchDelay, fakeClock.Since(startTime))
}

func TestPlan_StepLinksConsumedAcrossSteps(t *testing.T) {
	planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{})
	config := api.RunConfig{
		TestType:      api.TestTypeStep,
		TestId:        "ramp",
		NumberOfUsers: 6,
		UserIncrease:  3,
		StepTime:      2,
	}
	for i := 0; i < 10; i++ {
		config.Links = append(config.Links, "/project/"+string(rune('a'+i)))
	}
	require.NoError(t, plan(context.Background(), planner, fakeClock, config))

	schedule := config.StepSchedule()
	require.Equal(t, []int{3, 3, 2}, schedule)
	require.Len(t, dispatcher.dispatched, 8)

	for i, d := range dispatcher.dispatched {
		assert.Equal(t, []string{config.Links[i]}, d.payload.Urls)
	}
	assert.Equal(t, "ramp-1-4", dispatcher.dispatched[3].payload.RunId)
	assert.Equal(t, "ramp-2-8", dispatcher.dispatched[7].payload.RunId)

	// the first dispatch of each step starts one step time after the previous step started
	assert.Equal(t, startTime.Add(DefaultDispatchDelay), dispatcher.dispatched[0].at)
	assert.Equal(t, startTime.Add(3*DefaultDispatchDelay+2*time.Minute), dispatcher.dispatched[3].at)
	assert.Equal(t, startTime.Add(7*DefaultDispatchDelay+2*(2*time.Minute-DefaultDispatchDelay)), dispatcher.dispatched[6].at)
	assert.Equal(t, 8*DefaultDispatchDelay+2*(2*time.Minute-DefaultDispatchDelay), fakeClock.Since(startTime))
}

func TestPlan_StepTotalWithinOneIncrement(t *testing.T) {
	for users := 0; users < 25; users++ {
		for increase := 1; increase < 7; increase++ {
			planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{})
			config := api.RunConfig{
				TestType:      api.TestTypeStep,
				TestId:        "bound",
				NumberOfUsers: users,
				UserIncrease:  increase,
				Links:         make([]string, users+increase+1),
			}
			require.NoError(t, plan(context.Background(), planner, fakeClock, config))
			diff := len(dispatcher.dispatched) - (users + 1)
			assert.LessOrEqual(t, diff, increase)
			assert.GreaterOrEqual(t, diff, -increase)
		}
	}
}

func TestPlan_DispatchFailureAbortsRun(t *testing.T) {
	planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{})
	dispatcher.failOn = 2

	err := plan(context.Background(), planner, fakeClock, api.RunConfig{
		TestType:      api.TestTypeFlat,
		TestId:        "broken",
		NumberOfUsers: 5,
	})
	var dispatchErr *loaderrors.ErrDispatchFailed
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, "broken-1", dispatchErr.RunId)
	assert.Len(t, dispatcher.dispatched, 1)
}

func TestPlan_InvalidConfigDispatchesNothing(t *testing.T) {
	planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{})
	err := plan(context.Background(), planner, fakeClock, api.RunConfig{
		TestType:      api.TestTypeStep,
		TestId:        "short",
		NumberOfUsers: 9,
		UserIncrease:  5,
		Links:         []string{"/project/a"},
	})
	assert.True(t, loaderrors.IsInvalidArgument(err))
	assert.Empty(t, dispatcher.dispatched)
}

func TestPlan_CancelledContext(t *testing.T) {
	planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := plan(ctx, planner, fakeClock, api.RunConfig{TestType: api.TestTypeFlat, TestId: "c", NumberOfUsers: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dispatcher.dispatched)
}

func TestPlan_CancelledDuringStepPause(t *testing.T) {
	planner, dispatcher, fakeClock := setupPlanner(configuration.PlannerConfiguration{})
	config := api.RunConfig{
		TestType:      api.TestTypeStep,
		TestId:        "shutdown",
		NumberOfUsers: 5,
		UserIncrease:  3,
		StepTime:      10,
		Links:         []string{"/a", "/b", "/c", "/d", "/e", "/f"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- planner.Plan(ctx, config) }()

	for i := 1; i <= 3; i++ {
		require.Eventually(t, fakeClock.HasWaiters, time.Second, time.Millisecond)
		fakeClock.Step(DefaultDispatchDelay)
		require.Eventually(t, func() bool { return dispatcher.count() == i }, time.Second, time.Millisecond)
	}
	// the planner is now waiting out the ten minute step
	require.Eventually(t, fakeClock.HasWaiters, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("planner did not stop on cancellation")
	}
	assert.Equal(t, 3, dispatcher.count())
	assert.Equal(t, 3*DefaultDispatchDelay, fakeClock.Since(startTime))
}

func TestLoadProjectSlugs(t *testing.T) {
	slugs, err := LoadProjectSlugs(filepath.Join("testdata", "stage.json"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/project/the-last-frame", "/project/night-shift"}, slugs)
}
