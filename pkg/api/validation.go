package api

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/filmio/pageload/internal/common/loaderrors"
)

// scheduleEpsilon absorbs float noise in the last-step ratio, e.g. 5 * (3 - 2.4) = 3.0000000000000004.
const scheduleEpsilon = 1e-9

// StepSchedule returns the number of sessions dispatched in each step of a step run.
//
// The target is NumberOfUsers+1 sessions in steps of UserIncrease. The last step is scaled by
// ceil(target/UserIncrease) - target/UserIncrease, rounded up and clamped to zero, so the total can
// differ from the target by up to one UserIncrease. A last step of zero sessions is a valid schedule.
//
// Rounding ignores float noise below scheduleEpsilon, so a scaled count of 3.0000000000000004 is 3 sessions.
// A plain "dispatch while b < scaled" loop would send one more in that case: 11 users in steps of 5 give
// [5 5 3] here against 14 sessions for the loop, and 13 users give [5 5 1] against 12.
func (c RunConfig) StepSchedule() []int {
	if c.UserIncrease <= 0 || c.NumberOfUsers < 0 {
		return nil
	}
	division := float64(c.NumberOfUsers+1) / float64(c.UserIncrease)
	iterations := int(math.Ceil(division))
	lastRatio := float64(iterations) - division

	schedule := make([]int, iterations)
	for i := range schedule {
		increase := float64(c.UserIncrease)
		if i == iterations-1 {
			increase *= lastRatio
		}
		n := int(math.Ceil(increase - scheduleEpsilon))
		if n < 0 {
			n = 0
		}
		schedule[i] = n
	}
	return schedule
}

// TotalSessions is the number of workers the config dispatches.
func (c RunConfig) TotalSessions() int {
	switch c.TestType {
	case TestTypeFlat:
		return c.NumberOfUsers
	case TestTypeStep:
		total := 0
		for _, n := range c.StepSchedule() {
			total += n
		}
		return total
	}
	return 0
}

// Validate reports every invariant violation at once.
func (c RunConfig) Validate() error {
	var result *multierror.Error
	invalid := func(name string, value interface{}, format string, args ...interface{}) {
		result = multierror.Append(result, errors.WithStack(&loaderrors.ErrInvalidArgument{
			Name:    name,
			Value:   value,
			Message: fmt.Sprintf(format, args...),
		}))
	}

	if c.TestId == "" {
		invalid("testId", c.TestId, "must not be empty")
	}
	if c.NumberOfUsers < 0 {
		invalid("numberOfUsers", c.NumberOfUsers, "must be >= 0")
	}

	switch c.TestType {
	case TestTypeFlat:
		if c.NumberOfRandomProjectURLs < 0 {
			invalid("numberOfRandomProjectURLs", c.NumberOfRandomProjectURLs, "must be >= 0")
		}
		if c.NumberOfRandomProjectURLs > 0 && len(c.ProjectSlugs) == 0 {
			invalid("projectSlugs", c.ProjectSlugs, "random project urls requested but no project slugs are available")
		}
	case TestTypeStep:
		if c.UserIncrease <= 0 {
			invalid("userIncrease", c.UserIncrease, "must be > 0 for step runs")
		}
		if c.StepTime < 0 {
			invalid("stepTime", c.StepTime, "must be >= 0")
		}
		if c.TimeToStay < 0 {
			invalid("timeToStay", c.TimeToStay, "must be >= 0")
		}
		if c.UserIncrease > 0 && c.NumberOfUsers >= 0 {
			if needed := c.TotalSessions(); len(c.Links) < needed {
				invalid("links", len(c.Links), "step run dispatches %d sessions but only %d links were given", needed, len(c.Links))
			}
		}
	default:
		invalid("testType", c.TestType, "expected FLAT or STEP")
	}

	return result.ErrorOrNil()
}
