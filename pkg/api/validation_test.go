package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/filmio/pageload/internal/common/loaderrors"
)

func TestStepSchedule(t *testing.T) {
	tests := map[string]struct {
		numberOfUsers int
		userIncrease  int
		expected      []int
	}{
		"exact multiple leaves an empty last step": {
			numberOfUsers: 9,
			userIncrease:  5,
			expected:      []int{5, 0},
		},
		"fractional last step is rounded up": {
			numberOfUsers: 11,
			userIncrease:  5,
			expected:      []int{5, 5, 3},
		},
		"float noise below a whole count is ignored": {
			numberOfUsers: 13,
			userIncrease:  5,
			expected:      []int{5, 5, 1},
		},
		"single step": {
			numberOfUsers: 4,
			userIncrease:  5,
			expected:      []int{0},
		},
		"zero users": {
			numberOfUsers: 0,
			userIncrease:  3,
			expected:      []int{2},
		},
		"increase of one": {
			numberOfUsers: 2,
			userIncrease:  1,
			expected:      []int{1, 1, 0},
		},
		"no increase": {
			numberOfUsers: 2,
			userIncrease:  0,
			expected:      nil,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			config := RunConfig{TestType: TestTypeStep, NumberOfUsers: tc.numberOfUsers, UserIncrease: tc.userIncrease}
			assert.Equal(t, tc.expected, config.StepSchedule())
		})
	}
}

func TestStepSchedule_TotalWithinOneIncrement(t *testing.T) {
	for users := 0; users <= 60; users++ {
		for increase := 1; increase <= 12; increase++ {
			config := RunConfig{TestType: TestTypeStep, NumberOfUsers: users, UserIncrease: increase}
			total := config.TotalSessions()
			target := users + 1
			assert.LessOrEqual(t, total-target, increase, "users=%d increase=%d", users, increase)
			assert.LessOrEqual(t, target-total, increase, "users=%d increase=%d", users, increase)
			for _, n := range config.StepSchedule() {
				assert.GreaterOrEqual(t, n, 0)
				assert.LessOrEqual(t, n, increase)
			}
		}
	}
}

func TestValidate(t *testing.T) {
	links := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = "/project/x"
		}
		return out
	}
	tests := map[string]struct {
		config        RunConfig
		invalidFields []string
	}{
		"valid flat": {
			config: RunConfig{TestType: TestTypeFlat, TestId: "t", NumberOfUsers: 3},
		},
		"valid flat with random projects": {
			config: RunConfig{TestType: TestTypeFlat, TestId: "t", NumberOfUsers: 3, NumberOfRandomProjectURLs: 2, ProjectSlugs: []string{"/project/a"}},
		},
		"flat random projects without slugs": {
			config:        RunConfig{TestType: TestTypeFlat, TestId: "t", NumberOfUsers: 3, NumberOfRandomProjectURLs: 2},
			invalidFields: []string{"projectSlugs"},
		},
		"negative users": {
			config:        RunConfig{TestType: TestTypeFlat, TestId: "t", NumberOfUsers: -1},
			invalidFields: []string{"numberOfUsers"},
		},
		"missing test id": {
			config:        RunConfig{TestType: TestTypeFlat},
			invalidFields: []string{"testId"},
		},
		"valid step": {
			config: RunConfig{TestType: TestTypeStep, TestId: "t", NumberOfUsers: 9, UserIncrease: 5, StepTime: 1, Links: links(5)},
		},
		"step without increase": {
			config:        RunConfig{TestType: TestTypeStep, TestId: "t", NumberOfUsers: 9},
			invalidFields: []string{"userIncrease"},
		},
		"step with too few links": {
			config:        RunConfig{TestType: TestTypeStep, TestId: "t", NumberOfUsers: 11, UserIncrease: 5, Links: links(12)},
			invalidFields: []string{"links"},
		},
		"step with negative times": {
			config:        RunConfig{TestType: TestTypeStep, TestId: "t", NumberOfUsers: 4, UserIncrease: 5, StepTime: -1, TimeToStay: -1},
			invalidFields: []string{"stepTime", "timeToStay"},
		},
		"unknown type": {
			config:        RunConfig{TestId: "t"},
			invalidFields: []string{"testType"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.config.Validate()
			if len(tc.invalidFields) == 0 {
				assert.NoError(t, err)
				return
			}
			assert.True(t, loaderrors.IsInvalidArgument(err))
			for _, field := range tc.invalidFields {
				assert.Contains(t, err.Error(), field)
			}
		})
	}
}
