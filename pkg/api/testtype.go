package api

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/filmio/pageload/internal/common/loaderrors"
)

// TestType is the declared shape of a run.
type TestType string

const (
	// TestTypeFlat launches every session at (roughly) the same time.
	TestTypeFlat TestType = "FLAT"
	// TestTypeStep ramps concurrency up in fixed increments.
	TestTypeStep TestType = "STEP"
)

// ParseTestType accepts the enum names as well as the numeric codes "1" (flat) and "2" (step)
// that older run definitions use.
func ParseTestType(s string) (TestType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FLAT", "1":
		return TestTypeFlat, nil
	case "STEP", "2":
		return TestTypeStep, nil
	}
	return "", errors.WithStack(&loaderrors.ErrInvalidArgument{
		Name:    "testType",
		Value:   s,
		Message: "expected FLAT (1) or STEP (2)",
	})
}

func (t TestType) String() string {
	return string(t)
}

func (t TestType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

func (t *TestType) UnmarshalText(text []byte) error {
	parsed, err := ParseTestType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalJSON additionally accepts a bare number, e.g. "testType": 2.
func (t *TestType) UnmarshalJSON(data []byte) error {
	return t.UnmarshalText([]byte(strings.Trim(string(data), `"`)))
}
