package api

import (
	"time"
)

// ExploreAnchor is the first page of every flat-run session.
const ExploreAnchor = "/explore"

// RunConfig is the declared shape of one test. It is read once and never mutated during planning.
type RunConfig struct {
	TestType TestType `json:"testType"`
	TestId   string   `json:"testId"`
	// Test is a human-readable label carried into records and screenshot names.
	Test          string  `json:"test,omitempty"`
	NumberOfUsers int     `json:"numberOfUsers"`
	Jwt           *string `json:"jwt,omitempty"`

	// Flat runs
	Urls                      []string `json:"urls,omitempty"`
	ProjectSlugs              []string `json:"projectSlugs,omitempty"`
	NumberOfRandomProjectURLs int      `json:"numberOfRandomProjectURLs,omitempty"`

	// Step runs
	UserIncrease int      `json:"userIncrease,omitempty"`
	StepTime     float64  `json:"stepTime,omitempty"`   // minutes
	TimeToStay   float64  `json:"timeToStay,omitempty"` // minutes
	Links        []string `json:"links,omitempty"`
}

// StepDuration is StepTime converted from minutes.
func (c RunConfig) StepDuration() time.Duration {
	return minutes(c.StepTime)
}

// DwellDuration is TimeToStay converted from minutes.
func (c RunConfig) DwellDuration() time.Duration {
	return minutes(c.TimeToStay)
}

func minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

// WorkerPayload is everything one Session Runner needs. The planner builds a new one for every dispatch.
type WorkerPayload struct {
	RunId        string            `json:"runId"`
	Urls         []string          `json:"urls"`
	Jwt          *string           `json:"jwt"`
	Test         string            `json:"test,omitempty"`
	TestId       string            `json:"testId,omitempty"`
	Name         string            `json:"name,omitempty"`
	TimeToStayMs int64             `json:"timeToStayMs,omitempty"`
	Annotations  map[string]string `json:"annotations,omitempty"`
}

// TimeToStay is how long the session keeps the browser open after the last url.
func (p WorkerPayload) TimeToStay() time.Duration {
	return time.Duration(p.TimeToStayMs) * time.Millisecond
}

// PassthroughFields are the payload values flattened into every MetricRecord. The credential is
// deliberately absent.
func (p WorkerPayload) PassthroughFields() map[string]interface{} {
	fields := map[string]interface{}{
		"runId": p.RunId,
		"urls":  p.Urls,
	}
	if p.Test != "" {
		fields["test"] = p.Test
	}
	if p.TestId != "" {
		fields["testId"] = p.TestId
	}
	if p.Name != "" {
		fields["name"] = p.Name
	}
	if p.TimeToStayMs > 0 {
		fields["timeToStay"] = p.TimeToStayMs
	}
	for k, v := range p.Annotations {
		fields[k] = v
	}
	return fields
}
