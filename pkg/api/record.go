package api

import (
	"encoding/json"
)

// Column names understood by the results spreadsheet.
const (
	ColumnSpinnerVisible = "Is Spinner Visible"
	ColumnSpinner        = "Is Spinner"
	ColumnErrorState     = "is SWW?"
	ColumnLoadTime       = "Load Time"
	ColumnPageTitle      = "Page Title"
	ColumnScreenshot     = "Screenshot Link"
	ColumnURL            = "URL"
	ColumnSubtest        = "Subtest #"
	ColumnTimestamp      = "Timestamp"
)

// MetricRecord is the measurement of one url visited by one worker.
type MetricRecord struct {
	Url              string
	PageTitle        string
	LoadTimeSeconds  float64
	IsSpinnerVisible bool
	IsSpinner        bool
	IsErrorState     bool
	ScreenshotUrl    string
	SubtestIndex     int
	Timestamp        string

	// Passthrough holds run level fields that are copied into the record verbatim.
	Passthrough map[string]interface{}
}

// MarshalJSON flattens the record into a single object. Measured columns win over passthrough fields
// with the same name.
func (r MetricRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Passthrough)+9)
	for k, v := range r.Passthrough {
		out[k] = v
	}
	out[ColumnSpinnerVisible] = r.IsSpinnerVisible
	out[ColumnSpinner] = r.IsSpinner
	out[ColumnErrorState] = r.IsErrorState
	out[ColumnLoadTime] = r.LoadTimeSeconds
	out[ColumnPageTitle] = r.PageTitle
	out[ColumnScreenshot] = r.ScreenshotUrl
	out[ColumnURL] = r.Url
	out[ColumnSubtest] = r.SubtestIndex
	out[ColumnTimestamp] = r.Timestamp
	return json.Marshal(out)
}
