package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricPrefix = "pageload_"

var WorkersDispatched = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: metricPrefix + "workers_dispatched_total",
		Help: "Number of session runners handed to the dispatcher, split by test type.",
	},
	[]string{"testType"},
)

var DispatchFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: metricPrefix + "dispatch_failures_total",
		Help: "Number of dispatch attempts rejected by the dispatcher.",
	},
	[]string{"dispatcher"},
)

var SessionsCompleted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: metricPrefix + "sessions_completed_total",
		Help: "Number of session runs that finished, split by outcome.",
	},
	[]string{"outcome"},
)

var RecordsSubmitted = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: metricPrefix + "records_submitted_total",
		Help: "Number of metric records accepted by the results sink.",
	},
)

var SinkFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: metricPrefix + "sink_failures_total",
		Help: "Number of metric records the results sink failed to accept.",
	},
)

var UploadFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: metricPrefix + "upload_failures_total",
		Help: "Number of screenshots that could not be uploaded.",
	},
)

var UrlFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: metricPrefix + "url_failures_total",
		Help: "Number of urls that produced no record because navigation or inspection failed.",
	},
)

var PageLoadSeconds = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    metricPrefix + "page_load_seconds",
		Help:    "Measured navigation time per url. Spinner pages are recorded at the ceiling value.",
		Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 30, 60},
	},
	[]string{"spinner"},
)
