// Package session runs one worker payload: a single browser session visiting an ordered list of urls and
// reporting one metric record per url.
package session

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/filmio/pageload/internal/blobstore"
	"github.com/filmio/pageload/internal/browser"
	"github.com/filmio/pageload/internal/common/logging"
	"github.com/filmio/pageload/internal/common/util"
	"github.com/filmio/pageload/internal/pageload/configuration"
	"github.com/filmio/pageload/internal/pageload/metrics"
	"github.com/filmio/pageload/internal/sink"
	"github.com/filmio/pageload/pkg/api"
)

const (
	DefaultTimestampLayout      = "2006-01-02 15:04:05"
	DefaultSpinnerLoadTime      = 30 * time.Second
	DefaultSpinnerDiffThreshold = 215000
)

// Differ counts the pixels in which a screenshot differs from the spinner reference image.
type Differ interface {
	Diff(screenshot []byte) (int, error)
}

type Runner struct {
	config   configuration.SessionConfiguration
	launcher browser.Launcher
	store    blobstore.Store
	sink     sink.Sink
	differ   Differ
	egress   EgressLookup
	clock    clock.Clock
	random   *rand.Rand
	newId    func() string
}

func NewRunner(
	config configuration.SessionConfiguration,
	launcher browser.Launcher,
	store blobstore.Store,
	sink sink.Sink,
	differ Differ,
	egress EgressLookup,
	clock clock.Clock,
	random *rand.Rand,
) *Runner {
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}
	if config.TimestampLayout == "" {
		config.TimestampLayout = DefaultTimestampLayout
	}
	if config.SpinnerLoadTime <= 0 {
		config.SpinnerLoadTime = DefaultSpinnerLoadTime
	}
	if config.SpinnerDiffThreshold <= 0 {
		config.SpinnerDiffThreshold = DefaultSpinnerDiffThreshold
	}
	if egress == nil {
		egress = StaticEgress("")
	}
	return &Runner{
		config:   config,
		launcher: launcher,
		store:    store,
		sink:     sink,
		differ:   differ,
		egress:   egress,
		clock:    clock,
		random:   random,
		newId:    uuid.NewString,
	}
}

// Run visits every url of the payload. Only failures that leave no usable browser session are returned;
// anything going wrong with a single url is logged and the next url is visited.
func (r *Runner) Run(ctx context.Context, payload api.WorkerPayload) (err error) {
	logger := log.WithField("runId", payload.RunId)
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		metrics.SessionsCompleted.WithLabelValues(outcome).Inc()
	}()

	passthrough := payload.PassthroughFields()
	if ip := r.egress.Lookup(ctx); ip != "" {
		passthrough[EgressAnnotation] = ip
	}

	session, err := r.launcher.Launch(ctx)
	if err != nil {
		return errors.WithMessage(err, "browsing failed")
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			logging.WithStacktrace(logger, closeErr).Warn("error closing browser session")
		}
	}()

	if err := r.login(ctx, session, payload); err != nil {
		return errors.WithMessage(err, "browsing failed")
	}

	loadTimes := hdrhistogram.New(1, int64(time.Hour/time.Millisecond), 3)
	for i, path := range payload.Urls {
		urlLogger := logger.WithField("url", r.config.BaseURL+path)
		urlLogger.Info("processing url")
		record, err := r.visit(ctx, session, payload, passthrough, i, path)
		if err != nil {
			metrics.UrlFailures.Inc()
			logging.WithStacktrace(urlLogger, err).Error("error processing url")
			continue
		}
		_ = loadTimes.RecordValue(int64(record.LoadTimeSeconds * 1000))
		r.submit(ctx, urlLogger, record)
	}
	logLoadTimes(logger, loadTimes)

	if dwell := payload.TimeToStay(); dwell > 0 {
		logger.Infof("keeping session open for %s", dwell)
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case <-r.clock.After(dwell):
		}
	}
	return nil
}

// login opens the base origin and writes the stored credentials into its localStorage.
func (r *Runner) login(ctx context.Context, session browser.Session, payload api.WorkerPayload) error {
	if err := session.Navigate(ctx, r.config.BaseURL); err != nil {
		return errors.WithMessagef(err, "error opening %s", r.config.BaseURL)
	}
	entries, err := LoadCredentials(r.config.CredentialsFile, payload.Jwt)
	if err != nil {
		return err
	}
	if err := session.InjectStorage(ctx, entries); err != nil {
		return errors.WithMessage(err, "error injecting stored credentials")
	}
	return nil
}

func (r *Runner) visit(
	ctx context.Context,
	session browser.Session,
	payload api.WorkerPayload,
	passthrough map[string]interface{},
	index int,
	path string,
) (api.MetricRecord, error) {
	url := r.config.BaseURL + path
	start := r.clock.Now()
	if err := session.Navigate(ctx, url); err != nil {
		return api.MetricRecord{}, errors.WithMessagef(err, "error navigating to %s", url)
	}
	loadTime := roundSeconds(r.clock.Since(start))

	title, err := session.Title(ctx)
	if err != nil {
		return api.MetricRecord{}, errors.WithMessage(err, "error reading page title")
	}
	timestamp := r.clock.Now().In(r.config.Timezone).Format(r.config.TimestampLayout)
	spinnerVisible, errorVisible := r.probe(ctx, session)

	screenshot, err := session.Screenshot(ctx)
	if err != nil {
		return api.MetricRecord{}, errors.WithMessage(err, "error capturing screenshot")
	}
	screenshotUrl := r.upload(ctx, screenshot, r.screenshotKey(timestamp, payload.Test))

	isSpinner := false
	if diff, err := r.differ.Diff(screenshot); err != nil {
		logging.WithStacktrace(log.WithField("url", url), err).Warn("could not compare screenshot with the spinner reference")
	} else {
		isSpinner = diff < r.config.SpinnerDiffThreshold
	}

	if spinnerVisible {
		loadTime = r.config.SpinnerLoadTime.Seconds()
	}
	metrics.PageLoadSeconds.WithLabelValues(fmt.Sprint(spinnerVisible)).Observe(loadTime)

	return api.MetricRecord{
		Url:              url,
		PageTitle:        title,
		LoadTimeSeconds:  loadTime,
		IsSpinnerVisible: spinnerVisible,
		IsSpinner:        isSpinner,
		IsErrorState:     errorVisible,
		ScreenshotUrl:    screenshotUrl,
		SubtestIndex:     index + 1,
		Timestamp:        timestamp,
		Passthrough:      passthrough,
	}, nil
}

// probe reports loading indicator and error fallback visibility. Any evaluation failure reports neither.
func (r *Runner) probe(ctx context.Context, session browser.Session) (bool, bool) {
	spinnerVisible, err := session.EvaluateVisibility(ctx, r.config.SpinnerSelector)
	if err != nil {
		log.WithError(err).Warn("spinner probe failed")
		return false, false
	}
	errorVisible, err := session.EvaluateVisibility(ctx, r.config.ErrorSelector)
	if err != nil {
		log.WithError(err).Warn("error fallback probe failed")
		return false, false
	}
	return spinnerVisible, errorVisible
}

// upload stores the screenshot after a random delay that spreads concurrent uploads. On failure the
// error text takes the place of the url.
func (r *Runner) upload(ctx context.Context, screenshot []byte, key string) string {
	r.clock.Sleep(util.Jitter(r.random, r.config.UploadJitterMin, r.config.UploadJitterMax))
	url, err := r.store.Put(ctx, screenshot, key)
	if err != nil {
		metrics.UploadFailures.Inc()
		logging.WithStacktrace(log.WithField("key", key), err).Error("error uploading screenshot")
		return err.Error()
	}
	return url
}

func (r *Runner) submit(ctx context.Context, logger *log.Entry, record api.MetricRecord) {
	ack, err := r.sink.Submit(ctx, record)
	if err != nil {
		metrics.SinkFailures.Inc()
		logging.WithStacktrace(logger, err).Error("error submitting record")
		return
	}
	metrics.RecordsSubmitted.Inc()
	logger.Debugf("sink response: %s", ack)
}

func (r *Runner) screenshotKey(timestamp string, test string) string {
	return fmt.Sprintf("%s-%s-%s.png", r.newId(), strings.Replace(timestamp, " ", "-", 1), test)
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

func logLoadTimes(logger *log.Entry, h *hdrhistogram.Histogram) {
	if h.TotalCount() == 0 {
		logger.Info("no urls measured")
		return
	}
	logger.WithFields(log.Fields{
		"count": h.TotalCount(),
		"p50":   time.Duration(h.ValueAtQuantile(50)) * time.Millisecond,
		"p90":   time.Duration(h.ValueAtQuantile(90)) * time.Millisecond,
		"max":   time.Duration(h.Max()) * time.Millisecond,
	}).Info("load time summary")
}
