// Package sink delivers metric records to the results spreadsheet.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/filmio/pageload/internal/pageload/configuration"
	"github.com/filmio/pageload/pkg/api"
)

const (
	DefaultMaxRedirects = 20
	DefaultTimeout      = time.Minute
)

type Sink interface {
	// Submit delivers one record and returns the sink's acknowledgement body.
	Submit(ctx context.Context, record api.MetricRecord) (string, error)
}

// WebhookSink posts records as JSON to a web app endpoint. Spreadsheet script endpoints answer a POST
// with a redirect to the result, so redirects are followed.
type WebhookSink struct {
	url    string
	client *http.Client
}

func NewWebhookSink(config configuration.SinkConfiguration) *WebhookSink {
	maxRedirects := config.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &WebhookSink{
		url: config.URL,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return errors.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

func (s *WebhookSink) Submit(ctx context.Context, record api.MetricRecord) (string, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return "", errors.WithStack(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "error posting record")
	}
	defer resp.Body.Close()

	ack, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "error reading sink response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return string(ack), errors.WithStack(&ErrRejected{StatusCode: resp.StatusCode, Body: string(ack)})
	}
	return string(ack), nil
}

// ErrRejected is returned when the sink answers with a non-2xx status.
type ErrRejected struct {
	StatusCode int
	Body       string
}

func (err *ErrRejected) Error() string {
	return fmt.Sprintf("sink rejected record with status %d: %s", err.StatusCode, err.Body)
}
