package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// EgressAnnotation is the record column holding the worker's public ip.
const EgressAnnotation = "IP Address"

type EgressLookup interface {
	// Lookup returns the public ip of this process, or the failure text when it can't be determined.
	Lookup(ctx context.Context) string
}

// HttpEgressLookup asks an echo service which address requests arrive from. Successful answers are cached
// for ttl so concurrent sessions in one process share the lookup.
type HttpEgressLookup struct {
	url    string
	client *http.Client
	cache  *cache.Cache
	ttl    time.Duration
}

func NewHttpEgressLookup(url string, ttl time.Duration) *HttpEgressLookup {
	return &HttpEgressLookup{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		cache:  cache.New(ttl, 2*ttl),
		ttl:    ttl,
	}
}

func (l *HttpEgressLookup) Lookup(ctx context.Context) string {
	if l.url == "" {
		return ""
	}
	if ip, found := l.cache.Get(l.url); found {
		return ip.(string)
	}
	ip, err := l.fetch(ctx)
	if err != nil {
		log.WithError(err).Warn("could not determine egress ip")
		return err.Error()
	}
	l.cache.Set(l.url, ip, l.ttl)
	log.Infof("egress ip is %s", ip)
	return ip
}

func (l *HttpEgressLookup) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return "", errors.WithStack(err)
	}
	req.Header.Set("Accept", "*/*")
	resp, err := l.client.Do(req)
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("egress lookup returned status %d", resp.StatusCode)
	}
	var body struct {
		Origin string `json:"origin"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.Wrap(err, "error decoding egress lookup response")
	}
	return body.Origin, nil
}

// StaticEgress always reports the same value.
type StaticEgress string

func (s StaticEgress) Lookup(context.Context) string {
	return string(s)
}
