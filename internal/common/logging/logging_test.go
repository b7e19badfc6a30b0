package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_Json(t *testing.T) {
	defer ConfigureCliLogging()
	buf := &bytes.Buffer{}
	require.NoError(t, configure(buf, Config{Level: "debug", Format: FormatJson}))

	log.WithField("runId", "t-1").Debug("hello")

	entry := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "t-1", entry["runId"])
	assert.Equal(t, "debug", entry["level"])
}

func TestConfigure_InvalidLevel(t *testing.T) {
	defer ConfigureCliLogging()
	err := configure(&bytes.Buffer{}, Config{Level: "loud"})
	assert.Error(t, err)
}

func TestConfigure_InvalidFormat(t *testing.T) {
	defer ConfigureCliLogging()
	err := configure(&bytes.Buffer{}, Config{Format: "xml"})
	assert.Error(t, err)
}

func TestWithStacktrace(t *testing.T) {
	err := errors.Wrap(errors.New("root"), "outer")
	entry := WithStacktrace(log.NewEntry(log.StandardLogger()), err)
	assert.Equal(t, err, entry.Data[log.ErrorKey])
	assert.NotNil(t, entry.Data[Stacktrace])
}

func TestWithStacktrace_NoStack(t *testing.T) {
	entry := WithStacktrace(log.NewEntry(log.StandardLogger()), assert.AnError)
	_, ok := entry.Data[Stacktrace]
	assert.False(t, ok)
}
