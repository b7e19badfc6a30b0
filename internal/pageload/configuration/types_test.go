package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonconfig "github.com/filmio/pageload/internal/common/config"
)

const defaultConfigPath = "../../../config/pageload"

func TestDefaultConfig(t *testing.T) {
	var config Configuration
	_, err := commonconfig.LoadConfig(&config, defaultConfigPath, nil)
	require.NoError(t, err)
	require.NoError(t, commonconfig.Validate(config))

	assert.Equal(t, "child", config.FunctionName)
	assert.Equal(t, DispatcherLog, config.Dispatch.Type)
	assert.Equal(t, uint(1), config.Dispatch.Retry.Attempts)
	assert.Equal(t, 500*time.Millisecond, config.Planner.DispatchDelay)
	assert.Equal(t, 215000, config.Session.SpinnerDiffThreshold)
	assert.Equal(t, 360*time.Second, config.Session.NavigationTimeout)
	assert.Equal(t, "America/Santo_Domingo", config.Session.Timezone.String())
	assert.Equal(t, []string{"localhost:6379"}, config.Dispatch.Redis.Redis.Addrs)
	assert.Equal(t, 20, config.Sink.MaxRedirects)
}

func TestConfigOverrides(t *testing.T) {
	override := filepath.Join(t.TempDir(), "override.yaml")
	require.NoError(t, os.WriteFile(override, []byte("dispatch:\n  type: redis\n  retry:\n    attempts: 3\n"), 0o600))
	t.Setenv("PAGELOAD_SINK_URL", "https://example.com/hook")

	var config Configuration
	_, err := commonconfig.LoadConfig(&config, defaultConfigPath, []string{override})
	require.NoError(t, err)

	assert.Equal(t, DispatcherRedis, config.Dispatch.Type)
	assert.Equal(t, uint(3), config.Dispatch.Retry.Attempts)
	assert.Equal(t, "https://example.com/hook", config.Sink.URL)
	assert.Equal(t, "https://stage.film.io", config.Session.BaseURL)
}

func TestValidate_RejectsBadConfig(t *testing.T) {
	var config Configuration
	_, err := commonconfig.LoadConfig(&config, defaultConfigPath, nil)
	require.NoError(t, err)

	config.Dispatch.Type = "carrier-pigeon"
	config.Dispatch.Retry.Attempts = 0
	err = commonconfig.Validate(config)
	require.Error(t, err)
	commonconfig.LogValidationErrors(err)
}
