package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{configPathEnv, listenAddrEnv, creditURLEnv, fraudURLEnv, statsURLEnv, serviceAPIKeyEnv, logLevelEnv} {
		t.Setenv(key, "")
	}
	t.Setenv(dotEnvPathEnv, filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, defaultBaseURL, cfg.Services.CreditBaseURL)
	assert.Equal(t, 10*time.Second, cfg.Services.Timeout.Std())
	assert.Equal(t, 30*time.Second, cfg.Dashboard.PollInterval.Std())
	assert.False(t, cfg.Dashboard.ActivateDashboardOnStart())
	assert.Equal(t, "concurrent", cfg.Underwriting.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMergesYAMLAndEnv(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  creditBaseUrl: http://credit.internal:9000
  fraudBaseUrl: http://fraud.internal:9001
  timeout: 1500ms
underwriting:
  mode: sequential
dashboard:
  pollInterval: 45s
  activateOnStart: true
logging:
  format: json
`), 0o600))

	t.Setenv(configPathEnv, path)
	t.Setenv(fraudURLEnv, "http://fraud.override:9100")
	t.Setenv(logLevelEnv, "debug")

	cfg := Load()
	assert.Equal(t, "http://credit.internal:9000", cfg.Services.CreditBaseURL)
	assert.Equal(t, "http://fraud.override:9100", cfg.Services.FraudBaseURL)
	assert.Equal(t, defaultBaseURL, cfg.Services.StatsBaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.Services.Timeout.Std())
	assert.Equal(t, "sequential", cfg.Underwriting.Mode)
	assert.Equal(t, 45*time.Second, cfg.Dashboard.PollInterval.Std())
	assert.True(t, cfg.Dashboard.ActivateDashboardOnStart())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFallsBackOnBadYAML(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dashboard:\n  pollInterval: soon\n"), 0o600))
	t.Setenv(configPathEnv, path)

	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.Dashboard.PollInterval.Std())
}

func TestLoadReadsDotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, os.Unsetenv(statsURLEnv))
	t.Cleanup(func() { _ = os.Unsetenv(statsURLEnv) })

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STATS_SERVICE_URL=http://stats.local:7000\n"), 0o600))
	t.Setenv(dotEnvPathEnv, path)

	cfg := Load()
	assert.Equal(t, "http://stats.local:7000", cfg.Services.StatsBaseURL)
}
