package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
  use_plaintext: true
workers:
  tgvmax-freeplaces-dispatch:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "freeplaces-workers", cfg.App.Name)
	assert.Equal(t, "localhost:26500", cfg.Camunda.BrokerAddress)
	assert.True(t, cfg.Camunda.UsePlaintext)
	assert.Equal(t, "https://www.maxjeune-tgvinoui.sncf", cfg.TGVMax.BaseURL)
	assert.Equal(t, cfg.TGVMax.BaseURL, cfg.TGVMax.Origin)
	assert.Equal(t, "searchFreeplaces", cfg.TGVMax.DefaultOperation)
	assert.Equal(t, 10000, cfg.TGVMax.Timeout)
	assert.False(t, cfg.TGVMax.ContinueOnFail)
	assert.Equal(t, "freeplaces:runs", cfg.Journal.KeyPrefix)
	assert.Equal(t, 500, cfg.Journal.MaxEntries)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Metrics.Address)

	worker := cfg.Workers["tgvmax-freeplaces-dispatch"]
	assert.True(t, worker.Enabled)
	assert.Equal(t, 5, worker.MaxJobsActive)
	assert.Equal(t, 30000, worker.Timeout)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("CAMUNDA_BROKER_ADDRESS", "zeebe:26500")
	t.Setenv("TGVMAX_CONTINUE_ON_FAIL", "true")
	t.Setenv("PLANNER_URL", "http://planner.local")

	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
tgvmax:
  base_url: ${PLANNER_URL}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "zeebe:26500", cfg.Camunda.BrokerAddress)
	assert.True(t, cfg.TGVMax.ContinueOnFail)
	assert.Equal(t, "http://planner.local", cfg.TGVMax.BaseURL)
	assert.Equal(t, "http://planner.local", cfg.TGVMax.Origin)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "missing broker address",
			content: "tgvmax:\n  timeout: 100\n",
			errMsg:  "camunda.broker_address is required",
		},
		{
			name:    "relative base url",
			content: "camunda:\n  broker_address: localhost:26500\ntgvmax:\n  base_url: /api\n",
			errMsg:  "tgvmax.base_url must be an absolute URL",
		},
		{
			name:    "journal without redis",
			content: "camunda:\n  broker_address: localhost:26500\njournal:\n  enabled: true\n",
			errMsg:  "database.redis.address is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CAMUNDA_BROKER_ADDRESS", "")
			_, err := LoadFromFile(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"known": {Enabled: false, MaxJobsActive: 2, Timeout: 1000},
	}}

	assert.Equal(t, WorkerConfig{Enabled: false, MaxJobsActive: 2, Timeout: 1000}, GetWorkerConfig(cfg, "known"))
	assert.Equal(t, WorkerConfig{Enabled: true, MaxJobsActive: 5, Timeout: 30000}, GetWorkerConfig(cfg, "unknown"))
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}
