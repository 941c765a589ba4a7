// SPDX-License-Identifier: MIT

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/supereeg/config"
	"github.com/katalvlaran/supereeg/storage"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "supereeg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SUPEREEG_CONFIG", "")
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)
	assert.Equal(t, storage.DriverFilesystem, cfg.Storage.Driver)
	assert.Equal(t, 1e-6, cfg.Engine.Clip)
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	path := writeFile(t, `
engine:
  ridge: 0.01
  workers: 8
storage:
  driver: s3
  s3:
    bucket: eeg
    pathStyle: true
logging:
  json: true
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.Engine.Ridge)
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, 1e-6, cfg.Engine.Clip, "untouched keys keep defaults")
	assert.Equal(t, storage.DriverS3, cfg.Storage.Driver)
	assert.Equal(t, "eeg", cfg.Storage.S3.Bucket)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
	assert.True(t, cfg.Storage.S3.PathStyle)
	assert.True(t, cfg.Logging.JSON)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "engine:\n  workers: 2\n")
	t.Setenv("SUPEREEG_WORKERS", "6")
	t.Setenv("SUPEREEG_STORAGE_DRIVER", "MEMORY")
	t.Setenv("SUPEREEG_LOG_LEVEL", "debug")
	t.Setenv("SUPEREEG_METRICS_ENABLED", "1")
	t.Setenv("SUPEREEG_RIDGE", "not-a-number")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Engine.Workers)
	assert.Equal(t, storage.DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 1e-6, cfg.Engine.Ridge, "unparsable overrides are ignored")
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "not found")

	_, err = config.Load(writeFile(t, "engine: [unclosed"))
	assert.ErrorContains(t, err, "parse config")

	_, err = config.Load(writeFile(t, "storage:\n  driver: tape\n"))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Config){
		"negative ridge":    func(c *config.Config) { c.Engine.Ridge = -1 },
		"clip zero":         func(c *config.Config) { c.Engine.Clip = 0 },
		"clip one":          func(c *config.Config) { c.Engine.Clip = 1 },
		"negative kurtosis": func(c *config.Config) { c.Engine.KurtosisThreshold = -2 },
		"no workers":        func(c *config.Config) { c.Engine.Workers = 0 },
		"no catalog":        func(c *config.Config) { c.Storage.CatalogPath = "" },
		"fs without root":   func(c *config.Config) { c.Storage.DataRoot = "" },
		"s3 without bucket": func(c *config.Config) { c.Storage.Driver = storage.DriverS3 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalid)
		})
	}

	cfg := config.Default()
	cfg.Storage.Driver = storage.DriverMemory
	cfg.Storage.DataRoot = ""
	assert.NoError(t, cfg.Validate())
}
