// SPDX-License-Identifier: MIT

// Package config loads supereeg settings from YAML with SUPEREEG_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/supereeg/brain"
	"github.com/katalvlaran/supereeg/matrix"
	"github.com/katalvlaran/supereeg/recon"
	"github.com/katalvlaran/supereeg/storage"
)

// ErrInvalid is wrapped by Validate failures.
var ErrInvalid = errors.New("config: invalid")

// Config is the full settings tree.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// EngineConfig controls model building and reconstruction.
type EngineConfig struct {
	Ridge             float64 `yaml:"ridge"`
	Clip              float64 `yaml:"clip"`
	KurtosisThreshold float64 `yaml:"kurtosisThreshold"` // 0 disables filtering
	Workers           int     `yaml:"workers"`
}

// StorageConfig selects the blob driver and catalog location.
type StorageConfig struct {
	Driver      storage.Driver `yaml:"driver"`
	DataRoot    string         `yaml:"dataRoot"`
	CatalogPath string         `yaml:"catalogPath"`
	S3          S3Config       `yaml:"s3"`
}

// S3Config configures the s3 driver.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"pathStyle"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig toggles Prometheus collectors.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load initialises Config from a YAML file and environment overrides. An
// empty path falls back to SUPEREEG_CONFIG, then to defaults only.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SUPEREEG_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Ridge:             recon.DefaultRidge,
			Clip:              matrix.DefaultClip,
			KurtosisThreshold: brain.DefaultKurtosisThreshold,
			Workers:           4,
		},
		Storage: StorageConfig{
			Driver:      storage.DriverFilesystem,
			DataRoot:    "data",
			CatalogPath: "data/catalog.db",
			S3:          S3Config{Region: "us-east-1"},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.Engine.Ridge < 0 || math.IsNaN(c.Engine.Ridge) || math.IsInf(c.Engine.Ridge, 0):
		return fmt.Errorf("%w: engine.ridge %v", ErrInvalid, c.Engine.Ridge)
	case !(c.Engine.Clip > 0 && c.Engine.Clip < 1):
		return fmt.Errorf("%w: engine.clip %v not in (0,1)", ErrInvalid, c.Engine.Clip)
	case c.Engine.KurtosisThreshold < 0:
		return fmt.Errorf("%w: engine.kurtosisThreshold %v", ErrInvalid, c.Engine.KurtosisThreshold)
	case c.Engine.Workers < 1:
		return fmt.Errorf("%w: engine.workers %d", ErrInvalid, c.Engine.Workers)
	case c.Storage.CatalogPath == "":
		return fmt.Errorf("%w: storage.catalogPath empty", ErrInvalid)
	}
	switch c.Storage.Driver {
	case storage.DriverMemory:
	case storage.DriverFilesystem:
		if c.Storage.DataRoot == "" {
			return fmt.Errorf("%w: storage.dataRoot required for fs driver", ErrInvalid)
		}
	case storage.DriverS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("%w: storage.s3.bucket required for s3 driver", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: storage.driver %q", ErrInvalid, c.Storage.Driver)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SUPEREEG_RIDGE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.Ridge = f
		}
	}
	if v := os.Getenv("SUPEREEG_CLIP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.Clip = f
		}
	}
	if v := os.Getenv("SUPEREEG_KURTOSIS_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.KurtosisThreshold = f
		}
	}
	if v := os.Getenv("SUPEREEG_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Workers = n
		}
	}
	if v := os.Getenv("SUPEREEG_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = storage.Driver(strings.ToLower(v))
	}
	if v := os.Getenv("SUPEREEG_DATA_ROOT"); v != "" {
		cfg.Storage.DataRoot = v
	}
	if v := os.Getenv("SUPEREEG_CATALOG_PATH"); v != "" {
		cfg.Storage.CatalogPath = v
	}
	if v := os.Getenv("SUPEREEG_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("SUPEREEG_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("SUPEREEG_S3_PREFIX"); v != "" {
		cfg.Storage.S3.Prefix = v
	}
	if v := os.Getenv("SUPEREEG_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("SUPEREEG_S3_PATH_STYLE"); v != "" {
		cfg.Storage.S3.PathStyle = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("SUPEREEG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SUPEREEG_LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}
	if v := os.Getenv("SUPEREEG_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
}
