package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vectorfield/airstreams/errors"
)

// maxConfigBytes bounds the accepted file size; config files are small
// and anything larger is a mistake.
const maxConfigBytes = 1 << 20

// Loader reads platform configuration files.
type Loader struct{}

// NewLoader creates a config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFile reads and parses a YAML config file.
func (l *Loader) LoadFile(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "LoadFile", "config file stat")
	}
	if info.Size() > maxConfigBytes {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig,
			"Loader", "LoadFile", "config file exceeds size limit")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "LoadFile", "config file read")
	}
	return l.Parse(data)
}

// Parse decodes YAML config bytes, filling defaults for unset sections.
func (l *Loader) Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Parse", "YAML decoding")
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
