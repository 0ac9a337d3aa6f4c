// Package config defines the platform configuration and its YAML loader.
// A config file names the NATS connection, metrics endpoint, logging
// setup, and the set of component instances to create; per-component
// settings are passed through opaquely to the component factories.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vectorfield/airstreams/errors"
)

// Config is the complete platform configuration.
type Config struct {
	Version    string           `yaml:"version"`
	Platform   PlatformConfig   `yaml:"platform"`
	NATS       NATSConfig       `yaml:"nats"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
	Components ComponentConfigs `yaml:"components"`
}

// PlatformConfig identifies this deployment.
type PlatformConfig struct {
	ID          string `yaml:"id"`
	Environment string `yaml:"environment,omitempty"` // "prod", "dev", "test"
}

// NATSConfig defines NATS connection settings.
type NATSConfig struct {
	URL           string `yaml:"url,omitempty"`
	MaxReconnects int    `yaml:"max_reconnects,omitempty"`
	ReconnectWait string `yaml:"reconnect_wait,omitempty"` // Go duration string
	Username      string `yaml:"username,omitempty"`
	Password      string `yaml:"password,omitempty"`
	Token         string `yaml:"token,omitempty"`
}

// ReconnectWaitDuration parses the reconnect wait setting. Zero when
// unset.
func (n NATSConfig) ReconnectWaitDuration() (time.Duration, error) {
	if n.ReconnectWait == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(n.ReconnectWait)
	if err != nil {
		return 0, errors.WrapInvalid(err, "NATSConfig", "ReconnectWaitDuration", "duration parsing")
	}
	return d, nil
}

// MetricsConfig defines the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port,omitempty"` // default 9090
	Path    string `yaml:"path,omitempty"` // default /metrics
}

// LoggingConfig defines log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // text, json
}

// ComponentConfigs maps instance names (e.g. "udp-telemetry-main") to
// their configurations. Instances are only created when enabled.
type ComponentConfigs map[string]ComponentConfig

// ComponentConfig configures one component instance. Config is the
// component-specific section, handed to the factory untouched.
type ComponentConfig struct {
	Type    string         `yaml:"type"` // input, processor, output
	Name    string         `yaml:"name"` // factory name: udp, mavlink, imu
	Enabled bool           `yaml:"enabled"`
	Config  map[string]any `yaml:"config,omitempty"`
}

// RawConfig returns the component-specific section as JSON for the
// factory.
func (c ComponentConfig) RawConfig() (json.RawMessage, error) {
	if c.Config == nil {
		return nil, nil
	}
	data, err := json.Marshal(c.Config)
	if err != nil {
		return nil, errors.WrapInvalid(err, "ComponentConfig", "RawConfig", "JSON encoding")
	}
	return data, nil
}

// Validate checks the component entry names a factory and a known type.
func (c ComponentConfig) Validate() error {
	if c.Name == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"ComponentConfig", "Validate", "component factory name cannot be empty")
	}
	switch c.Type {
	case "input", "processor", "output":
		return nil
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"ComponentConfig", "Validate", fmt.Sprintf("invalid component type: %s", c.Type))
	}
}

// Validate checks the whole configuration.
func (c *Config) Validate() error {
	if c.Platform.ID == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig,
			"Config", "Validate", "platform.id is required")
	}
	if !isValidSubjectPart(c.Platform.ID) {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate",
			fmt.Sprintf("platform.id %q is not NATS-subject safe", c.Platform.ID))
	}

	if _, err := c.NATS.ReconnectWaitDuration(); err != nil {
		return errors.Wrap(err, "Config", "Validate", "nats.reconnect_wait")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate", fmt.Sprintf("unknown log level %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate", fmt.Sprintf("unknown log format %q", c.Logging.Format))
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Config", "Validate", fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
	}

	for instanceName, comp := range c.Components {
		if instanceName == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig,
				"Config", "Validate", "component instance name cannot be empty")
		}
		if err := comp.Validate(); err != nil {
			return errors.Wrap(err, "Config", "Validate",
				fmt.Sprintf("component %s", instanceName))
		}
	}

	return nil
}

// isValidSubjectPart reports whether s can appear as one token of a NATS
// subject: alphanumeric plus dash and underscore.
func isValidSubjectPart(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Default returns a runnable single-vehicle pipeline: UDP ingress,
// frame decoder, and IMU processor, all with factory defaults.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Platform: PlatformConfig{
			ID:          "airstreams-local",
			Environment: "dev",
		},
		NATS: NATSConfig{
			URL: "nats://localhost:4222",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Components: ComponentConfigs{
			"udp-telemetry": {
				Type:    "input",
				Name:    "udp",
				Enabled: true,
			},
			"mavlink-decoder": {
				Type:    "processor",
				Name:    "mavlink",
				Enabled: true,
			},
			"imu-processor": {
				Type:    "processor",
				Name:    "imu",
				Enabled: true,
			},
		},
	}
}
