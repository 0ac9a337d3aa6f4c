package component

import (
	"log/slog"

	"github.com/vectorfield/airstreams/metric"
	"github.com/vectorfield/airstreams/natsclient"
)

// Dependencies carries the external services a component needs. Factories
// receive this struct rather than individual fields so new dependencies can
// be added without touching every factory signature.
type Dependencies struct {
	NATSClient      *natsclient.Client      // NATS client for messaging
	MetricsRegistry *metric.MetricsRegistry // Prometheus registry (can be nil)
	Logger          *slog.Logger            // Structured logger (can be nil, defaults to slog.Default())
}

// GetLogger returns the configured logger, or slog.Default() when unset.
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger carrying component context.
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}
