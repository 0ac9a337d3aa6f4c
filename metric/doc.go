// Package metric provides Prometheus metrics infrastructure for airstreams.
//
// A single MetricsRegistry owns a private prometheus.Registry, pre-populated
// with core platform metrics (message counts, processing durations, NATS
// connection state) and Go runtime collectors. Components register their own
// metrics through the MetricsRegistrar interface under a
// "component.metric" key so duplicate registrations are caught early.
//
// The Server type exposes the registry over HTTP for Prometheus scraping,
// plus a trivial /health endpoint.
package metric
