package mavlink

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vectorfield/airstreams/metric"
)

// decoderMetrics holds Prometheus metrics for the frame decoder.
type decoderMetrics struct {
	framesParsed *prometheus.CounterVec // By component
	crcFailures  *prometheus.CounterVec // By component
	unknownMsgs  *prometheus.CounterVec // By component
	envelopes    *prometheus.CounterVec // By component and kind
	errors       *prometheus.CounterVec // By component and error_type

	linkConnected prometheus.Gauge
}

// newDecoderMetrics creates and registers frame-decoder metrics with the
// provided registry.
func newDecoderMetrics(registry *metric.MetricsRegistry, componentName string) (*decoderMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &decoderMetrics{
		framesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "mavlink",
			Name:      "frames_parsed_total",
			Help:      "Total number of wire frames extracted with a valid checksum",
		}, []string{"component"}),

		crcFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "mavlink",
			Name:      "crc_failures_total",
			Help:      "Total number of frames rejected for checksum mismatch",
		}, []string{"component"}),

		unknownMsgs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "mavlink",
			Name:      "unknown_messages_total",
			Help:      "Total number of frames skipped for an unrecognized message ID",
		}, []string{"component"}),

		envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "mavlink",
			Name:      "envelopes_published_total",
			Help:      "Total number of telemetry envelopes published by kind",
		}, []string{"component", "kind"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "mavlink",
			Name:      "errors_total",
			Help:      "Total number of decode and publish errors",
		}, []string{"component", "error_type"}), // error_type: decode, encode, publish

		linkConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airstreams",
			Subsystem: "mavlink",
			Name:      "link_connected",
			Help:      "Whether the vehicle link is currently up (1) or down (0)",
		}),
	}

	if err := registry.RegisterCounterVec("mavlink", "frames_parsed_total", m.framesParsed); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("mavlink", "crc_failures_total", m.crcFailures); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("mavlink", "unknown_messages_total", m.unknownMsgs); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("mavlink", "envelopes_published_total", m.envelopes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("mavlink", "errors_total", m.errors); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("mavlink", "link_connected", m.linkConnected); err != nil {
		return nil, err
	}

	return m, nil
}

// recordParser feeds one batch of parser counter deltas.
func (m *decoderMetrics) recordParser(componentName string, parsed, crcFailed, unknown uint64) {
	if m == nil {
		return
	}
	if parsed > 0 {
		m.framesParsed.WithLabelValues(componentName).Add(float64(parsed))
	}
	if crcFailed > 0 {
		m.crcFailures.WithLabelValues(componentName).Add(float64(crcFailed))
	}
	if unknown > 0 {
		m.unknownMsgs.WithLabelValues(componentName).Add(float64(unknown))
	}
}

// recordEnvelope records one published telemetry envelope.
func (m *decoderMetrics) recordEnvelope(componentName, kind string) {
	if m == nil {
		return
	}
	m.envelopes.WithLabelValues(componentName, kind).Inc()
}

// recordError records a decode or publish error.
func (m *decoderMetrics) recordError(componentName, errorType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(componentName, errorType).Inc()
}

// setLinkConnected updates the link gauge.
func (m *decoderMetrics) setLinkConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.linkConnected.Set(1)
	} else {
		m.linkConnected.Set(0)
	}
}
