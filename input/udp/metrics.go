package udp

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vectorfield/airstreams/metric"
	"github.com/vectorfield/airstreams/pkg/buffer"
)

// inputMetrics holds Prometheus metrics for the UDP input component.
type inputMetrics struct {
	datagramsReceived prometheus.Counter
	bytesReceived     prometheus.Counter
	datagramsDropped  prometheus.Counter
	bufferUtilization prometheus.Gauge
	batchSize         prometheus.Histogram
	publishLatency    prometheus.Histogram
	socketErrors      prometheus.Counter
	lastActivity      prometheus.Gauge
}

// newInputMetrics creates and registers UDP input metrics.
func newInputMetrics(registry *metric.MetricsRegistry, port int) *inputMetrics {
	if registry == nil {
		return nil // Metrics disabled
	}

	m := &inputMetrics{
		datagramsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "udp",
			Name:      "datagrams_received_total",
			Help:      "Total UDP datagrams received",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "udp",
			Name:      "bytes_received_total",
			Help:      "Total bytes received from UDP",
		}),
		datagramsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "udp",
			Name:      "datagrams_dropped_total",
			Help:      "Datagrams dropped due to buffer overflow",
		}),
		bufferUtilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airstreams",
			Subsystem: "udp",
			Name:      "buffer_utilization_ratio",
			Help:      "Ring buffer usage (0-1) showing backpressure",
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "airstreams",
			Subsystem: "udp",
			Name:      "batch_size",
			Help:      "Distribution of publish batch sizes",
			Buckets:   []float64{1, 5, 10, 20, 50, 100, 200, 500},
		}),
		publishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "airstreams",
			Subsystem: "udp",
			Name:      "publish_duration_seconds",
			Help:      "Time to publish datagrams to NATS",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}),
		socketErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "udp",
			Name:      "socket_errors_total",
			Help:      "Socket read errors encountered",
		}),
		lastActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airstreams",
			Subsystem: "udp",
			Name:      "last_activity_timestamp",
			Help:      "Unix timestamp of the last received datagram",
		}),
	}

	serviceName := fmt.Sprintf("udp_%d", port)
	registry.RegisterCounter(serviceName, "datagrams_received", m.datagramsReceived)
	registry.RegisterCounter(serviceName, "bytes_received", m.bytesReceived)
	registry.RegisterCounter(serviceName, "datagrams_dropped", m.datagramsDropped)
	registry.RegisterGauge(serviceName, "buffer_utilization", m.bufferUtilization)
	registry.RegisterHistogram(serviceName, "batch_size", m.batchSize)
	registry.RegisterHistogram(serviceName, "publish_latency", m.publishLatency)
	registry.RegisterCounter(serviceName, "socket_errors", m.socketErrors)
	registry.RegisterGauge(serviceName, "last_activity", m.lastActivity)

	return m
}

func (m *inputMetrics) recordDatagram(n int, now time.Time) {
	if m == nil {
		return
	}
	m.datagramsReceived.Inc()
	m.bytesReceived.Add(float64(n))
	m.lastActivity.Set(float64(now.Unix()))
}

func (m *inputMetrics) recordDrop() {
	if m == nil {
		return
	}
	m.datagramsDropped.Inc()
}

func (m *inputMetrics) recordSocketError() {
	if m == nil {
		return
	}
	m.socketErrors.Inc()
}

func (m *inputMetrics) recordBufferUtilization(buf buffer.Buffer[[]byte]) {
	if m == nil || buf == nil {
		return
	}
	if capacity := buf.Capacity(); capacity > 0 {
		m.bufferUtilization.Set(float64(buf.Size()) / float64(capacity))
	}
}

func (m *inputMetrics) recordBatch(n int) {
	if m == nil || n == 0 {
		return
	}
	m.batchSize.Observe(float64(n))
}

func (m *inputMetrics) recordPublish(d time.Duration) {
	if m == nil {
		return
	}
	m.publishLatency.Observe(d.Seconds())
}
