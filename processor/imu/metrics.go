package imu

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vectorfield/airstreams/metric"
)

// imuMetrics holds Prometheus metrics for IMU processor operations.
type imuMetrics struct {
	messagesTotal  *prometheus.CounterVec // By component and kind
	droppedTotal   *prometheus.CounterVec // By component and kind (superseded by arbiter)
	publishedTotal *prometheus.CounterVec // By component and subject
	errors         *prometheus.CounterVec // By component and error_type

	// Current arbiter states, exported as the enum's numeric value.
	attitudeSource prometheus.Gauge
	inertialSource prometheus.Gauge
}

// newIMUMetrics creates and registers IMU processor metrics with the
// provided registry.
func newIMUMetrics(registry *metric.MetricsRegistry, componentName string) (*imuMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &imuMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "imu",
			Name:      "messages_total",
			Help:      "Total number of telemetry messages received by kind",
		}, []string{"component", "kind"}),

		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "imu",
			Name:      "dropped_total",
			Help:      "Total number of messages dropped by source arbitration",
		}, []string{"component", "kind"}),

		publishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "imu",
			Name:      "records_published_total",
			Help:      "Total number of output records published by subject",
		}, []string{"component", "subject"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "airstreams",
			Subsystem: "imu",
			Name:      "errors_total",
			Help:      "Total number of processing errors",
		}, []string{"component", "error_type"}), // error_type: parse, encode, publish

		attitudeSource: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airstreams",
			Subsystem: "imu",
			Name:      "attitude_source",
			Help:      "Current attitude source (0=none, 1=euler, 2=quaternion)",
		}),

		inertialSource: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "airstreams",
			Subsystem: "imu",
			Name:      "inertial_source",
			Help:      "Current inertial source (0=none, 1=raw, 2=scaled, 3=highres)",
		}),
	}

	if err := registry.RegisterCounterVec("imu", "messages_total", m.messagesTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("imu", "dropped_total", m.droppedTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("imu", "records_published_total", m.publishedTotal); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounterVec("imu", "errors_total", m.errors); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("imu", "attitude_source", m.attitudeSource); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("imu", "inertial_source", m.inertialSource); err != nil {
		return nil, err
	}

	return m, nil
}

// recordMessage records one received telemetry message.
func (m *imuMetrics) recordMessage(componentName, kind string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(componentName, kind).Inc()
}

// recordDrop records a message suppressed by arbitration.
func (m *imuMetrics) recordDrop(componentName, kind string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(componentName, kind).Inc()
}

// recordPublish records one dispatched output record.
func (m *imuMetrics) recordPublish(componentName, subject string) {
	if m == nil {
		return
	}
	m.publishedTotal.WithLabelValues(componentName, subject).Inc()
}

// recordError records a processing error.
func (m *imuMetrics) recordError(componentName, errorType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(componentName, errorType).Inc()
}

// setAttitudeSource updates the attitude source gauge.
func (m *imuMetrics) setAttitudeSource(src AttitudeSource) {
	if m == nil {
		return
	}
	m.attitudeSource.Set(float64(src))
}

// setInertialSource updates the inertial source gauge.
func (m *imuMetrics) setInertialSource(src InertialSource) {
	if m == nil {
		return
	}
	m.inertialSource.Set(float64(src))
}
