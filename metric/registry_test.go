package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorfield/airstreams/errors"
)

func TestNewMetricsRegistry(t *testing.T) {
	r := NewMetricsRegistry()
	require.NotNil(t, r)
	require.NotNil(t, r.PrometheusRegistry())
	require.NotNil(t, r.CoreMetrics())
}

func TestRegisterCounter(t *testing.T) {
	r := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "airstreams",
		Subsystem: "test",
		Name:      "events_total",
		Help:      "test counter",
	})

	err := r.RegisterCounter("imu", "events", counter)
	require.NoError(t, err)

	// Same key again is rejected
	err = r.RegisterCounter("imu", "events", counter)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegisterSameNameDifferentComponent(t *testing.T) {
	r := NewMetricsRegistry()

	a := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "airstreams", Subsystem: "alpha", Name: "events_total", Help: "a",
	})
	b := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "airstreams", Subsystem: "beta", Name: "events_total", Help: "b",
	})

	require.NoError(t, r.RegisterCounter("alpha", "events", a))
	require.NoError(t, r.RegisterCounter("beta", "events", b))
}

func TestUnregister(t *testing.T) {
	r := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "airstreams", Subsystem: "test", Name: "level", Help: "test gauge",
	})

	require.NoError(t, r.RegisterGauge("imu", "level", gauge))
	assert.True(t, r.Unregister("imu", "level"))
	assert.False(t, r.Unregister("imu", "level"))

	// Re-registration allowed after unregister
	require.NoError(t, r.RegisterGauge("imu", "level", gauge))
}

func TestCoreMetricsRecording(t *testing.T) {
	r := NewMetricsRegistry()
	core := r.CoreMetrics()

	// Smoke test: recording against core metrics does not panic and the
	// registry can gather them.
	core.RecordMessageReceived("imu", "ATTITUDE")
	core.RecordMessageProcessed("imu", "ATTITUDE", "accepted")
	core.RecordMessagePublished("imu", "sensors.imu.data")
	core.RecordError("imu", "decode")
	core.RecordNATSStatus(true)
	core.RecordNATSReconnect()

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
