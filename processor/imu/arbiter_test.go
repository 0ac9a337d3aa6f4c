package imu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vectorfield/airstreams/telemetry"
)

func TestNextAttitudeSource(t *testing.T) {
	tests := []struct {
		name     string
		current  AttitudeSource
		kind     telemetry.Kind
		want     AttitudeSource
		accepted bool
	}{
		{"euler from none", AttitudeNone, telemetry.KindAttitude, AttitudeEuler, true},
		{"euler repeat", AttitudeEuler, telemetry.KindAttitude, AttitudeEuler, true},
		{"quaternion from none", AttitudeNone, telemetry.KindAttitudeQuaternion, AttitudeQuaternion, true},
		{"quaternion supersedes euler", AttitudeEuler, telemetry.KindAttitudeQuaternion, AttitudeQuaternion, true},
		{"euler dropped after quaternion", AttitudeQuaternion, telemetry.KindAttitude, AttitudeQuaternion, false},
		{"quaternion repeat", AttitudeQuaternion, telemetry.KindAttitudeQuaternion, AttitudeQuaternion, true},
		{"unrelated kind ignored", AttitudeEuler, telemetry.KindHeartbeat, AttitudeEuler, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, accepted := nextAttitudeSource(tt.current, tt.kind)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.accepted, accepted)
		})
	}
}

func TestNextInertialSource(t *testing.T) {
	tests := []struct {
		name     string
		current  InertialSource
		kind     telemetry.Kind
		want     InertialSource
		accepted bool
	}{
		{"raw from none", InertialNone, telemetry.KindRawIMU, InertialRaw, true},
		{"raw repeat", InertialRaw, telemetry.KindRawIMU, InertialRaw, true},
		{"scaled from none", InertialNone, telemetry.KindScaledIMU, InertialScaled, true},
		{"scaled supersedes raw", InertialRaw, telemetry.KindScaledIMU, InertialScaled, true},
		{"raw dropped after scaled", InertialScaled, telemetry.KindRawIMU, InertialScaled, false},
		{"highres from none", InertialNone, telemetry.KindHighresIMU, InertialHighRes, true},
		{"highres supersedes scaled", InertialScaled, telemetry.KindHighresIMU, InertialHighRes, true},
		{"scaled dropped after highres", InertialHighRes, telemetry.KindScaledIMU, InertialHighRes, false},
		{"raw dropped after highres", InertialHighRes, telemetry.KindRawIMU, InertialHighRes, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, accepted := nextInertialSource(tt.current, tt.kind)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.accepted, accepted)
		})
	}
}

func TestPressureGatedByHighresOnly(t *testing.T) {
	assert.True(t, pressureAccepted(InertialNone))
	assert.True(t, pressureAccepted(InertialRaw))
	assert.True(t, pressureAccepted(InertialScaled))
	assert.False(t, pressureAccepted(InertialHighRes))
}

func TestArbiterMonotonicity(t *testing.T) {
	var a arbiter

	assert.True(t, a.observe(telemetry.KindHighresIMU))

	// Lower-priority sources stay suppressed no matter how many arrive.
	for i := 0; i < 3; i++ {
		assert.False(t, a.observe(telemetry.KindScaledIMU))
		assert.False(t, a.observe(telemetry.KindRawIMU))
		assert.False(t, a.observe(telemetry.KindScaledPressure))
	}
	assert.Equal(t, InertialHighRes, a.inertial)

	assert.True(t, a.observe(telemetry.KindAttitudeQuaternion))
	assert.False(t, a.observe(telemetry.KindAttitude))
	assert.Equal(t, AttitudeQuaternion, a.attitude)
}

func TestArbiterResetRestoresAcceptance(t *testing.T) {
	var a arbiter

	a.observe(telemetry.KindHighresIMU)
	a.observe(telemetry.KindAttitudeQuaternion)
	assert.False(t, a.observe(telemetry.KindScaledIMU))
	assert.False(t, a.observe(telemetry.KindAttitude))

	a.reset()

	assert.Equal(t, AttitudeNone, a.attitude)
	assert.Equal(t, InertialNone, a.inertial)
	assert.True(t, a.observe(telemetry.KindScaledIMU))
	assert.True(t, a.observe(telemetry.KindAttitude))
	assert.True(t, a.observe(telemetry.KindScaledPressure))
}

func TestSourceStrings(t *testing.T) {
	assert.Equal(t, "none", AttitudeNone.String())
	assert.Equal(t, "euler", AttitudeEuler.String())
	assert.Equal(t, "quaternion", AttitudeQuaternion.String())
	assert.Equal(t, "none", InertialNone.String())
	assert.Equal(t, "raw", InertialRaw.String())
	assert.Equal(t, "scaled", InertialScaled.String())
	assert.Equal(t, "highres", InertialHighRes.String())
}
