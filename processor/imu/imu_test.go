package imu

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorfield/airstreams/component"
	"github.com/vectorfield/airstreams/telemetry"
	"github.com/vectorfield/airstreams/timesync"
)

type publishedMsg struct {
	subject string
	data    []byte
}

type recordingPublisher struct {
	published []publishedMsg
}

func (r *recordingPublisher) Publish(_ context.Context, subject string, data []byte) error {
	r.published = append(r.published, publishedMsg{subject: subject, data: data})
	return nil
}

func (r *recordingPublisher) bySubject(subject string) []publishedMsg {
	var out []publishedMsg
	for _, m := range r.published {
		if m.subject == subject {
			out = append(out, m)
		}
	}
	return out
}

func newTestProcessor(t *testing.T) (*Processor, *recordingPublisher) {
	t.Helper()

	comp, err := NewProcessor(nil, component.Dependencies{})
	require.NoError(t, err)

	p, ok := comp.(*Processor)
	require.True(t, ok)

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	p.clock = timesync.NewClockWithNow(func() time.Time { return now })

	pub := &recordingPublisher{}
	p.publisher = pub
	return p, pub
}

func deliver(t *testing.T, p *Processor, payload telemetry.Payload) {
	t.Helper()

	data, err := telemetry.NewEnvelope(payload, "test").Marshal()
	require.NoError(t, err)
	p.handleMessage(context.Background(), data)
}

func decodeIMURecord(t *testing.T, data []byte) telemetry.IMURecord {
	t.Helper()

	var rec telemetry.IMURecord
	require.NoError(t, json.Unmarshal(data, &rec))
	return rec
}

func TestAttitudePublishesFramePair(t *testing.T) {
	p, pub := newTestProcessor(t)

	deliver(t, p, telemetry.Attitude{
		TimeBootMS: 5000,
		Roll:       0.1, Pitch: -0.2, Yaw: 1.5,
		RollSpeed:  0.01, PitchSpeed: 0.02, YawSpeed: 0.03,
	})

	enuMsgs := pub.bySubject(telemetry.SubjectIMUData)
	nedMsgs := pub.bySubject(telemetry.SubjectIMUDataNED)
	require.Len(t, enuMsgs, 1)
	require.Len(t, nedMsgs, 1)

	enu := decodeIMURecord(t, enuMsgs[0].data)
	ned := decodeIMURecord(t, nedMsgs[0].data)

	assert.Equal(t, "base_link", enu.Header.FrameID)
	assert.Equal(t, "aircraft", ned.Header.FrameID)
	assert.Equal(t, enu.Header.Stamp, ned.Header.Stamp)

	// Only the ENU orientation is a covariance-bearing estimate.
	assert.False(t, enu.OrientationCovariance.Unknown())
	assert.True(t, ned.OrientationCovariance.Unknown())

	// Body rates get only the aircraft->base_link axis remap.
	assert.InDelta(t, 0.01, enu.AngularVelocity.X, 1e-12)
	assert.InDelta(t, -0.02, enu.AngularVelocity.Y, 1e-12)
	assert.InDelta(t, -0.03, enu.AngularVelocity.Z, 1e-12)
	assert.InDelta(t, 0.02, ned.AngularVelocity.Y, 1e-12)
}

func TestQuaternionSupersedesEuler(t *testing.T) {
	p, pub := newTestProcessor(t)

	deliver(t, p, telemetry.AttitudeQuaternion{TimeBootMS: 1000, W: 1})
	require.Len(t, pub.bySubject(telemetry.SubjectIMUData), 1)

	deliver(t, p, telemetry.Attitude{TimeBootMS: 1100, Roll: 0.5})
	assert.Len(t, pub.bySubject(telemetry.SubjectIMUData), 1,
		"euler attitude must be dropped once a quaternion stream is seen")
	assert.Len(t, pub.bySubject(telemetry.SubjectIMUDataNED), 1)
}

func TestHighresScenarioAndScaledSuppression(t *testing.T) {
	p, pub := newTestProcessor(t)

	deliver(t, p, telemetry.HighresIMU{
		TimeUsec:    1_000_000,
		XAcc:        1, YAcc: -2, ZAcc: -3,
		XGyro:       0.1, YGyro: 0.2, ZGyro: 0.3,
		XMag:        1, YMag: 0, ZMag: 0,
		AbsPressure: 1013.25,
		Temperature: 21.5,
		FieldsUpdated: telemetry.FieldsAccel | telemetry.FieldsGyro |
			telemetry.FieldsMag | telemetry.FieldsAbsPressure | telemetry.FieldsTemperature,
	})

	require.Len(t, pub.bySubject(telemetry.SubjectIMUDataRaw), 1)
	require.Len(t, pub.bySubject(telemetry.SubjectIMUMag), 1)
	require.Len(t, pub.bySubject(telemetry.SubjectIMUPressure), 1)
	require.Len(t, pub.bySubject(telemetry.SubjectIMUTemperature), 1)
	require.Len(t, pub.published, 4)

	// A later scaled IMU or standalone pressure message produces nothing.
	deliver(t, p, telemetry.ScaledIMU{TimeBootMS: 2000, XAcc: 100})
	deliver(t, p, telemetry.ScaledPressure{TimeBootMS: 2000, PressAbs: 900})
	assert.Len(t, pub.published, 4)
}

func TestHighresPartialGroups(t *testing.T) {
	p, pub := newTestProcessor(t)

	deliver(t, p, telemetry.HighresIMU{
		TimeUsec:      1_000_000,
		XMag:          2,
		FieldsUpdated: telemetry.FieldsMag,
	})

	assert.Empty(t, pub.bySubject(telemetry.SubjectIMUDataRaw))
	assert.Empty(t, pub.bySubject(telemetry.SubjectIMUPressure))
	require.Len(t, pub.bySubject(telemetry.SubjectIMUMag), 1)
}

func TestGaussToTeslaExact(t *testing.T) {
	p, pub := newTestProcessor(t)

	deliver(t, p, telemetry.HighresIMU{
		TimeUsec:      1,
		XMag:          1,
		FieldsUpdated: telemetry.FieldsMag,
	})

	msgs := pub.bySubject(telemetry.SubjectIMUMag)
	require.Len(t, msgs, 1)

	var rec telemetry.MagneticFieldRecord
	require.NoError(t, json.Unmarshal(msgs[0].data, &rec))
	assert.Equal(t, 1.0e-4, rec.MagneticField.X)
}

func TestCachedAccelerationCarriedIntoAttitude(t *testing.T) {
	p, pub := newTestProcessor(t)

	// NED (1,-2,-3) maps to base_link (1,2,3).
	deliver(t, p, telemetry.HighresIMU{
		TimeUsec:      1_000_000,
		XAcc:          1, YAcc: -2, ZAcc: -3,
		FieldsUpdated: telemetry.FieldsAccel | telemetry.FieldsGyro,
	})

	deliver(t, p, telemetry.Attitude{TimeBootMS: 2000})

	enuMsgs := pub.bySubject(telemetry.SubjectIMUData)
	nedMsgs := pub.bySubject(telemetry.SubjectIMUDataNED)
	require.Len(t, enuMsgs, 1)
	require.Len(t, nedMsgs, 1)

	enu := decodeIMURecord(t, enuMsgs[0].data)
	assert.Equal(t, telemetry.Vector3{X: 1, Y: 2, Z: 3}, enu.LinearAcceleration)

	ned := decodeIMURecord(t, nedMsgs[0].data)
	assert.Equal(t, telemetry.Vector3{X: 1, Y: -2, Z: -3}, ned.LinearAcceleration)
}

func TestScaledIMUConversions(t *testing.T) {
	p, pub := newTestProcessor(t)

	deliver(t, p, telemetry.ScaledIMU{
		TimeBootMS: 3000,
		XAcc:       1000, // 1000 mG
		XGyro:      1000, // 1000 mrad/s
		XMag:       1,
	})

	rawMsgs := pub.bySubject(telemetry.SubjectIMUDataRaw)
	require.Len(t, rawMsgs, 1)
	rec := decodeIMURecord(t, rawMsgs[0].data)

	assert.InDelta(t, 9.80665, rec.LinearAcceleration.X, 1e-12)
	assert.InDelta(t, 1.0, rec.AngularVelocity.X, 1e-12)
	assert.True(t, rec.OrientationCovariance.Unknown())

	magMsgs := pub.bySubject(telemetry.SubjectIMUMag)
	require.Len(t, magMsgs, 1)
	var mag telemetry.MagneticFieldRecord
	require.NoError(t, json.Unmarshal(magMsgs[0].data, &mag))
	assert.Equal(t, milliTToTesla, mag.MagneticField.X)
}

func TestRawIMUNonAPMZeroesAccelCache(t *testing.T) {
	p, pub := newTestProcessor(t)

	deliver(t, p, telemetry.RawIMU{
		TimeUsec: 1_000_000,
		XAcc:     100, YAcc: 200, ZAcc: 300,
	})

	// The raw record still carries the unscaled values.
	rawMsgs := pub.bySubject(telemetry.SubjectIMUDataRaw)
	require.Len(t, rawMsgs, 1)
	rec := decodeIMURecord(t, rawMsgs[0].data)
	assert.Equal(t, telemetry.Vector3{X: 100, Y: -200, Z: -300}, rec.LinearAcceleration)

	// But the cache is zeroed so attitude records do not carry them.
	deliver(t, p, telemetry.Attitude{TimeBootMS: 2000})
	enuMsgs := pub.bySubject(telemetry.SubjectIMUData)
	require.Len(t, enuMsgs, 1)
	att := decodeIMURecord(t, enuMsgs[0].data)
	assert.Equal(t, telemetry.Vector3{}, att.LinearAcceleration)
}

func TestRawIMUScaledForArduPilot(t *testing.T) {
	p, pub := newTestProcessor(t)

	deliver(t, p, telemetry.LinkState{Connected: true, FirmwareFamily: telemetry.FirmwareArduPilot})
	deliver(t, p, telemetry.RawIMU{TimeUsec: 1_000_000, XAcc: 1000})

	rawMsgs := pub.bySubject(telemetry.SubjectIMUDataRaw)
	require.Len(t, rawMsgs, 1)
	rec := decodeIMURecord(t, rawMsgs[0].data)
	assert.InDelta(t, 9.80665, rec.LinearAcceleration.X, 1e-12)
}

// fixedSync stamps every header with a preset time and counts resets.
type fixedSync struct {
	stamp  time.Time
	resets int
}

func (f *fixedSync) HeaderMillis(frameID string, _ uint32) telemetry.Header {
	return telemetry.Header{FrameID: frameID, Stamp: f.stamp}
}

func (f *fixedSync) HeaderMicros(frameID string, _ uint64) telemetry.Header {
	return telemetry.Header{FrameID: frameID, Stamp: f.stamp}
}

func (f *fixedSync) Reset() { f.resets++ }

func TestInjectedSynchronizerStampsHeaders(t *testing.T) {
	p, pub := newTestProcessor(t)

	clk := &fixedSync{stamp: time.Date(2026, 8, 29, 15, 4, 5, 0, time.UTC)}
	p.clock = clk

	deliver(t, p, telemetry.Attitude{TimeBootMS: 5000, Yaw: 1.0})

	enuMsgs := pub.bySubject(telemetry.SubjectIMUData)
	require.Len(t, enuMsgs, 1)
	rec := decodeIMURecord(t, enuMsgs[0].data)
	assert.True(t, rec.Header.Stamp.Equal(clk.stamp))

	// A link change drops the boot-epoch anchor.
	deliver(t, p, telemetry.LinkState{Connected: false})
	assert.Equal(t, 1, clk.resets)
}

func TestRawIMUSuppressedAfterScaled(t *testing.T) {
	p, pub := newTestProcessor(t)

	deliver(t, p, telemetry.ScaledIMU{TimeBootMS: 1000})
	before := len(pub.published)

	deliver(t, p, telemetry.RawIMU{TimeUsec: 2_000_000, XAcc: 1})
	assert.Len(t, pub.published, before)
}

func TestLinkResetRestoresAcceptance(t *testing.T) {
	p, pub := newTestProcessor(t)

	deliver(t, p, telemetry.HighresIMU{
		TimeUsec:      1_000_000,
		FieldsUpdated: telemetry.FieldsAccel | telemetry.FieldsGyro,
	})
	deliver(t, p, telemetry.ScaledIMU{TimeBootMS: 1000})
	require.Len(t, pub.bySubject(telemetry.SubjectIMUDataRaw), 1, "scaled suppressed by highres")

	deliver(t, p, telemetry.LinkState{Connected: false})

	deliver(t, p, telemetry.ScaledIMU{TimeBootMS: 2000})
	assert.Len(t, pub.bySubject(telemetry.SubjectIMUDataRaw), 2,
		"link change must reset arbitration in either direction")
}

func TestScaledPressureConversions(t *testing.T) {
	p, pub := newTestProcessor(t)

	deliver(t, p, telemetry.ScaledPressure{
		TimeBootMS:  4000,
		PressAbs:    1013.25, // hPa
		Temperature: 2550,    // cdegC
	})

	pressMsgs := pub.bySubject(telemetry.SubjectIMUPressure)
	require.Len(t, pressMsgs, 1)
	var press telemetry.FluidPressureRecord
	require.NoError(t, json.Unmarshal(pressMsgs[0].data, &press))
	assert.Equal(t, 101325.0, press.FluidPressure)

	tempMsgs := pub.bySubject(telemetry.SubjectIMUTemperature)
	require.Len(t, tempMsgs, 1)
	var temp telemetry.TemperatureRecord
	require.NoError(t, json.Unmarshal(tempMsgs[0].data, &temp))
	assert.Equal(t, 25.5, temp.Temperature)
}

func TestBuildDiagonalCovariance(t *testing.T) {
	sentinel := buildDiagonalCovariance(0)
	assert.Equal(t, telemetry.Covariance3{-1, 0, 0, 0, 0, 0, 0, 0, 0}, sentinel)
	assert.True(t, sentinel.Unknown())

	cov := buildDiagonalCovariance(2.0)
	assert.Equal(t, telemetry.Covariance3{4, 0, 0, 0, 4, 0, 0, 0, 4}, cov)
}

func TestConfigValidation(t *testing.T) {
	bad := -1.0
	cfg := Config{AngularVelocityStdev: &bad}
	assert.Error(t, cfg.Validate())

	good := 0.5
	cfg = Config{AngularVelocityStdev: &good}
	assert.NoError(t, cfg.Validate())
}

func TestNewProcessorConfigOverrides(t *testing.T) {
	raw := json.RawMessage(`{"frame_id":"imu_link","magnetic_stdev":0.1}`)
	comp, err := NewProcessor(raw, component.Dependencies{})
	require.NoError(t, err)

	p := comp.(*Processor)
	assert.Equal(t, "imu_link", p.frameID)
	assert.False(t, p.magneticCov.Unknown())
	// Unset parameters keep their defaults.
	assert.InDelta(t, DefaultLinearAccelerationStdev*DefaultLinearAccelerationStdev,
		p.linearAccelCov[0], 1e-15)
}

func TestNewProcessorRejectsInvalidStdev(t *testing.T) {
	raw := json.RawMessage(`{"orientation_stdev":-2}`)
	_, err := NewProcessor(raw, component.Dependencies{})
	assert.Error(t, err)
}

func TestDiscoverable(t *testing.T) {
	p, _ := newTestProcessor(t)

	meta := p.Meta()
	assert.Equal(t, "imu-processor", meta.Name)
	assert.Equal(t, "processor", meta.Type)

	assert.Len(t, p.InputPorts(), 2)
	assert.Len(t, p.OutputPorts(), 6)

	schema := p.ConfigSchema()
	assert.Contains(t, schema.Properties, "frame_id")
}

func TestUnparseableMessageIgnored(t *testing.T) {
	p, pub := newTestProcessor(t)

	p.handleMessage(context.Background(), []byte("not an envelope"))
	assert.Empty(t, pub.published)

	health := p.Health()
	assert.Equal(t, 1, health.ErrorCount)
}
