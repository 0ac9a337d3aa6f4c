package mavlink

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorfield/airstreams/errors"
	"github.com/vectorfield/airstreams/telemetry"
)

// writer assembles little-endian wire payloads for tests.
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) i16(v int16)  { w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v)) }
func (w *writer) u16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *writer) u64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }
func (w *writer) f32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

func TestDecodeHeartbeat(t *testing.T) {
	w := &writer{}
	w.u32(12345) // custom_mode
	w.u8(2)      // vehicle type
	w.u8(telemetry.AutopilotArduPilot)
	w.u8(81) // base_mode
	w.u8(4)  // system_status
	w.u8(3)  // mavlink_version

	payload, err := decodeFrame(Frame{MsgID: msgIDHeartbeat, Payload: w.buf})
	require.NoError(t, err)

	hb, ok := payload.(telemetry.Heartbeat)
	require.True(t, ok)
	assert.Equal(t, uint32(12345), hb.CustomMode)
	assert.Equal(t, uint8(2), hb.VehicleType)
	assert.Equal(t, uint8(81), hb.BaseMode)
	assert.Equal(t, uint8(4), hb.SystemStatus)
	assert.Equal(t, uint8(3), hb.MavlinkVersion)
	assert.Equal(t, telemetry.FirmwareArduPilot, hb.FirmwareFamily())
}

func TestDecodeScaledIMU(t *testing.T) {
	w := &writer{}
	w.u32(5000)
	for _, v := range []int16{10, -20, 30, 40, -50, 60, 70, -80, 90} {
		w.i16(v)
	}

	payload, err := decodeFrame(Frame{MsgID: msgIDScaledIMU, Payload: w.buf})
	require.NoError(t, err)

	imu, ok := payload.(telemetry.ScaledIMU)
	require.True(t, ok)
	assert.Equal(t, uint32(5000), imu.TimeBootMS)
	assert.Equal(t, int16(10), imu.XAcc)
	assert.Equal(t, int16(-20), imu.YAcc)
	assert.Equal(t, int16(-50), imu.YGyro)
	assert.Equal(t, int16(90), imu.ZMag)
}

func TestDecodeRawIMU(t *testing.T) {
	w := &writer{}
	w.u64(1234567890)
	for _, v := range []int16{1, 2, 3, 4, 5, 6, 7, 8, -9} {
		w.i16(v)
	}

	payload, err := decodeFrame(Frame{MsgID: msgIDRawIMU, Payload: w.buf})
	require.NoError(t, err)

	imu, ok := payload.(telemetry.RawIMU)
	require.True(t, ok)
	assert.Equal(t, uint64(1234567890), imu.TimeUsec)
	assert.Equal(t, int16(1), imu.XAcc)
	assert.Equal(t, int16(4), imu.XGyro)
	assert.Equal(t, int16(-9), imu.ZMag)
}

func TestDecodeScaledPressure(t *testing.T) {
	w := &writer{}
	w.u32(7000)
	w.f32(1013.25) // hPa
	w.f32(-1.5)
	w.i16(2550) // cdegC

	payload, err := decodeFrame(Frame{MsgID: msgIDScaledPressure, Payload: w.buf})
	require.NoError(t, err)

	sp, ok := payload.(telemetry.ScaledPressure)
	require.True(t, ok)
	assert.Equal(t, uint32(7000), sp.TimeBootMS)
	assert.InDelta(t, 1013.25, sp.PressAbs, 1e-6)
	assert.InDelta(t, -1.5, sp.PressDiff, 1e-6)
	assert.Equal(t, int16(2550), sp.Temperature)
}

func TestDecodeAttitude(t *testing.T) {
	w := &writer{}
	w.u32(9000)
	for _, v := range []float32{0.5, -0.25, 1.5, 0.125, -0.0625, 2.0} {
		w.f32(v)
	}

	payload, err := decodeFrame(Frame{MsgID: msgIDAttitude, Payload: w.buf})
	require.NoError(t, err)

	att, ok := payload.(telemetry.Attitude)
	require.True(t, ok)
	assert.Equal(t, uint32(9000), att.TimeBootMS)
	assert.Equal(t, 0.5, att.Roll)
	assert.Equal(t, -0.25, att.Pitch)
	assert.Equal(t, 1.5, att.Yaw)
	assert.Equal(t, 0.125, att.RollSpeed)
	assert.Equal(t, -0.0625, att.PitchSpeed)
	assert.Equal(t, 2.0, att.YawSpeed)
}

func TestDecodeAttitudeQuaternion(t *testing.T) {
	w := &writer{}
	w.u32(9500)
	for _, v := range []float32{1.0, 0.0, 0.0, 0.0, 0.25, -0.5, 0.75} {
		w.f32(v)
	}

	payload, err := decodeFrame(Frame{MsgID: msgIDAttitudeQuaternion, Payload: w.buf})
	require.NoError(t, err)

	att, ok := payload.(telemetry.AttitudeQuaternion)
	require.True(t, ok)
	assert.Equal(t, 1.0, att.W)
	assert.Equal(t, 0.25, att.RollSpeed)
	assert.Equal(t, 0.75, att.YawSpeed)
}

func TestDecodeHighresIMU(t *testing.T) {
	w := &writer{}
	w.u64(777777)
	for _, v := range []float32{
		0.5, -1.5, 9.75, // accel
		0.125, 0.25, -0.375, // gyro
		0.25, 0.5, -0.75, // mag
		1013.25, 0.5, 120.0, 25.5,
	} {
		w.f32(v)
	}
	w.u16(telemetry.FieldsAccel | telemetry.FieldsGyro | telemetry.FieldsAbsPressure)

	payload, err := decodeFrame(Frame{MsgID: msgIDHighresIMU, Payload: w.buf})
	require.NoError(t, err)

	hr, ok := payload.(telemetry.HighresIMU)
	require.True(t, ok)
	assert.Equal(t, uint64(777777), hr.TimeUsec)
	assert.Equal(t, 9.75, hr.ZAcc)
	assert.Equal(t, -0.375, hr.ZGyro)
	assert.InDelta(t, 1013.25, hr.AbsPressure, 1e-6)
	assert.InDelta(t, 25.5, hr.Temperature, 1e-6)
	assert.True(t, hr.Has(telemetry.FieldsAccel))
	assert.True(t, hr.Has(telemetry.FieldsAbsPressure))
	assert.False(t, hr.Has(telemetry.FieldsMag))
}

func TestDecodeZeroExtendsTruncatedPayload(t *testing.T) {
	// Version-2 frames drop trailing zero bytes: a heartbeat with
	// everything zero past custom_mode arrives as 4 bytes.
	w := &writer{}
	w.u32(99)

	payload, err := decodeFrame(Frame{MsgID: msgIDHeartbeat, Payload: w.buf})
	require.NoError(t, err)

	hb, ok := payload.(telemetry.Heartbeat)
	require.True(t, ok)
	assert.Equal(t, uint32(99), hb.CustomMode)
	assert.Equal(t, uint8(0), hb.Autopilot)
	assert.Equal(t, telemetry.FirmwareGeneric, hb.FirmwareFamily())
}

func TestDecodeEmptyPayload(t *testing.T) {
	// Fully-zero payloads truncate to nothing on the wire.
	payload, err := decodeFrame(Frame{MsgID: msgIDScaledIMU})
	require.NoError(t, err)

	imu, ok := payload.(telemetry.ScaledIMU)
	require.True(t, ok)
	assert.Equal(t, telemetry.ScaledIMU{}, imu)
}

func TestDecodeUnknownMessage(t *testing.T) {
	_, err := decodeFrame(Frame{MsgID: 200, Payload: []byte{1, 2, 3}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownMessage)
}

func TestDecodeOversizedPayload(t *testing.T) {
	_, err := decodeFrame(Frame{MsgID: msgIDHeartbeat, Payload: make([]byte, 10)})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidData)
}
