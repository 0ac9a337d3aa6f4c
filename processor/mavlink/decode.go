package mavlink

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vectorfield/airstreams/errors"
	"github.com/vectorfield/airstreams/telemetry"
)

// Message IDs understood by this decoder.
const (
	msgIDHeartbeat          uint32 = 0
	msgIDScaledIMU          uint32 = 26
	msgIDRawIMU             uint32 = 27
	msgIDScaledPressure     uint32 = 29
	msgIDAttitude           uint32 = 30
	msgIDAttitudeQuaternion uint32 = 31
	msgIDHighresIMU         uint32 = 105
)

// Full wire payload sizes. Version-2 frames truncate trailing zero bytes;
// payloads are zero-extended to these sizes before field extraction.
var payloadSizes = map[uint32]int{
	msgIDHeartbeat:          9,
	msgIDScaledIMU:          22,
	msgIDRawIMU:             26,
	msgIDScaledPressure:     14,
	msgIDAttitude:           28,
	msgIDAttitudeQuaternion: 32,
	msgIDHighresIMU:         62,
}

// reader extracts little-endian fields from a zero-extended payload.
type reader struct {
	buf []byte
	off int
}

func (r *reader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) i16() int16 {
	v := int16(binary.LittleEndian.Uint16(r.buf[r.off:]))
	r.off += 2
	return v
}

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) f32() float64 {
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.buf[r.off:]))
	r.off += 4
	return float64(v)
}

// decodeFrame turns a validated wire frame into a typed telemetry
// payload. Wire field order follows the standard size-sorted layout.
func decodeFrame(frame Frame) (telemetry.Payload, error) {
	size, known := payloadSizes[frame.MsgID]
	if !known {
		return nil, errors.WrapInvalid(errors.ErrUnknownMessage,
			"Decoder", "decodeFrame", fmt.Sprintf("message id %d", frame.MsgID))
	}
	if len(frame.Payload) > size {
		return nil, errors.WrapInvalid(errors.ErrInvalidData,
			"Decoder", "decodeFrame", fmt.Sprintf("payload %d bytes exceeds %d for message id %d",
				len(frame.Payload), size, frame.MsgID))
	}

	buf := frame.Payload
	if len(buf) < size {
		buf = make([]byte, size)
		copy(buf, frame.Payload)
	}
	r := &reader{buf: buf}

	switch frame.MsgID {
	case msgIDHeartbeat:
		return telemetry.Heartbeat{
			CustomMode:     r.u32(),
			VehicleType:    r.u8(),
			Autopilot:      r.u8(),
			BaseMode:       r.u8(),
			SystemStatus:   r.u8(),
			MavlinkVersion: r.u8(),
		}, nil

	case msgIDScaledIMU:
		return telemetry.ScaledIMU{
			TimeBootMS: r.u32(),
			XAcc:       r.i16(),
			YAcc:       r.i16(),
			ZAcc:       r.i16(),
			XGyro:      r.i16(),
			YGyro:      r.i16(),
			ZGyro:      r.i16(),
			XMag:       r.i16(),
			YMag:       r.i16(),
			ZMag:       r.i16(),
		}, nil

	case msgIDRawIMU:
		return telemetry.RawIMU{
			TimeUsec: r.u64(),
			XAcc:     r.i16(),
			YAcc:     r.i16(),
			ZAcc:     r.i16(),
			XGyro:    r.i16(),
			YGyro:    r.i16(),
			ZGyro:    r.i16(),
			XMag:     r.i16(),
			YMag:     r.i16(),
			ZMag:     r.i16(),
		}, nil

	case msgIDScaledPressure:
		return telemetry.ScaledPressure{
			TimeBootMS:  r.u32(),
			PressAbs:    r.f32(),
			PressDiff:   r.f32(),
			Temperature: r.i16(),
		}, nil

	case msgIDAttitude:
		return telemetry.Attitude{
			TimeBootMS: r.u32(),
			Roll:       r.f32(),
			Pitch:      r.f32(),
			Yaw:        r.f32(),
			RollSpeed:  r.f32(),
			PitchSpeed: r.f32(),
			YawSpeed:   r.f32(),
		}, nil

	case msgIDAttitudeQuaternion:
		return telemetry.AttitudeQuaternion{
			TimeBootMS: r.u32(),
			W:          r.f32(),
			X:          r.f32(),
			Y:          r.f32(),
			Z:          r.f32(),
			RollSpeed:  r.f32(),
			PitchSpeed: r.f32(),
			YawSpeed:   r.f32(),
		}, nil

	case msgIDHighresIMU:
		return telemetry.HighresIMU{
			TimeUsec:      r.u64(),
			XAcc:          r.f32(),
			YAcc:          r.f32(),
			ZAcc:          r.f32(),
			XGyro:         r.f32(),
			YGyro:         r.f32(),
			ZGyro:         r.f32(),
			XMag:          r.f32(),
			YMag:          r.f32(),
			ZMag:          r.f32(),
			AbsPressure:   r.f32(),
			DiffPressure:  r.f32(),
			PressureAlt:   r.f32(),
			Temperature:   r.f32(),
			FieldsUpdated: r.u16(),
		}, nil

	default:
		return nil, errors.WrapInvalid(errors.ErrUnknownMessage,
			"Decoder", "decodeFrame", fmt.Sprintf("message id %d", frame.MsgID))
	}
}
