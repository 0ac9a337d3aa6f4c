package telemetry

import (
	"fmt"

	"github.com/vectorfield/airstreams/errors"
)

// Field-presence bits for HighresIMU.FieldsUpdated. Each physical group is
// gated by its own bit subset and processed independently once set.
const (
	FieldsAccel       uint16 = 0x0007      // bits 0-2: xacc, yacc, zacc
	FieldsGyro        uint16 = 0x0007 << 3 // bits 3-5: xgyro, ygyro, zgyro
	FieldsMag         uint16 = 0x0007 << 6 // bits 6-8: xmag, ymag, zmag
	FieldsAbsPressure uint16 = 1 << 9
	FieldsTemperature uint16 = 1 << 12
)

// Payload is implemented by every raw telemetry message body.
type Payload interface {
	Kind() Kind
	Validate() error
}

// Attitude is a Euler-angle orientation report in the NED/aircraft
// convention, with body angular rates.
type Attitude struct {
	TimeBootMS uint32  `json:"time_boot_ms"`
	Roll       float64 `json:"roll"`       // rad
	Pitch      float64 `json:"pitch"`      // rad
	Yaw        float64 `json:"yaw"`        // rad
	RollSpeed  float64 `json:"rollspeed"`  // rad/s
	PitchSpeed float64 `json:"pitchspeed"` // rad/s
	YawSpeed   float64 `json:"yawspeed"`   // rad/s
}

// Kind returns KindAttitude.
func (a Attitude) Kind() Kind { return KindAttitude }

// Validate is a no-op: NaN/Inf measurements pass through unrejected.
func (a Attitude) Validate() error { return nil }

// AttitudeQuaternion is a quaternion orientation report in the
// NED/aircraft convention, with body angular rates.
type AttitudeQuaternion struct {
	TimeBootMS uint32  `json:"time_boot_ms"`
	W          float64 `json:"w"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	RollSpeed  float64 `json:"rollspeed"`  // rad/s
	PitchSpeed float64 `json:"pitchspeed"` // rad/s
	YawSpeed   float64 `json:"yawspeed"`   // rad/s
}

// Kind returns KindAttitudeQuaternion.
func (a AttitudeQuaternion) Kind() Kind { return KindAttitudeQuaternion }

// Validate is a no-op: NaN/Inf measurements pass through unrejected.
func (a AttitudeQuaternion) Validate() error { return nil }

// HighresIMU is the high-fidelity inertial report: SI units throughout,
// with FieldsUpdated indicating which measurement groups are populated.
type HighresIMU struct {
	TimeUsec      uint64  `json:"time_usec"`
	XAcc          float64 `json:"xacc"`          // m/s^2
	YAcc          float64 `json:"yacc"`          // m/s^2
	ZAcc          float64 `json:"zacc"`          // m/s^2
	XGyro         float64 `json:"xgyro"`         // rad/s
	YGyro         float64 `json:"ygyro"`         // rad/s
	ZGyro         float64 `json:"zgyro"`         // rad/s
	XMag          float64 `json:"xmag"`          // Gauss
	YMag          float64 `json:"ymag"`          // Gauss
	ZMag          float64 `json:"zmag"`          // Gauss
	AbsPressure   float64 `json:"abs_pressure"`  // millibar
	DiffPressure  float64 `json:"diff_pressure"` // millibar
	PressureAlt   float64 `json:"pressure_alt"`  // m
	Temperature   float64 `json:"temperature"`   // degC
	FieldsUpdated uint16  `json:"fields_updated"`
}

// Kind returns KindHighresIMU.
func (h HighresIMU) Kind() Kind { return KindHighresIMU }

// Validate is a no-op: NaN/Inf measurements pass through unrejected.
func (h HighresIMU) Validate() error { return nil }

// Has reports whether every bit in group is set in FieldsUpdated.
func (h HighresIMU) Has(group uint16) bool {
	return h.FieldsUpdated&group == group
}

// RawIMU carries unscaled ADC-domain inertial readings. Acceleration units
// depend on the autopilot firmware: the ArduPilot family reports milli-G,
// other firmwares report raw ADC counts with no defined scale.
type RawIMU struct {
	TimeUsec uint64 `json:"time_usec"`
	XAcc     int16  `json:"xacc"`
	YAcc     int16  `json:"yacc"`
	ZAcc     int16  `json:"zacc"`
	XGyro    int16  `json:"xgyro"` // mrad/s
	YGyro    int16  `json:"ygyro"` // mrad/s
	ZGyro    int16  `json:"zgyro"` // mrad/s
	XMag     int16  `json:"xmag"`  // mGauss
	YMag     int16  `json:"ymag"`  // mGauss
	ZMag     int16  `json:"zmag"`  // mGauss
}

// Kind returns KindRawIMU.
func (r RawIMU) Kind() Kind { return KindRawIMU }

// Validate is a no-op; all int16 field values are representable.
func (r RawIMU) Validate() error { return nil }

// ScaledIMU carries calibrated inertial readings in milli-units.
type ScaledIMU struct {
	TimeBootMS uint32 `json:"time_boot_ms"`
	XAcc       int16  `json:"xacc"`  // mG
	YAcc       int16  `json:"yacc"`  // mG
	ZAcc       int16  `json:"zacc"`  // mG
	XGyro      int16  `json:"xgyro"` // mrad/s
	YGyro      int16  `json:"ygyro"` // mrad/s
	ZGyro      int16  `json:"zgyro"` // mrad/s
	XMag       int16  `json:"xmag"`  // mGauss
	YMag       int16  `json:"ymag"`  // mGauss
	ZMag       int16  `json:"zmag"`  // mGauss
}

// Kind returns KindScaledIMU.
func (s ScaledIMU) Kind() Kind { return KindScaledIMU }

// Validate is a no-op; all int16 field values are representable.
func (s ScaledIMU) Validate() error { return nil }

// ScaledPressure carries barometric pressure in hectopascal and
// temperature in centi-degrees Celsius.
type ScaledPressure struct {
	TimeBootMS  uint32  `json:"time_boot_ms"`
	PressAbs    float64 `json:"press_abs"`   // hPa
	PressDiff   float64 `json:"press_diff"`  // hPa
	Temperature int16   `json:"temperature"` // cdegC
}

// Kind returns KindScaledPressure.
func (s ScaledPressure) Kind() Kind { return KindScaledPressure }

// Validate is a no-op: NaN/Inf measurements pass through unrejected.
func (s ScaledPressure) Validate() error { return nil }

// Heartbeat reports vehicle presence and identifies the autopilot stack.
type Heartbeat struct {
	VehicleType    uint8  `json:"vehicle_type"`
	Autopilot      uint8  `json:"autopilot"`
	BaseMode       uint8  `json:"base_mode"`
	CustomMode     uint32 `json:"custom_mode"`
	SystemStatus   uint8  `json:"system_status"`
	MavlinkVersion uint8  `json:"mavlink_version"`
}

// Kind returns KindHeartbeat.
func (h Heartbeat) Kind() Kind { return KindHeartbeat }

// Validate is a no-op; all field values are representable.
func (h Heartbeat) Validate() error { return nil }

// Firmware family identifiers derived from heartbeat autopilot codes.
const (
	FirmwareGeneric   = "generic"
	FirmwareArduPilot = "ardupilot"
	FirmwarePX4       = "px4"
)

// Autopilot identifier codes carried in heartbeats.
const (
	AutopilotGeneric   uint8 = 0
	AutopilotArduPilot uint8 = 3
	AutopilotPX4       uint8 = 12
)

// FirmwareFamily maps the heartbeat autopilot code to a firmware family.
func (h Heartbeat) FirmwareFamily() string {
	switch h.Autopilot {
	case AutopilotArduPilot:
		return FirmwareArduPilot
	case AutopilotPX4:
		return FirmwarePX4
	default:
		return FirmwareGeneric
	}
}

// LinkState reports vehicle connection transitions and the active
// firmware family. Published on SubjectLink by the frame decoder.
type LinkState struct {
	Connected      bool   `json:"connected"`
	FirmwareFamily string `json:"firmware_family,omitempty"`
	RemoteAddr     string `json:"remote_addr,omitempty"`
}

// Kind returns KindLinkState.
func (l LinkState) Kind() Kind { return KindLinkState }

// Validate checks the firmware family is one of the known identifiers.
func (l LinkState) Validate() error {
	switch l.FirmwareFamily {
	case "", FirmwareGeneric, FirmwareArduPilot, FirmwarePX4:
		return nil
	}
	return errors.WrapInvalid(
		fmt.Errorf("unknown firmware family %q", l.FirmwareFamily),
		"LinkState", "Validate", "firmware family check")
}
