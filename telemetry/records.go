package telemetry

import "time"

// Header stamps an output record with its reference frame and the
// canonical wall-clock time derived from the device clock.
type Header struct {
	FrameID string    `json:"frame_id"`
	Stamp   time.Time `json:"stamp"`
}

// Quaternion is a w-first unit quaternion.
type Quaternion struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector3 is a 3-vector in the frame named by the record's header.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Covariance3 is a 3x3 row-major covariance matrix. The first element set
// to -1 with the rest zero means "unknown", per robotics convention.
type Covariance3 [9]float64

// UnknownCovariance returns the unknown-covariance sentinel.
func UnknownCovariance() Covariance3 {
	return Covariance3{-1, 0, 0, 0, 0, 0, 0, 0, 0}
}

// Unknown reports whether the covariance carries the unknown sentinel.
func (c Covariance3) Unknown() bool {
	return c[0] == -1
}

// IMURecord is a normalized inertial sample: orientation, angular
// velocity, and linear acceleration with per-quantity covariances. The
// header's frame naming follows the subject it is published on (ENU
// base_link on the primary subjects, NED aircraft on the _ned subject).
type IMURecord struct {
	Header Header `json:"header"`

	Orientation           Quaternion  `json:"orientation"`
	OrientationCovariance Covariance3 `json:"orientation_covariance"`

	AngularVelocity           Vector3     `json:"angular_velocity"`
	AngularVelocityCovariance Covariance3 `json:"angular_velocity_covariance"`

	LinearAcceleration           Vector3     `json:"linear_acceleration"`
	LinearAccelerationCovariance Covariance3 `json:"linear_acceleration_covariance"`
}

// MagneticFieldRecord is a normalized magnetometer sample in Tesla.
type MagneticFieldRecord struct {
	Header          Header      `json:"header"`
	MagneticField   Vector3     `json:"magnetic_field"` // T
	FieldCovariance Covariance3 `json:"magnetic_field_covariance"`
}

// FluidPressureRecord is a normalized barometric sample in Pascal.
type FluidPressureRecord struct {
	Header        Header  `json:"header"`
	FluidPressure float64 `json:"fluid_pressure"` // Pa
	Variance      float64 `json:"variance"`       // 0 means unknown
}

// TemperatureRecord is a normalized temperature sample in degrees Celsius.
type TemperatureRecord struct {
	Header      Header  `json:"header"`
	Temperature float64 `json:"temperature"` // degC
	Variance    float64 `json:"variance"`    // 0 means unknown
}
