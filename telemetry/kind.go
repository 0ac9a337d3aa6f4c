package telemetry

// Kind identifies a decoded telemetry message type.
type Kind string

// Raw telemetry kinds produced by the frame decoder.
const (
	KindAttitude           Kind = "attitude"
	KindAttitudeQuaternion Kind = "attitude_quaternion"
	KindHighresIMU         Kind = "highres_imu"
	KindRawIMU             Kind = "raw_imu"
	KindScaledIMU          Kind = "scaled_imu"
	KindScaledPressure     Kind = "scaled_pressure"
	KindHeartbeat          Kind = "heartbeat"
	KindLinkState          Kind = "link_state"
)

// Valid reports whether k names a known telemetry kind.
func (k Kind) Valid() bool {
	switch k {
	case KindAttitude, KindAttitudeQuaternion, KindHighresIMU, KindRawIMU,
		KindScaledIMU, KindScaledPressure, KindHeartbeat, KindLinkState:
		return true
	}
	return false
}

// Subject prefixes for the platform's NATS topology.
const (
	// SubjectUDPRaw carries raw autopilot datagrams from the UDP input
	// to the frame decoder.
	SubjectUDPRaw = "input.udp.mavlink"

	// SubjectRawPrefix is the prefix for decoded raw telemetry subjects.
	SubjectRawPrefix = "telemetry.raw."

	// SubjectLink carries link-state events (connect, disconnect,
	// firmware family changes).
	SubjectLink = "telemetry.link"
)

// SubjectFor returns the NATS subject a raw telemetry kind is published on.
// Link-state events use the dedicated SubjectLink subject.
func SubjectFor(k Kind) string {
	if k == KindLinkState {
		return SubjectLink
	}
	return SubjectRawPrefix + string(k)
}

// Fused output subjects published by the IMU processor.
const (
	SubjectIMUData        = "sensors.imu.data"
	SubjectIMUDataNED     = "sensors.imu.data_ned"
	SubjectIMUDataRaw     = "sensors.imu.data_raw"
	SubjectIMUMag         = "sensors.imu.mag"
	SubjectIMUPressure    = "sensors.imu.pressure"
	SubjectIMUTemperature = "sensors.imu.temperature"
)
