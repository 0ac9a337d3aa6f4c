package imu

import "github.com/vectorfield/airstreams/telemetry"

// AttitudeSource identifies which attitude message kind is currently
// authoritative. A quaternion stream, once seen, permanently suppresses
// Euler-form messages until the next link reset.
type AttitudeSource int

// Attitude class states.
const (
	AttitudeNone AttitudeSource = iota
	AttitudeEuler
	AttitudeQuaternion
)

// String returns the attitude source name.
func (s AttitudeSource) String() string {
	switch s {
	case AttitudeNone:
		return "none"
	case AttitudeEuler:
		return "euler"
	case AttitudeQuaternion:
		return "quaternion"
	default:
		return "unknown"
	}
}

// InertialSource identifies which inertial message kind is currently
// authoritative, with priority highres > scaled > raw.
type InertialSource int

// Inertial class states.
const (
	InertialNone InertialSource = iota
	InertialRaw
	InertialScaled
	InertialHighRes
)

// String returns the inertial source name.
func (s InertialSource) String() string {
	switch s {
	case InertialNone:
		return "none"
	case InertialRaw:
		return "raw"
	case InertialScaled:
		return "scaled"
	case InertialHighRes:
		return "highres"
	default:
		return "unknown"
	}
}

// nextAttitudeSource applies one attitude-class transition. It returns the
// new state and whether the message is accepted for processing. Kinds
// outside the attitude class leave the state unchanged and are not
// accepted here.
func nextAttitudeSource(cur AttitudeSource, kind telemetry.Kind) (AttitudeSource, bool) {
	switch kind {
	case telemetry.KindAttitudeQuaternion:
		return AttitudeQuaternion, true
	case telemetry.KindAttitude:
		if cur == AttitudeQuaternion {
			return cur, false
		}
		return AttitudeEuler, true
	default:
		return cur, false
	}
}

// nextInertialSource applies one inertial-class transition: a
// higher-priority source, once observed, permanently drops lower-priority
// kinds until reset.
func nextInertialSource(cur InertialSource, kind telemetry.Kind) (InertialSource, bool) {
	switch kind {
	case telemetry.KindHighresIMU:
		return InertialHighRes, true
	case telemetry.KindScaledIMU:
		if cur == InertialHighRes {
			return cur, false
		}
		return InertialScaled, true
	case telemetry.KindRawIMU:
		if cur == InertialHighRes || cur == InertialScaled {
			return cur, false
		}
		return InertialRaw, true
	default:
		return cur, false
	}
}

// pressureAccepted reports whether a standalone pressure message is
// processed. Pressure is gated by the inertial class's highres state only:
// highres messages carry their own pressure and temperature fields, so a
// vehicle sending them never needs the standalone message. A scaled
// inertial source does not suppress pressure.
func pressureAccepted(cur InertialSource) bool {
	return cur != InertialHighRes
}

// arbiter holds the per-class source states. Not safe for concurrent use;
// the processor serializes all calls.
type arbiter struct {
	attitude AttitudeSource
	inertial InertialSource
}

// observe applies the transition for one message kind and reports whether
// the message is accepted. Pressure messages consult the inertial state
// without mutating it.
func (a *arbiter) observe(kind telemetry.Kind) bool {
	switch kind {
	case telemetry.KindAttitude, telemetry.KindAttitudeQuaternion:
		next, ok := nextAttitudeSource(a.attitude, kind)
		a.attitude = next
		return ok
	case telemetry.KindHighresIMU, telemetry.KindScaledIMU, telemetry.KindRawIMU:
		next, ok := nextInertialSource(a.inertial, kind)
		a.inertial = next
		return ok
	case telemetry.KindScaledPressure:
		return pressureAccepted(a.inertial)
	default:
		return false
	}
}

// reset returns both classes to their initial state. Called on every link
// connection change, in either direction.
func (a *arbiter) reset() {
	a.attitude = AttitudeNone
	a.inertial = InertialNone
}
