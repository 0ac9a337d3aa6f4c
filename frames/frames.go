// Package frames implements the fixed coordinate-frame algebra between the
// vehicle's native NED/aircraft convention and the ENU/base_link
// convention used by downstream consumers.
//
// Two constant rotations cover every conversion:
//
//   - nedToENU reinterprets a world-referenced orientation from NED to
//     ENU (roll pi, yaw pi/2).
//   - aircraftToBaselink remaps aircraft body axes to base_link body axes
//     (roll pi, a 180 degree rotation about X).
//
// Orientations compose both rotations; body-frame vectors (rates, forces)
// need only the aircraft-to-base_link remap. All functions are pure and
// total: NaN/Inf inputs propagate unchanged.
package frames

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Static rotations. Composition order matters: the world remap and the
// body remap do not commute.
var (
	nedToENU           = QuaternionFromRPY(math.Pi, 0, math.Pi/2)
	aircraftToBaselink = QuaternionFromRPY(math.Pi, 0, 0)
)

// QuaternionFromRPY builds a unit quaternion from intrinsic roll, pitch,
// yaw angles (rotation order: yaw about Z, then pitch about Y, then roll
// about X).
func QuaternionFromRPY(roll, pitch, yaw float64) quat.Number {
	cr, sr := math.Cos(roll/2), math.Sin(roll/2)
	cp, sp := math.Cos(pitch/2), math.Sin(pitch/2)
	cy, sy := math.Cos(yaw/2), math.Sin(yaw/2)

	qx := quat.Number{Real: cr, Imag: sr}
	qy := quat.Number{Real: cp, Jmag: sp}
	qz := quat.Number{Real: cy, Kmag: sy}

	return quat.Mul(qz, quat.Mul(qy, qx))
}

// OrientationNEDAircraftToENUBaselink re-expresses an orientation given in
// the NED-world/aircraft-body convention as ENU-world/base_link-body. The
// world remap applies on the left, the body remap on the right.
func OrientationNEDAircraftToENUBaselink(q quat.Number) quat.Number {
	return quat.Mul(nedToENU, quat.Mul(q, aircraftToBaselink))
}

// VectorAircraftToBaselink rotates a body-frame 3-vector from the aircraft
// convention to base_link. The remap is a 180 degree rotation about X, so
// it reduces to negating Y and Z.
func VectorAircraftToBaselink(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Y: -v.Y, Z: -v.Z}
}

// VectorNEDToENU re-expresses a world-frame 3-vector from NED to ENU by
// swapping the horizontal axes and negating the vertical.
func VectorNEDToENU(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.Y, Y: v.X, Z: -v.Z}
}

// RotateVector applies the rotation q to v.
func RotateVector(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(q, quat.Mul(p, quat.Conj(q)))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}
