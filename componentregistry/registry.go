// Package componentregistry registers every airstreams component factory.
// The platform binary calls Register once at startup; instances are then
// created from configuration by name.
package componentregistry

import (
	"errors"

	"github.com/vectorfield/airstreams/component"
	pkgerrors "github.com/vectorfield/airstreams/errors"
	"github.com/vectorfield/airstreams/input/udp"
	"github.com/vectorfield/airstreams/processor/imu"
	"github.com/vectorfield/airstreams/processor/mavlink"
)

// Register registers all airstreams component factories with the provided
// registry:
//
//   - UDP input (raw autopilot datagrams)
//   - MAVLink processor (wire frames -> typed telemetry + link state)
//   - IMU processor (source arbitration + frame normalization)
func Register(registry *component.Registry) error {
	if registry == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}

	if err := udp.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "UDP input component registration")
	}

	if err := mavlink.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "MAVLink processor component registration")
	}

	if err := imu.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "IMU processor component registration")
	}

	return nil
}
