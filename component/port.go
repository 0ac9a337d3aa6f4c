package component

import (
	"encoding/json"
	"fmt"

	"github.com/vectorfield/airstreams/errors"
)

// Direction for data flow.
type Direction string

// Direction constants for port data flow.
const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Port describes any I/O interface a component exposes.
type Port struct {
	Name        string    `json:"name"`
	Direction   Direction `json:"direction"`
	Required    bool      `json:"required"`
	Description string    `json:"description"`
	Config      Portable  `json:"config"`
}

// Portable is the minimal interface every port configuration satisfies.
type Portable interface {
	ResourceID() string // Unique identifier for conflict detection
	IsExclusive() bool  // Whether multiple components can share the resource
	Type() string       // Port type identifier
}

// InterfaceContract names the message contract flowing through a port.
type InterfaceContract struct {
	Type       string   `json:"type"`                 // e.g. "telemetry.Envelope"
	Version    string   `json:"version,omitempty"`    // e.g. "v1"
	Compatible []string `json:"compatible,omitempty"` // also accepts these
}

// MarshalJSON encodes the Portable config with a type tag so it can be
// reconstructed on the way back in.
func (p Port) MarshalJSON() ([]byte, error) {
	type PortAlias Port // prevent infinite recursion

	wrapper := struct {
		PortAlias
		Config json.RawMessage `json:"config"`
	}{
		PortAlias: (PortAlias)(p),
	}

	if p.Config != nil {
		configWithType := struct {
			Type string `json:"type"`
			Data any    `json:"data"`
		}{
			Type: p.Config.Type(),
			Data: p.Config,
		}

		configBytes, err := json.Marshal(configWithType)
		if err != nil {
			return nil, errors.Wrap(err, "Port", "MarshalJSON", "config marshaling")
		}
		wrapper.Config = configBytes
	}

	return json.Marshal(wrapper)
}

// UnmarshalJSON reconstructs the Portable config from its type tag.
func (p *Port) UnmarshalJSON(data []byte) error {
	type PortAlias Port

	temp := struct {
		*PortAlias
		Config json.RawMessage `json:"config"`
	}{
		PortAlias: (*PortAlias)(p),
	}

	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}

	if len(temp.Config) == 0 {
		return nil
	}

	var configWrapper struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(temp.Config, &configWrapper); err != nil {
		return errors.Wrap(err, "Port", "UnmarshalJSON", "config wrapper unmarshaling")
	}

	switch configWrapper.Type {
	case "network":
		var netConfig NetworkPort
		if err := json.Unmarshal(configWrapper.Data, &netConfig); err != nil {
			return errors.Wrap(err, "Port", "UnmarshalJSON", "network config unmarshaling")
		}
		p.Config = netConfig
	case "nats":
		var natsConfig NATSPort
		if err := json.Unmarshal(configWrapper.Data, &natsConfig); err != nil {
			return errors.Wrap(err, "Port", "UnmarshalJSON", "nats config unmarshaling")
		}
		p.Config = natsConfig
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown config type: %s", configWrapper.Type),
			"Port",
			"UnmarshalJSON",
			"config type validation",
		)
	}

	return nil
}
