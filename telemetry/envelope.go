package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vectorfield/airstreams/errors"
)

// Meta carries message provenance.
type Meta struct {
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Envelope is the wire format for decoded telemetry on NATS. It pairs a
// typed payload with identity and provenance. Envelopes are immutable
// after construction.
type Envelope struct {
	ID      string  `json:"id"`
	Kind    Kind    `json:"kind"`
	Payload Payload `json:"payload"`
	Meta    Meta    `json:"meta"`
}

// NewEnvelope creates an envelope for payload, stamped with a fresh UUID
// and the current time.
func NewEnvelope(payload Payload, source string) Envelope {
	return Envelope{
		ID:      uuid.NewString(),
		Kind:    payload.Kind(),
		Payload: payload,
		Meta: Meta{
			Source:    source,
			CreatedAt: time.Now().UTC(),
		},
	}
}

// Subject returns the NATS subject this envelope belongs on.
func (e Envelope) Subject() string {
	return SubjectFor(e.Kind)
}

// Marshal serializes the envelope to its JSON wire form.
func (e Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, "Envelope", "Marshal", "JSON encoding")
	}
	return data, nil
}

// UnmarshalJSON decodes an envelope, reconstructing the concrete payload
// type from the kind tag. The payload switch is closed: unknown kinds are
// rejected rather than passed through untyped.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string          `json:"id"`
		Kind    Kind            `json:"kind"`
		Payload json.RawMessage `json:"payload"`
		Meta    Meta            `json:"meta"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WrapInvalid(err, "Envelope", "UnmarshalJSON", "wrapper decoding")
	}

	payload, err := decodePayload(raw.Kind, raw.Payload)
	if err != nil {
		return err
	}

	e.ID = raw.ID
	e.Kind = raw.Kind
	e.Payload = payload
	e.Meta = raw.Meta
	return nil
}

// ParseEnvelope decodes and validates an envelope from its wire form.
func ParseEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Envelope{}, err
	}
	if e.Payload == nil {
		return Envelope{}, errors.WrapInvalid(
			fmt.Errorf("envelope %s has no payload", e.ID),
			"Envelope", "ParseEnvelope", "payload check")
	}
	if err := e.Payload.Validate(); err != nil {
		return Envelope{}, errors.Wrap(err, "Envelope", "ParseEnvelope", "payload validation")
	}
	return e, nil
}

func decodePayload(kind Kind, data json.RawMessage) (Payload, error) {
	unmarshal := func(target any) error {
		if err := json.Unmarshal(data, target); err != nil {
			return errors.WrapInvalid(err, "Envelope", "decodePayload",
				fmt.Sprintf("%s payload decoding", kind))
		}
		return nil
	}

	switch kind {
	case KindAttitude:
		var p Attitude
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindAttitudeQuaternion:
		var p AttitudeQuaternion
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindHighresIMU:
		var p HighresIMU
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindRawIMU:
		var p RawIMU
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindScaledIMU:
		var p ScaledIMU
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindScaledPressure:
		var p ScaledPressure
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindHeartbeat:
		var p Heartbeat
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	case KindLinkState:
		var p LinkState
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown telemetry kind %q", kind),
			"Envelope", "decodePayload", "kind dispatch")
	}
}
