// Package telemetry defines the platform's message vocabulary.
//
// Two layers of types live here:
//
//   - Raw telemetry payloads (Attitude, HighresIMU, ScaledPressure, ...)
//     as decoded from the vehicle link, wrapped in an Envelope for
//     transport over NATS. The payload set is a closed sum: Envelope
//     decoding dispatches on the kind tag through an explicit switch and
//     rejects unknown kinds.
//   - Normalized output records (IMURecord, MagneticFieldRecord, ...)
//     published by the IMU processor after unit conversion and frame
//     normalization. Vector quantities carry 3x3 covariances where the
//     first-element -1 sentinel means "unknown".
//
// Raw payload units follow the vehicle wire format (Gauss, milli-G,
// millibar); output records are SI throughout. SubjectFor and the Subject*
// constants define where each type travels on NATS.
package telemetry
