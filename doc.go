// Package airstreams is a UAV telemetry stream-processing platform: it
// ingests raw autopilot wire frames, decodes them into typed telemetry,
// arbitrates between overlapping sensor sources, and republishes
// normalized, frame-consistent sensor records for downstream consumers.
//
// # Architecture
//
// The platform is a pipeline of components connected over NATS subjects:
//
//	┌───────────────┐   input.udp.mavlink   ┌───────────────────┐
//	│  UDP input    │ ────────────────────→ │ MAVLink processor │
//	│  (input/udp)  │    raw datagrams      │(processor/mavlink)│
//	└───────────────┘                       └─────────┬─────────┘
//	                         telemetry.raw.<kind>     │  telemetry.link
//	                                        ┌─────────┴─────────┐
//	                                        │   IMU processor   │
//	                                        │  (processor/imu)  │
//	                                        └─────────┬─────────┘
//	          sensors.imu.{data,data_ned,data_raw,mag,pressure,temperature}
//
// The MAVLink processor validates and decodes wire frames (v1 and v2
// framing, per-type checksums) into typed telemetry envelopes, and owns
// link-state tracking: a heartbeat establishes the connection and
// identifies the autopilot firmware family; silence beyond the timeout
// drops it.
//
// The IMU processor is the core of the platform. Autopilots report the
// same physical quantities through several overlapping message types at
// different fidelities; the processor arbitrates between them (a
// higher-fidelity source, once seen, permanently suppresses the lower
// ones until the link resets), converts everything to SI units, and
// rotates all vector quantities from the autopilot's NED/front-right-down
// convention into the ENU/front-left-up convention downstream consumers
// expect. Each accepted message yields output records with configured
// measurement covariances, a synchronized timestamp, and the proper
// frame identifier.
//
// # Component model
//
// Every component implements component.Discoverable (metadata, ports,
// config schema, health, data flow) and the lifecycle contract
// (Initialize, Start, Stop). Factories are registered by name in
// componentregistry and instantiated from YAML configuration by
// cmd/airstreams, which also wires the shared NATS client, Prometheus
// metrics registry, and structured logging into each instance.
package airstreams
