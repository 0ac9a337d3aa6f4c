// Package natsclient manages the platform's NATS connection.
//
// The Client wraps a single nats.Conn with:
//
//   - A circuit breaker around Connect attempts. After a configurable
//     number of consecutive failures the circuit opens and further
//     attempts are rejected until an exponential backoff elapses.
//   - Periodic health monitoring that verifies the connection with RTT
//     probes and notifies a health-change callback on transitions.
//   - Disconnect and reconnect callbacks, used by components that track
//     link state.
//   - Optional Prometheus export of connection status, RTT, and
//     reconnect counts.
//
// Construction uses functional options:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("airstreams"),
//	    natsclient.WithMetrics(registry),
//	    natsclient.WithCircuitBreakerThreshold(5),
//	)
//
// Subscribe and Publish operate on the raw byte payloads; message framing
// is the telemetry package's concern.
package natsclient
