// Package component provides the component model for the airstreams
// platform: discovery, lifecycle, ports, configuration validation, and the
// factory registry.
//
// # Component model
//
// Every component implements Discoverable so the management layer can
// inspect its metadata, ports, config schema, health, and data flow.
// Components that run work also implement LifecycleComponent:
//
//	Initialize() error                 // setup only, no I/O
//	Start(ctx context.Context) error   // begin work
//	Stop(timeout time.Duration) error  // graceful shutdown
//
// # Factories
//
// Component types register a Factory with the Registry. A factory receives
// raw JSON configuration plus Dependencies, parses and validates its own
// config via SafeUnmarshal, and returns an initialized component without
// performing I/O:
//
//	func NewProcessor(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error)
//
// # Ports
//
// Ports describe how data enters and leaves a component. NATSPort covers
// pub/sub subjects; NetworkPort covers exclusive TCP/UDP binds. Defaults
// declared by the component can be overridden per instance through
// PortConfig in the component's JSON configuration.
package component
