package component

import (
	"context"
	"time"
)

// State represents the current lifecycle state of a component.
type State int

const (
	// StateCreated indicates the component was created but not initialized
	StateCreated State = iota
	// StateInitialized indicates the component was initialized but not started
	StateInitialized
	// StateStarted indicates the component is running
	StateStarted
	// StateStopped indicates the component was stopped
	StateStopped
	// StateFailed indicates the component failed during a lifecycle operation
	StateFailed
)

// String returns the lifecycle state name.
func (cs State) String() string {
	switch cs {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LifecycleComponent defines components with full lifecycle management:
//   - Initialize() error                 // setup only, no I/O, no context
//   - Start(ctx context.Context) error   // begin work, context controls cancellation
//   - Stop(timeout time.Duration) error  // graceful shutdown within timeout
type LifecycleComponent interface {
	Discoverable
	Initialize() error
	Start(ctx context.Context) error
	Stop(timeout time.Duration) error
}

// ManagedComponent pairs a component instance with the lifecycle state the
// service manager tracks for it. The component itself never stores the
// context; the manager holds the child context and cancel func so it can
// cancel components individually and stop them in reverse start order.
type ManagedComponent struct {
	Component Discoverable
	State     State

	Context context.Context
	Cancel  context.CancelFunc

	// StartOrder records start sequence for reverse-order shutdown.
	StartOrder int

	// LastError holds the most recent lifecycle failure, if any.
	LastError error
}

// AsLifecycleComponent safely casts a component to LifecycleComponent.
func AsLifecycleComponent(comp Discoverable) (LifecycleComponent, bool) {
	lc, ok := comp.(LifecycleComponent)
	return lc, ok
}
