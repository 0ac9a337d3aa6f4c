package component

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/vectorfield/airstreams/errors"
)

// Config provides configuration for creating a component instance.
type Config struct {
	Name   string          `json:"name"`   // Factory name (e.g. "udp", "mavlink", "imu")
	Type   string          `json:"type"`   // "input", "processor", "output"
	Config json.RawMessage `json:"config"` // Component-specific configuration
}

// Validate checks that the component config names a factory and type.
func (c Config) Validate() error {
	if err := ValidateComponentName(c.Name); err != nil {
		return errors.Wrap(err, "Config", "Validate", "name validation")
	}
	switch c.Type {
	case "input", "processor", "output":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unknown component type %q", c.Type),
			"Config", "Validate", "type validation")
	}
	return nil
}

// Factory creates a component instance from raw JSON configuration and
// dependencies. Factories parse their own config and return an initialized
// component; all I/O belongs in the component's Start method.
type Factory func(rawConfig json.RawMessage, deps Dependencies) (Discoverable, error)

// Registration holds the factory and metadata for a component type.
type Registration struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`     // "input", "processor", "output"
	Protocol    string       `json:"protocol"` // udp, mavlink, nats, ...
	Description string       `json:"description"`
	Version     string       `json:"version"`
	Schema      ConfigSchema `json:"schema"`
	Factory     Factory      `json:"-"`
}

// RegistrationConfig is the public API for registering a component type.
type RegistrationConfig struct {
	Name        string
	Factory     Factory
	Schema      ConfigSchema
	Type        string
	Protocol    string
	Description string
	Version     string
}

// Registry manages component factories and instances. Registration and
// lookup are thread-safe. Exclusive port resources (network binds) are
// tracked so two instances cannot claim the same one.
type Registry struct {
	factories       map[string]*Registration
	instances       map[string]Discoverable
	resourceTracker map[string]string // resource ID -> instance name
	mu              sync.RWMutex
}

// NewRegistry creates an empty component registry.
func NewRegistry() *Registry {
	return &Registry{
		factories:       make(map[string]*Registration),
		instances:       make(map[string]Discoverable),
		resourceTracker: make(map[string]string),
	}
}

// RegisterWithConfig registers a component factory.
func (r *Registry) RegisterWithConfig(config RegistrationConfig) error {
	registration := &Registration{
		Name:        config.Name,
		Factory:     config.Factory,
		Schema:      config.Schema,
		Type:        config.Type,
		Protocol:    config.Protocol,
		Description: config.Description,
		Version:     config.Version,
	}

	return r.registerFactory(config.Name, registration)
}

func (r *Registry) registerFactory(name string, registration *Registration) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "registerFactory", "factory name validation")
	}
	if registration == nil || registration.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "registerFactory", "factory function validation")
	}
	if registration.Type == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "registerFactory", "component type validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		msg := fmt.Errorf("factory '%s' is already registered", name)
		return errors.WrapInvalid(msg, "Registry", "registerFactory", "duplicate factory check")
	}

	r.factories[name] = registration
	return nil
}

// CreateComponent creates and registers a component instance. The
// instanceName is the unique identifier for this instance (e.g.
// "udp-telemetry-main"); config names the factory and carries the
// component-specific configuration.
func (r *Registry) CreateComponent(
	instanceName string, config Config, deps Dependencies,
) (Discoverable, error) {
	if err := ValidateComponentName(instanceName); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "instance name validation")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "config validation")
	}
	if deps.NATSClient == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "CreateComponent", "NATS client validation")
	}

	// Validation gate before any factory sees the raw config.
	if err := ValidateFactoryConfig(config.Config); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "config security validation")
	}

	r.mu.RLock()
	registration, exists := r.factories[config.Name]
	r.mu.RUnlock()

	if !exists {
		msg := fmt.Errorf("unknown component factory '%s'", config.Name)
		return nil, errors.WrapInvalid(msg, "Registry", "CreateComponent", "factory lookup")
	}

	if registration.Type != config.Type {
		msg := fmt.Errorf("component '%s' is type '%s', not '%s'",
			config.Name, registration.Type, config.Type)
		return nil, errors.WrapInvalid(msg, "Registry", "CreateComponent", "type validation")
	}

	comp, err := registration.Factory(config.Config, deps)
	if err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "factory execution")
	}

	if err := r.RegisterInstance(instanceName, comp); err != nil {
		return nil, errors.Wrap(err, "Registry", "CreateComponent", "instance registration")
	}

	return comp, nil
}

// RegisterInstance registers a component instance for discovery and
// management. Fails on duplicate names or exclusive resource conflicts.
func (r *Registry) RegisterInstance(name string, comp Discoverable) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterInstance", "instance name validation")
	}
	if comp == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterInstance", "component validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.instances[name]; exists {
		msg := fmt.Errorf("instance '%s' is already registered", name)
		return errors.WrapInvalid(msg, "Registry", "RegisterInstance", "duplicate instance check")
	}

	if err := r.checkResourceConflicts(comp); err != nil {
		return errors.Wrap(err, "Registry", "RegisterInstance", "resource conflict check")
	}

	r.instances[name] = comp
	r.trackComponentResources(name, comp)

	return nil
}

// UnregisterInstance removes a component instance from the registry.
func (r *Registry) UnregisterInstance(name string) {
	if name == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if comp, exists := r.instances[name]; exists {
		r.untrackComponentResources(name, comp)
	}

	delete(r.instances, name)
}

// ListComponents returns a copy of all registered component instances.
func (r *Registry) ListComponents() map[string]Discoverable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Discoverable, len(r.instances))
	maps.Copy(result, r.instances)

	return result
}

// Component retrieves a component instance by name, or nil when absent.
func (r *Registry) Component(name string) Discoverable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.instances[name]
}

// GetComponentSchema retrieves a component type's config schema from its
// registration metadata without instantiating the component.
func (r *Registry) GetComponentSchema(name string) (ConfigSchema, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, exists := r.factories[name]
	if !exists {
		return ConfigSchema{}, errors.WrapInvalid(
			fmt.Errorf("component type %q not found", name),
			"Registry", "GetComponentSchema", "type lookup")
	}

	return registration.Schema, nil
}

// ListComponentTypes returns the names of all registered factories.
func (r *Registry) ListComponentTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	return names
}

// GetFactory returns the factory function for a component type.
func (r *Registry) GetFactory(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, exists := r.factories[name]
	if !exists {
		return nil, false
	}
	return registration.Factory, true
}

// checkResourceConflicts verifies none of the component's exclusive port
// resources are already claimed. Caller holds the lock.
func (r *Registry) checkResourceConflicts(comp Discoverable) error {
	allPorts := append(comp.InputPorts(), comp.OutputPorts()...)

	for _, port := range allPorts {
		if port.Config == nil || !port.Config.IsExclusive() {
			continue
		}
		resourceID := port.Config.ResourceID()

		if networkPort, ok := port.Config.(NetworkPort); ok {
			if err := ValidatePortNumber(networkPort.Port); err != nil {
				return errors.Wrap(err, "Registry", "checkResourceConflicts", "network port validation")
			}
		}

		if existingInstance, exists := r.resourceTracker[resourceID]; exists {
			msg := fmt.Errorf("resource conflict: %s already used by component '%s'",
				resourceID, existingInstance)
			return errors.WrapInvalid(msg, "Registry", "checkResourceConflicts", "exclusive resource check")
		}
	}

	return nil
}

// trackComponentResources records the exclusive resources an instance
// claims. Caller holds the lock.
func (r *Registry) trackComponentResources(name string, comp Discoverable) {
	allPorts := append(comp.InputPorts(), comp.OutputPorts()...)
	for _, port := range allPorts {
		if port.Config != nil && port.Config.IsExclusive() {
			r.resourceTracker[port.Config.ResourceID()] = name
		}
	}
}

// untrackComponentResources releases an instance's exclusive resources.
// Caller holds the lock.
func (r *Registry) untrackComponentResources(name string, comp Discoverable) {
	allPorts := append(comp.InputPorts(), comp.OutputPorts()...)
	for _, port := range allPorts {
		if port.Config != nil && port.Config.IsExclusive() {
			if owner, exists := r.resourceTracker[port.Config.ResourceID()]; exists && owner == name {
				delete(r.resourceTracker, port.Config.ResourceID())
			}
		}
	}
}
