package component

// PortDefinition represents a port override from JSON configuration.
type PortDefinition struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`      // "nats" (default) or "network"
	Subject     string `json:"subject,omitempty"`   // NATS subject pattern
	Interface   string `json:"interface,omitempty"` // Interface contract type
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// PortConfig represents the port section of a component config.
type PortConfig struct {
	Inputs  []PortDefinition `json:"inputs,omitempty"`
	Outputs []PortDefinition `json:"outputs,omitempty"`
}

// MergePortConfigs merges a component's default ports with configured
// overrides. Overrides replace defaults by name; unmatched overrides are
// appended as additional ports.
func MergePortConfigs(defaults []Port, overrides []PortDefinition, direction Direction) []Port {
	result := make([]Port, 0)
	overrideMap := make(map[string]PortDefinition)

	for _, override := range overrides {
		overrideMap[override.Name] = override
	}

	for _, defaultPort := range defaults {
		if override, found := overrideMap[defaultPort.Name]; found {
			result = append(result, BuildPortFromDefinition(override, direction))
			delete(overrideMap, defaultPort.Name)
		} else {
			result = append(result, defaultPort)
		}
	}

	for _, override := range overrideMap {
		result = append(result, BuildPortFromDefinition(override, direction))
	}

	return result
}

// BuildPortFromDefinition creates a Port from a PortDefinition.
func BuildPortFromDefinition(def PortDefinition, direction Direction) Port {
	port := Port{
		Name:        def.Name,
		Direction:   direction,
		Required:    def.Required,
		Description: def.Description,
	}

	var iface *InterfaceContract
	if def.Interface != "" {
		iface = &InterfaceContract{
			Type:    def.Interface,
			Version: "v1",
		}
	}
	port.Config = NATSPort{
		Subject:   def.Subject,
		Interface: iface,
	}

	return port
}
