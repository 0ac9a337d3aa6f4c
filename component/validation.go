package component

import (
	"encoding/json"
	"fmt"
	"net"
	"reflect"
	"strings"

	"github.com/vectorfield/airstreams/errors"
)

// Config validation constants.
const (
	MaxStringLength = 1024        // Maximum length for string values
	MaxJSONSize     = 1024 * 1024 // Maximum JSON size (1MB)
	MinPort         = 1           // Minimum valid port number
	MaxPort         = 65535       // Maximum valid port number

	maxConfigDepth = 10   // Prevent deeply nested JSON
	maxArraySize   = 1000 // Prevent memory exhaustion from huge arrays
)

// Validatable is implemented by configs that can self-validate.
type Validatable interface {
	Validate() error
}

// ValidateFactoryConfig is the validation gate for every raw component
// config before it reaches a factory. It bounds size, nesting depth, and
// string content so malformed or hostile input fails early.
func ValidateFactoryConfig(rawConfig json.RawMessage) error {
	if len(rawConfig) > MaxJSONSize {
		return errors.WrapInvalid(
			fmt.Errorf("config size %d exceeds maximum %d", len(rawConfig), MaxJSONSize),
			"ConfigValidator", "ValidateFactoryConfig", "size check")
	}

	// Empty config is valid; components fall back to defaults.
	if len(rawConfig) == 0 {
		return nil
	}

	var config any
	decoder := json.NewDecoder(strings.NewReader(string(rawConfig)))
	decoder.UseNumber()

	if err := decoder.Decode(&config); err != nil {
		return errors.WrapInvalid(err, "ConfigValidator", "ValidateFactoryConfig", "JSON parsing")
	}

	if err := validateValue(config, 0); err != nil {
		return errors.Wrap(err, "ConfigValidator", "ValidateFactoryConfig", "deep validation")
	}

	return nil
}

func validateValue(value any, depth int) error {
	if depth > maxConfigDepth {
		return errors.WrapInvalid(
			fmt.Errorf("JSON depth %d exceeds maximum %d", depth, maxConfigDepth),
			"ConfigValidator", "validateValue", "depth check")
	}

	switch val := value.(type) {
	case string:
		if len(val) > MaxStringLength {
			return errors.WrapInvalid(
				fmt.Errorf("string length %d exceeds maximum %d", len(val), MaxStringLength),
				"ConfigValidator", "validateValue", "string length check")
		}
		if err := validateStringContent(val); err != nil {
			return err
		}

	case json.Number:
		if _, err := val.Int64(); err != nil {
			if _, err := val.Float64(); err != nil {
				return errors.WrapInvalid(err, "ConfigValidator", "validateValue", "number validation")
			}
		}

	case []any:
		if len(val) > maxArraySize {
			return errors.WrapInvalid(
				fmt.Errorf("array size %d exceeds maximum %d", len(val), maxArraySize),
				"ConfigValidator", "validateValue", "array size check")
		}
		for i, elem := range val {
			if err := validateValue(elem, depth+1); err != nil {
				return errors.Wrap(err, "ConfigValidator", "validateValue",
					fmt.Sprintf("array element %d", i))
			}
		}

	case map[string]any:
		for key, field := range val {
			if len(key) > MaxStringLength {
				return errors.WrapInvalid(
					fmt.Errorf("key '%s' length exceeds maximum", key),
					"ConfigValidator", "validateValue", "key length check")
			}
			if err := validateStringContent(key); err != nil {
				return errors.Wrap(err, "ConfigValidator", "validateValue", "key validation")
			}
			if err := validateValue(field, depth+1); err != nil {
				return errors.Wrap(err, "ConfigValidator", "validateValue",
					fmt.Sprintf("object field '%s'", key))
			}
		}

	case bool, nil:
		// Always safe.

	default:
		return errors.WrapInvalid(
			fmt.Errorf("unexpected type %T in config", value),
			"ConfigValidator", "validateValue", "type check")
	}

	return nil
}

func validateStringContent(s string) error {
	if strings.Contains(s, "\x00") {
		return errors.WrapInvalid(
			fmt.Errorf("string contains null byte"),
			"ConfigValidator", "validateStringContent", "null byte check")
	}
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return errors.WrapInvalid(
				fmt.Errorf("string contains control character: 0x%02x", r),
				"ConfigValidator", "validateStringContent", "control character check")
		}
	}
	return nil
}

// SafeUnmarshal validates raw JSON and unmarshals it into target. When the
// target implements Validatable, its Validate method runs afterwards.
func SafeUnmarshal(rawConfig json.RawMessage, target any) error {
	if err := ValidateFactoryConfig(rawConfig); err != nil {
		return errors.Wrap(err, "ConfigValidator", "SafeUnmarshal", "config validation")
	}

	// Empty config leaves the target's defaults intact.
	if len(rawConfig) == 0 {
		return nil
	}

	targetType := reflect.TypeOf(target)
	if targetType.Kind() != reflect.Ptr {
		return errors.WrapInvalid(
			fmt.Errorf("target must be a pointer, got %T", target),
			"ConfigValidator", "SafeUnmarshal", "target type check")
	}

	if err := json.Unmarshal(rawConfig, target); err != nil {
		return errors.WrapInvalid(err, "ConfigValidator", "SafeUnmarshal", "JSON unmarshaling")
	}

	if validatable, ok := target.(Validatable); ok {
		if err := validatable.Validate(); err != nil {
			return errors.Wrap(err, "ConfigValidator", "SafeUnmarshal", "struct validation")
		}
	}

	return nil
}

// ValidateComponentName validates component and instance names.
func ValidateComponentName(name string) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ConfigValidator", "ValidateComponentName", "empty name")
	}
	if len(name) > MaxStringLength {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "ConfigValidator", "ValidateComponentName", "name too long")
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return errors.WrapInvalid(
				errors.ErrInvalidConfig, "ConfigValidator", "ValidateComponentName",
				"invalid name characters")
		}
	}
	return nil
}

// ValidatePortNumber validates that a port is within the valid range.
func ValidatePortNumber(port int) error {
	if port < MinPort || port > MaxPort {
		msg := fmt.Errorf("port %d outside valid range %d-%d", port, MinPort, MaxPort)
		return errors.WrapInvalid(msg, "ConfigValidator", "ValidatePortNumber",
			"port range validation")
	}
	return nil
}

// ValidateNetworkConfig validates a port number plus bind address pair.
func ValidateNetworkConfig(port int, bindAddr string) error {
	if err := ValidatePortNumber(port); err != nil {
		return err
	}

	if bindAddr != "" && bindAddr != "*" {
		if net.ParseIP(bindAddr) == nil {
			return errors.WrapInvalid(
				fmt.Errorf("invalid bind address: %s", bindAddr),
				"ConfigValidator", "ValidateNetworkConfig", "address format check")
		}
	}

	return nil
}
