package component

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFactoryConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr bool
	}{
		{"empty config", "", false},
		{"simple object", `{"port": 14550, "host": "0.0.0.0"}`, false},
		{"nested object", `{"ports": {"outputs": [{"name": "out", "subject": "a.b"}]}}`, false},
		{"null byte in string", `{"host": "a\u0000b"}`, true},
		{"oversize string", `{"v": "` + strings.Repeat("x", MaxStringLength+1) + `"}`, true},
		{"malformed JSON", `{"port":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFactoryConfig(json.RawMessage(tt.config))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFactoryConfigDepthLimit(t *testing.T) {
	deep := strings.Repeat(`{"a":`, maxConfigDepth+2) + "1" + strings.Repeat("}", maxConfigDepth+2)
	assert.Error(t, ValidateFactoryConfig(json.RawMessage(deep)))
}

type sampleConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

func (c *sampleConfig) Validate() error {
	return ValidateNetworkConfig(c.Port, c.Host)
}

func TestSafeUnmarshal(t *testing.T) {
	var cfg sampleConfig
	err := SafeUnmarshal(json.RawMessage(`{"port": 14550, "host": "127.0.0.1"}`), &cfg)
	require.NoError(t, err)
	assert.Equal(t, 14550, cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Host)
}

func TestSafeUnmarshalRunsValidate(t *testing.T) {
	var cfg sampleConfig
	err := SafeUnmarshal(json.RawMessage(`{"port": 99999, "host": "127.0.0.1"}`), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestSafeUnmarshalRequiresPointer(t *testing.T) {
	err := SafeUnmarshal(json.RawMessage(`{}`), sampleConfig{})
	assert.Error(t, err)
}

func TestSafeUnmarshalEmptyKeepsDefaults(t *testing.T) {
	cfg := sampleConfig{Port: 14550, Host: "0.0.0.0"}
	require.NoError(t, SafeUnmarshal(nil, &cfg))
	assert.Equal(t, 14550, cfg.Port)
}

func TestValidateNetworkConfig(t *testing.T) {
	tests := []struct {
		name    string
		port    int
		host    string
		wantErr bool
	}{
		{"valid ipv4", 14550, "0.0.0.0", false},
		{"wildcard host", 8080, "*", false},
		{"empty host", 8080, "", false},
		{"port too low", 0, "0.0.0.0", true},
		{"port too high", 70000, "0.0.0.0", true},
		{"bad address", 8080, "not-an-ip", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNetworkConfig(tt.port, tt.host)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateComponentName(t *testing.T) {
	assert.NoError(t, ValidateComponentName("udp-telemetry.main_1"))
	assert.Error(t, ValidateComponentName(""))
	assert.Error(t, ValidateComponentName("bad name"))
	assert.Error(t, ValidateComponentName("bad/name"))
}
