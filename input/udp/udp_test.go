package udp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorfield/airstreams/component"
	"github.com/vectorfield/airstreams/telemetry"
)

// testConfig creates a standard test configuration for the UDP input.
func testConfig(port int, bind, subject string) InputConfig {
	return InputConfig{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:     "udp_socket",
					Type:     "network",
					Subject:  fmt.Sprintf("udp://%s:%d", bind, port),
					Required: true,
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:    "nats_output",
					Type:    "nats",
					Subject: subject,
				},
			},
		},
	}
}

type capturingPublisher struct {
	mu        sync.Mutex
	published [][]byte
}

func (c *capturingPublisher) Publish(_ context.Context, _ string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, data)
	return nil
}

func (c *capturingPublisher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published)
}

func TestNewInputExtractsPortConfig(t *testing.T) {
	u, err := NewInput(InputDeps{
		Config: testConfig(14550, "127.0.0.1", "test.subject"),
	})
	require.NoError(t, err)

	assert.Equal(t, 14550, u.port)
	assert.Equal(t, "127.0.0.1", u.bind)
	assert.Equal(t, "test.subject", u.subject)
	assert.NotNil(t, u.buffer)
}

func TestDefaultConfig(t *testing.T) {
	u, err := NewInput(InputDeps{Config: DefaultConfig()})
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, u.port)
	assert.Equal(t, "0.0.0.0", u.bind)
	assert.Equal(t, telemetry.SubjectUDPRaw, u.subject)
}

func TestParseUDPAddr(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		host    string
		port    int
		wantErr bool
	}{
		{"valid", "udp://0.0.0.0:14550", "0.0.0.0", 14550, false},
		{"localhost", "udp://127.0.0.1:9000", "127.0.0.1", 9000, false},
		{"missing scheme", "0.0.0.0:14550", "", 0, true},
		{"missing port", "udp://0.0.0.0", "", 0, true},
		{"bad port", "udp://0.0.0.0:abc", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, err := parseUDPAddr(tt.subject)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.port, port)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig(14550, "127.0.0.1", "test.subject")
	assert.NoError(t, cfg.Validate())

	bad := testConfig(14550, "127.0.0.1", "")
	assert.Error(t, bad.Validate())

	malformed := InputConfig{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{Name: "udp_socket", Type: "network", Subject: "not-a-url"},
			},
		},
	}
	assert.Error(t, malformed.Validate())
}

func TestInitializeValidation(t *testing.T) {
	u, err := NewInput(InputDeps{
		Config: testConfig(14550, "127.0.0.1", "test.subject"),
	})
	require.NoError(t, err)

	// No publisher wired.
	assert.Error(t, u.Initialize())

	u.publisher = &capturingPublisher{}
	assert.NoError(t, u.Initialize())
}

func TestMetaAndPorts(t *testing.T) {
	u, err := NewInput(InputDeps{
		Name:   "telemetry-udp",
		Config: testConfig(14550, "127.0.0.1", "test.subject"),
	})
	require.NoError(t, err)

	meta := u.Meta()
	assert.Equal(t, "telemetry-udp", meta.Name)
	assert.Equal(t, "input", meta.Type)

	inputs := u.InputPorts()
	require.Len(t, inputs, 1)
	netPort, ok := inputs[0].Config.(component.NetworkPort)
	require.True(t, ok)
	assert.Equal(t, "udp", netPort.Protocol)
	assert.Equal(t, 14550, netPort.Port)
	assert.True(t, inputs[0].Config.IsExclusive())

	outputs := u.OutputPorts()
	require.Len(t, outputs, 1)
	assert.Equal(t, "nats:test.subject", outputs[0].Config.ResourceID())
}

func TestReceiveAndPublish(t *testing.T) {
	// Port 0 lets the OS pick a free port.
	u, err := NewInput(InputDeps{
		Config: testConfig(0, "127.0.0.1", "test.subject"),
	})
	require.NoError(t, err)

	pub := &capturingPublisher{}
	u.publisher = pub

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, u.Start(ctx))
	defer func() { _ = u.Stop(2 * time.Second) }()

	u.mu.RLock()
	addr := u.conn.LocalAddr().String()
	u.mu.RUnlock()

	sender, err := net.Dial("udp", addr)
	require.NoError(t, err)
	defer sender.Close()

	payload := []byte{0xFE, 0x09, 0x00, 0x01, 0x01, 0x00}
	_, err = sender.Write(payload)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return pub.count() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, payload, pub.published[0])
}

func TestStopIsIdempotent(t *testing.T) {
	u, err := NewInput(InputDeps{
		Config: testConfig(0, "127.0.0.1", "test.subject"),
	})
	require.NoError(t, err)
	u.publisher = &capturingPublisher{}

	require.NoError(t, u.Start(context.Background()))
	assert.NoError(t, u.Stop(2*time.Second))
	assert.NoError(t, u.Stop(2*time.Second))
}

func TestHealthReflectsRunning(t *testing.T) {
	u, err := NewInput(InputDeps{
		Config: testConfig(0, "127.0.0.1", "test.subject"),
	})
	require.NoError(t, err)
	u.publisher = &capturingPublisher{}

	assert.False(t, u.Health().Healthy)

	require.NoError(t, u.Start(context.Background()))
	assert.True(t, u.Health().Healthy)

	require.NoError(t, u.Stop(2*time.Second))
	assert.False(t, u.Health().Healthy)
}
