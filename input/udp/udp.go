// Package udp provides the UDP input component that receives autopilot
// telemetry datagrams and publishes them raw to NATS for the frame
// decoder.
package udp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vectorfield/airstreams/component"
	"github.com/vectorfield/airstreams/errors"
	"github.com/vectorfield/airstreams/metric"
	"github.com/vectorfield/airstreams/natsclient"
	"github.com/vectorfield/airstreams/pkg/buffer"
	"github.com/vectorfield/airstreams/pkg/retry"
	"github.com/vectorfield/airstreams/telemetry"
)

// DefaultPort is the conventional ground-station telemetry port.
const DefaultPort = 14550

const (
	defaultBind    = "0.0.0.0"
	bufferCapacity = 5000
	maxBatchSize   = 100
	readDeadline   = 100 * time.Millisecond
	// 2MB socket buffer keeps bursts from dropping at the OS level.
	socketBufferSize = 2 * 1024 * 1024
)

// InputConfig holds configuration for the UDP input component.
type InputConfig struct {
	Ports *component.PortConfig `json:"ports"`
}

// Validate checks the port configuration.
func (c *InputConfig) Validate() error {
	if c.Ports == nil {
		return nil
	}

	for _, input := range c.Ports.Inputs {
		if input.Type != "network" || input.Subject == "" {
			continue
		}
		host, port, err := parseUDPAddr(input.Subject)
		if err != nil {
			return errors.WrapInvalid(err, "InputConfig", "Validate", "address parsing")
		}
		if err := component.ValidateNetworkConfig(port, host); err != nil {
			return errors.Wrap(err, "InputConfig", "Validate", "network port validation")
		}
	}

	for _, output := range c.Ports.Outputs {
		if output.Type == "nats" && output.Subject == "" {
			return errors.WrapInvalid(errors.ErrInvalidConfig,
				"InputConfig", "Validate", "NATS output subject validation")
		}
	}

	return nil
}

// DefaultConfig returns sensible defaults for the UDP input.
func DefaultConfig() InputConfig {
	return InputConfig{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "udp_socket",
					Type:        "network",
					Subject:     fmt.Sprintf("udp://%s:%d", defaultBind, DefaultPort),
					Required:    true,
					Description: "UDP socket listening for autopilot telemetry",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "nats_output",
					Type:        "nats",
					Subject:     telemetry.SubjectUDPRaw,
					Required:    true,
					Description: "NATS subject for raw telemetry datagrams",
				},
			},
		},
	}
}

// parseUDPAddr splits a udp://host:port subject into its parts.
func parseUDPAddr(subject string) (host string, port int, err error) {
	const prefix = "udp://"
	if !strings.HasPrefix(subject, prefix) {
		return "", 0, fmt.Errorf("invalid UDP address format: %s", subject)
	}
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(subject, prefix))
	if err != nil {
		return "", 0, fmt.Errorf("invalid UDP address format: %s", subject)
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port number: %s", portStr)
	}
	return host, port, nil
}

// getConfiguredPorts extracts the bind address and output subject.
func (c *InputConfig) getConfiguredPorts() (port int, bind, subject string) {
	port = DefaultPort
	bind = defaultBind
	subject = telemetry.SubjectUDPRaw

	if c.Ports == nil {
		return port, bind, subject
	}

	for _, input := range c.Ports.Inputs {
		if input.Type == "network" && input.Subject != "" {
			if h, p, err := parseUDPAddr(input.Subject); err == nil {
				bind = h
				port = p
			}
			break
		}
	}
	for _, output := range c.Ports.Outputs {
		if output.Type == "nats" {
			subject = output.Subject
			break
		}
	}
	return port, bind, subject
}

// udpSchema defines the configuration schema for the UDP input component.
var udpSchema = component.ConfigSchema{
	Properties: map[string]component.PropertySchema{
		"ports": {
			Type:        "ports",
			Description: "Port configuration: one network input (udp://host:port), one NATS output",
		},
	},
}

// Publisher dispatches one datagram to a subject. *natsclient.Client
// satisfies it; tests substitute a recorder.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Input listens on a UDP socket and publishes received datagrams to NATS
// unmodified. Framing and decoding happen downstream in the frame
// decoder.
type Input struct {
	name       string
	port       int
	bind       string
	subject    string
	natsClient *natsclient.Client
	publisher  Publisher
	logger     *slog.Logger

	buffer      buffer.Buffer[[]byte]
	retryConfig retry.Config

	// Lifecycle management
	shutdown  chan struct{}
	done      chan struct{}
	running   atomic.Bool
	startTime time.Time
	mu        sync.RWMutex
	wg        sync.WaitGroup
	conn      *net.UDPConn

	datagramsReceived atomic.Int64
	bytesReceived     atomic.Int64
	errorCount        atomic.Int64
	lastActivity      atomic.Value // stores time.Time

	metrics *inputMetrics
}

var (
	_ component.Discoverable       = (*Input)(nil)
	_ component.LifecycleComponent = (*Input)(nil)
)

// InputDeps holds runtime dependencies for the UDP input component.
type InputDeps struct {
	Name            string
	Config          InputConfig
	NATSClient      *natsclient.Client
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
}

// NewInput creates a UDP input component.
func NewInput(deps InputDeps) (*Input, error) {
	port, bind, subject := deps.Config.getConfiguredPorts()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "udp-input", "port", port)
	}

	bufferOpts := []buffer.Option[[]byte]{
		buffer.WithOverflowPolicy[[]byte](buffer.DropOldest),
	}
	if deps.MetricsRegistry != nil {
		bufferOpts = append(bufferOpts, buffer.WithMetrics[[]byte](deps.MetricsRegistry, "udp_input"))
	}
	datagramBuffer, err := buffer.NewRing(bufferCapacity, bufferOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "udp-input", "NewInput", "buffer creation")
	}

	u := &Input{
		name:        deps.Name,
		port:        port,
		bind:        bind,
		subject:     subject,
		natsClient:  deps.NATSClient,
		logger:      logger,
		buffer:      datagramBuffer,
		retryConfig: retry.DefaultConfig(),
		startTime:   time.Now(),
		metrics:     newInputMetrics(deps.MetricsRegistry, port),
	}
	if deps.NATSClient != nil {
		u.publisher = deps.NATSClient
	}
	u.lastActivity.Store(time.Time{})
	return u, nil
}

// Initialize validates the configuration but does not bind the socket.
func (u *Input) Initialize() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	// Port 0 is allowed for OS auto-assignment.
	if u.port < 0 || u.port > 65535 {
		return errors.WrapInvalid(fmt.Errorf("invalid port %d", u.port),
			"udp-input", "Initialize", "port validation")
	}
	if u.subject == "" {
		return errors.WrapInvalid(fmt.Errorf("empty subject"),
			"udp-input", "Initialize", "subject validation")
	}
	if u.publisher == nil {
		return errors.WrapInvalid(fmt.Errorf("nil NATS client"),
			"udp-input", "Initialize", "NATS client validation")
	}
	return nil
}

// Start binds the socket and begins the read loop.
func (u *Input) Start(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running.Load() {
		return nil // Already running, idempotent
	}

	u.shutdown = make(chan struct{})
	u.done = make(chan struct{})

	if err := retry.Do(ctx, u.retryConfig, u.bindSocket); err != nil {
		u.cleanupUnlocked()
		return errors.WrapTransient(err, "udp-input", "Start", "socket binding")
	}

	u.running.Store(true)
	u.startTime = time.Now()

	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		defer func() {
			u.mu.Lock()
			defer u.mu.Unlock()
			if u.done != nil {
				select {
				case <-u.done:
				default:
					close(u.done)
				}
			}
		}()
		u.readLoop(ctx)
	}()

	u.logger.Info("UDP input started",
		"component", u.name,
		"bind", u.bind,
		"port", u.port,
		"subject", u.subject)

	return nil
}

// bindSocket creates and binds the UDP socket.
func (u *Input) bindSocket() error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(u.bind, strconv.Itoa(u.port)))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %s:%d: %w", u.bind, u.port, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP port %d: %w", u.port, err)
	}

	if err := conn.SetReadBuffer(socketBufferSize); err != nil {
		// Some systems cap the buffer size; not fatal.
		u.logger.Warn("Could not set UDP socket buffer size",
			"buffer_size", socketBufferSize,
			"port", u.port,
			"error", err)
	}

	u.conn = conn
	return nil
}

// Stop gracefully stops the listener within the timeout.
func (u *Input) Stop(timeout time.Duration) error {
	if !u.running.Load() {
		return nil
	}

	u.running.Store(false)

	u.mu.Lock()
	if u.shutdown != nil {
		select {
		case <-u.shutdown:
		default:
			close(u.shutdown)
		}
	}
	// Closing the socket unblocks the read loop.
	if u.conn != nil {
		_ = u.conn.Close()
	}
	u.mu.Unlock()

	select {
	case <-u.done:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
			"udp-input", "Stop", "graceful shutdown")
	}

	u.cleanup()
	return nil
}

func (u *Input) cleanup() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cleanupUnlocked()
}

// cleanupUnlocked releases resources; the caller holds the mutex.
func (u *Input) cleanupUnlocked() {
	if u.shutdown != nil {
		select {
		case <-u.shutdown:
		default:
			close(u.shutdown)
		}
		u.shutdown = nil
	}
	u.done = nil
	if u.conn != nil {
		_ = u.conn.Close()
		u.conn = nil
	}
	if u.buffer != nil {
		_ = u.buffer.Close()
	}
}

// readLoop reads datagrams into the ring buffer and drains it to NATS.
func (u *Input) readLoop(ctx context.Context) {
	datagram := make([]byte, 65536)

	for u.running.Load() {
		select {
		case <-ctx.Done():
			return
		case <-u.shutdown:
			return
		default:
		}

		u.mu.RLock()
		conn := u.conn
		u.mu.RUnlock()
		if conn == nil {
			return
		}

		// Short deadline so shutdown is noticed promptly.
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		n, _, err := conn.ReadFromUDP(datagram)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case <-u.shutdown:
				return
			default:
				u.errorCount.Add(1)
				u.metrics.recordSocketError()
				if !errors.IsTransient(err) {
					u.logger.Error("UDP read failed",
						"component", u.name,
						"error", err)
					return
				}
				continue
			}
		}

		u.datagramsReceived.Add(1)
		u.bytesReceived.Add(int64(n))
		now := time.Now()
		u.lastActivity.Store(now)
		u.metrics.recordDatagram(n, now)

		data := make([]byte, n)
		copy(data, datagram[:n])

		if err := u.buffer.Write(data); err != nil {
			u.metrics.recordDrop()
			continue
		}
		u.metrics.recordBufferUtilization(u.buffer)

		u.drainBuffer(ctx)
	}
}

// drainBuffer publishes buffered datagrams in batches.
func (u *Input) drainBuffer(ctx context.Context) {
	batch := u.buffer.ReadBatch(maxBatchSize)
	u.metrics.recordBatch(len(batch))

	for _, data := range batch {
		if !u.running.Load() {
			break
		}

		publish := func() error {
			return u.publishDatagram(ctx, data)
		}
		if err := retry.Do(ctx, u.retryConfig, publish); err != nil {
			u.errorCount.Add(1)
			u.logger.Debug("Failed to publish datagram",
				"component", u.name,
				"error", err)
		}
	}
}

func (u *Input) publishDatagram(ctx context.Context, data []byte) error {
	if u.publisher == nil {
		return errors.WrapInvalid(fmt.Errorf("NATS client not available"),
			"udp-input", "publishDatagram", "NATS client check")
	}

	start := time.Now()
	if err := u.publisher.Publish(ctx, u.subject, data); err != nil {
		return errors.WrapTransient(err, "udp-input", "publishDatagram", "NATS publish")
	}
	u.metrics.recordPublish(time.Since(start))
	return nil
}

// Discoverable interface implementation

// Meta returns the component metadata.
func (u *Input) Meta() component.Metadata {
	name := u.name
	if name == "" {
		name = fmt.Sprintf("udp-input-%d", u.port)
	}
	return component.Metadata{
		Name:        name,
		Type:        "input",
		Description: fmt.Sprintf("UDP input listener on %s:%d publishing to %s", u.bind, u.port, u.subject),
		Version:     "0.1.0",
	}
}

// InputPorts returns the network socket this component binds.
func (u *Input) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "udp_socket",
			Direction:   component.DirectionInput,
			Required:    true,
			Description: fmt.Sprintf("UDP socket listening on %s:%d", u.bind, u.port),
			Config: component.NetworkPort{
				Protocol: "udp",
				Host:     u.bind,
				Port:     u.port,
			},
		},
	}
}

// OutputPorts returns the NATS output port for raw datagrams.
func (u *Input) OutputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "nats_output",
			Direction:   component.DirectionOutput,
			Required:    true,
			Description: "NATS subject for raw telemetry datagrams",
			Config: component.NATSPort{
				Subject: u.subject,
			},
		},
	}
}

// ConfigSchema returns the configuration schema for this component.
func (u *Input) ConfigSchema() component.ConfigSchema {
	return udpSchema
}

// Health returns the current health status of the component.
func (u *Input) Health() component.HealthStatus {
	u.mu.RLock()
	connected := u.conn != nil
	u.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    u.running.Load() && connected,
		LastCheck:  time.Now(),
		ErrorCount: int(u.errorCount.Load()),
		Uptime:     time.Since(u.startTime),
	}
}

// DataFlow returns the current data flow metrics.
func (u *Input) DataFlow() component.FlowMetrics {
	datagrams := u.datagramsReceived.Load()
	bytes := u.bytesReceived.Load()
	errorCount := u.errorCount.Load()
	lastActivity, _ := u.lastActivity.Load().(time.Time)

	var messagesPerSecond, bytesPerSecond, errorRate float64
	if uptime := time.Since(u.startTime).Seconds(); uptime > 0 {
		messagesPerSecond = float64(datagrams) / uptime
		bytesPerSecond = float64(bytes) / uptime
	}
	if datagrams > 0 {
		errorRate = float64(errorCount) / float64(datagrams)
	}

	return component.FlowMetrics{
		MessagesPerSecond: messagesPerSecond,
		BytesPerSecond:    bytesPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

// CreateInput creates a UDP input component from raw configuration.
func CreateInput(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	cfg := DefaultConfig()

	if len(rawConfig) > 0 {
		var userConfig InputConfig
		if err := component.SafeUnmarshal(rawConfig, &userConfig); err != nil {
			return nil, errors.Wrap(err, "udp-input-factory", "CreateInput", "config parsing")
		}
		if userConfig.Ports != nil {
			cfg.Ports = userConfig.Ports
		}
	}

	if deps.NATSClient == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("NATS client is required"),
			"udp-input-factory", "CreateInput", "NATS client validation")
	}

	return NewInput(InputDeps{
		Name:            "udp-input",
		Config:          cfg,
		NATSClient:      deps.NATSClient,
		MetricsRegistry: deps.MetricsRegistry,
		Logger:          deps.GetLoggerWithComponent("udp-input"),
	})
}

// Register registers the UDP input component with the given registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "udp",
		Factory:     CreateInput,
		Schema:      udpSchema,
		Type:        "input",
		Protocol:    "udp",
		Description: "UDP input for autopilot telemetry datagrams",
		Version:     "0.1.0",
	})
}
