// Package mavlink provides the frame-decoder processor: it consumes raw
// autopilot datagrams from the UDP input, extracts and validates wire
// frames, and publishes typed telemetry envelopes per message kind. It
// also owns link-state tracking: connection established on the first
// heartbeat, lost after a heartbeat timeout, with the firmware family
// read off the heartbeat.
package mavlink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vectorfield/airstreams/component"
	"github.com/vectorfield/airstreams/errors"
	"github.com/vectorfield/airstreams/natsclient"
	"github.com/vectorfield/airstreams/telemetry"
)

// DefaultHeartbeatTimeout is how long the link stays up without a
// heartbeat before a disconnect event is published.
const DefaultHeartbeatTimeout = 10 * time.Second

const watchdogInterval = time.Second

// Config holds configuration for the frame decoder.
type Config struct {
	Ports *component.PortConfig `json:"ports"`

	// Source tags published envelopes with their origin.
	Source string `json:"source"`

	// HeartbeatTimeoutSeconds overrides the link timeout. Zero means
	// default.
	HeartbeatTimeoutSeconds float64 `json:"heartbeat_timeout_seconds"`
}

// Validate checks the decoder configuration.
func (c Config) Validate() error {
	if c.HeartbeatTimeoutSeconds < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("heartbeat_timeout_seconds must be non-negative, got %v", c.HeartbeatTimeoutSeconds),
			"MAVLinkProcessor", "Validate", "timeout validation")
	}
	return nil
}

// DefaultConfig returns the default configuration for the frame decoder.
func DefaultConfig() Config {
	return Config{
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "datagram_input",
					Type:        "nats",
					Subject:     telemetry.SubjectUDPRaw,
					Required:    true,
					Description: "Raw autopilot datagrams from the UDP input",
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "telemetry_output",
					Type:        "nats",
					Subject:     telemetry.SubjectRawPrefix + ">",
					Interface:   "airstreams.telemetry.v1",
					Required:    true,
					Description: "Typed telemetry envelopes per message kind",
				},
				{
					Name:        "link_output",
					Type:        "nats",
					Subject:     telemetry.SubjectLink,
					Interface:   "airstreams.telemetry.v1",
					Required:    true,
					Description: "Link connection-state events",
				},
			},
		},
		Source: "mavlink-decoder",
	}
}

// mavlinkSchema defines the configuration schema for the frame decoder.
var mavlinkSchema = component.ConfigSchema{
	Properties: map[string]component.PropertySchema{
		"ports": {
			Type:        "ports",
			Description: "Port configuration",
		},
		"source": {
			Type:        "string",
			Description: "Source tag stamped on published envelopes",
			Default:     "mavlink-decoder",
		},
		"heartbeat_timeout_seconds": {
			Type:        "float",
			Description: "Seconds without a heartbeat before the link is considered lost",
			Default:     10.0,
		},
	},
}

// Publisher dispatches one encoded envelope to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Processor decodes raw datagrams into typed telemetry envelopes.
type Processor struct {
	name       string
	subjects   []string
	source     string
	hbTimeout  time.Duration
	natsClient *natsclient.Client
	publisher  Publisher
	logger     *slog.Logger

	// Parser and link state, serialized by procMu.
	procMu        sync.Mutex
	parser        *Parser
	prevParsed    uint64
	prevCRCFailed uint64
	prevUnknown   uint64
	connected     bool
	firmware      string
	lastHeartbeat time.Time

	// Lifecycle management
	shutdown    chan struct{}
	done        chan struct{}
	running     bool
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	wg          *sync.WaitGroup

	datagramsProcessed int64
	framesDecoded      int64
	errorCount         int64
	lastActivity       time.Time

	metrics *decoderMetrics
}

// NewProcessor creates a frame-decoder processor from configuration.
func NewProcessor(
	rawConfig json.RawMessage, deps component.Dependencies,
) (component.Discoverable, error) {
	config := DefaultConfig()
	if len(rawConfig) > 0 {
		if err := component.SafeUnmarshal(rawConfig, &config); err != nil {
			return nil, errors.WrapInvalid(err, "MAVLinkProcessor", "NewProcessor", "config unmarshal")
		}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Ports == nil {
		config.Ports = DefaultConfig().Ports
	}
	if config.Source == "" {
		config.Source = "mavlink-decoder"
	}

	hbTimeout := DefaultHeartbeatTimeout
	if config.HeartbeatTimeoutSeconds > 0 {
		hbTimeout = time.Duration(config.HeartbeatTimeoutSeconds * float64(time.Second))
	}

	var inputSubjects []string
	for _, input := range config.Ports.Inputs {
		if input.Type == "nats" {
			inputSubjects = append(inputSubjects, input.Subject)
		}
	}
	if len(inputSubjects) == 0 {
		return nil, errors.WrapInvalid(
			errors.ErrInvalidConfig, "MAVLinkProcessor", "NewProcessor",
			"no input subjects configured")
	}

	metrics, err := newDecoderMetrics(deps.MetricsRegistry, "mavlink-decoder")
	if err != nil {
		deps.GetLogger().Error("Failed to initialize decoder metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	p := &Processor{
		name:       "mavlink-decoder",
		subjects:   inputSubjects,
		source:     config.Source,
		hbTimeout:  hbTimeout,
		natsClient: deps.NATSClient,
		logger:     deps.GetLogger(),
		parser:     NewParser(),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		wg:         &sync.WaitGroup{},
		metrics:    metrics,
	}
	if deps.NATSClient != nil {
		p.publisher = deps.NATSClient
	}
	return p, nil
}

// Initialize prepares the processor (no-op; all setup happens in the factory).
func (p *Processor) Initialize() error {
	return nil
}

// Start subscribes to the datagram subject and launches the heartbeat
// watchdog.
func (p *Processor) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.running {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "MAVLinkProcessor", "Start", "check running state")
	}
	if p.natsClient == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "MAVLinkProcessor", "Start", "NATS client required")
	}

	for _, subject := range p.subjects {
		if err := p.natsClient.Subscribe(ctx, subject, p.handleDatagram); err != nil {
			p.logger.Error("Failed to subscribe to NATS subject",
				"component", p.name,
				"subject", subject,
				"error", err)
			return errors.WrapTransient(err, "MAVLinkProcessor", "Start", fmt.Sprintf("subscribe to %s", subject))
		}
	}

	p.wg.Add(1)
	go p.watchdog(ctx)

	p.mu.Lock()
	p.running = true
	p.startTime = time.Now()
	p.mu.Unlock()

	p.logger.Info("MAVLink decoder started",
		"component", p.name,
		"input_subjects", p.subjects,
		"heartbeat_timeout", p.hbTimeout)

	return nil
}

// Stop gracefully stops the processor.
func (p *Processor) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.running {
		return nil
	}

	close(p.shutdown)

	waitCh := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			"MAVLinkProcessor", "Stop", "graceful shutdown")
	}

	p.mu.Lock()
	p.running = false
	close(p.done)
	p.mu.Unlock()

	return nil
}

// watchdog publishes a disconnect event when heartbeats stop arriving.
func (p *Processor) watchdog(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.checkHeartbeat(ctx)
		}
	}
}

// checkHeartbeat publishes a disconnect event when the link has gone
// quiet for longer than the heartbeat timeout.
func (p *Processor) checkHeartbeat(ctx context.Context) {
	p.procMu.Lock()
	expired := p.connected && time.Since(p.lastHeartbeat) > p.hbTimeout
	firmware := p.firmware
	if expired {
		p.connected = false
	}
	p.procMu.Unlock()

	if expired {
		p.logger.Warn("Heartbeat timeout, link considered lost",
			"component", p.name,
			"timeout", p.hbTimeout)
		p.publishLinkState(ctx, telemetry.LinkState{
			Connected:      false,
			FirmwareFamily: firmware,
		})
	}
}

// handleDatagram feeds one datagram through the streaming parser and
// publishes an envelope per decoded frame.
func (p *Processor) handleDatagram(ctx context.Context, data []byte) {
	atomic.AddInt64(&p.datagramsProcessed, 1)
	p.mu.Lock()
	p.lastActivity = time.Now()
	p.mu.Unlock()

	p.procMu.Lock()
	defer p.procMu.Unlock()

	frames := p.parser.Push(data)
	p.recordParserStats()

	for _, frame := range frames {
		payload, err := decodeFrame(frame)
		if err != nil {
			atomic.AddInt64(&p.errorCount, 1)
			p.metrics.recordError(p.name, "decode")
			p.logger.Debug("Failed to decode frame",
				"component", p.name,
				"msg_id", frame.MsgID,
				"error", err)
			continue
		}

		if hb, ok := payload.(telemetry.Heartbeat); ok {
			p.observeHeartbeat(ctx, hb)
		}

		atomic.AddInt64(&p.framesDecoded, 1)
		p.publishEnvelope(ctx, payload)
	}
}

// observeHeartbeat refreshes the link and publishes a connect event on
// the first heartbeat or on a firmware-family change. Caller holds
// procMu.
func (p *Processor) observeHeartbeat(ctx context.Context, hb telemetry.Heartbeat) {
	firmware := hb.FirmwareFamily()
	changed := !p.connected || firmware != p.firmware

	p.connected = true
	p.firmware = firmware
	p.lastHeartbeat = time.Now()

	if changed {
		p.logger.Info("Vehicle link established",
			"component", p.name,
			"firmware_family", firmware)
		p.publishLinkState(ctx, telemetry.LinkState{
			Connected:      true,
			FirmwareFamily: firmware,
		})
	}
	p.metrics.setLinkConnected(p.connected)
}

// publishEnvelope wraps one payload and dispatches it to its kind subject.
func (p *Processor) publishEnvelope(ctx context.Context, payload telemetry.Payload) {
	env := telemetry.NewEnvelope(payload, p.source)
	data, err := env.Marshal()
	if err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		p.metrics.recordError(p.name, "encode")
		p.logger.Error("Failed to encode telemetry envelope",
			"component", p.name,
			"kind", env.Kind,
			"error", err)
		return
	}

	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, env.Subject(), data); err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		p.metrics.recordError(p.name, "publish")
		p.logger.Error("Failed to publish telemetry envelope",
			"component", p.name,
			"subject", env.Subject(),
			"error", err)
		return
	}
	p.metrics.recordEnvelope(p.name, string(env.Kind))
}

func (p *Processor) publishLinkState(ctx context.Context, state telemetry.LinkState) {
	p.metrics.setLinkConnected(state.Connected)
	p.publishEnvelope(ctx, state)
}

// recordParserStats feeds cumulative parser counters into the metrics as
// deltas. Caller holds procMu.
func (p *Processor) recordParserStats() {
	parsed, crcFailed, unknown, _ := p.parser.Stats()
	p.metrics.recordParser(p.name,
		parsed-p.prevParsed,
		crcFailed-p.prevCRCFailed,
		unknown-p.prevUnknown)
	p.prevParsed = parsed
	p.prevCRCFailed = crcFailed
	p.prevUnknown = unknown
}

// Discoverable interface implementation

// Meta returns metadata describing this processor component.
func (p *Processor) Meta() component.Metadata {
	return component.Metadata{
		Name:        p.name,
		Type:        "processor",
		Description: "Decodes autopilot wire frames into typed telemetry envelopes",
		Version:     "0.1.0",
	}
}

// InputPorts returns the NATS input ports this processor subscribes to.
func (p *Processor) InputPorts() []component.Port {
	ports := make([]component.Port, len(p.subjects))
	for i, subj := range p.subjects {
		ports[i] = component.Port{
			Name:      fmt.Sprintf("input_%d", i),
			Direction: component.DirectionInput,
			Required:  true,
			Config: component.NATSPort{
				Subject: subj,
			},
		}
	}
	return ports
}

// OutputPorts returns the telemetry and link-state output ports.
func (p *Processor) OutputPorts() []component.Port {
	return []component.Port{
		{
			Name:      "telemetry_output",
			Direction: component.DirectionOutput,
			Required:  true,
			Config: component.NATSPort{
				Subject: telemetry.SubjectRawPrefix + ">",
				Interface: &component.InterfaceContract{
					Type:    "airstreams.telemetry.v1",
					Version: "v1",
				},
			},
		},
		{
			Name:      "link_output",
			Direction: component.DirectionOutput,
			Required:  true,
			Config: component.NATSPort{
				Subject: telemetry.SubjectLink,
				Interface: &component.InterfaceContract{
					Type:    "airstreams.telemetry.v1",
					Version: "v1",
				},
			},
		},
	}
}

// ConfigSchema returns the configuration schema for this processor.
func (p *Processor) ConfigSchema() component.ConfigSchema {
	return mavlinkSchema
}

// Health returns the current health status of this processor.
func (p *Processor) Health() component.HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    p.running,
		LastCheck:  time.Now(),
		ErrorCount: int(atomic.LoadInt64(&p.errorCount)),
		Uptime:     time.Since(p.startTime),
	}
}

// DataFlow returns current data flow metrics for this processor.
func (p *Processor) DataFlow() component.FlowMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()

	processed := atomic.LoadInt64(&p.datagramsProcessed)
	errorCount := atomic.LoadInt64(&p.errorCount)

	var errorRate float64
	if processed > 0 {
		errorRate = float64(errorCount) / float64(processed)
	}

	return component.FlowMetrics{
		ErrorRate:    errorRate,
		LastActivity: p.lastActivity,
	}
}

// Register registers the frame-decoder component with the given registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "mavlink",
		Factory:     NewProcessor,
		Schema:      mavlinkSchema,
		Type:        "processor",
		Protocol:    "mavlink",
		Description: "Decodes autopilot wire frames into typed telemetry envelopes",
		Version:     "0.1.0",
	})
}
