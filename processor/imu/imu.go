// Package imu fuses raw vehicle telemetry into normalized inertial
// records. It arbitrates between competing message kinds per physical
// quantity, converts encoded units to SI, re-expresses orientations and
// body vectors from the NED/aircraft convention into ENU/base_link, and
// publishes frame-tagged records for downstream consumers.
package imu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/vectorfield/airstreams/component"
	"github.com/vectorfield/airstreams/errors"
	"github.com/vectorfield/airstreams/frames"
	"github.com/vectorfield/airstreams/natsclient"
	"github.com/vectorfield/airstreams/telemetry"
	"github.com/vectorfield/airstreams/timesync"
)

// Unit conversion coefficients. The milliTesla coefficient reproduces the
// upstream autopilot convention for RAW_IMU/SCALED_IMU magnetometer
// fields exactly, including its historical scale.
const (
	gaussToTesla     = 1.0e-4
	milliTToTesla    = 1000.0
	milliRSToRadSec  = 1.0e-3
	milliGToMS2      = 9.80665 / 1000.0
	millibarToPascal = 1.0e2
)

// rawAccelWarnInterval throttles the degraded-mode warning on non-APM
// raw inertial messages. The cache zeroing itself is never throttled.
const rawAccelWarnInterval = 60 * time.Second

// Default noise parameters (MPU6000-class sensor figures).
const (
	DefaultFrameID                 = "base_link"
	DefaultLinearAccelerationStdev = 0.0003
	DefaultAngularVelocityStdev    = 0.02 * math.Pi / 180.0
	DefaultOrientationStdev        = 1.0
	DefaultMagneticStdev           = 0.0
)

// Config holds configuration for the IMU processor.
type Config struct {
	Ports *component.PortConfig `json:"ports"`

	// FrameID names the body frame stamped on ENU records.
	FrameID string `json:"frame_id"`

	// Per-quantity standard deviations feeding the covariance builder.
	// A zero value marks the covariance unknown. Nil means default.
	LinearAccelerationStdev *float64 `json:"linear_acceleration_stdev"`
	AngularVelocityStdev    *float64 `json:"angular_velocity_stdev"`
	OrientationStdev        *float64 `json:"orientation_stdev"`
	MagneticStdev           *float64 `json:"magnetic_stdev"`
}

// Validate checks the noise parameters are usable.
func (c Config) Validate() error {
	for name, v := range map[string]*float64{
		"linear_acceleration_stdev": c.LinearAccelerationStdev,
		"angular_velocity_stdev":    c.AngularVelocityStdev,
		"orientation_stdev":         c.OrientationStdev,
		"magnetic_stdev":            c.MagneticStdev,
	} {
		if v == nil {
			continue
		}
		if *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return errors.WrapInvalid(
				fmt.Errorf("%s must be a finite non-negative number, got %v", name, *v),
				"IMUProcessor", "Validate", "stdev validation")
		}
	}
	return nil
}

// DefaultConfig returns the default configuration for the IMU processor.
func DefaultConfig() Config {
	inputDefs := []component.PortDefinition{
		{
			Name:        "telemetry_input",
			Type:        "nats",
			Subject:     telemetry.SubjectRawPrefix + ">",
			Interface:   "airstreams.telemetry.v1",
			Required:    true,
			Description: "Decoded raw telemetry envelopes",
		},
		{
			Name:        "link_input",
			Type:        "nats",
			Subject:     telemetry.SubjectLink,
			Interface:   "airstreams.telemetry.v1",
			Required:    true,
			Description: "Link connection-state events",
		},
	}

	outputDefs := []component.PortDefinition{
		{
			Name:        "data",
			Type:        "nats",
			Subject:     telemetry.SubjectIMUData,
			Interface:   "airstreams.imu.v1",
			Required:    true,
			Description: "Fused attitude and IMU records (ENU/base_link)",
		},
		{
			Name:        "data_ned",
			Type:        "nats",
			Subject:     telemetry.SubjectIMUDataNED,
			Interface:   "airstreams.imu.v1",
			Required:    false,
			Description: "Fused attitude and IMU records (NED/aircraft)",
		},
		{
			Name:        "data_raw",
			Type:        "nats",
			Subject:     telemetry.SubjectIMUDataRaw,
			Interface:   "airstreams.imu.v1",
			Required:    false,
			Description: "Raw inertial records without orientation (ENU)",
		},
		{
			Name:        "mag",
			Type:        "nats",
			Subject:     telemetry.SubjectIMUMag,
			Interface:   "airstreams.imu.v1",
			Required:    false,
			Description: "Magnetic field records in Tesla (ENU)",
		},
		{
			Name:        "pressure",
			Type:        "nats",
			Subject:     telemetry.SubjectIMUPressure,
			Interface:   "airstreams.imu.v1",
			Required:    false,
			Description: "Barometric pressure records in Pascal",
		},
		{
			Name:        "temperature",
			Type:        "nats",
			Subject:     telemetry.SubjectIMUTemperature,
			Interface:   "airstreams.imu.v1",
			Required:    false,
			Description: "Temperature records in degrees Celsius",
		},
	}

	return Config{
		Ports: &component.PortConfig{
			Inputs:  inputDefs,
			Outputs: outputDefs,
		},
		FrameID: DefaultFrameID,
	}
}

// imuSchema defines the configuration schema for the IMU processor.
var imuSchema = component.ConfigSchema{
	Properties: map[string]component.PropertySchema{
		"ports": {
			Type:        "ports",
			Description: "Port configuration",
		},
		"frame_id": {
			Type:        "string",
			Description: "Body frame name stamped on ENU records",
			Default:     DefaultFrameID,
		},
		"linear_acceleration_stdev": {
			Type:        "float",
			Description: "Linear acceleration standard deviation (m/s^2), 0 marks covariance unknown",
			Default:     DefaultLinearAccelerationStdev,
		},
		"angular_velocity_stdev": {
			Type:        "float",
			Description: "Angular velocity standard deviation (rad/s), 0 marks covariance unknown",
			Default:     DefaultAngularVelocityStdev,
		},
		"orientation_stdev": {
			Type:        "float",
			Description: "Orientation standard deviation, 0 marks covariance unknown",
			Default:     DefaultOrientationStdev,
		},
		"magnetic_stdev": {
			Type:        "float",
			Description: "Magnetic field standard deviation (Tesla), 0 marks covariance unknown",
			Default:     DefaultMagneticStdev,
		},
	},
}

// Publisher dispatches one encoded record to a subject. *natsclient.Client
// satisfies it; tests substitute a recorder.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// sinks maps each record stream to its output subject.
type sinks struct {
	data        string
	dataNED     string
	dataRaw     string
	mag         string
	pressure    string
	temperature string
}

// Processor implements the sensor-fusion stage between the frame decoder
// and downstream consumers.
type Processor struct {
	name       string
	subjects   []string
	out        sinks
	frameID    string
	natsClient *natsclient.Client
	publisher  Publisher
	logger     *slog.Logger
	clock      timesync.Synchronizer

	// Covariances built once from configuration, immutable afterward.
	linearAccelCov    telemetry.Covariance3
	angularVelCov     telemetry.Covariance3
	orientationCov    telemetry.Covariance3
	unkOrientationCov telemetry.Covariance3
	magneticCov       telemetry.Covariance3

	// Message handling is serialized: all arbiter and cache state below
	// procMu is touched only with it held.
	procMu       sync.Mutex
	arb          arbiter
	apmFirmware  bool
	accelENU     r3.Vec
	accelNED     r3.Vec
	rawWarnLimit *rate.Limiter

	// Lifecycle management
	shutdown    chan struct{}
	done        chan struct{}
	running     bool
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	wg          *sync.WaitGroup

	// Atomic counters for DataFlow
	messagesProcessed int64
	messagesDropped   int64
	recordsPublished  int64
	errorCount        int64
	lastActivity      time.Time

	metrics *imuMetrics
}

// NewProcessor creates an IMU processor from configuration.
func NewProcessor(
	rawConfig json.RawMessage, deps component.Dependencies,
) (component.Discoverable, error) {
	config := DefaultConfig()
	if len(rawConfig) > 0 {
		if err := component.SafeUnmarshal(rawConfig, &config); err != nil {
			return nil, errors.WrapInvalid(err, "IMUProcessor", "NewProcessor", "config unmarshal")
		}
	}
	if config.Ports == nil {
		config.Ports = DefaultConfig().Ports
	}
	if config.FrameID == "" {
		config.FrameID = DefaultFrameID
	}

	var inputSubjects []string
	for _, input := range config.Ports.Inputs {
		if input.Type == "nats" {
			inputSubjects = append(inputSubjects, input.Subject)
		}
	}
	if len(inputSubjects) == 0 {
		return nil, errors.WrapInvalid(
			errors.ErrInvalidConfig, "IMUProcessor", "NewProcessor",
			"no input subjects configured")
	}

	defaults := DefaultConfig().Ports.Outputs
	out := sinks{
		data:        outputSubject(config.Ports.Outputs, defaults, "data"),
		dataNED:     outputSubject(config.Ports.Outputs, defaults, "data_ned"),
		dataRaw:     outputSubject(config.Ports.Outputs, defaults, "data_raw"),
		mag:         outputSubject(config.Ports.Outputs, defaults, "mag"),
		pressure:    outputSubject(config.Ports.Outputs, defaults, "pressure"),
		temperature: outputSubject(config.Ports.Outputs, defaults, "temperature"),
	}

	metrics, err := newIMUMetrics(deps.MetricsRegistry, "imu-processor")
	if err != nil {
		deps.GetLogger().Error("Failed to initialize IMU metrics", "error", err)
		metrics = nil // Continue without metrics
	}

	p := &Processor{
		name:              "imu-processor",
		subjects:          inputSubjects,
		out:               out,
		frameID:           config.FrameID,
		natsClient:        deps.NATSClient,
		logger:            deps.GetLogger(),
		clock:             timesync.NewClock(),
		linearAccelCov:    buildDiagonalCovariance(stdevOrDefault(config.LinearAccelerationStdev, DefaultLinearAccelerationStdev)),
		angularVelCov:     buildDiagonalCovariance(stdevOrDefault(config.AngularVelocityStdev, DefaultAngularVelocityStdev)),
		orientationCov:    buildDiagonalCovariance(stdevOrDefault(config.OrientationStdev, DefaultOrientationStdev)),
		unkOrientationCov: telemetry.UnknownCovariance(),
		magneticCov:       buildDiagonalCovariance(stdevOrDefault(config.MagneticStdev, DefaultMagneticStdev)),
		rawWarnLimit:      rate.NewLimiter(rate.Every(rawAccelWarnInterval), 1),
		shutdown:          make(chan struct{}),
		done:              make(chan struct{}),
		wg:                &sync.WaitGroup{},
		metrics:           metrics,
	}
	if deps.NATSClient != nil {
		p.publisher = deps.NATSClient
	}
	return p, nil
}

func stdevOrDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// outputSubject resolves a named output port's subject, falling back to
// the default definition when the configured ports omit it.
func outputSubject(outputs, defaults []component.PortDefinition, name string) string {
	for _, def := range outputs {
		if def.Name == name && def.Type == "nats" {
			return def.Subject
		}
	}
	for _, def := range defaults {
		if def.Name == name {
			return def.Subject
		}
	}
	return ""
}

// Initialize prepares the processor (no-op; all setup happens in the factory).
func (p *Processor) Initialize() error {
	return nil
}

// Start subscribes to the telemetry subjects and begins fusing.
func (p *Processor) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.running {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "IMUProcessor", "Start", "check running state")
	}
	if p.natsClient == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "IMUProcessor", "Start", "NATS client required")
	}

	for _, subject := range p.subjects {
		p.logger.Debug("Subscribing to NATS subject",
			"component", p.name,
			"subject", subject)

		if err := p.natsClient.Subscribe(ctx, subject, p.handleMessage); err != nil {
			p.logger.Error("Failed to subscribe to NATS subject",
				"component", p.name,
				"subject", subject,
				"error", err)
			return errors.WrapTransient(err, "IMUProcessor", "Start", fmt.Sprintf("subscribe to %s", subject))
		}
	}

	p.mu.Lock()
	p.running = true
	p.startTime = time.Now()
	p.mu.Unlock()

	p.logger.Info("IMU processor started",
		"component", p.name,
		"input_subjects", p.subjects,
		"frame_id", p.frameID)

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
			"IMUProcessor", "Stop", "graceful shutdown")
	}

	p.mu.Lock()
	p.running = false
	close(p.done)
	p.mu.Unlock()

	return nil
}

// handleMessage decodes an envelope and dispatches it to the matching
// handler. Processing is serialized: one message is fully normalized and
// dispatched before the next is taken.
func (p *Processor) handleMessage(ctx context.Context, msgData []byte) {
	atomic.AddInt64(&p.messagesProcessed, 1)
	p.mu.Lock()
	p.lastActivity = time.Now()
	p.mu.Unlock()

	env, err := telemetry.ParseEnvelope(msgData)
	if err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		p.metrics.recordError(p.name, "parse")
		p.logger.Debug("Failed to parse telemetry envelope",
			"component", p.name,
			"error", err)
		return
	}

	p.metrics.recordMessage(p.name, string(env.Kind))

	p.procMu.Lock()
	defer p.procMu.Unlock()

	switch payload := env.Payload.(type) {
	case telemetry.Attitude:
		p.handleAttitude(ctx, payload)
	case telemetry.AttitudeQuaternion:
		p.handleAttitudeQuaternion(ctx, payload)
	case telemetry.HighresIMU:
		p.handleHighresIMU(ctx, payload)
	case telemetry.RawIMU:
		p.handleRawIMU(ctx, payload)
	case telemetry.ScaledIMU:
		p.handleScaledIMU(ctx, payload)
	case telemetry.ScaledPressure:
		p.handleScaledPressure(ctx, payload)
	case telemetry.LinkState:
		p.handleLinkState(payload)
	default:
		// Heartbeats and other kinds on the wildcard are not IMU inputs.
	}
}

// handleAttitude processes a Euler-angle attitude report. Dropped once a
// quaternion stream has been seen.
func (p *Processor) handleAttitude(ctx context.Context, a telemetry.Attitude) {
	if !p.arb.observe(telemetry.KindAttitude) {
		p.recordDrop(telemetry.KindAttitude)
		return
	}
	p.metrics.setAttitudeSource(p.arb.attitude)

	nedAircraftQ := frames.QuaternionFromRPY(a.Roll, a.Pitch, a.Yaw)
	enuBaselinkQ := frames.OrientationNEDAircraftToENUBaselink(nedAircraftQ)

	gyroAircraft := r3.Vec{X: a.RollSpeed, Y: a.PitchSpeed, Z: a.YawSpeed}
	gyroBaselink := frames.VectorAircraftToBaselink(gyroAircraft)

	p.publishAttitude(ctx, a.TimeBootMS, enuBaselinkQ, nedAircraftQ, gyroBaselink, gyroAircraft)
}

// handleAttitudeQuaternion processes a quaternion attitude report and
// makes the quaternion stream authoritative.
func (p *Processor) handleAttitudeQuaternion(ctx context.Context, a telemetry.AttitudeQuaternion) {
	first := p.arb.attitude != AttitudeQuaternion
	p.arb.observe(telemetry.KindAttitudeQuaternion)
	p.metrics.setAttitudeSource(p.arb.attitude)
	if first {
		p.logger.Info("Attitude quaternion stream detected",
			"component", p.name)
	}

	nedAircraftQ := quat.Number{Real: a.W, Imag: a.X, Jmag: a.Y, Kmag: a.Z}
	enuBaselinkQ := frames.OrientationNEDAircraftToENUBaselink(nedAircraftQ)

	gyroAircraft := r3.Vec{X: a.RollSpeed, Y: a.PitchSpeed, Z: a.YawSpeed}
	gyroBaselink := frames.VectorAircraftToBaselink(gyroAircraft)

	p.publishAttitude(ctx, a.TimeBootMS, enuBaselinkQ, nedAircraftQ, gyroBaselink, gyroAircraft)
}

// handleHighresIMU processes a high-fidelity inertial report. Each
// measurement group is gated by its own presence bits and processed
// independently of the others.
func (p *Processor) handleHighresIMU(ctx context.Context, h telemetry.HighresIMU) {
	first := p.arb.inertial != InertialHighRes
	p.arb.observe(telemetry.KindHighresIMU)
	p.metrics.setInertialSource(p.arb.inertial)
	if first {
		p.logger.Info("High resolution IMU detected",
			"component", p.name)
	}

	header := p.clock.HeaderMicros(p.frameID, h.TimeUsec)

	if h.FieldsUpdated&(telemetry.FieldsAccel|telemetry.FieldsGyro) != 0 {
		gyro := frames.VectorAircraftToBaselink(r3.Vec{X: h.XGyro, Y: h.YGyro, Z: h.ZGyro})
		accelNED := r3.Vec{X: h.XAcc, Y: h.YAcc, Z: h.ZAcc}
		accelENU := frames.VectorAircraftToBaselink(accelNED)
		p.publishRaw(ctx, header, gyro, accelENU, accelNED)
	}

	if h.FieldsUpdated&telemetry.FieldsMag != 0 {
		field := frames.VectorAircraftToBaselink(r3.Vec{
			X: h.XMag * gaussToTesla,
			Y: h.YMag * gaussToTesla,
			Z: h.ZMag * gaussToTesla,
		})
		p.publishMag(ctx, header, field)
	}

	if h.FieldsUpdated&telemetry.FieldsAbsPressure != 0 {
		p.publishPressure(ctx, header, h.AbsPressure*millibarToPascal)
	}

	if h.FieldsUpdated&telemetry.FieldsTemperature != 0 {
		p.publishTemperature(ctx, header, h.Temperature)
	}
}

// handleRawIMU processes an unscaled inertial report, accepted only while
// no scaled or highres source has been seen. The autopilot firmware family
// decides whether acceleration fields carry milli-G or untrusted raw
// counts: in the latter case the record still ships the unscaled values,
// and the acceleration cache is zeroed afterward so attitude records do
// not carry them forward.
func (p *Processor) handleRawIMU(ctx context.Context, r telemetry.RawIMU) {
	if !p.arb.observe(telemetry.KindRawIMU) {
		p.recordDrop(telemetry.KindRawIMU)
		return
	}
	p.metrics.setInertialSource(p.arb.inertial)

	header := p.clock.HeaderMicros(p.frameID, r.TimeUsec)

	gyro := frames.VectorAircraftToBaselink(r3.Vec{
		X: float64(r.XGyro) * milliRSToRadSec,
		Y: float64(r.YGyro) * milliRSToRadSec,
		Z: float64(r.ZGyro) * milliRSToRadSec,
	})
	accelNED := r3.Vec{X: float64(r.XAcc), Y: float64(r.YAcc), Z: float64(r.ZAcc)}
	accelENU := frames.VectorAircraftToBaselink(accelNED)

	if p.apmFirmware {
		accelNED = r3.Scale(milliGToMS2, accelNED)
		accelENU = r3.Scale(milliGToMS2, accelENU)
	}

	p.publishRaw(ctx, header, gyro, accelENU, accelNED)

	if !p.apmFirmware {
		if p.rawWarnLimit.Allow() {
			p.logger.Warn("Raw IMU acceleration scale known for the ArduPilot family only; raw records carry unscaled values",
				"component", p.name)
		}
		p.accelENU = r3.Vec{}
		p.accelNED = r3.Vec{}
	}

	field := frames.VectorAircraftToBaselink(r3.Vec{
		X: float64(r.XMag) * milliTToTesla,
		Y: float64(r.YMag) * milliTToTesla,
		Z: float64(r.ZMag) * milliTToTesla,
	})
	p.publishMag(ctx, header, field)
}

// handleScaledIMU processes a calibrated milli-unit inertial report,
// accepted unless a highres source has been seen.
func (p *Processor) handleScaledIMU(ctx context.Context, s telemetry.ScaledIMU) {
	prev := p.arb.inertial
	if !p.arb.observe(telemetry.KindScaledIMU) {
		p.recordDrop(telemetry.KindScaledIMU)
		return
	}
	p.metrics.setInertialSource(p.arb.inertial)
	if prev != InertialScaled {
		p.logger.Info("Scaled IMU stream in use",
			"component", p.name)
	}

	header := p.clock.HeaderMillis(p.frameID, s.TimeBootMS)

	gyro := frames.VectorAircraftToBaselink(r3.Vec{
		X: float64(s.XGyro) * milliRSToRadSec,
		Y: float64(s.YGyro) * milliRSToRadSec,
		Z: float64(s.ZGyro) * milliRSToRadSec,
	})
	accelNED := r3.Vec{
		X: float64(s.XAcc) * milliGToMS2,
		Y: float64(s.YAcc) * milliGToMS2,
		Z: float64(s.ZAcc) * milliGToMS2,
	}
	accelENU := frames.VectorAircraftToBaselink(accelNED)

	p.publishRaw(ctx, header, gyro, accelENU, accelNED)

	field := frames.VectorAircraftToBaselink(r3.Vec{
		X: float64(s.XMag) * milliTToTesla,
		Y: float64(s.YMag) * milliTToTesla,
		Z: float64(s.ZMag) * milliTToTesla,
	})
	p.publishMag(ctx, header, field)
}

// handleScaledPressure processes a standalone barometric report, dropped
// once a highres source has been seen since highres messages carry their
// own pressure and temperature fields.
func (p *Processor) handleScaledPressure(ctx context.Context, s telemetry.ScaledPressure) {
	if !p.arb.observe(telemetry.KindScaledPressure) {
		p.recordDrop(telemetry.KindScaledPressure)
		return
	}

	header := p.clock.HeaderMillis(p.frameID, s.TimeBootMS)

	p.publishTemperature(ctx, header, float64(s.Temperature)/100.0)
	p.publishPressure(ctx, header, s.PressAbs*millibarToPascal)
}

// handleLinkState resets the arbiter on any connection change, in either
// direction, and reads the firmware family off the event. The cached
// linear acceleration deliberately survives the reset: the stale last
// value persists until replaced by the next inertial message.
func (p *Processor) handleLinkState(l telemetry.LinkState) {
	p.arb.reset()
	p.clock.Reset()
	if l.FirmwareFamily != "" {
		p.apmFirmware = l.FirmwareFamily == telemetry.FirmwareArduPilot
	}
	p.metrics.setAttitudeSource(p.arb.attitude)
	p.metrics.setInertialSource(p.arb.inertial)

	p.logger.Info("Link state changed, source arbitration reset",
		"component", p.name,
		"connected", l.Connected,
		"firmware_family", l.FirmwareFamily)
}

// publishAttitude builds and dispatches the orientation pair: the ENU
// record to the primary sink and the NED record to the secondary sink.
// Both carry the cached linear acceleration; only the ENU orientation is
// a covariance-bearing estimate, the NED variant ships the unknown
// sentinel.
func (p *Processor) publishAttitude(
	ctx context.Context,
	bootMS uint32,
	enuQ, nedQ quat.Number,
	gyroENU, gyroNED r3.Vec,
) {
	header := p.clock.HeaderMillis(p.frameID, bootMS)

	enu := telemetry.IMURecord{
		Header:                       header,
		Orientation:                  quaternionRecord(enuQ),
		OrientationCovariance:        p.orientationCov,
		AngularVelocity:              vectorRecord(gyroENU),
		AngularVelocityCovariance:    p.angularVelCov,
		LinearAcceleration:           vectorRecord(p.accelENU),
		LinearAccelerationCovariance: p.linearAccelCov,
	}
	p.publish(ctx, p.out.data, enu)

	ned := telemetry.IMURecord{
		Header:                       telemetry.Header{FrameID: "aircraft", Stamp: header.Stamp},
		Orientation:                  quaternionRecord(nedQ),
		OrientationCovariance:        p.unkOrientationCov,
		AngularVelocity:              vectorRecord(gyroNED),
		AngularVelocityCovariance:    p.angularVelCov,
		LinearAcceleration:           vectorRecord(p.accelNED),
		LinearAccelerationCovariance: p.linearAccelCov,
	}
	p.publish(ctx, p.out.dataNED, ned)
}

// publishRaw updates the acceleration cache and dispatches a single ENU
// record without orientation to the raw-data sink.
func (p *Processor) publishRaw(ctx context.Context, header telemetry.Header, gyro, accelENU, accelNED r3.Vec) {
	p.accelENU = accelENU
	p.accelNED = accelNED

	record := telemetry.IMURecord{
		Header:                       header,
		OrientationCovariance:        p.unkOrientationCov,
		AngularVelocity:              vectorRecord(gyro),
		AngularVelocityCovariance:    p.angularVelCov,
		LinearAcceleration:           vectorRecord(accelENU),
		LinearAccelerationCovariance: p.linearAccelCov,
	}
	p.publish(ctx, p.out.dataRaw, record)
}

func (p *Processor) publishMag(ctx context.Context, header telemetry.Header, field r3.Vec) {
	record := telemetry.MagneticFieldRecord{
		Header:          header,
		MagneticField:   vectorRecord(field),
		FieldCovariance: p.magneticCov,
	}
	p.publish(ctx, p.out.mag, record)
}

func (p *Processor) publishPressure(ctx context.Context, header telemetry.Header, pascal float64) {
	record := telemetry.FluidPressureRecord{
		Header:        header,
		FluidPressure: pascal,
	}
	p.publish(ctx, p.out.pressure, record)
}

func (p *Processor) publishTemperature(ctx context.Context, header telemetry.Header, degC float64) {
	record := telemetry.TemperatureRecord{
		Header:      header,
		Temperature: degC,
	}
	p.publish(ctx, p.out.temperature, record)
}

// publish encodes one record and dispatches it, fire-and-forget.
func (p *Processor) publish(ctx context.Context, subject string, record any) {
	if subject == "" || p.publisher == nil {
		return
	}

	data, err := json.Marshal(record)
	if err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		p.metrics.recordError(p.name, "encode")
		p.logger.Error("Failed to encode output record",
			"component", p.name,
			"subject", subject,
			"error", err)
		return
	}

	if err := p.publisher.Publish(ctx, subject, data); err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		p.metrics.recordError(p.name, "publish")
		p.logger.Error("Failed to publish output record",
			"component", p.name,
			"subject", subject,
			"error", err)
		return
	}

	atomic.AddInt64(&p.recordsPublished, 1)
	p.metrics.recordPublish(p.name, subject)
}

func (p *Processor) recordDrop(kind telemetry.Kind) {
	atomic.AddInt64(&p.messagesDropped, 1)
	p.metrics.recordDrop(p.name, string(kind))
	p.logger.Debug("Message superseded by higher-priority source",
		"component", p.name,
		"kind", kind)
}

func quaternionRecord(q quat.Number) telemetry.Quaternion {
	return telemetry.Quaternion{W: q.Real, X: q.Imag, Y: q.Jmag, Z: q.Kmag}
}

func vectorRecord(v r3.Vec) telemetry.Vector3 {
	return telemetry.Vector3{X: v.X, Y: v.Y, Z: v.Z}
}

// Discoverable interface implementation

// Meta returns metadata describing this processor component.
func (p *Processor) Meta() component.Metadata {
	return component.Metadata{
		Name:        p.name,
		Type:        "processor",
		Description: "Sensor fusion: arbitrates telemetry sources and normalizes IMU records to SI/ENU",
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
				Interface: &component.InterfaceContract{
					Type:    "airstreams.telemetry.v1",
					Version: "v1",
				},
			},
		}
	}
	return ports
}

// OutputPorts returns the NATS output ports for fused records.
func (p *Processor) OutputPorts() []component.Port {
	named := []struct {
		name    string
		subject string
	}{
		{"data", p.out.data},
		{"data_ned", p.out.dataNED},
		{"data_raw", p.out.dataRaw},
		{"mag", p.out.mag},
		{"pressure", p.out.pressure},
		{"temperature", p.out.temperature},
	}

	ports := make([]component.Port, 0, len(named))
	for _, n := range named {
		if n.subject == "" {
			continue
		}
		ports = append(ports, component.Port{
			Name:      n.name,
			Direction: component.DirectionOutput,
			Required:  n.name == "data",
			Config: component.NATSPort{
				Subject: n.subject,
				Interface: &component.InterfaceContract{
					Type:    "airstreams.imu.v1",
					Version: "v1",
				},
			},
		})
	}
	return ports
}

// ConfigSchema returns the configuration schema for this processor.
func (p *Processor) ConfigSchema() component.ConfigSchema {
	return imuSchema
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

	processed := atomic.LoadInt64(&p.messagesProcessed)
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

// Register registers the IMU processor component with the given registry.
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "imu",
		Factory:     NewProcessor,
		Schema:      imuSchema,
		Type:        "processor",
		Protocol:    "nats",
		Description: "Arbitrates telemetry sources and fuses normalized IMU records",
		Version:     "0.1.0",
	})
}
