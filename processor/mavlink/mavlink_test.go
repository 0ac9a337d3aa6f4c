package mavlink

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorfield/airstreams/component"
	"github.com/vectorfield/airstreams/telemetry"
)

type publishedMsg struct {
	subject string
	data    []byte
}

type recordingPublisher struct {
	published []publishedMsg
}

func (r *recordingPublisher) Publish(_ context.Context, subject string, data []byte) error {
	r.published = append(r.published, publishedMsg{subject: subject, data: data})
	return nil
}

func (r *recordingPublisher) bySubject(subject string) []publishedMsg {
	var out []publishedMsg
	for _, m := range r.published {
		if m.subject == subject {
			out = append(out, m)
		}
	}
	return out
}

func newTestDecoder(t *testing.T) (*Processor, *recordingPublisher) {
	t.Helper()

	comp, err := NewProcessor(nil, component.Dependencies{})
	require.NoError(t, err)

	p, ok := comp.(*Processor)
	require.True(t, ok)

	pub := &recordingPublisher{}
	p.publisher = pub
	return p, pub
}

func decodeLinkState(t *testing.T, data []byte) telemetry.LinkState {
	t.Helper()

	env, err := telemetry.ParseEnvelope(data)
	require.NoError(t, err)
	state, ok := env.Payload.(telemetry.LinkState)
	require.True(t, ok)
	return state
}

func heartbeatFrame(seq uint8, autopilot uint8) []byte {
	return buildV1(msgIDHeartbeat, seq, 1, 1, []byte{0, 0, 0, 0, 2, autopilot, 81, 4, 3})
}

func TestHeartbeatEstablishesLink(t *testing.T) {
	p, pub := newTestDecoder(t)

	p.handleDatagram(context.Background(), heartbeatFrame(0, telemetry.AutopilotArduPilot))

	linkMsgs := pub.bySubject(telemetry.SubjectLink)
	require.Len(t, linkMsgs, 1)
	state := decodeLinkState(t, linkMsgs[0].data)
	assert.True(t, state.Connected)
	assert.Equal(t, telemetry.FirmwareArduPilot, state.FirmwareFamily)

	// The heartbeat itself is still published as raw telemetry.
	hbMsgs := pub.bySubject(telemetry.SubjectFor(telemetry.KindHeartbeat))
	require.Len(t, hbMsgs, 1)
}

func TestLinkEventOnlyOnChange(t *testing.T) {
	p, pub := newTestDecoder(t)

	p.handleDatagram(context.Background(), heartbeatFrame(0, telemetry.AutopilotPX4))
	p.handleDatagram(context.Background(), heartbeatFrame(1, telemetry.AutopilotPX4))
	require.Len(t, pub.bySubject(telemetry.SubjectLink), 1)

	// A firmware-family change re-announces the link.
	p.handleDatagram(context.Background(), heartbeatFrame(2, telemetry.AutopilotArduPilot))
	linkMsgs := pub.bySubject(telemetry.SubjectLink)
	require.Len(t, linkMsgs, 2)
	state := decodeLinkState(t, linkMsgs[1].data)
	assert.True(t, state.Connected)
	assert.Equal(t, telemetry.FirmwareArduPilot, state.FirmwareFamily)
}

func TestDecodedFramesRouteByKind(t *testing.T) {
	p, pub := newTestDecoder(t)

	w := &writer{}
	w.u32(9000)
	for _, v := range []float32{0.5, -0.25, 1.5, 0, 0, 0} {
		w.f32(v)
	}
	attitude := buildV1(msgIDAttitude, 0, 1, 1, w.buf)

	w = &writer{}
	w.u32(9010)
	w.f32(1013.25)
	w.f32(0)
	w.i16(2550)
	pressure := buildV1(msgIDScaledPressure, 1, 1, 1, w.buf)

	// Both frames arrive in one datagram.
	p.handleDatagram(context.Background(), append(attitude, pressure...))

	attMsgs := pub.bySubject(telemetry.SubjectFor(telemetry.KindAttitude))
	require.Len(t, attMsgs, 1)
	env, err := telemetry.ParseEnvelope(attMsgs[0].data)
	require.NoError(t, err)
	assert.Equal(t, "mavlink-decoder", env.Meta.Source)
	att, ok := env.Payload.(telemetry.Attitude)
	require.True(t, ok)
	assert.Equal(t, 0.5, att.Roll)

	pressMsgs := pub.bySubject(telemetry.SubjectFor(telemetry.KindScaledPressure))
	require.Len(t, pressMsgs, 1)
}

func TestDatagramWithNoiseStillDecodes(t *testing.T) {
	p, pub := newTestDecoder(t)

	data := append([]byte{0xAA, 0xBB, 0xCC}, heartbeatFrame(0, telemetry.AutopilotGeneric)...)
	p.handleDatagram(context.Background(), data)

	require.Len(t, pub.bySubject(telemetry.SubjectFor(telemetry.KindHeartbeat)), 1)
}

func TestFrameSplitAcrossDatagrams(t *testing.T) {
	p, pub := newTestDecoder(t)

	frame := heartbeatFrame(0, telemetry.AutopilotGeneric)
	p.handleDatagram(context.Background(), frame[:7])
	require.Empty(t, pub.published)

	p.handleDatagram(context.Background(), frame[7:])
	require.Len(t, pub.bySubject(telemetry.SubjectFor(telemetry.KindHeartbeat)), 1)
}

func TestHeartbeatTimeoutPublishesDisconnect(t *testing.T) {
	p, pub := newTestDecoder(t)
	p.hbTimeout = time.Millisecond

	p.handleDatagram(context.Background(), heartbeatFrame(0, telemetry.AutopilotArduPilot))
	require.Len(t, pub.bySubject(telemetry.SubjectLink), 1)

	time.Sleep(5 * time.Millisecond)
	p.checkHeartbeat(context.Background())

	linkMsgs := pub.bySubject(telemetry.SubjectLink)
	require.Len(t, linkMsgs, 2)
	state := decodeLinkState(t, linkMsgs[1].data)
	assert.False(t, state.Connected)
	assert.Equal(t, telemetry.FirmwareArduPilot, state.FirmwareFamily)

	// The next heartbeat re-establishes the link.
	p.handleDatagram(context.Background(), heartbeatFrame(1, telemetry.AutopilotArduPilot))
	linkMsgs = pub.bySubject(telemetry.SubjectLink)
	require.Len(t, linkMsgs, 3)
	assert.True(t, decodeLinkState(t, linkMsgs[2].data).Connected)
}

func TestCheckHeartbeatQuietWhenDisconnected(t *testing.T) {
	p, pub := newTestDecoder(t)
	p.hbTimeout = time.Millisecond

	p.checkHeartbeat(context.Background())
	require.Empty(t, pub.published)
}

func TestNewProcessorConfigOverrides(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"source":                    "bench-rig",
		"heartbeat_timeout_seconds": 2.5,
	})
	require.NoError(t, err)

	comp, err := NewProcessor(raw, component.Dependencies{})
	require.NoError(t, err)

	p, ok := comp.(*Processor)
	require.True(t, ok)
	assert.Equal(t, "bench-rig", p.source)
	assert.Equal(t, 2500*time.Millisecond, p.hbTimeout)
	assert.Equal(t, []string{telemetry.SubjectUDPRaw}, p.subjects)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{HeartbeatTimeoutSeconds: -1}.Validate())
}

func TestStartRequiresNATSClient(t *testing.T) {
	p, _ := newTestDecoder(t)
	require.Error(t, p.Start(context.Background()))
}

func TestDiscoverable(t *testing.T) {
	p, _ := newTestDecoder(t)

	meta := p.Meta()
	assert.Equal(t, "mavlink-decoder", meta.Name)
	assert.Equal(t, "processor", meta.Type)

	require.Len(t, p.InputPorts(), 1)
	require.Len(t, p.OutputPorts(), 2)

	schema := p.ConfigSchema()
	assert.Contains(t, schema.Properties, "heartbeat_timeout_seconds")

	health := p.Health()
	assert.False(t, health.Healthy)
}
