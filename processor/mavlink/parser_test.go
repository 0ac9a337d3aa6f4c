package mavlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildV1 assembles a version-1 wire frame with a valid checksum.
func buildV1(msgID uint32, seq, sysID, compID uint8, payload []byte) []byte {
	frame := []byte{stxV1, byte(len(payload)), seq, sysID, compID, byte(msgID)}
	frame = append(frame, payload...)
	crc := crcBytes(frame[1:], crcInit)
	crc = crcAccumulate(crcExtra[msgID], crc)
	return append(frame, byte(crc&0xFF), byte(crc>>8))
}

// buildV2 assembles a version-2 wire frame. A non-nil signature is
// appended after the checksum with the signed incompat flag set.
func buildV2(msgID uint32, seq, sysID, compID uint8, payload, signature []byte) []byte {
	var incompat byte
	if signature != nil {
		incompat = incompatFlagSigned
	}
	frame := []byte{
		stxV2, byte(len(payload)), incompat, 0, seq, sysID, compID,
		byte(msgID), byte(msgID >> 8), byte(msgID >> 16),
	}
	frame = append(frame, payload...)
	crc := crcBytes(frame[1:], crcInit)
	crc = crcAccumulate(crcExtra[msgID], crc)
	frame = append(frame, byte(crc&0xFF), byte(crc>>8))
	return append(frame, signature...)
}

func heartbeatPayload() []byte {
	// custom_mode=0, type=2, autopilot=3, base_mode=81, status=4, version=3
	return []byte{0, 0, 0, 0, 2, 3, 81, 4, 3}
}

func TestParserV1Frame(t *testing.T) {
	p := NewParser()

	frames := p.Push(buildV1(msgIDHeartbeat, 7, 1, 1, heartbeatPayload()))
	require.Len(t, frames, 1)

	assert.Equal(t, msgIDHeartbeat, frames[0].MsgID)
	assert.Equal(t, uint8(7), frames[0].Seq)
	assert.Equal(t, uint8(1), frames[0].SysID)
	assert.Equal(t, uint8(1), frames[0].CompID)
	assert.Equal(t, heartbeatPayload(), frames[0].Payload)
}

func TestParserV2Frame(t *testing.T) {
	p := NewParser()

	payload := make([]byte, payloadSizes[msgIDHighresIMU])
	payload[0] = 0xAB
	payload[len(payload)-1] = 0x01 // keep full length on the wire
	frames := p.Push(buildV2(msgIDHighresIMU, 42, 1, 1, payload, nil))
	require.Len(t, frames, 1)

	assert.Equal(t, msgIDHighresIMU, frames[0].MsgID)
	assert.Equal(t, uint8(42), frames[0].Seq)
	assert.Equal(t, payload, frames[0].Payload)
}

func TestParserSignedV2Frame(t *testing.T) {
	p := NewParser()

	signature := make([]byte, signatureLen)
	for i := range signature {
		signature[i] = byte(i)
	}
	data := buildV2(msgIDHeartbeat, 0, 1, 1, heartbeatPayload(), signature)
	data = append(data, buildV1(msgIDHeartbeat, 1, 1, 1, heartbeatPayload())...)

	frames := p.Push(data)
	require.Len(t, frames, 2, "signature bytes must be consumed, not resynced over")
	assert.Equal(t, uint8(0), frames[0].Seq)
	assert.Equal(t, uint8(1), frames[1].Seq)
}

func TestParserFrameSplitAcrossPushes(t *testing.T) {
	p := NewParser()

	frame := buildV1(msgIDHeartbeat, 3, 1, 1, heartbeatPayload())
	for cut := 1; cut < len(frame); cut++ {
		require.Empty(t, p.Push(frame[:cut]), "cut at %d", cut)
		frames := p.Push(frame[cut:])
		require.Len(t, frames, 1, "cut at %d", cut)
		assert.Equal(t, uint8(3), frames[0].Seq)
	}
}

func TestParserConcatenatedFrames(t *testing.T) {
	p := NewParser()

	data := buildV1(msgIDHeartbeat, 1, 1, 1, heartbeatPayload())
	data = append(data, buildV2(msgIDHeartbeat, 2, 1, 1, heartbeatPayload(), nil)...)
	data = append(data, buildV1(msgIDHeartbeat, 3, 1, 1, heartbeatPayload())...)

	frames := p.Push(data)
	require.Len(t, frames, 3)
	for i, frame := range frames {
		assert.Equal(t, uint8(i+1), frame.Seq)
	}
}

func TestParserSkipsLeadingNoise(t *testing.T) {
	p := NewParser()

	data := append([]byte{0x00, 0x13, 0x37, 0x20}, buildV1(msgIDHeartbeat, 9, 1, 1, heartbeatPayload())...)
	frames := p.Push(data)
	require.Len(t, frames, 1)

	_, _, _, discarded := p.Stats()
	assert.Equal(t, uint64(4), discarded)
}

func TestParserChecksumFailureResyncs(t *testing.T) {
	p := NewParser()

	bad := buildV1(msgIDHeartbeat, 1, 1, 1, heartbeatPayload())
	bad[len(bad)-1] ^= 0xFF
	data := append(bad, buildV1(msgIDHeartbeat, 2, 1, 1, heartbeatPayload())...)

	frames := p.Push(data)
	require.Len(t, frames, 1)
	assert.Equal(t, uint8(2), frames[0].Seq)

	parsed, crcFailed, _, _ := p.Stats()
	assert.Equal(t, uint64(1), parsed)
	assert.Equal(t, uint64(1), crcFailed)
}

func TestParserUnknownMessageConsumed(t *testing.T) {
	p := NewParser()

	// An unrecognized message id: framing is trusted, the whole declared
	// frame is skipped and the stream continues at the next frame.
	unknown := []byte{stxV1, 4, 0, 1, 1, 200, 0xDE, 0xAD, 0xBE, 0xEF, 0x00, 0x00}
	data := append(unknown, buildV1(msgIDHeartbeat, 5, 1, 1, heartbeatPayload())...)

	frames := p.Push(data)
	require.Len(t, frames, 1)
	assert.Equal(t, uint8(5), frames[0].Seq)

	_, _, unknownSkipped, _ := p.Stats()
	assert.Equal(t, uint64(1), unknownSkipped)
}

func TestParserDiscardsUnboundedNoise(t *testing.T) {
	p := NewParser()

	// A start marker followed by nothing parseable must not grow the
	// buffer without limit.
	noise := make([]byte, 2*maxBuffered)
	noise[0] = stxV2
	noise[1] = 0xFF
	require.Empty(t, p.Push(noise))

	frames := p.Push(buildV1(msgIDHeartbeat, 1, 1, 1, heartbeatPayload()))
	require.Len(t, frames, 1)
}
