package mavlink

import (
	"github.com/vectorfield/airstreams/errors"
)

// Frame start markers for the two wire protocol versions.
const (
	stxV1 = 0xFE
	stxV2 = 0xFD
)

const (
	headerLenV1  = 6  // stx, len, seq, sysid, compid, msgid
	headerLenV2  = 10 // stx, len, incompat, compat, seq, sysid, compid, msgid[3]
	checksumLen  = 2
	signatureLen = 13

	// incompatFlagSigned marks a v2 frame carrying a trailing signature.
	incompatFlagSigned = 0x01

	// maxBuffered bounds the resync buffer; anything beyond this without
	// a valid frame is line noise and gets discarded.
	maxBuffered = 4096
)

// Frame is one validated wire frame.
type Frame struct {
	MsgID   uint32
	Seq     uint8
	SysID   uint8
	CompID  uint8
	Payload []byte
}

// Parser is a streaming frame extractor. Bytes are pushed in arbitrary
// chunks (datagrams may split or concatenate frames); complete, checksum-
// valid frames come out. Not safe for concurrent use.
type Parser struct {
	buf []byte

	// Running totals for observability.
	framesParsed   uint64
	crcFailures    uint64
	unknownSkipped uint64
	bytesDiscarded uint64
}

// NewParser returns an empty streaming parser.
func NewParser() *Parser {
	return &Parser{}
}

// Push appends raw bytes and returns every complete valid frame found so
// far. Unknown message types and checksum failures are skipped with the
// stream resynchronized at the next start marker.
func (p *Parser) Push(data []byte) []Frame {
	p.buf = append(p.buf, data...)

	var frames []Frame
	for {
		frame, ok := p.next()
		if !ok {
			break
		}
		frames = append(frames, frame)
	}

	if len(p.buf) > maxBuffered {
		p.bytesDiscarded += uint64(len(p.buf))
		p.buf = p.buf[:0]
	}
	return frames
}

// next scans for the next complete frame. Returns false when more bytes
// are needed.
func (p *Parser) next() (Frame, bool) {
	for {
		p.sync()
		if len(p.buf) == 0 {
			return Frame{}, false
		}

		var frame Frame
		var size int
		var err error
		switch p.buf[0] {
		case stxV1:
			frame, size, err = p.parseV1()
		case stxV2:
			frame, size, err = p.parseV2()
		}

		if size == 0 {
			// Incomplete frame, wait for more bytes.
			return Frame{}, false
		}
		p.buf = p.buf[size:]
		if err != nil {
			// Bad or unknown frame was consumed, keep scanning.
			continue
		}
		p.framesParsed++
		return frame, true
	}
}

// sync discards bytes up to the next start marker.
func (p *Parser) sync() {
	for i, b := range p.buf {
		if b == stxV1 || b == stxV2 {
			if i > 0 {
				p.bytesDiscarded += uint64(i)
				p.buf = p.buf[i:]
			}
			return
		}
	}
	p.bytesDiscarded += uint64(len(p.buf))
	p.buf = p.buf[:0]
}

// parseV1 parses a version-1 frame at the buffer head. Returns the number
// of bytes consumed, or 0 when the frame is still incomplete.
func (p *Parser) parseV1() (Frame, int, error) {
	if len(p.buf) < headerLenV1 {
		return Frame{}, 0, nil
	}

	payloadLen := int(p.buf[1])
	total := headerLenV1 + payloadLen + checksumLen
	if len(p.buf) < total {
		return Frame{}, 0, nil
	}

	msgID := uint32(p.buf[5])
	extra, known := crcExtra[msgID]
	if !known {
		p.unknownSkipped++
		return Frame{}, total, errors.ErrUnknownMessage
	}

	// Checksum covers everything after the start marker up to the
	// payload end, plus the per-type seed.
	crc := crcBytes(p.buf[1:headerLenV1+payloadLen], crcInit)
	crc = crcAccumulate(extra, crc)
	wire := uint16(p.buf[headerLenV1+payloadLen]) | uint16(p.buf[headerLenV1+payloadLen+1])<<8
	if crc != wire {
		// The length byte cannot be trusted either; resync one byte in.
		p.crcFailures++
		return Frame{}, 1, errors.ErrChecksumFailed
	}

	payload := make([]byte, payloadLen)
	copy(payload, p.buf[headerLenV1:headerLenV1+payloadLen])

	return Frame{
		MsgID:   msgID,
		Seq:     p.buf[2],
		SysID:   p.buf[3],
		CompID:  p.buf[4],
		Payload: payload,
	}, total, nil
}

// parseV2 parses a version-2 frame at the buffer head. Trailing zero
// payload bytes are truncated on the wire; the decoder zero-extends, so
// the payload is returned as-is.
func (p *Parser) parseV2() (Frame, int, error) {
	if len(p.buf) < headerLenV2 {
		return Frame{}, 0, nil
	}

	payloadLen := int(p.buf[1])
	total := headerLenV2 + payloadLen + checksumLen
	if p.buf[2]&incompatFlagSigned != 0 {
		total += signatureLen
	}
	if len(p.buf) < total {
		return Frame{}, 0, nil
	}

	msgID := uint32(p.buf[7]) | uint32(p.buf[8])<<8 | uint32(p.buf[9])<<16
	extra, known := crcExtra[msgID]
	if !known {
		p.unknownSkipped++
		return Frame{}, total, errors.ErrUnknownMessage
	}

	crc := crcBytes(p.buf[1:headerLenV2+payloadLen], crcInit)
	crc = crcAccumulate(extra, crc)
	ckOff := headerLenV2 + payloadLen
	wire := uint16(p.buf[ckOff]) | uint16(p.buf[ckOff+1])<<8
	if crc != wire {
		p.crcFailures++
		return Frame{}, 1, errors.ErrChecksumFailed
	}

	payload := make([]byte, payloadLen)
	copy(payload, p.buf[headerLenV2:headerLenV2+payloadLen])

	return Frame{
		MsgID:   msgID,
		Seq:     p.buf[4],
		SysID:   p.buf[5],
		CompID:  p.buf[6],
		Payload: payload,
	}, total, nil
}

// Stats reports cumulative parser counters.
func (p *Parser) Stats() (parsed, crcFailed, unknown, discarded uint64) {
	return p.framesParsed, p.crcFailures, p.unknownSkipped, p.bytesDiscarded
}
