package mavlink

// The wire checksum is CRC-16/MCRF4XX: X.25 polynomial, init 0xFFFF, no
// final XOR. Each message type additionally folds a per-type seed byte
// into the checksum so that sender and receiver must agree on the exact
// field layout.

const crcInit uint16 = 0xFFFF

// crcAccumulate folds one byte into the running checksum.
func crcAccumulate(b byte, crc uint16) uint16 {
	tmp := b ^ byte(crc&0xFF)
	tmp ^= tmp << 4
	return (crc >> 8) ^ (uint16(tmp) << 8) ^ (uint16(tmp) << 3) ^ (uint16(tmp) >> 4)
}

// crcBytes folds a byte slice into the running checksum.
func crcBytes(data []byte, crc uint16) uint16 {
	for _, b := range data {
		crc = crcAccumulate(b, crc)
	}
	return crc
}

// crcExtra holds the per-message checksum seed for the message types this
// decoder understands. A message ID absent from the map cannot be
// checksum-verified and is skipped.
var crcExtra = map[uint32]byte{
	msgIDHeartbeat:          50,
	msgIDScaledIMU:          170,
	msgIDRawIMU:             144,
	msgIDScaledPressure:     115,
	msgIDAttitude:           39,
	msgIDAttitudeQuaternion: 246,
	msgIDHighresIMU:         93,
}
