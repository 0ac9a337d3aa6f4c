package mavlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRCKnownVector(t *testing.T) {
	// Standard check value for this CRC variant.
	assert.Equal(t, uint16(0x6F91), crcBytes([]byte("123456789"), crcInit))
}

func TestCRCEmptyInput(t *testing.T) {
	assert.Equal(t, crcInit, crcBytes(nil, crcInit))
}

func TestCRCOrderSensitive(t *testing.T) {
	a := crcBytes([]byte{0x01, 0x02}, crcInit)
	b := crcBytes([]byte{0x02, 0x01}, crcInit)
	assert.NotEqual(t, a, b)
}

func TestCRCExtraSeedsCoverAllKnownMessages(t *testing.T) {
	for msgID := range payloadSizes {
		_, ok := crcExtra[msgID]
		assert.True(t, ok, "missing checksum seed for message id %d", msgID)
	}
	for msgID := range crcExtra {
		_, ok := payloadSizes[msgID]
		assert.True(t, ok, "missing payload size for message id %d", msgID)
	}
}
