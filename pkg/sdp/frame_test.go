package sdp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestEncodeEmptyAck(t *testing.T) {
	// Seed scenario (a): send_empty_ack emits exactly three bytes.
	assert.Equal(t, []byte{SOF, ACK, EOF}, encodeEmptyAck())
}

func TestEncodeEscapesSOFInPayload(t *testing.T) {
	// Seed scenario (b).
	payload := []byte{0x7E}
	frame, err := encodeFrame(payload, ACK, 255)
	assert.NoError(t, err)
	assert.Equal(t, byte(SOF), frame[0])
	assert.Equal(t, byte(ACK), frame[1])
	assert.Equal(t, byte(DLE), frame[2])
	assert.Equal(t, byte(0x7E^xorMask), frame[3])
	assert.Equal(t, byte(EOF), frame[len(frame)-1])
}

func TestEncodeDoubleEscape(t *testing.T) {
	// Seed scenario (c): payload [0x7D, 0x66] stuffs to [0x7D,0x5D,0x7D,0x46].
	region := stuff([]byte{0x7D, 0x66})
	assert.Equal(t, []byte{0x7D, 0x5D, 0x7D, 0x46}, region)
}

func TestStuffSpecialBytesAlwaysEscaped(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := rapid.SliceOf(rapid.Byte()).Draw(rt, "in")
		out := stuff(in)

		for i := 0; i < len(out); i++ {
			if isSpecial(out[i]) {
				// The only special byte stuff may emit is the DLE prefix,
				// and it must be followed by a byte that unmasks to a
				// special byte.
				assert.Equalf(rt, DLE, out[i], "unescaped special byte %#x at %d of stuffed output", out[i], i)
				if assert.Lessf(rt, i+1, len(out), "DLE at %d has no escaped byte after it", i) {
					assert.Truef(rt, isSpecial(out[i+1]^xorMask), "byte %#x after DLE at %d does not unmask to a special byte", out[i+1], i)
				}
				i++ // skip the escaped byte itself, it is not a delimiter
			}
		}
	})
}

func TestRoundTripEncodeDecode(t *testing.T) {
	// Property 1: round-trip for payloads within max_payload.
	rapid.Check(t, func(rt *rapid.T) {
		maxPayload := rapid.IntRange(0, 64).Draw(rt, "maxPayload")
		payload := rapid.SliceOfN(rapid.Byte(), 0, maxPayload).Draw(rt, "payload")

		frame, err := encodeFrame(payload, ACK, maxPayload)
		assert.NoError(rt, err)

		n := New(nil, nil, 0, maxPayload, nil)
		var action dispatchAction
		for _, b := range frame {
			action = n.feedByte(b)
		}

		assert.Equal(rt, dispatchHandler, action.kind)
		assert.Equal(rt, byte(ACK), n.ack)
		assert.Equal(rt, []byte(payload), []byte(action.payload))
	})
}

func TestDelimiterTransparency(t *testing.T) {
	// Property 2, restated directly: no SOF/EOF between index 0 and the
	// final index.
	rapid.Check(t, func(rt *rapid.T) {
		maxPayload := rapid.IntRange(0, 64).Draw(rt, "maxPayload")
		payload := rapid.SliceOfN(rapid.Byte(), 0, maxPayload).Draw(rt, "payload")

		frame, err := encodeFrame(payload, ACK, maxPayload)
		assert.NoError(rt, err)

		for i := 1; i < len(frame)-1; i++ {
			assert.NotEqual(rt, SOF, frame[i], "SOF leaked into frame body at %d", i)
			assert.NotEqual(rt, EOF, frame[i], "EOF leaked into frame body at %d", i)
		}
	})
}

func TestCRCCompleteness(t *testing.T) {
	// Property 3: CRC over payload||crc is always zero for a correctly
	// composed frame.
	rapid.Check(t, func(rt *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(rt, "payload")
		crc := crc16(payload, 0)
		crcWire := crc16Bytes(crc)
		combined := append(append([]byte(nil), payload...), crcWire[:]...)
		assert.Equal(rt, uint16(0), crc16(combined, 0))
	})
}

func TestFrameOversizeRejected(t *testing.T) {
	payload := make([]byte, 10)
	for i := range payload {
		payload[i] = SOF // forces worst-case stuffing
	}
	_, err := encodeFrame(payload, ACK, 1) // bound sized for max_payload=1
	assert.ErrorIs(t, err, ErrFrameOversize)
}
