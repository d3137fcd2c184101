package sdp

import "fmt"

// Wire-level special bytes (§3, §6).
const (
	SOF     byte = 0x7E
	EOF     byte = 0x66
	DLE     byte = 0x7D
	xorMask byte = 0x20
)

// ACK field values (§3).
const (
	ACK  byte = 0x00
	NACK byte = 0xAA
)

func isSpecial(b byte) bool {
	return b == SOF || b == EOF || b == DLE
}

// stuff applies the byte-stuffing rule of §4.2 to region (payload or CRC
// bytes only; SOF/ACK/EOF are never passed through here).
func stuff(region []byte) []byte {
	out := make([]byte, 0, len(region))
	for _, b := range region {
		if isSpecial(b) {
			out = append(out, DLE, b^xorMask)
		} else {
			out = append(out, b)
		}
	}
	return out
}

// maxFrameLen returns the largest legal wire-frame length for a given
// max_payload, per the size-error bound in §4.2: 1 (SOF) + 1 (ACK) +
// 2*max_payload (worst-case all-stuffed payload) + 2*2 (worst-case
// all-stuffed CRC) + 1 (EOF).
func maxFrameLen(maxPayload int) int {
	return 1 + 1 + 2*maxPayload + 2*2 + 1
}

// encodeFrame composes a complete wire frame for payload with ACK field ack.
// payload must already satisfy 0 <= len(payload) <= maxPayload; callers
// validate that before calling encodeFrame.
func encodeFrame(payload []byte, ack byte, maxPayload int) ([]byte, error) {
	crc := crc16(payload, 0)
	crcWire := crc16Bytes(crc)

	frame := make([]byte, 0, maxFrameLen(maxPayload))
	frame = append(frame, SOF, ack)
	frame = append(frame, stuff(payload)...)
	frame = append(frame, stuff(crcWire[:])...)
	frame = append(frame, EOF)

	if len(frame) > maxFrameLen(maxPayload) {
		return nil, fmt.Errorf("%w: %d bytes exceeds bound %d", ErrFrameOversize, len(frame), maxFrameLen(maxPayload))
	}
	return frame, nil
}

// encodeEmptyAck returns the trivial three-byte positive acknowledgment
// frame described in §4.7: SOF, ACK, EOF.
func encodeEmptyAck() []byte {
	return []byte{SOF, ACK, EOF}
}
