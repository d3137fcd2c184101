package sdp

import "errors"

// Sentinel errors for the design-level error kinds of the protocol that are
// actually returned from a public API call. Receive-side errors (standalone
// DLE, inter-byte timeout, oversize inbound payload, CRC mismatch on an
// unsolicited frame) never return to a caller — the state machine always
// recovers to IDLE on its own and reports them only through Diagnostics,
// which takes a human-readable cause string rather than an error value.
// ErrPayloadOversize is the send-side length check, and ErrCRCMismatch is
// what SendRequest returns when its last response came back as NACK.
var (
	ErrChannelClosed   = errors.New("sdp: channel closed")
	ErrPayloadInvalid  = errors.New("sdp: payload validation failed")
	ErrFrameOversize   = errors.New("sdp: composed frame exceeds maximum size")
	ErrPayloadOversize = errors.New("sdp: payload exceeds max_payload")
	ErrCRCMismatch     = errors.New("sdp: CRC-16 mismatch")
	ErrResponseTimeout = errors.New("sdp: response timeout")
	ErrWriteFailed     = errors.New("sdp: transport write failed")
)
