package sdp

import "time"

// ByteChannel is the narrow transport contract this module depends on
// (§6). A concrete implementation lives in package transport, wrapping a
// real UART; tests use an in-memory fake.
type ByteChannel interface {
	IsOpen() bool
	// Write writes the full buffer within writeTimeout. A partial write
	// is reported as failure.
	Write(buf []byte, writeTimeout time.Duration) error
	// BytesAvailable reports how many bytes are ready to be read without
	// blocking.
	BytesAvailable() int
	// Read returns up to n bytes immediately, without blocking.
	Read(n int) ([]byte, error)
	FlushInput() error
	FlushOutput() error
	Close() error
}

// Diagnostics is the single sink described in §6: a tuple of (node id,
// originating operation, human-readable cause). Implementations may log,
// drop, or forward.
type Diagnostics interface {
	Report(nodeID int, op string, cause string)
}

// nopDiagnostics discards everything; used when a Node is built without an
// explicit sink.
type nopDiagnostics struct{}

func (nopDiagnostics) Report(int, string, string) {}
