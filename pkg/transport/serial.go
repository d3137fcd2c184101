// Package transport implements sdp.ByteChannel over a real UART using
// go.bug.st/serial: a background goroutine polls the port with a short read
// timeout and appends into a buffer, so Read never blocks the state machine
// waiting on the wire.
package transport

import (
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/librescoot/simple-data-protocol/pkg/sdp"
)

// pollReadTimeout bounds each blocking read on the underlying port so the
// background reader goroutine can observe a close request promptly.
const pollReadTimeout = 50 * time.Millisecond

// Serial is a sdp.ByteChannel backed by a real serial port, 8-N-1, no flow
// control, matching §6's open() contract.
type Serial struct {
	port serial.Port

	mu     sync.Mutex
	buf    []byte
	closed bool

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ sdp.ByteChannel = (*Serial)(nil)

// Open configures and opens devicePath at baud, 8 data bits, no parity, 1
// stop bit, no flow control (§6), and starts the background reader.
func Open(devicePath string, baud int) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(devicePath, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", devicePath, err)
	}
	if err := port.SetReadTimeout(pollReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: set read timeout on %s: %w", devicePath, err)
	}

	s := &Serial{
		port:   port,
		buf:    make([]byte, 0, 256),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *Serial) readLoop() {
	defer close(s.doneCh)
	chunk := make([]byte, 256)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}
		n, err := s.port.Read(chunk)
		if err != nil {
			// A closed port surfaces as a read error; exit quietly.
			return
		}
		if n == 0 {
			continue // read timeout elapsed with nothing available
		}
		s.mu.Lock()
		s.buf = append(s.buf, chunk[:n]...)
		s.mu.Unlock()
	}
}

// IsOpen implements sdp.ByteChannel.
func (s *Serial) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// BytesAvailable implements sdp.ByteChannel.
func (s *Serial) BytesAvailable() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Read implements sdp.ByteChannel: returns up to n buffered bytes
// immediately, never blocking on the port itself.
func (s *Serial) Read(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.buf) {
		n = len(s.buf)
	}
	out := append([]byte(nil), s.buf[:n]...)
	s.buf = s.buf[n:]
	return out, nil
}

// Write implements sdp.ByteChannel: a short write is reported as failure.
func (s *Serial) Write(buf []byte, writeTimeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		n, err := s.port.Write(buf)
		if err == nil && n != len(buf) {
			err = fmt.Errorf("transport: partial write %d/%d bytes", n, len(buf))
		}
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(writeTimeout):
		return fmt.Errorf("transport: write timed out after %s", writeTimeout)
	}
}

// FlushInput implements sdp.ByteChannel.
func (s *Serial) FlushInput() error {
	s.mu.Lock()
	s.buf = s.buf[:0]
	s.mu.Unlock()
	return s.port.ResetInputBuffer()
}

// FlushOutput implements sdp.ByteChannel.
func (s *Serial) FlushOutput() error {
	return s.port.ResetOutputBuffer()
}

// Close implements sdp.ByteChannel.
func (s *Serial) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopCh)
	err := s.port.Close()
	<-s.doneCh
	return err
}
