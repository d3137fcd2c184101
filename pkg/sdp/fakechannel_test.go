package sdp

import (
	"sync"
	"time"
)

// fakeChannel is an in-memory sdp.ByteChannel used to test Node without a
// real UART. Two fakeChannels can be wired into a loopback pair with
// newLoopback so two Nodes can exchange real frames in-process.
type fakeChannel struct {
	mu   sync.Mutex
	in   []byte
	open bool

	partner *fakeChannel

	writeCount int
	writeTimes []time.Time
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{open: true}
}

// newLoopback returns two connected fakeChannels: bytes written to a are
// readable from b and vice versa.
func newLoopback() (a, b *fakeChannel) {
	a = newFakeChannel()
	b = newFakeChannel()
	a.partner = b
	b.partner = a
	return a, b
}

func (f *fakeChannel) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeChannel) BytesAvailable() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.in)
}

func (f *fakeChannel) Read(n int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n > len(f.in) {
		n = len(f.in)
	}
	out := append([]byte(nil), f.in[:n]...)
	f.in = f.in[n:]
	return out, nil
}

func (f *fakeChannel) Write(buf []byte, _ time.Duration) error {
	f.mu.Lock()
	open := f.open
	partner := f.partner
	f.mu.Unlock()
	if !open {
		return ErrChannelClosed
	}

	f.mu.Lock()
	f.writeCount++
	f.writeTimes = append(f.writeTimes, time.Now())
	f.mu.Unlock()

	if partner == nil {
		return nil
	}
	partner.mu.Lock()
	partner.in = append(partner.in, buf...)
	partner.mu.Unlock()
	return nil
}

func (f *fakeChannel) FlushInput() error {
	f.mu.Lock()
	f.in = f.in[:0]
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) FlushOutput() error { return nil }

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) writeStats() (count int, times []time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeCount, append([]time.Time(nil), f.writeTimes...)
}
