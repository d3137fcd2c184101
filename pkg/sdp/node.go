package sdp

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// rxState is the receive state machine state (§3, §4.4).
type rxState int

const (
	rxIdle rxState = iota
	rxAwaitAck
	rxReceiving
	rxEscape
)

func (s rxState) String() string {
	switch s {
	case rxIdle:
		return "IDLE"
	case rxAwaitAck:
		return "AWAIT_ACK"
	case rxReceiving:
		return "RECEIVING"
	case rxEscape:
		return "ESCAPE"
	default:
		return "UNKNOWN"
	}
}

// Default timing parameters (§4.9), all in seconds in the base spec,
// expressed here as time.Duration.
const (
	DefaultRxFrameTimeout   = 300 * time.Millisecond
	DefaultTxFrameTimeout   = 300 * time.Millisecond
	DefaultResponseTimeout  = 1 * time.Second
	DefaultRetransmitDelay  = 100 * time.Millisecond
	DefaultRetransmitLimit  = 2
	DefaultThreadStopTimeout = 1 * time.Second
)

// hardMaxPayload is the interoperable firmware ceiling. Larger values are
// accepted for host-to-host links, where both ends are this package, but
// logged as a warning since a firmware peer could never frame that much.
const hardMaxPayload = 255

// Handler is invoked with a validated, de-stuffed, CRC-checked payload for
// every unsolicited ACK'd frame (§4.6). It must not block the receiver for
// long; Node dispatches it on its own goroutine.
type Handler func(Payload)

// Node is the public session surface of §6: send_request, send_response,
// send_empty_ack, plus receiver lifecycle control. One Node owns one
// ByteChannel and enforces stop-and-wait (at most one outstanding request).
type Node struct {
	id         int
	maxPayload int
	channel    ByteChannel
	handler    Handler
	diag       Diagnostics

	rxFrameTimeout  time.Duration
	txFrameTimeout  time.Duration
	responseTimeout time.Duration
	retransmitDelay time.Duration
	retransmitLimit int

	mu             sync.Mutex
	rxState        rxState
	rxPayload      []byte
	ack            byte
	rxStartTime    time.Time
	expectResponse bool
	responseReady  chan struct{}

	stopRequested atomic.Bool
	loopDone      chan struct{}
	loopRunning   atomic.Bool

	// sendMu serializes SendRequest calls so at most one request is
	// outstanding at a time (§3 invariant: stop-and-wait).
	sendMu sync.Mutex
}

// New creates a Node bound to channel, dispatching unsolicited inbound
// frames to handler. id is used only for diagnostics. maxPayload above the
// 255-byte firmware ceiling is accepted with a warning (host-to-host use
// only).
func New(handler Handler, channel ByteChannel, id int, maxPayload int, diag Diagnostics) *Node {
	if diag == nil {
		diag = nopDiagnostics{}
	}
	if maxPayload > hardMaxPayload {
		diag.Report(id, "new", fmt.Sprintf("max_payload %d exceeds firmware ceiling %d; host-to-host only", maxPayload, hardMaxPayload))
	}
	return &Node{
		id:              id,
		maxPayload:      maxPayload,
		channel:         channel,
		handler:         handler,
		diag:            diag,
		rxFrameTimeout:  DefaultRxFrameTimeout,
		txFrameTimeout:  DefaultTxFrameTimeout,
		responseTimeout: DefaultResponseTimeout,
		retransmitDelay: DefaultRetransmitDelay,
		retransmitLimit: DefaultRetransmitLimit,
		rxState:         rxIdle,
	}
}

// SetResponseTimeout overrides the default response_timeout.
func (n *Node) SetResponseTimeout(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.responseTimeout = d
}

// SetTimeouts overrides rx_frame_timeout and tx_frame_timeout.
func (n *Node) SetTimeouts(rx, tx time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rxFrameTimeout = rx
	n.txFrameTimeout = tx
}

// Status reports whether the underlying channel is open. If it isn't, any
// running receiver is no longer doing useful work, so Status disables it on
// the caller's behalf.
func (n *Node) Status() bool {
	if n.channel.IsOpen() {
		return true
	}
	n.DisableReceiver()
	return false
}

// EnableReceiver flushes the channel's input and output buffers and starts
// the receiver loop on its own goroutine. Calling it twice without an
// intervening DisableReceiver is a no-op.
func (n *Node) EnableReceiver() error {
	if !n.channel.IsOpen() {
		return ErrChannelClosed
	}
	if n.loopRunning.Load() {
		return nil
	}
	n.channel.FlushInput()
	n.channel.FlushOutput()
	n.loopRunning.Store(true)
	n.stopRequested.Store(false)
	done := make(chan struct{})
	n.loopDone = done
	go n.receiverLoop(done)
	return nil
}

// DisableReceiver signals the receiver to stop and waits up to
// thread_stop_timeout for it to exit. The stop flag is cleared by the
// receiver itself on exit, so a later EnableReceiver reuses it cleanly.
func (n *Node) DisableReceiver() error {
	if !n.loopRunning.Load() {
		return nil
	}
	n.stopRequested.Store(true)
	select {
	case <-n.loopDone:
		n.loopRunning.Store(false)
		return nil
	case <-time.After(DefaultThreadStopTimeout):
		return fmt.Errorf("sdp: receiver did not stop within %s", DefaultThreadStopTimeout)
	}
}

// receiverLoop is §4.5: pull available bytes, feed the state machine one
// byte at a time, evaluate the inter-byte timeout on every tick, observe
// the stop flag between iterations.
func (n *Node) receiverLoop(done chan struct{}) {
	defer func() {
		n.stopRequested.Store(false)
		close(done)
	}()
	for {
		if n.stopRequested.Load() {
			return
		}
		avail := n.channel.BytesAvailable()
		if avail <= 0 {
			n.mu.Lock()
			n.checkTimeoutLocked(time.Now())
			n.mu.Unlock()
			runtime.Gosched()
			continue
		}
		buf, err := n.channel.Read(avail)
		if err != nil {
			n.diag.Report(n.id, "receive", fmt.Sprintf("read failed: %v", err))
			continue
		}
		for _, b := range buf {
			action := n.feedByte(b)
			n.dispatch(action)
		}
	}
}

// dispatchAction describes work the receiver loop must perform outside the
// state-machine lock: calling the user handler, or echoing a NACK.
type dispatchAction struct {
	kind    dispatchKind
	payload Payload
}

type dispatchKind int

const (
	dispatchNone dispatchKind = iota
	dispatchHandler
	dispatchEchoNack
)

func (n *Node) dispatch(a dispatchAction) {
	switch a.kind {
	case dispatchHandler:
		if n.handler != nil {
			go n.handler(a.payload)
		}
	case dispatchEchoNack:
		if err := n.transmitFrame(a.payload, NACK, "dispatch_echo_nack"); err != nil {
			n.diag.Report(n.id, "dispatch_echo_nack", err.Error())
		}
	}
}

// feedByte drives one byte through the §4.4 transition table and returns
// any follow-up action to run outside the lock.
func (n *Node) feedByte(b byte) dispatchAction {
	n.mu.Lock()
	n.checkTimeoutLocked(time.Now())

	var action dispatchAction
	switch n.rxState {
	case rxIdle:
		if b == SOF {
			n.rxStartTime = time.Now()
			n.ack = ACK
			n.rxPayload = n.rxPayload[:0]
			n.rxState = rxAwaitAck
		}
		// else: pre-frame garbage, discard.

	case rxAwaitAck:
		n.ack = b
		n.rxPayload = n.rxPayload[:0]
		n.rxState = rxReceiving

	case rxReceiving:
		switch b {
		case DLE:
			n.rxState = rxEscape
		case EOF:
			action = n.closeFrameLocked()
			n.rxState = rxIdle
		default:
			if len(n.rxPayload) < n.maxPayload+2 {
				n.rxPayload = append(n.rxPayload, b)
			} else {
				n.diagLocked("receive", "payload oversize, aborting frame")
				n.rxPayload = n.rxPayload[:0]
				n.rxState = rxIdle
			}
		}

	case rxEscape:
		unescaped := b ^ xorMask
		if isSpecial(unescaped) {
			if len(n.rxPayload) < n.maxPayload+2 {
				n.rxPayload = append(n.rxPayload, unescaped)
				n.rxState = rxReceiving
			} else {
				n.diagLocked("receive", "payload oversize, aborting frame")
				n.rxPayload = n.rxPayload[:0]
				n.rxState = rxIdle
			}
		} else {
			n.diagLocked("receive", "standalone DLE")
			n.rxPayload = n.rxPayload[:0]
			n.rxState = rxIdle
		}
	}

	n.mu.Unlock()
	return action
}

// closeFrameLocked implements "Frame closing on EOF in RECEIVING" (§4.4)
// and message dispatch (§4.6). Caller holds n.mu.
func (n *Node) closeFrameLocked() dispatchAction {
	// A frame carrying fewer than the 2 trailing CRC bytes can never have
	// been validly composed; treat it the same as an empty frame rather
	// than underflowing the trailing-CRC slice below.
	if len(n.rxPayload) < 2 {
		if n.expectResponse {
			n.rxPayload = n.rxPayload[:0]
			n.clearExpectResponseLocked()
		} else {
			n.diagLocked("receive", "truncated frame (shorter than CRC trailer), ignoring")
		}
		return dispatchAction{}
	}

	if sum := crc16(n.rxPayload, 0); sum != 0 {
		n.ack = NACK
		n.diagLocked("receive", "CRC mismatch")
	}
	payload := append(Payload{}, n.rxPayload[:len(n.rxPayload)-2]...)

	if n.expectResponse {
		n.rxPayload = payload
		n.clearExpectResponseLocked()
		return dispatchAction{}
	}
	if n.ack == ACK {
		return dispatchAction{kind: dispatchHandler, payload: payload}
	}
	return dispatchAction{kind: dispatchEchoNack, payload: payload}
}

// clearExpectResponseLocked wakes a sender blocked in awaitResponse, if
// any. Caller holds n.mu.
func (n *Node) clearExpectResponseLocked() {
	n.expectResponse = false
	if n.responseReady != nil {
		close(n.responseReady)
		n.responseReady = nil
	}
}

// checkTimeoutLocked is the inter-byte timeout of §4.4, evaluated on every
// tick regardless of whether bytes were available. Caller holds n.mu.
func (n *Node) checkTimeoutLocked(now time.Time) {
	if n.rxState == rxIdle {
		return
	}
	if now.After(n.rxStartTime.Add(n.rxFrameTimeout)) {
		n.diagLocked("receive", "inter-byte frame timeout, aborting")
		n.rxPayload = n.rxPayload[:0]
		n.rxState = rxIdle
	}
}

func (n *Node) diagLocked(op, cause string) {
	n.diag.Report(n.id, op, cause)
}

// transmitFrame composes and writes a single frame, used by SendRequest,
// SendResponse, and the unsolicited-NACK echo path.
func (n *Node) transmitFrame(payload []byte, ackByte byte, op string) error {
	n.mu.Lock()
	maxPayload := n.maxPayload
	txTimeout := n.txFrameTimeout
	n.mu.Unlock()

	frame, err := encodeFrame(payload, ackByte, maxPayload)
	if err != nil {
		n.diag.Report(n.id, op, err.Error())
		return err
	}
	if err := n.channel.Write(frame, txTimeout); err != nil {
		n.diag.Report(n.id, op, fmt.Sprintf("write failed: %v", err))
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// SendRequest implements §4.7's send_request: up to retransmit_limit
// attempts, each waiting response_timeout for a reply before retrying on
// timeout or NACK. Returns the response payload on success; on exhaustion
// returns a nil payload and the last error observed (the Go-idiomatic
// equivalent of the base spec's (false, [])).
func (n *Node) SendRequest(payload Payload) (Payload, error) {
	if !n.channel.IsOpen() {
		return nil, ErrChannelClosed
	}
	n.sendMu.Lock()
	defer n.sendMu.Unlock()

	n.mu.Lock()
	maxPayload := n.maxPayload
	retransmitLimit := n.retransmitLimit
	retransmitDelay := n.retransmitDelay
	n.mu.Unlock()

	if len(payload) > maxPayload {
		return nil, fmt.Errorf("%w: payload length %d exceeds max_payload %d", ErrPayloadOversize, len(payload), maxPayload)
	}

	var lastErr error
	for attempt := 0; attempt < retransmitLimit; attempt++ {
		if err := n.transmitFrame(payload, ACK, "send_request"); err != nil {
			n.DisableReceiver()
			return nil, err
		}

		ok, resp, err := n.awaitResponse()
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return resp, nil
		}
		lastErr = ErrCRCMismatch
		time.Sleep(retransmitDelay)
	}
	if lastErr == nil {
		lastErr = ErrResponseTimeout
	}
	return nil, lastErr
}

// awaitResponse blocks until the receiver clears expect_response or
// response_timeout elapses, using a channel close as the wake signal rather
// than a busy poll. sync.Cond has no built-in deadline, so a channel plus
// time.NewTimer gives the same non-busy, interruptible wait with a timeout.
func (n *Node) awaitResponse() (ok bool, resp Payload, err error) {
	n.mu.Lock()
	ready := make(chan struct{})
	n.responseReady = ready
	n.expectResponse = true
	n.rxState = rxIdle
	n.rxPayload = n.rxPayload[:0]
	responseTimeout := n.responseTimeout
	n.mu.Unlock()

	timer := time.NewTimer(responseTimeout)
	defer timer.Stop()

	select {
	case <-ready:
		n.mu.Lock()
		ackByte := n.ack
		resp = append(Payload(nil), n.rxPayload...)
		n.mu.Unlock()
		return ackByte == ACK, resp, nil
	case <-timer.C:
		n.mu.Lock()
		if n.responseReady == ready {
			n.expectResponse = false
			n.responseReady = nil
		}
		n.mu.Unlock()
		return false, nil, ErrResponseTimeout
	}
}

// SendResponse implements §4.7's send_response: reply to an inbound
// message using the ACK/NACK value the receiver last observed.
func (n *Node) SendResponse(payload Payload) error {
	if !n.channel.IsOpen() {
		return ErrChannelClosed
	}
	n.mu.Lock()
	ackByte := n.ack
	maxPayload := n.maxPayload
	n.mu.Unlock()

	if len(payload) > maxPayload {
		return fmt.Errorf("%w: payload length %d exceeds max_payload %d", ErrPayloadOversize, len(payload), maxPayload)
	}
	return n.transmitFrame(payload, ackByte, "send_response")
}

// SendEmptyAck implements §4.7's send_empty_ack: exactly three bytes,
// SOF, ACK, EOF.
func (n *Node) SendEmptyAck() error {
	if !n.channel.IsOpen() {
		return ErrChannelClosed
	}
	n.mu.Lock()
	txTimeout := n.txFrameTimeout
	n.mu.Unlock()
	if err := n.channel.Write(encodeEmptyAck(), txTimeout); err != nil {
		n.diag.Report(n.id, "send_empty_ack", fmt.Sprintf("write failed: %v", err))
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}
