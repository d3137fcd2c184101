package sdp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendEmptyAckEmitsExactThreeBytes(t *testing.T) {
	a, b := newLoopback()
	n := New(nil, a, 1, 255, nil)

	require.NoError(t, n.SendEmptyAck())

	got, err := b.Read(b.BytesAvailable())
	require.NoError(t, err)
	assert.Equal(t, []byte{SOF, ACK, EOF}, got)
}

func TestSendRequestHappyPath(t *testing.T) {
	// Two nodes over a loopback pair: the peer's handler records the
	// request, then the test replies with peer.SendResponse. The client
	// takes that reply as the direct response to its pending request, so
	// no handler runs for it.
	clientCh, peerCh := newLoopback()

	var gotOnPeer Payload
	peerDone := make(chan struct{})
	peer := New(func(p Payload) {
		gotOnPeer = append(Payload(nil), p...)
		close(peerDone)
	}, peerCh, 2, 255, nil)
	require.NoError(t, peer.EnableReceiver())
	defer peer.DisableReceiver()

	client := New(nil, clientCh, 1, 255, nil)
	require.NoError(t, client.EnableReceiver())
	defer client.DisableReceiver()

	req, err := FromInts(1, 2, 3)
	require.NoError(t, err)

	respCh := make(chan Payload, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := client.SendRequest(req)
		respCh <- resp
		errCh <- err
	}()

	select {
	case <-peerDone:
	case <-time.After(time.Second):
		t.Fatal("peer never received the request")
	}
	assert.Equal(t, Payload{1, 2, 3}, gotOnPeer)

	reply, err := FromInts(9, 9)
	require.NoError(t, err)
	require.NoError(t, peer.SendResponse(reply))

	select {
	case resp := <-respCh:
		require.NoError(t, <-errCh)
		assert.Equal(t, Payload{9, 9}, resp)
	case <-time.After(time.Second):
		t.Fatal("client never got a response")
	}
}

func TestSendRequestTimeoutRetriesThenFails(t *testing.T) {
	// Seed scenario (g): a silent peer. Expect exactly retransmit_limit
	// transmissions spaced by >= retransmit_delay, then failure.
	client, peer := newLoopback()
	n := New(nil, client, 1, 255, nil)
	n.SetResponseTimeout(30 * time.Millisecond)
	n.mu.Lock()
	n.retransmitDelay = 20 * time.Millisecond
	n.retransmitLimit = 2
	n.mu.Unlock()
	require.NoError(t, n.EnableReceiver())
	defer n.DisableReceiver()

	_ = peer // silent: never reads or responds

	resp, err := n.SendRequest(Payload{0x01})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrResponseTimeout)

	count, times := client.writeStats()
	assert.Equal(t, 2, count)
	require.Len(t, times, 2)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), 20*time.Millisecond)
}

func TestSendRequestRefusesOnClosedChannel(t *testing.T) {
	ch := newFakeChannel()
	ch.Close()
	n := New(nil, ch, 1, 255, nil)

	resp, err := n.SendRequest(Payload{0x01})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestPayloadCoercionRejectsOutOfRange(t *testing.T) {
	_, err := FromInts(1, 256)
	assert.ErrorIs(t, err, ErrPayloadInvalid)

	_, err = FromString(string(rune(300)))
	assert.ErrorIs(t, err, ErrPayloadInvalid)
}

func TestUnsolicitedNackIsEchoed(t *testing.T) {
	// §4.6: an unsolicited frame whose CRC fails gets its payload echoed
	// straight back with ACK=NACK, without involving the user handler.
	client, peer := newLoopback()
	handlerCalled := false
	n := New(func(Payload) { handlerCalled = true }, peer, 1, 255, nil)
	require.NoError(t, n.EnableReceiver())
	defer n.DisableReceiver()

	payload := []byte{0x41}
	badCRC := crc16Bytes(crc16([]byte{0x99}, 0))
	frame := append([]byte{SOF, ACK}, payload...)
	frame = append(frame, badCRC[:]...)
	frame = append(frame, EOF)

	require.NoError(t, client.Write(frame, time.Second))

	deadline := time.Now().Add(time.Second)
	for client.BytesAvailable() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	echoed, err := client.Read(client.BytesAvailable())
	require.NoError(t, err)
	assert.False(t, handlerCalled)
	assert.Equal(t, byte(SOF), echoed[0])
	assert.Equal(t, byte(NACK), echoed[1])
	assert.Equal(t, byte(EOF), echoed[len(echoed)-1])
}
