// Package bridge is one concrete, swappable upstream consumer for an
// sdp.Node: it republishes delivered payloads to Redis and drains a Redis
// list of outbound commands back into the node's send path.
package bridge

import (
	"encoding/hex"
	"fmt"
	"time"

	redisclient "github.com/librescoot/simple-data-protocol/pkg/redis"
	"github.com/librescoot/simple-data-protocol/pkg/sdp"
)

const (
	// KeyInbound is the Redis hash/pubsub key delivered payloads are
	// published under (hex-encoded, field "payload").
	KeyInbound = "sdp:inbound"
	// KeyOutbound is the Redis list drained for outbound commands.
	KeyOutbound = "sdp:outbound"
	// KeyOutboundReply is where a send_request's response is published,
	// keyed by the same correlation id the caller LPUSHed.
	KeyOutboundReply = "sdp:outbound:reply"

	brpopPollInterval = 1 * time.Second
)

// Bridge wires an sdp.Node to Redis: delivered frames are republished for
// downstream consumers, and a Redis list of outbound commands is drained
// back into SendRequest.
type Bridge struct {
	node  *sdp.Node
	redis *redisclient.Client
	id    int

	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Bridge. Pass a handler that calls the bridge's Deliver
// to sdp.New when constructing the Node so inbound frames are republished.
func New(node *sdp.Node, redis *redisclient.Client, id int) *Bridge {
	return &Bridge{
		node:   node,
		redis:  redis,
		id:     id,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Deliver is the sdp.Handler to pass to sdp.New: it republishes a delivered
// payload to Redis as a hex string, both in a hash field and as a pubsub
// notification, following WriteAndPublishString's pattern in pkg/redis.
func (b *Bridge) Deliver(payload sdp.Payload) {
	encoded := hex.EncodeToString(payload)
	if err := b.redis.WriteAndPublishString(KeyInbound, "payload", encoded); err != nil {
		// Best-effort: a Redis error here is dropped and is not fatal
		// to the link.
		return
	}
}

// parseOutboundCommand splits one entry of the KeyOutbound list, whose wire
// format is "<correlation-id>:<hex-payload>".
func parseOutboundCommand(raw string) (id string, payload sdp.Payload, err error) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			id = raw[:i]
			decoded, decErr := hex.DecodeString(raw[i+1:])
			if decErr != nil {
				return "", nil, fmt.Errorf("bridge: decode payload: %w", decErr)
			}
			return id, sdp.Payload(decoded), nil
		}
	}
	return "", nil, fmt.Errorf("bridge: malformed outbound command %q", raw)
}

// Run starts draining KeyOutbound on the caller's goroutine until Stop is
// called. Each entry is sent with SendRequest; the response (or error) is
// published under KeyOutboundReply keyed by the correlation id.
func (b *Bridge) Run() {
	defer close(b.doneCh)
	for {
		select {
		case <-b.stopCh:
			return
		default:
		}

		result, err := b.redis.BRPop(brpopPollInterval, KeyOutbound)
		if err != nil {
			continue
		}
		if result == nil {
			continue // poll timeout, no command waiting
		}

		raw := result[1]
		id, payload, err := parseOutboundCommand(raw)
		if err != nil {
			b.redis.Publish(KeyOutboundReply, fmt.Sprintf("error:parse:%v", err))
			continue
		}

		resp, sendErr := b.node.SendRequest(payload)
		if sendErr != nil {
			b.redis.Publish(KeyOutboundReply, fmt.Sprintf("%s:error:%v", id, sendErr))
			continue
		}
		b.redis.Publish(KeyOutboundReply, fmt.Sprintf("%s:ok:%s", id, hex.EncodeToString(resp)))
	}
}

// Stop signals Run to exit and waits for it to do so.
func (b *Bridge) Stop() {
	close(b.stopCh)
	<-b.doneCh
}
