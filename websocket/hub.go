package websocket

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/mkassem/veridian_backend/models"
)

// subscriberBuffer bounds how many undelivered envelopes a slow subscriber
// may hold before further publishes to it are dropped.
const subscriberBuffer = 4

// ChannelKey derives the signin channel identifier from a code. Only a
// session that knows the exact code can compute the key, so nobody else
// can listen for its handoff.
func ChannelKey(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Subscriber is one session waiting on a signin channel.
type Subscriber struct {
	channelKey string
	envelopes  chan models.HandoffEnvelope
}

// Envelopes returns the stream of handoff payloads delivered to this
// subscriber. The channel is closed when the subscriber is unregistered.
func (s *Subscriber) Envelopes() <-chan models.HandoffEnvelope {
	return s.envelopes
}

// Hub maintains the set of signin channel subscribers and routes handoff
// envelopes to them
type Hub struct {
	subscribers map[string]map[*Subscriber]bool
	mu          sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*Subscriber]bool),
	}
}

// Subscribe registers a listener on the channel keyed by the given code.
// The subscription is live once Subscribe returns: a web session that
// subscribes before the mobile confirmation cannot miss the handoff.
func (h *Hub) Subscribe(code string) *Subscriber {
	sub := &Subscriber{
		channelKey: ChannelKey(code),
		envelopes:  make(chan models.HandoffEnvelope, subscriberBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[sub.channelKey] == nil {
		h.subscribers[sub.channelKey] = make(map[*Subscriber]bool)
	}
	h.subscribers[sub.channelKey][sub] = true

	return sub
}

// Unsubscribe removes a listener and closes its envelope stream.
// Unsubscribing twice is harmless.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[sub.channelKey]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}

	delete(subs, sub)
	close(sub.envelopes)
	if len(subs) == 0 {
		delete(h.subscribers, sub.channelKey)
	}
}

// Publish delivers an envelope to every subscriber on the channel. Delivery
// is best-effort: with no subscribers the publish is a no-op, and a
// subscriber whose buffer is full is skipped.
func (h *Hub) Publish(channelKey string, envelope models.HandoffEnvelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers[channelKey] {
		select {
		case sub.envelopes <- envelope:
		default:
		}
	}
}
