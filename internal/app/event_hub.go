package app

import (
	"sync"

	"github.com/yourusername/ytfetch-go/internal/domain"
	"go.uber.org/zap"
)

// Event channels carried in the envelope
const (
	ChannelBinaryProgress   = "binary-update-progress"
	ChannelDownloadProgress = "download-progress"
	ChannelDownloadComplete = "download-complete"
)

// defaultSubscriberBuffer is how many envelopes a slow subscriber may lag behind.
const defaultSubscriberBuffer = 256

// Envelope is the wire form of every pushed event
type Envelope struct {
	Channel string      `json:"channel"`
	Payload interface{} `json:"payload"`
}

// Subscription receives envelopes until it is closed
type Subscription struct {
	C <-chan Envelope

	ch      chan Envelope
	dropped int
}

// EventHub fans provisioning and job events out to subscribers. Publishing
// never blocks. A subscriber whose buffer is full loses progress envelopes,
// but never a download-complete: the oldest queued progress envelope is
// evicted to make room, and a buffer holding nothing evictable closes the
// subscription so its reader sees the stream end instead of waiting forever.
type EventHub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger *zap.Logger
}

// NewEventHub creates a new hub
func NewEventHub(logger *zap.Logger) *EventHub {
	return &EventHub{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new subscriber. buffer <= 0 uses the default size.
func (h *EventHub) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	ch := make(chan Envelope, buffer)
	sub := &Subscription{C: ch, ch: ch}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes sub and closes its channel. Safe to call twice.
func (h *EventHub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.ch)
	if sub.dropped > 0 {
		h.logger.Debug("Subscriber dropped events", zap.Int("count", sub.dropped))
	}
}

// Subscribers returns the number of active subscribers
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish sends payload on channel to every subscriber
func (h *EventHub) Publish(channel string, payload interface{}) {
	env := Envelope{Channel: channel, Payload: payload}

	// write lock: Unsubscribe closes channels and dropped is mutated here
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		h.deliver(sub, env)
	}
}

// critical envelopes are the ones a follower blocks on
func critical(channel string) bool {
	return channel == ChannelDownloadComplete
}

// deliver sends env to sub. Caller holds the write lock.
func (h *EventHub) deliver(sub *Subscription, env Envelope) {
	select {
	case sub.ch <- env:
		return
	default:
	}

	if !critical(env.Channel) {
		sub.dropped++
		return
	}

	h.evictOldest(sub)
	select {
	case sub.ch <- env:
		return
	default:
	}

	h.logger.Warn("Closing lagging subscriber", zap.Int("buffer", cap(sub.ch)))
	delete(h.subs, sub)
	close(sub.ch)
}

// evictOldest removes the oldest non-critical envelope queued for sub and
// keeps the order of the rest. Only the reader competes with us for the
// channel, so everything drained fits back.
func (h *EventHub) evictOldest(sub *Subscription) {
	queued := make([]Envelope, 0, cap(sub.ch))
drain:
	for {
		select {
		case e := <-sub.ch:
			queued = append(queued, e)
		default:
			break drain
		}
	}

	evicted := false
	for _, e := range queued {
		if !evicted && !critical(e.Channel) {
			evicted = true
			sub.dropped++
			continue
		}
		sub.ch <- e
	}
}

// PublishProvisioning is a domain.ProvisioningSink
func (h *EventHub) PublishProvisioning(ev domain.ProvisioningEvent) {
	h.Publish(ChannelBinaryProgress, ev)
}

// PublishJob is a domain.JobSink
func (h *EventHub) PublishJob(ev domain.JobEvent) {
	if ev.Kind == domain.JobEventComplete {
		h.Publish(ChannelDownloadComplete, ev)
		return
	}
	h.Publish(ChannelDownloadProgress, ev)
}

// Close unsubscribes everyone
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.ch)
	}
}
