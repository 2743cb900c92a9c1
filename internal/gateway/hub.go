package gateway

import (
	"errors"
	"sort"
	"sync"

	"github.com/PaulBabatuyi/supportchat/internal/logging"
	"github.com/PaulBabatuyi/supportchat/internal/metrics"
)

var (
	// ErrConnectionClosed is returned by Send once a connection has closed.
	ErrConnectionClosed = errors.New("gateway: connection closed")
	// ErrSendBufferFull is returned when a slow client's buffer is full; the
	// event is dropped for that connection only.
	ErrSendBufferFull = errors.New("gateway: send buffer full")
)

// Sender is the minimal view of a live connection the hub needs.
type Sender interface {
	ID() string
	Send(Event) error
}

// Hub is the live connection registry. It maps channels to the connections
// currently bound to them so events can be pushed to every endpoint of a
// user or to the whole admin pool.
type Hub struct {
	mu       sync.RWMutex
	channels map[Channel]map[string]Sender
	bindings map[string]map[Channel]struct{}
}

// NewHub creates a new hub instance.
func NewHub() *Hub {
	return &Hub{
		channels: make(map[Channel]map[string]Sender),
		bindings: make(map[string]map[Channel]struct{}),
	}
}

// Bind adds s to ch. Binding the same pair twice is harmless; it reports
// whether a new binding was made.
func (h *Hub) Bind(ch Channel, s Sender) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.channels[ch]
	if !ok {
		members = make(map[string]Sender)
		h.channels[ch] = members
	}
	if _, ok := members[s.ID()]; ok {
		return false
	}
	members[s.ID()] = s

	bound, ok := h.bindings[s.ID()]
	if !ok {
		bound = make(map[Channel]struct{})
		h.bindings[s.ID()] = bound
	}
	bound[ch] = struct{}{}
	return true
}

// Unbind removes the connection from every channel it joined.
func (h *Hub) Unbind(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unbindLocked(connID)
}

func (h *Hub) unbindLocked(connID string) {
	for ch := range h.bindings[connID] {
		if members, ok := h.channels[ch]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.channels, ch)
			}
		}
	}
	delete(h.bindings, connID)
}

// Channels returns the channels a connection is bound to, sorted.
func (h *Hub) Channels(connID string) []Channel {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Channel, 0, len(h.bindings[connID]))
	for ch := range h.bindings[connID] {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Members reports how many connections are bound to ch.
func (h *Hub) Members(ch Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[ch])
}

// Emit hands evt to every connection bound to ch and returns how many
// accepted it. Closed connections are unbound; a full buffer only drops
// this event for that connection.
func (h *Hub) Emit(ch Channel, evt Event) int {
	h.mu.RLock()
	members := make([]Sender, 0, len(h.channels[ch]))
	for _, s := range h.channels[ch] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	delivered := 0
	var closed []string
	for _, s := range members {
		err := s.Send(evt)
		switch {
		case err == nil:
			delivered++
			continue
		case errors.Is(err, ErrConnectionClosed):
			closed = append(closed, s.ID())
		default:
			logging.Warn().Err(err).Str("conn_id", s.ID()).Str("channel", string(ch)).Str("event", evt.Type).Msg("delivery dropped")
		}
		metrics.DeliveryDropped.WithLabelValues(evt.Type).Inc()
	}

	if len(closed) > 0 {
		h.mu.Lock()
		for _, id := range closed {
			h.unbindLocked(id)
		}
		h.mu.Unlock()
	}

	metrics.DeliveryEmitted.WithLabelValues(evt.Type).Add(float64(delivered))
	return delivered
}
