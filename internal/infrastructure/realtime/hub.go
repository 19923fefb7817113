// Package realtime implements the fan-out hub: a registry of live connections
// grouped into rooms, with best-effort, at-most-once delivery.
//
// A connection joins rooms explicitly. Publishing to a room enqueues the
// encoded event on every current member's send buffer without blocking; a
// member whose buffer is full misses the event. Disconnecting removes the
// connection from every room, and a reconnecting client must join again.
package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nearhelp/sos-engine/internal/api/metrics"
	"github.com/nearhelp/sos-engine/internal/core/domain"
)

const relayBuffer = 1024

// RelayMessage carries one published frame between replicas. An empty Room
// means broadcast to every connection.
type RelayMessage struct {
	Origin string `json:"origin"`
	Room   string `json:"room,omitempty"`
	Frame  []byte `json:"frame"`
}

// Relay forwards published frames to other replicas of the service.
type Relay interface {
	Publish(ctx context.Context, msg RelayMessage) error
	Subscribe(ctx context.Context, handle func(RelayMessage)) error
}

// Hub owns the room registry. Construct it once at startup with NewHub, run
// it with Run and drain it with Shutdown.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
	closed  bool

	nodeID   string
	relay    Relay
	outbound chan RelayMessage
	logger   zerolog.Logger
}

// NewHub returns an empty hub. relay may be nil for a single replica.
func NewHub(relay Relay, logger zerolog.Logger) *Hub {
	h := &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
		nodeID:  uuid.NewString(),
		relay:   relay,
		logger:  logger.With().Str("component", "hub").Logger(),
	}
	if relay != nil {
		h.outbound = make(chan RelayMessage, relayBuffer)
	}
	return h
}

// Run forwards local publications to the relay and delivers frames relayed
// by other replicas. It returns when ctx is cancelled. Without a relay it
// only waits for ctx.
func (h *Hub) Run(ctx context.Context) error {
	if h.relay == nil {
		<-ctx.Done()
		return nil
	}

	go h.forward(ctx)

	return h.relay.Subscribe(ctx, func(msg RelayMessage) {
		if msg.Origin == h.nodeID {
			return
		}
		if msg.Room == "" {
			h.deliverAll(msg.Frame)
			return
		}
		h.deliverRoom(msg.Room, msg.Frame)
	})
}

func (h *Hub) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-h.outbound:
			if err := h.relay.Publish(ctx, msg); err != nil {
				h.logger.Warn().Err(err).Str("room", msg.Room).Msg("relay publish failed")
			}
		}
	}
}

// Register adds a connection with no room memberships.
func (h *Hub) Register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	metrics.HubConnections.Set(float64(len(h.clients)))
	return true
}

// Unregister removes the connection from every room and closes its send
// buffer. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for room := range c.rooms {
		members := h.rooms[room]
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	c.rooms = nil
	delete(h.clients, c)
	close(c.send)

	metrics.HubConnections.Set(float64(len(h.clients)))
	metrics.HubRooms.Set(float64(len(h.rooms)))
}

// Join adds c to room. Joining twice is a no-op.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
	metrics.HubRooms.Set(float64(len(h.rooms)))
}

// Leave removes c from room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	delete(c.rooms, room)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
	metrics.HubRooms.Set(float64(len(h.rooms)))
}

// Publish delivers ev to every current member of room.
func (h *Hub) Publish(room string, ev domain.Event) {
	frame, ok := h.encode(ev)
	if !ok {
		return
	}
	h.deliverRoom(room, frame)
	h.relayOut(RelayMessage{Origin: h.nodeID, Room: room, Frame: frame})
}

// Broadcast delivers ev to every live connection regardless of rooms.
func (h *Hub) Broadcast(ev domain.Event) {
	frame, ok := h.encode(ev)
	if !ok {
		return
	}
	h.deliverAll(frame)
	h.relayOut(RelayMessage{Origin: h.nodeID, Frame: frame})
}

// Members reports the number of connections in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Connections reports the number of live connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client and refuses new registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
	h.logger.Info().Msg("hub drained")
}

func (h *Hub) encode(ev domain.Event) ([]byte, bool) {
	frame, err := domain.EncodeEvent(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event", string(ev.EventName())).Msg("encode event")
		return nil, false
	}
	metrics.HubEventsPublishedTotal.WithLabelValues(string(ev.EventName())).Inc()
	return frame, true
}

func (h *Hub) deliverRoom(room string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		c.enqueue(frame)
	}
}

func (h *Hub) deliverAll(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(frame)
	}
}

func (h *Hub) relayOut(msg RelayMessage) {
	if h.outbound == nil {
		return
	}
	select {
	case h.outbound <- msg:
	default:
		h.logger.Warn().Str("room", msg.Room).Msg("relay buffer full, frame not forwarded")
	}
}
