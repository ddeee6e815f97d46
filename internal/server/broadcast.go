package server

import (
	"context"
	"sync"

	"github.com/ssoriano/roomchat/internal/types"
)

// Event is one room-scoped publication. Sender is the connection id the
// event originated from; that connection never receives its own event.
type Event struct {
	RoomId  string         `json:"room_id"`
	Sender  string         `json:"sender,omitempty"`
	Message *types.Message `json:"message"`
}

// Broadcaster delivers published events to every connection subscribed to
// a room. The in-memory implementation covers a single process; the redis
// stream implementation relays events across processes.
type Broadcaster interface {
	Subscribe(roomId string, c *Client)
	Unsubscribe(roomId string, c *Client)
	Publish(ctx context.Context, ev *Event) error
	Close() error
}

// MemoryBroadcaster is the single-process fan-out backend: a room
// subscription registry guarded by one mutex. Events published for the
// same room are delivered to local subscribers in publish order.
type MemoryBroadcaster struct {
	mu    sync.Mutex
	rooms map[string]map[*Client]struct{}
}

func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

func (b *MemoryBroadcaster) Subscribe(roomId string, c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.rooms[roomId]
	if !ok {
		subs = make(map[*Client]struct{})
		b.rooms[roomId] = subs
	}
	subs[c] = struct{}{}
}

func (b *MemoryBroadcaster) Unsubscribe(roomId string, c *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.rooms[roomId]
	if !ok {
		return
	}

	delete(subs, c)
	if len(subs) == 0 {
		delete(b.rooms, roomId)
	}
}

func (b *MemoryBroadcaster) Publish(_ context.Context, ev *Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	msg := RoomMessage(ev.Message)
	for c := range b.rooms[ev.RoomId] {
		if c.id == ev.Sender {
			continue
		}

		c.queueMessage(msg)
	}

	return nil
}

func (b *MemoryBroadcaster) Close() error {
	return nil
}
