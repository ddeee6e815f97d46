package server

import (
	"context"
	"testing"

	"github.com/ssoriano/roomchat/internal/testutil"
	"github.com/ssoriano/roomchat/internal/types"
	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, id string) *Client {
	return &Client{
		id:   id,
		send: make(chan *ServerMessage, 16),
		stop: make(chan struct{}),
		log:  testutil.TestLogger(t),
	}
}

func receivedTexts(c *Client) []string {
	var texts []string
	for {
		select {
		case msg := <-c.send:
			if msg.Message != nil {
				texts = append(texts, msg.Message.Text)
			}
		default:
			return texts
		}
	}
}

func TestMemoryBroadcasterPublish(t *testing.T) {
	b := NewMemoryBroadcaster()

	alice := newTestClient(t, "conn-alice")
	bob := newTestClient(t, "conn-bob")
	carol := newTestClient(t, "conn-carol")

	b.Subscribe("room1", alice)
	b.Subscribe("room1", bob)
	b.Subscribe("room2", carol)

	err := b.Publish(context.Background(), &Event{
		RoomId: "room1",
		Sender: "conn-alice",
		Message: &types.Message{
			Id:       "m1",
			RoomId:   "room1",
			Username: "alice",
			Text:     "hi",
		},
	})
	assert.NoError(t, err)

	assert.Equal(t, []string{"hi"}, receivedTexts(bob), "expected bob to receive the event")
	assert.Empty(t, receivedTexts(alice), "expected the sender to be excluded")
	assert.Empty(t, receivedTexts(carol), "expected no delivery to another room")
}

func TestMemoryBroadcasterPublishOrder(t *testing.T) {
	b := NewMemoryBroadcaster()

	bob := newTestClient(t, "conn-bob")
	b.Subscribe("room1", bob)

	for _, text := range []string{"one", "two", "three"} {
		err := b.Publish(context.Background(), &Event{
			RoomId:  "room1",
			Sender:  "conn-alice",
			Message: &types.Message{RoomId: "room1", Username: "alice", Text: text},
		})
		assert.NoError(t, err)
	}

	assert.Equal(t, []string{"one", "two", "three"}, receivedTexts(bob),
		"expected events delivered in publish order")
}

func TestMemoryBroadcasterUnsubscribe(t *testing.T) {
	b := NewMemoryBroadcaster()

	bob := newTestClient(t, "conn-bob")
	b.Subscribe("room1", bob)
	b.Unsubscribe("room1", bob)

	// unsubscribing twice or for an unknown room is a no-op
	b.Unsubscribe("room1", bob)
	b.Unsubscribe("no-such-room", bob)

	err := b.Publish(context.Background(), &Event{
		RoomId:  "room1",
		Message: &types.Message{Text: "hi"},
	})
	assert.NoError(t, err)
	assert.Empty(t, receivedTexts(bob), "expected no delivery after unsubscribe")
}
