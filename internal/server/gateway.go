package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ssoriano/roomchat/internal/database"
	"github.com/ssoriano/roomchat/internal/stats"
	"github.com/ssoriano/roomchat/internal/types"
	"github.com/teris-io/shortid"
)

// ErrUsernameTaken is returned by Admit when the (username, room) slot is
// already held by a live connection.
var ErrUsernameTaken = errors.New("the username is already in room")

// Gateway admits realtime connections, enforces username uniqueness per
// room, relays messages to the store and fans them out to subscribers.
type Gateway struct {
	log    *log.Logger
	db     database.MessageRepository
	bc     Broadcaster
	roster *Roster
	stats  stats.StatsProvider

	clientsLock sync.Mutex
	clients     map[*Client]struct{}
	wg          sync.WaitGroup
}

func NewGateway(logger *log.Logger, db database.MessageRepository, bc Broadcaster, roster *Roster, statsProvider stats.StatsProvider) *Gateway {
	gw := &Gateway{
		log:     logger,
		db:      db,
		bc:      bc,
		roster:  roster,
		stats:   statsProvider,
		clients: make(map[*Client]struct{}),
	}

	gw.stats.RegisterMetric("NumConnections")
	gw.stats.RegisterMetric("NumMessagesSent")
	gw.stats.RegisterMetric("NumMessagesReplayed")
	gw.stats.RegisterMetric("NumUsernameConflicts")

	return gw
}

// IsUsernameInRoom reports whether a live connection already holds the
// (username, roomId) slot on this process. The join request path uses it
// for its optimistic check; no reservation is made here.
func (g *Gateway) IsUsernameInRoom(username, roomId string) bool {
	return g.roster.Contains(username, roomId)
}

// Admit runs the post-upgrade half of the admission pipeline: reserve the
// membership slot, subscribe the connection to its room and start the
// pumps. The reservation is the authoritative uniqueness check; when two
// sockets race for the same pair, exactly one TryJoin wins and the loser
// is closed with a policy-violation frame.
//
// When lastMessageAt is set, missed messages are replayed on this
// connection in the background; admission never blocks on the query.
func (g *Gateway) Admit(conn *websocket.Conn, username, roomId string, lastMessageAt *time.Time) error {
	id, err := shortid.Generate()
	if err != nil {
		conn.Close()
		return fmt.Errorf("generate connection id: %w", err)
	}

	if !g.roster.TryJoin(username, roomId) {
		g.stats.Incr("NumUsernameConflicts")
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ErrUsernameTaken.Error())
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		conn.Close()
		return ErrUsernameTaken
	}

	c := NewClient(id, username, roomId, conn, g, g.log)

	g.addClient(c)
	g.bc.Subscribe(roomId, c)
	g.stats.Incr("NumConnections")

	go c.Write()
	go c.Read()

	if lastMessageAt != nil {
		go g.replay(c, *lastMessageAt)
	}

	g.log.Printf("admitted %q to room %q", username, roomId)
	return nil
}

// replay delivers the messages created after since to a single
// reconnecting client. The result is dropped if the connection is gone by
// the time the query resolves.
func (g *Gateway) replay(c *Client, since time.Time) {
	messages, err := g.db.GetMessages(c.roomId, &since)
	if err != nil {
		g.log.Printf("replay query for %q in room %q: %v", c.username, c.roomId, err)
		return
	}

	for i := range messages {
		select {
		case <-c.stop:
			return
		default:
		}

		m := messages[i]
		c.queueMessage(RoomMessage(&types.Message{
			Id:        m.Id,
			RoomId:    m.RoomId,
			Username:  m.Username,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		}))
		g.stats.Incr("NumMessagesReplayed")
	}
}

// handleSend persists an outgoing message and publishes it to the room.
// Persistence happens before the broadcast; if the store rejects the
// message the sender gets an error ack and nothing is fanned out.
func (g *Gateway) handleSend(c *Client, msg *ClientMessage) {
	stored, err := g.db.CreateMessage(database.CreateMessageParams{
		RoomId:   c.roomId,
		Username: c.username,
		Text:     msg.Send.Text,
	})
	if err != nil {
		g.log.Println("error saving message:", err)
		c.queueMessage(ErrPersistenceFailed(msg.Id))
		return
	}

	ev := &Event{
		RoomId: c.roomId,
		Sender: c.id,
		Message: &types.Message{
			Id:        stored.Id,
			RoomId:    stored.RoomId,
			Username:  stored.Username,
			Text:      stored.Text,
			CreatedAt: stored.CreatedAt,
		},
	}

	if err := g.bc.Publish(context.Background(), ev); err != nil {
		// the message is already durable; the relay will re-deliver on
		// reconnect, so the send still acks
		g.log.Println("publish:", err)
	}

	c.queueMessage(NoErrOK(msg.Id, map[string]any{"message_id": stored.Id}))
	g.stats.Incr("NumMessagesSent")
}

// release frees everything Admit acquired. Called exactly once per
// admitted client via the client's cleanup.
func (g *Gateway) release(c *Client) {
	g.bc.Unsubscribe(c.roomId, c)
	g.roster.Leave(c.username, c.roomId)
	g.removeClient(c)
	g.stats.Decr("NumConnections")
	g.log.Printf("released %q from room %q", c.username, c.roomId)
}

func (g *Gateway) addClient(c *Client) {
	g.clientsLock.Lock()
	defer g.clientsLock.Unlock()
	g.clients[c] = struct{}{}
	g.wg.Add(1)
}

func (g *Gateway) removeClient(c *Client) {
	g.clientsLock.Lock()
	defer g.clientsLock.Unlock()
	if _, ok := g.clients[c]; ok {
		delete(g.clients, c)
		g.wg.Done()
	}
}

// Shutdown stops every live connection, waits for their cleanup to finish
// and closes the fan-out backend.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.clientsLock.Lock()
	for c := range g.clients {
		c.closeStop()
	}
	g.clientsLock.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	return g.bc.Close()
}
