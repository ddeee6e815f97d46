package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one admitted realtime connection. Its identity (username and
// room) is fixed at admission and never changes for the lifetime of the
// connection.
type Client struct {
	id       string
	username string
	roomId   string
	conn     *websocket.Conn
	gateway  *Gateway
	log      *log.Logger
	send     chan *ServerMessage
	stop     chan struct{}

	stopOnce    sync.Once
	releaseOnce sync.Once
}

func NewClient(id, username, roomId string, conn *websocket.Conn, gw *Gateway, l *log.Logger) *Client {
	return &Client{
		id:       id,
		username: username,
		roomId:   roomId,
		conn:     conn,
		gateway:  gw,
		log:      l,
		send:     make(chan *ServerMessage, 256),
		stop:     make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		switch {
		case msg.Send != nil:
			c.gateway.handleSend(c, &msg)
		default:
			c.queueMessage(ErrInvalidMessage(msg.Id))
		}
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

// closeStop signals both pumps to exit. Safe to call from any goroutine,
// any number of times.
func (c *Client) closeStop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// cleanup releases the client's membership slot and subscription exactly
// once, no matter which event signaled closure.
func (c *Client) cleanup() {
	c.closeStop()
	c.releaseOnce.Do(func() {
		c.gateway.release(c)
	})
}
