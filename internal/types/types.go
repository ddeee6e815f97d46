package types

import (
	"time"
)

// Message is the client-facing representation of a stored chat message.
// It is immutable once created; CreatedAt is the ordering authority for
// both replay and display.
type Message struct {
	Id        string    `json:"id"`
	RoomId    string    `json:"room_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
