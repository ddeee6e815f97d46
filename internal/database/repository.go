package database

import "time"

// MessageRepository is the append-only message store. Messages are never
// updated or deleted through this interface.
type MessageRepository interface {
	Ping() error
	CreateMessage(params CreateMessageParams) (Message, error)
	// GetMessages returns the messages in a room in insertion order. When
	// since is non-nil, only messages created strictly after it are returned.
	GetMessages(roomId string, since *time.Time) ([]Message, error)
	Close() error
}
