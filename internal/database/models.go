package database

import "time"

type Message struct {
	Id        string
	RoomId    string
	Username  string
	Text      string
	CreatedAt time.Time
}

type CreateMessageParams struct {
	RoomId   string
	Username string
	Text     string
}
