package database

import (
	"fmt"
	"time"

	"github.com/teris-io/shortid"
)

func (db *PgMessageRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	externalId, err := shortid.Generate()
	if err != nil {
		return Message{}, fmt.Errorf("generate message id: %w", err)
	}

	row := db.conn.QueryRow(
		"INSERT INTO chat_messages (external_id, room_id, username, text, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING external_id, room_id, username, text, created_at",
		externalId,
		params.RoomId,
		params.Username,
		params.Text,
		time.Now().UTC(),
	)

	var m Message
	err = row.Scan(
		&m.Id,
		&m.RoomId,
		&m.Username,
		&m.Text,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgMessageRepository) GetMessages(roomId string, since *time.Time) ([]Message, error) {
	query := "SELECT external_id, room_id, username, text, created_at FROM chat_messages " +
		"WHERE room_id = $1"
	args := []any{roomId}

	if since != nil {
		query += " AND created_at > $2"
		args = append(args, since.UTC())
	}

	// id breaks ties for messages stored in the same microsecond
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.RoomId,
			&m.Username,
			&m.Text,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, m)
	}

	return messages, rows.Err()
}
