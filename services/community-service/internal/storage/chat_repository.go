package storage

import (
	"context"
	"time"

	"github.com/amiko-app/amiko/libs/db"
)

type ChatRoom struct {
	ID        string
	Name      string
	Language  string
	CreatedAt time.Time
}

type ChatMessage struct {
	ID         string
	RoomID     string
	SenderID   string
	SenderName string
	Body       string
	CreatedAt  time.Time
}

type ChatRepository struct {
	pool *db.Pool
}

func NewChatRepository(pool *db.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

func (r *ChatRepository) CreateRoom(ctx context.Context, name, language string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_rooms (name, language)
		VALUES ($1, $2)
		RETURNING id
	`, name, language).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ChatRepository) ListRooms(ctx context.Context) ([]ChatRoom, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, language, created_at
		FROM chat_rooms
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []ChatRoom
	for rows.Next() {
		var room ChatRoom
		if err := rows.Scan(&room.ID, &room.Name, &room.Language, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rooms, nil
}

func (r *ChatRepository) CreateMessage(ctx context.Context, m *ChatMessage) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (room_id, sender_id, sender_name, body)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, m.RoomID, m.SenderID, m.SenderName, m.Body).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ChatRepository) ListMessages(ctx context.Context, roomID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, room_id, COALESCE(sender_id::text, ''), COALESCE(sender_name, ''), body, created_at
		FROM chat_messages
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return msgs, nil
}
