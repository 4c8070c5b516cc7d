package storage

import (
	"context"
	"encoding/json"

	"github.com/amiko-app/amiko/libs/db"
	"github.com/jackc/pgx/v5"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

type Notification struct {
	UserID    string
	BookingID string
	Channel   string
	Recipient string
	EventType string
	Payload   json.RawMessage
	Status    string
}

type Recipient struct {
	Email      string
	NativeLang string
}

type NotificationRepository struct {
	pool *db.Pool
}

func NewNotificationRepository(pool *db.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Record(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (user_id, booking_id, channel, recipient, event_type, payload, status)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)`,
		n.UserID, n.BookingID, n.Channel, n.Recipient, n.EventType, n.Payload, n.Status)
	return err
}

// RecipientFor returns the delivery address and language for a user.
// Soft-deleted users have no address and receive nothing.
func (r *NotificationRepository) RecipientFor(ctx context.Context, userID string) (Recipient, error) {
	var rcp Recipient
	err := r.pool.QueryRow(ctx, `
		SELECT email, native_lang
		FROM users
		WHERE id = $1 AND deleted_at IS NULL`,
		userID).Scan(&rcp.Email, &rcp.NativeLang)
	if err != nil {
		return Recipient{}, err
	}
	return rcp, nil
}

func IsNotFound(err error) bool {
	return err == pgx.ErrNoRows
}
