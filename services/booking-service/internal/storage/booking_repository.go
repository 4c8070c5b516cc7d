package storage

import (
	"context"
	"time"

	"github.com/amiko-app/amiko/libs/db"
	"github.com/amiko-app/amiko/services/booking-service/internal/model"
	"github.com/jackc/pgx/v5"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Create inserts a confirmed booking inside tx. An exclusion
// constraint on overlapping confirmed bookings for the same partner
// surfaces double-booking as a conflict error.
func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO bookings (user_id, partner_user_id, date, start_time, end_time, status, topic)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, b.UserID, b.PartnerUserID, b.Date, b.StartTime, b.EndTime, b.Status, b.Topic).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// MarkScheduleBooked flips a matching one-off schedule row to booked
// so it stops appearing as available. No matching row is fine: the
// slot may have come from a recurring schedule.
func (r *BookingRepository) MarkScheduleBooked(ctx context.Context, tx pgx.Tx, partnerUserID, date, startTime string) error {
	_, err := tx.Exec(ctx, `
		UPDATE schedules
		SET status = 'booked'
		WHERE partner_user_id = $1
			AND date = $2
			AND start_time = $3
			AND status = 'available'
	`, partnerUserID, date, startTime)
	return err
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, bookingID string) (model.Booking, error) {
	var b model.Booking
	var cancelledAt *time.Time
	err := tx.QueryRow(ctx, `
		SELECT id, user_id, partner_user_id, date::text, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
			status, COALESCE(topic, ''), cancelled_at, created_at
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, bookingID).Scan(
		&b.ID,
		&b.UserID,
		&b.PartnerUserID,
		&b.Date,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.Topic,
		&cancelledAt,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.CancelledAt = cancelledAt
	return b, nil
}

func (r *BookingRepository) Cancel(ctx context.Context, tx pgx.Tx, bookingID string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			cancelled_at = now()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING cancelled_at
	`, bookingID).Scan(&cancelledAt)
	return cancelledAt, err
}

// ReleaseSchedule returns a one-off slot to circulation after its
// booking is cancelled.
func (r *BookingRepository) ReleaseSchedule(ctx context.Context, tx pgx.Tx, partnerUserID, date, startTime string) error {
	_, err := tx.Exec(ctx, `
		UPDATE schedules
		SET status = 'available'
		WHERE partner_user_id = $1
			AND date = $2
			AND start_time = $3
			AND status = 'booked'
	`, partnerUserID, date, startTime)
	return err
}

func (r *BookingRepository) ListForUser(ctx context.Context, userID string, limit int) ([]model.Booking, error) {
	return r.list(ctx, `WHERE user_id = $1`, userID, limit)
}

func (r *BookingRepository) ListForPartner(ctx context.Context, partnerUserID string, limit int) ([]model.Booking, error) {
	return r.list(ctx, `WHERE partner_user_id = $1`, partnerUserID, limit)
}

func (r *BookingRepository) list(ctx context.Context, where, id string, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, partner_user_id, date::text, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
			status, COALESCE(topic, ''), cancelled_at, created_at
		FROM bookings
		`+where+`
		ORDER BY date DESC, start_time DESC
		LIMIT $2
	`, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		var cancelledAt *time.Time
		if err := rows.Scan(
			&b.ID,
			&b.UserID,
			&b.PartnerUserID,
			&b.Date,
			&b.StartTime,
			&b.EndTime,
			&b.Status,
			&b.Topic,
			&cancelledAt,
			&b.CreatedAt,
		); err != nil {
			return nil, err
		}
		b.CancelledAt = cancelledAt
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}
