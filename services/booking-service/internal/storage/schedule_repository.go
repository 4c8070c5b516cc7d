package storage

import (
	"context"
	"errors"

	"github.com/amiko-app/amiko/libs/db"
	"github.com/amiko-app/amiko/services/booking-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// ResolvePartnerUserID maps a conversation-partner id to the owning
// user id. An id with no partner row is treated as a user id directly,
// so links built from either identifier keep working.
func (r *ScheduleRepository) ResolvePartnerUserID(ctx context.Context, partnerID string) (string, error) {
	var userID string
	err := r.pool.QueryRow(ctx, `
		SELECT user_id::text
		FROM conversation_partners
		WHERE id = $1
	`, partnerID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return partnerID, nil
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (r *ScheduleRepository) OneOffAvailable(ctx context.Context, partnerUserID string, from, to string) ([]model.OneOffSchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, partner_user_id, date::text, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), status, created_at
		FROM schedules
		WHERE partner_user_id = $1
			AND status = 'available'
			AND date BETWEEN $2 AND $3
		ORDER BY date, start_time
	`, partnerUserID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []model.OneOffSchedule
	for rows.Next() {
		var s model.OneOffSchedule
		if err := rows.Scan(&s.ID, &s.PartnerUserID, &s.Date, &s.StartTime, &s.EndTime, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return schedules, nil
}

func (r *ScheduleRepository) ActiveRecurring(ctx context.Context, partnerUserID string, dayOfWeek int) ([]model.RecurringSchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, partner_user_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), is_active, created_at
		FROM recurring_schedules
		WHERE partner_user_id = $1
			AND day_of_week = $2
			AND is_active
		ORDER BY start_time
	`, partnerUserID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []model.RecurringSchedule
	for rows.Next() {
		var s model.RecurringSchedule
		if err := rows.Scan(&s.ID, &s.PartnerUserID, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return schedules, nil
}

func (r *ScheduleRepository) CreateOneOff(ctx context.Context, s *model.OneOffSchedule) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO schedules (partner_user_id, date, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, s.PartnerUserID, s.Date, s.StartTime, s.EndTime, s.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ScheduleRepository) DeleteOneOff(ctx context.Context, partnerUserID, scheduleID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM schedules
		WHERE id = $1 AND partner_user_id = $2 AND status = 'available'
	`, scheduleID, partnerUserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ScheduleRepository) ListOneOff(ctx context.Context, partnerUserID string, from, to string) ([]model.OneOffSchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, partner_user_id, date::text, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), status, created_at
		FROM schedules
		WHERE partner_user_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, start_time
	`, partnerUserID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []model.OneOffSchedule
	for rows.Next() {
		var s model.OneOffSchedule
		if err := rows.Scan(&s.ID, &s.PartnerUserID, &s.Date, &s.StartTime, &s.EndTime, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return schedules, nil
}

func (r *ScheduleRepository) CreateRecurring(ctx context.Context, s *model.RecurringSchedule) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO recurring_schedules (partner_user_id, day_of_week, start_time, end_time, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, s.PartnerUserID, s.DayOfWeek, s.StartTime, s.EndTime, s.IsActive).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ScheduleRepository) SetRecurringActive(ctx context.Context, partnerUserID, scheduleID string, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE recurring_schedules
		SET is_active = $3
		WHERE id = $1 AND partner_user_id = $2
	`, scheduleID, partnerUserID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ScheduleRepository) ListRecurring(ctx context.Context, partnerUserID string) ([]model.RecurringSchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, partner_user_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), is_active, created_at
		FROM recurring_schedules
		WHERE partner_user_id = $1
		ORDER BY day_of_week, start_time
	`, partnerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []model.RecurringSchedule
	for rows.Next() {
		var s model.RecurringSchedule
		if err := rows.Scan(&s.ID, &s.PartnerUserID, &s.DayOfWeek, &s.StartTime, &s.EndTime, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return schedules, nil
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01")
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
