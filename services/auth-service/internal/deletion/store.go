package deletion

import (
	"context"

	"github.com/amiko-app/amiko/libs/db"
	"github.com/amiko-app/amiko/services/auth-service/internal/sessions"
	"github.com/amiko-app/amiko/services/auth-service/internal/storage"
)

// DBStore implements Store over the shared database.
type DBStore struct {
	pool     *db.Pool
	users    *storage.UserRepository
	sessions *sessions.RefreshRepository
}

func NewDBStore(pool *db.Pool, users *storage.UserRepository, refresh *sessions.RefreshRepository) *DBStore {
	return &DBStore{pool: pool, users: users, sessions: refresh}
}

func (s *DBStore) MarkPendingDeletion(ctx context.Context, userID string) error {
	return s.users.MarkPendingDeletion(ctx, userID)
}

func (s *DBStore) RevokeSessions(ctx context.Context, userID string) error {
	return s.sessions.RevokeAllForUser(ctx, userID)
}

func (s *DBStore) CancelFutureBookings(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			cancelled_at = now()
		WHERE (user_id = $1 OR partner_user_id = $1)
			AND status = 'confirmed'
			AND date >= (now() AT TIME ZONE 'Asia/Seoul')::date
	`, userID)
	return err
}

func (s *DBStore) AnonymizeContent(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE posts SET author_id = NULL, author_name = NULL WHERE author_id = $1
	`, userID); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `
		UPDATE comments SET author_id = NULL, author_name = NULL WHERE author_id = $1
	`, userID); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE chat_messages SET sender_id = NULL WHERE sender_id = $1
	`, userID)
	return err
}

func (s *DBStore) CountRemnants(ctx context.Context, userID string) (Remnants, error) {
	var r Remnants
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM refresh_tokens WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > now()),
			(SELECT count(*) FROM bookings
				WHERE (user_id = $1 OR partner_user_id = $1)
					AND status = 'confirmed'
					AND date >= (now() AT TIME ZONE 'Asia/Seoul')::date),
			(SELECT count(*) FROM posts WHERE author_id = $1)
				+ (SELECT count(*) FROM comments WHERE author_id = $1)
				+ (SELECT count(*) FROM chat_messages WHERE sender_id = $1)
	`, userID).Scan(&r.ActiveSessions, &r.FutureBookings, &r.NamedContent)
	return r, err
}

func (s *DBStore) FinalizeUser(ctx context.Context, userID string) error {
	return s.users.FinalizeDeletion(ctx, userID)
}
