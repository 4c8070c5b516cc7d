package storage

import (
	"context"
	"time"

	"github.com/amiko-app/amiko/libs/db"
	"github.com/jackc/pgx/v5"
)

// User statuses. pending_deletion users are invisible to lookups and
// waiting for the deletion worker to converge.
const (
	StatusActive          = "active"
	StatusPendingDeletion = "pending_deletion"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Phone        string
	NativeLang   string // ko or es
	Timezone     string // IANA name, may be empty
	Role         string // user, partner or admin
	Status       string
	CreatedAt    time.Time
}

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateTx(ctx context.Context, tx pgx.Tx, user User) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, phone, native_lang, timezone, role, status)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
	`, user.ID, user.Email, user.PasswordHash, user.Phone, user.NativeLang, user.Timezone, user.Role, user.Status)
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.get(ctx, `WHERE email = $1 AND status = 'active' AND deleted_at IS NULL`, email)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	return r.get(ctx, `WHERE id = $1 AND status = 'active' AND deleted_at IS NULL`, id)
}

func (r *UserRepository) get(ctx context.Context, where, arg string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, COALESCE(phone, ''), native_lang, COALESCE(timezone, ''), role, status, created_at
		FROM users
		`+where,
		arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Phone, &user.NativeLang, &user.Timezone, &user.Role, &user.Status, &user.CreatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (r *UserRepository) UpdateTimezone(ctx context.Context, id, timezone string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET timezone = NULLIF($2, '')
		WHERE id = $1 AND status = 'active' AND deleted_at IS NULL
	`, id, timezone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *UserRepository) MarkPendingDeletion(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET status = 'pending_deletion'
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// FinalizeDeletion soft-deletes the row and scrubs credentials and
// contact details. The id survives so foreign keys keep resolving.
func (r *UserRepository) FinalizeDeletion(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET deleted_at = now(),
			email = 'deleted+' || id || '@amiko.invalid',
			password_hash = '',
			phone = NULL,
			timezone = NULL
		WHERE id = $1
	`, id)
	return err
}

func IsNotFound(err error) bool {
	return err == pgx.ErrNoRows
}
