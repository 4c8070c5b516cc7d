// Package profile looks up the requester's timezone preference and
// phone number for timezone inference.
package profile

import (
	"context"

	"github.com/amiko-app/amiko/libs/db"
)

type Provider interface {
	Profile(ctx context.Context, userID string) (timezone, phone string, err error)
}

// DBProvider reads profiles straight from the users table. It is the
// default wiring; a gRPC client to auth-service is available under the
// protogen build tag.
type DBProvider struct {
	pool *db.Pool
}

func NewDBProvider(pool *db.Pool) *DBProvider {
	return &DBProvider{pool: pool}
}

func (p *DBProvider) Profile(ctx context.Context, userID string) (string, string, error) {
	var timezone, phone string
	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(timezone, ''), COALESCE(phone, '')
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`, userID).Scan(&timezone, &phone)
	if err != nil {
		return "", "", err
	}
	return timezone, phone, nil
}
