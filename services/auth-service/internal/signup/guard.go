// Package signup holds the short-lived Redis reservation that keeps
// two concurrent registrations from racing the same email between the
// uniqueness check and the insert. The database unique index remains
// the source of truth; the guard only narrows the race window and
// gives the loser a fast, friendly conflict.
package signup

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 30 * time.Second

type Guard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewGuard(rdb *redis.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Guard{rdb: rdb, ttl: ttl}
}

// Reserve claims the email for the duration of one registration
// attempt. It returns false when another attempt holds the claim.
// Redis being down fails open: the unique index still protects us.
func (g *Guard) Reserve(ctx context.Context, email string) (bool, error) {
	if g == nil || g.rdb == nil {
		return true, nil
	}
	ok, err := g.rdb.SetNX(ctx, g.key(email), "1", g.ttl).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}

// Release drops the claim early so a failed registration does not
// block a retry for the full TTL.
func (g *Guard) Release(ctx context.Context, email string) {
	if g == nil || g.rdb == nil {
		return
	}
	_ = g.rdb.Del(ctx, g.key(email)).Err()
}

func (g *Guard) key(email string) string {
	return "signup:email:" + strings.ToLower(strings.TrimSpace(email))
}
