// Package deletion tears down an account across the platform. The
// teardown fans out to sessions, bookings and community content, then
// polls remnant counts until everything has converged before the user
// row itself is finalized. Convergence is bounded: a run that never
// reaches zero leaves the account in pending_deletion for a later
// retry instead of looping forever.
package deletion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/amiko-app/amiko/services/auth-service/internal/outbox"
)

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 200 * time.Millisecond
)

// Remnants counts the rows still tied to the account.
type Remnants struct {
	ActiveSessions int
	FutureBookings int
	NamedContent   int
}

func (r Remnants) Zero() bool {
	return r.ActiveSessions == 0 && r.FutureBookings == 0 && r.NamedContent == 0
}

// Store is the storage surface the worker drives. Each step is
// idempotent so a retried run redoes no harm.
type Store interface {
	MarkPendingDeletion(ctx context.Context, userID string) error
	RevokeSessions(ctx context.Context, userID string) error
	CancelFutureBookings(ctx context.Context, userID string) error
	AnonymizeContent(ctx context.Context, userID string) error
	CountRemnants(ctx context.Context, userID string) (Remnants, error)
	FinalizeUser(ctx context.Context, userID string) error
}

// EventSink receives the terminal deletion event.
type EventSink interface {
	InsertDirect(ctx context.Context, evt outbox.Event) error
}

type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

type Worker struct {
	store  Store
	events EventSink
	log    *slog.Logger
	cfg    Config
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewWorker(store Store, events EventSink, log *slog.Logger, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	return &Worker{store: store, events: events, log: log, cfg: cfg, sleep: sleepCtx}
}

// Delete runs the full teardown for one account. It returns an error
// when convergence was not reached; the account stays pending_deletion
// and the caller may retry.
func (w *Worker) Delete(ctx context.Context, userID string) error {
	if err := w.store.MarkPendingDeletion(ctx, userID); err != nil {
		return fmt.Errorf("mark pending deletion: %w", err)
	}
	if err := w.store.RevokeSessions(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if err := w.store.CancelFutureBookings(ctx, userID); err != nil {
		return fmt.Errorf("cancel bookings: %w", err)
	}
	if err := w.store.AnonymizeContent(ctx, userID); err != nil {
		return fmt.Errorf("anonymize content: %w", err)
	}

	converged := false
	delay := w.cfg.BaseDelay
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		remnants, err := w.store.CountRemnants(ctx, userID)
		if err != nil {
			return fmt.Errorf("count remnants: %w", err)
		}
		if remnants.Zero() {
			converged = true
			break
		}
		w.log.Info("deletion not yet converged",
			"userId", userID,
			"attempt", attempt,
			"sessions", remnants.ActiveSessions,
			"bookings", remnants.FutureBookings,
			"content", remnants.NamedContent)
		if attempt == w.cfg.MaxAttempts {
			break
		}
		if err := w.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
	if !converged {
		return fmt.Errorf("deletion of user %s did not converge after %d attempts", userID, w.cfg.MaxAttempts)
	}

	if err := w.store.FinalizeUser(ctx, userID); err != nil {
		return fmt.Errorf("finalize user: %w", err)
	}

	payload, err := json.Marshal(map[string]string{
		"userId":    userID,
		"deletedAt": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := w.events.InsertDirect(ctx, outbox.Event{
		AggregateType: "user",
		AggregateID:   userID,
		EventType:     outbox.EventUserDeleted,
		Payload:       payload,
	}); err != nil {
		// The account is gone either way; the event loss is logged, not fatal.
		w.log.Error("user deleted but event enqueue failed", "userId", userID, "err", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
