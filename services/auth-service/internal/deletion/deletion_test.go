package deletion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amiko-app/amiko/services/auth-service/internal/outbox"
)

type fakeStore struct {
	remnants    []Remnants // returned in order, last repeats
	countCalls  int
	marked      bool
	revoked     bool
	cancelled   bool
	anonymized  bool
	finalized   bool
	finalizeErr error
}

func (f *fakeStore) MarkPendingDeletion(context.Context, string) error { f.marked = true; return nil }
func (f *fakeStore) RevokeSessions(context.Context, string) error      { f.revoked = true; return nil }
func (f *fakeStore) CancelFutureBookings(context.Context, string) error {
	f.cancelled = true
	return nil
}
func (f *fakeStore) AnonymizeContent(context.Context, string) error { f.anonymized = true; return nil }

func (f *fakeStore) CountRemnants(context.Context, string) (Remnants, error) {
	i := f.countCalls
	f.countCalls++
	if i >= len(f.remnants) {
		i = len(f.remnants) - 1
	}
	return f.remnants[i], nil
}

func (f *fakeStore) FinalizeUser(context.Context, string) error {
	f.finalized = true
	return f.finalizeErr
}

type fakeSink struct {
	events []outbox.Event
	err    error
}

func (s *fakeSink) InsertDirect(_ context.Context, evt outbox.Event) error {
	s.events = append(s.events, evt)
	return s.err
}

func newTestWorker(store Store, sink EventSink, maxAttempts int) *Worker {
	w := NewWorker(store, sink, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
	})
	w.sleep = func(context.Context, time.Duration) error { return nil }
	return w
}

func TestDeleteConvergesAfterRetries(t *testing.T) {
	store := &fakeStore{remnants: []Remnants{
		{ActiveSessions: 2},
		{FutureBookings: 1},
		{},
	}}
	sink := &fakeSink{}
	w := newTestWorker(store, sink, 5)

	if err := w.Delete(context.Background(), "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !store.marked || !store.revoked || !store.cancelled || !store.anonymized {
		t.Fatal("teardown steps skipped")
	}
	if !store.finalized {
		t.Fatal("user row not finalized")
	}
	if store.countCalls != 3 {
		t.Fatalf("remnant polls = %d, want 3", store.countCalls)
	}
	if len(sink.events) != 1 || sink.events[0].EventType != outbox.EventUserDeleted {
		t.Fatalf("expected one %s event, got %+v", outbox.EventUserDeleted, sink.events)
	}
}

func TestDeleteGivesUpAfterMaxAttempts(t *testing.T) {
	store := &fakeStore{remnants: []Remnants{{NamedContent: 1}}}
	sink := &fakeSink{}
	w := newTestWorker(store, sink, 3)

	err := w.Delete(context.Background(), "u1")
	if err == nil {
		t.Fatal("expected convergence failure")
	}
	if store.finalized {
		t.Fatal("user must not be finalized without convergence")
	}
	if store.countCalls != 3 {
		t.Fatalf("remnant polls = %d, want 3", store.countCalls)
	}
	if len(sink.events) != 0 {
		t.Fatal("no event expected on failure")
	}
}

func TestDeleteEventFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{remnants: []Remnants{{}}}
	sink := &fakeSink{err: errors.New("kafka down")}
	w := newTestWorker(store, sink, 3)

	if err := w.Delete(context.Background(), "u1"); err != nil {
		t.Fatalf("delete should succeed despite event failure: %v", err)
	}
	if !store.finalized {
		t.Fatal("user row not finalized")
	}
}

func TestDeleteCancelledContext(t *testing.T) {
	store := &fakeStore{remnants: []Remnants{{ActiveSessions: 1}}}
	w := NewWorker(store, &fakeSink{}, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Delete(ctx, "u1"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
