package availability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amiko-app/amiko/services/booking-service/internal/model"
)

type fakeStore struct {
	partnerUserID string
	oneOff        []model.OneOffSchedule
	recurring     []model.RecurringSchedule
	oneOffErr     error
	recurringErr  error
	gotWeekday    int
	gotFrom       string
	gotTo         string
}

func (f *fakeStore) ResolvePartnerUserID(_ context.Context, partnerID string) (string, error) {
	if f.partnerUserID != "" {
		return f.partnerUserID, nil
	}
	return partnerID, nil
}

func (f *fakeStore) OneOffAvailable(_ context.Context, _ string, from, to string) ([]model.OneOffSchedule, error) {
	f.gotFrom, f.gotTo = from, to
	return f.oneOff, f.oneOffErr
}

func (f *fakeStore) ActiveRecurring(_ context.Context, _ string, dayOfWeek int) ([]model.RecurringSchedule, error) {
	f.gotWeekday = dayOfWeek
	return f.recurring, f.recurringErr
}

type fakeProfile struct {
	timezone string
	phone    string
	err      error
}

func (f *fakeProfile) Profile(context.Context, string) (string, string, error) {
	return f.timezone, f.phone, f.err
}

func newTestResolver(store *fakeStore, profile ProfileProvider, now time.Time) *Resolver {
	r := NewResolver(store, profile, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return now }
	return r
}

// A Monday 10:00-11:00 KST recurring block seen from Lima: KST is 14
// hours ahead, so requesting Sunday 2026-03-01 in Lima anchors to
// Monday 2026-03-02 KST and yields three 20-minute slots on the
// previous Lima evening falling back through the KST-date match.
func TestResolveRecurringFromLima(t *testing.T) {
	store := &fakeStore{
		recurring: []model.RecurringSchedule{
			{ID: "r1", DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00", IsActive: true},
		},
	}
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	r := newTestResolver(store, nil, now)

	res, err := r.Resolve(context.Background(), Request{
		PartnerID: "p1",
		Date:      "2026-03-01",
		TZHeader:  "America/Lima",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.UserTimezone != "America/Lima" {
		t.Fatalf("timezone = %s", res.UserTimezone)
	}
	if res.Debug.KSTDate != "2026-03-02" {
		t.Fatalf("kst date = %s, want 2026-03-02", res.Debug.KSTDate)
	}
	if store.gotWeekday != 1 {
		t.Fatalf("queried weekday %d, want 1 (Monday)", store.gotWeekday)
	}
	if len(res.Slots) != 3 {
		t.Fatalf("expected 3 slots, got %d: %+v", len(res.Slots), res.Slots)
	}
	// 10:00 KST Monday = 20:00 Sunday in Lima (UTC-5).
	if res.Slots[0].Date != "2026-03-01" || res.Slots[0].StartTime != "20:00" {
		t.Fatalf("first slot %+v, want 2026-03-01 20:00", res.Slots[0])
	}
	if res.Slots[2].EndTime != "21:00" {
		t.Fatalf("last slot ends %s, want 21:00", res.Slots[2].EndTime)
	}
}

func TestResolveWidenedOneOffWindow(t *testing.T) {
	store := &fakeStore{}
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	r := newTestResolver(store, nil, now)

	_, err := r.Resolve(context.Background(), Request{
		PartnerID: "p1", Date: "2026-03-01", TZHeader: "America/Lima",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if store.gotFrom != "2026-03-01" || store.gotTo != "2026-03-03" {
		t.Fatalf("one-off window [%s, %s], want [2026-03-01, 2026-03-03]", store.gotFrom, store.gotTo)
	}
}

func TestResolveOneOffBeatsRecurringOnCollision(t *testing.T) {
	store := &fakeStore{
		oneOff: []model.OneOffSchedule{
			{ID: "s1", Date: "2026-03-02", StartTime: "10:00", EndTime: "10:20", Status: model.ScheduleAvailable},
		},
		recurring: []model.RecurringSchedule{
			{ID: "r1", DayOfWeek: 1, StartTime: "10:00", EndTime: "10:40", IsActive: true},
		},
	}
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	r := newTestResolver(store, nil, now)

	res, err := r.Resolve(context.Background(), Request{
		PartnerID: "p1", Date: "2026-03-02", TZHeader: "Asia/Seoul",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Slots) != 2 {
		t.Fatalf("expected 2 slots after dedupe, got %d: %+v", len(res.Slots), res.Slots)
	}
	if res.Slots[0].Source != SourceSpecific {
		t.Fatalf("collision winner = %s, want %s", res.Slots[0].Source, SourceSpecific)
	}
	if res.Slots[1].Source != SourceRecurring {
		t.Fatalf("second slot source = %s", res.Slots[1].Source)
	}
}

func TestResolveOneOffErrorFailsRequest(t *testing.T) {
	store := &fakeStore{oneOffErr: errors.New("db down")}
	r := newTestResolver(store, nil, time.Now())

	_, err := r.Resolve(context.Background(), Request{
		PartnerID: "p1", Date: "2026-03-02", TZHeader: "Asia/Seoul",
	})
	if err == nil {
		t.Fatal("expected error when one-off query fails")
	}
}

func TestResolveRecurringErrorDegrades(t *testing.T) {
	store := &fakeStore{
		oneOff: []model.OneOffSchedule{
			{ID: "s1", Date: "2026-03-02", StartTime: "10:00", EndTime: "10:20", Status: model.ScheduleAvailable},
		},
		recurringErr: errors.New("db down"),
	}
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	r := newTestResolver(store, nil, now)

	res, err := r.Resolve(context.Background(), Request{
		PartnerID: "p1", Date: "2026-03-02", TZHeader: "Asia/Seoul",
	})
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if !res.Debug.Degraded {
		t.Fatal("expected degraded flag")
	}
	if len(res.Slots) != 1 || res.Slots[0].Source != SourceSpecific {
		t.Fatalf("expected the one-off slot only, got %+v", res.Slots)
	}
}

func TestResolveTimezonePrecedence(t *testing.T) {
	store := &fakeStore{}
	profile := &fakeProfile{timezone: "America/Bogota", phone: "+51 999"}
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)

	// Stored preference used when the header is absent.
	r := newTestResolver(store, profile, now)
	res, err := r.Resolve(context.Background(), Request{
		PartnerID: "p1", Date: "2026-03-02", UserID: "u1",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.UserTimezone != "America/Bogota" {
		t.Fatalf("timezone = %s, want stored preference", res.UserTimezone)
	}

	// Phone inference when nothing else is set.
	profile.timezone = ""
	res, err = r.Resolve(context.Background(), Request{
		PartnerID: "p1", Date: "2026-03-02", UserID: "u1",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.UserTimezone != "America/Lima" {
		t.Fatalf("timezone = %s, want phone-inferred America/Lima", res.UserTimezone)
	}

	// Profile failure falls back to the default, not an error.
	failing := &fakeProfile{err: errors.New("unavailable")}
	r = newTestResolver(store, failing, now)
	res, err = r.Resolve(context.Background(), Request{
		PartnerID: "p1", Date: "2026-03-02", UserID: "u1",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.UserTimezone != "America/Mexico_City" {
		t.Fatalf("timezone = %s, want default", res.UserTimezone)
	}
}

func TestResolveLeadTimeAppliedToday(t *testing.T) {
	store := &fakeStore{
		oneOff: []model.OneOffSchedule{
			{ID: "s1", Date: "2026-03-02", StartTime: "10:10", EndTime: "10:30", Status: model.ScheduleAvailable},
			{ID: "s2", Date: "2026-03-02", StartTime: "11:00", EndTime: "11:20", Status: model.ScheduleAvailable},
		},
	}
	seoul, _ := time.LoadLocation("Asia/Seoul")
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, seoul)
	r := newTestResolver(store, nil, now)

	res, err := r.Resolve(context.Background(), Request{
		PartnerID: "p1", Date: "2026-03-02", TZHeader: "Asia/Seoul",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(res.Slots) != 1 || res.Slots[0].StartTime != "11:00" {
		t.Fatalf("expected only the 11:00 slot, got %+v", res.Slots)
	}
}

func TestResolveInvalidDate(t *testing.T) {
	r := newTestResolver(&fakeStore{}, nil, time.Now())
	if _, err := r.Resolve(context.Background(), Request{PartnerID: "p1", Date: "03/02/2026"}); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
