package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amiko-app/amiko/services/booking-service/internal/availability"
	"github.com/amiko-app/amiko/services/booking-service/internal/model"
)

type stubStore struct {
	recurring    []model.RecurringSchedule
	oneOff       []model.OneOffSchedule
	oneOffErr    error
	recurringErr error
}

func (s *stubStore) ResolvePartnerUserID(_ context.Context, partnerID string) (string, error) {
	return partnerID, nil
}

func (s *stubStore) OneOffAvailable(context.Context, string, string, string) ([]model.OneOffSchedule, error) {
	return s.oneOff, s.oneOffErr
}

func (s *stubStore) ActiveRecurring(context.Context, string, int) ([]model.RecurringSchedule, error) {
	return s.recurring, s.recurringErr
}

func newSlotsServer(store *stubStore) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := availability.NewResolver(store, nil, logger)
	h := NewSlotsHandler(resolver, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/partners/{partnerID}/available-slots", h.List)
	return mux
}

func TestListSlotsOK(t *testing.T) {
	mux := newSlotsServer(&stubStore{
		recurring: []model.RecurringSchedule{
			{ID: "r1", DayOfWeek: 1, StartTime: "10:00", EndTime: "10:40", IsActive: true},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/partners/p1/available-slots?date=2026-03-02", nil)
	req.Header.Set("X-User-Timezone", "Asia/Seoul")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Slots        []availability.Slot `json:"slots"`
		UserTimezone string              `json:"userTimezone"`
		Debug        availability.Debug  `json:"debug"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.UserTimezone != "Asia/Seoul" {
		t.Fatalf("userTimezone = %s", resp.UserTimezone)
	}
	if len(resp.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(resp.Slots))
	}
	if resp.Debug.KSTDate != "2026-03-02" {
		t.Fatalf("debug kstDate = %s", resp.Debug.KSTDate)
	}
}

func TestListSlotsEmptyArrayNotNull(t *testing.T) {
	mux := newSlotsServer(&stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/partners/p1/available-slots?date=2026-03-02", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(resp["slots"]) != "[]" {
		t.Fatalf("slots = %s, want []", resp["slots"])
	}
}

func TestListSlotsMissingDate(t *testing.T) {
	mux := newSlotsServer(&stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/partners/p1/available-slots", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListSlotsInvalidDate(t *testing.T) {
	mux := newSlotsServer(&stubStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/partners/p1/available-slots?date=March-2", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListSlotsStorageFailure(t *testing.T) {
	mux := newSlotsServer(&stubStore{oneOffErr: errors.New("db down")})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/partners/p1/available-slots?date=2026-03-02", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] == "" {
		t.Fatal("expected generic error message")
	}
}
