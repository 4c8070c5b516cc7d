package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amiko-app/amiko/services/booking-service/internal/kst"
	"github.com/amiko-app/amiko/services/booking-service/internal/model"
	"github.com/amiko-app/amiko/services/booking-service/internal/outbox"
	"github.com/amiko-app/amiko/services/booking-service/internal/storage"
)

type BookingHandler struct {
	repo       *storage.BookingRepository
	schedules  *storage.ScheduleRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewBookingHandler(repo *storage.BookingRepository, schedules *storage.ScheduleRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{repo: repo, schedules: schedules, outboxRepo: outboxRepo, logger: logger}
}

type createBookingRequest struct {
	PartnerID string `json:"partnerId"`
	Date      string `json:"date"` // KST
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Topic     string `json:"topic"`
}

type createBookingResponse struct {
	BookingID string `json:"bookingId"`
}

type bookingItem struct {
	BookingID     string `json:"bookingId"`
	PartnerUserID string `json:"partnerUserId"`
	UserID        string `json:"userId"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Status        string `json:"status"`
	Topic         string `json:"topic,omitempty"`
	CancelledAt   string `json:"cancelledAt,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.PartnerID = strings.TrimSpace(req.PartnerID)
	if req.PartnerID == "" {
		writeError(w, http.StatusBadRequest, "partnerId is required")
		return
	}
	if _, err := time.Parse(kst.DateLayout, req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if !validClockWindow(req.StartTime, req.EndTime) {
		writeError(w, http.StatusBadRequest, "invalid time window, expected HH:MM with endTime after startTime")
		return
	}

	ctx := r.Context()
	partnerUserID, err := h.schedules.ResolvePartnerUserID(ctx, req.PartnerID)
	if err != nil {
		h.logger.Error("partner resolution failed", "partnerId", req.PartnerID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}
	if partnerUserID == userID {
		writeError(w, http.StatusUnprocessableEntity, "cannot book a call with yourself")
		return
	}

	booking := &model.Booking{
		UserID:        userID,
		PartnerUserID: partnerUserID,
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Status:        model.BookingConfirmed,
		Topic:         strings.TrimSpace(req.Topic),
	}

	tx, err := h.repo.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.repo.Create(ctx, tx, booking)
	if err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "time slot already booked")
			return
		}
		h.logger.Error("create booking failed", "userId", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}
	booking.ID = id

	if err := h.repo.MarkScheduleBooked(ctx, tx, partnerUserID, req.Date, req.StartTime); err != nil {
		h.logger.Error("mark schedule booked failed", "bookingId", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create booking")
		return
	}

	evt, err := outbox.BookingCreated(booking)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build event payload")
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write outbox event")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusCreated, createBookingResponse{BookingID: id})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	bookingID := r.PathValue("bookingID")

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	booking, err := h.repo.GetForUpdate(ctx, tx, bookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "booking not found")
			return
		}
		h.logger.Error("load booking failed", "bookingId", bookingID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to cancel booking")
		return
	}
	// Either side of the call may cancel.
	if booking.UserID != userID && booking.PartnerUserID != userID {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	if booking.Status != model.BookingConfirmed {
		writeError(w, http.StatusConflict, "booking is not active")
		return
	}

	cancelledAt, err := h.repo.Cancel(ctx, tx, bookingID)
	if err != nil {
		h.logger.Error("cancel booking failed", "bookingId", bookingID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to cancel booking")
		return
	}
	if err := h.repo.ReleaseSchedule(ctx, tx, booking.PartnerUserID, booking.Date, booking.StartTime); err != nil {
		h.logger.Error("release schedule failed", "bookingId", bookingID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to cancel booking")
		return
	}

	evt, err := outbox.BookingCancelled(&booking, cancelledAt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build event payload")
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write outbox event")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "db error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"bookingId":   bookingID,
		"status":      model.BookingCancelled,
		"cancelledAt": cancelledAt.UTC().Format(time.RFC3339),
	})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	var (
		bookings []model.Booking
		err      error
	)
	if r.URL.Query().Get("role") == "partner" {
		bookings, err = h.repo.ListForPartner(r.Context(), userID, limit)
	} else {
		bookings, err = h.repo.ListForUser(r.Context(), userID, limit)
	}
	if err != nil {
		h.logger.Error("list bookings failed", "userId", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}

	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		item := bookingItem{
			BookingID:     b.ID,
			PartnerUserID: b.PartnerUserID,
			UserID:        b.UserID,
			Date:          b.Date,
			StartTime:     b.StartTime,
			EndTime:       b.EndTime,
			Status:        b.Status,
			Topic:         b.Topic,
			CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if b.CancelledAt != nil {
			item.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": items})
}
