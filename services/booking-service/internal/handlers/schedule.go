package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amiko-app/amiko/services/booking-service/internal/kst"
	"github.com/amiko-app/amiko/services/booking-service/internal/model"
	"github.com/amiko-app/amiko/services/booking-service/internal/storage"
)

// ScheduleHandler is the partner-facing schedule management surface.
// All dates and clocks here are KST, the zone partners author in.
type ScheduleHandler struct {
	repo   *storage.ScheduleRepository
	logger *slog.Logger
}

func NewScheduleHandler(repo *storage.ScheduleRepository, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{repo: repo, logger: logger}
}

type createOneOffRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type createRecurringRequest struct {
	DayOfWeek *int   `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type scheduleCreatedResponse struct {
	ID string `json:"id"`
}

type oneOffItem struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status"`
}

type recurringItem struct {
	ID        string `json:"id"`
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	IsActive  bool   `json:"isActive"`
}

func partnerUserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func validClockWindow(start, end string) bool {
	s, err := time.Parse(kst.ClockLayout, start)
	if err != nil {
		return false
	}
	e, err := time.Parse(kst.ClockLayout, end)
	if err != nil {
		return false
	}
	return e.After(s)
}

func (h *ScheduleHandler) CreateOneOff(w http.ResponseWriter, r *http.Request) {
	userID := partnerUserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createOneOffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
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

	id, err := h.repo.CreateOneOff(r.Context(), &model.OneOffSchedule{
		PartnerUserID: userID,
		Date:          req.Date,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Status:        model.ScheduleAvailable,
	})
	if err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "schedule overlaps an existing one")
			return
		}
		h.logger.Error("create one-off schedule failed", "userId", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create schedule")
		return
	}
	writeJSON(w, http.StatusCreated, scheduleCreatedResponse{ID: id})
}

func (h *ScheduleHandler) DeleteOneOff(w http.ResponseWriter, r *http.Request) {
	userID := partnerUserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	scheduleID := r.PathValue("scheduleID")

	err := h.repo.DeleteOneOff(r.Context(), userID, scheduleID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "schedule not found or already booked")
			return
		}
		h.logger.Error("delete one-off schedule failed", "userId", userID, "scheduleId", scheduleID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) ListOneOff(w http.ResponseWriter, r *http.Request) {
	userID := partnerUserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		now := kst.Now()
		from = now.Format(kst.DateLayout)
		to = now.AddDate(0, 1, 0).Format(kst.DateLayout)
	}

	schedules, err := h.repo.ListOneOff(r.Context(), userID, from, to)
	if err != nil {
		h.logger.Error("list one-off schedules failed", "userId", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}
	items := make([]oneOffItem, 0, len(schedules))
	for _, s := range schedules {
		items = append(items, oneOffItem{ID: s.ID, Date: s.Date, StartTime: s.StartTime, EndTime: s.EndTime, Status: s.Status})
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": items})
}

func (h *ScheduleHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	userID := partnerUserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createRecurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.DayOfWeek == nil || *req.DayOfWeek < 0 || *req.DayOfWeek > 6 {
		writeError(w, http.StatusBadRequest, "dayOfWeek must be 0 (Sunday) through 6 (Saturday)")
		return
	}
	if !validClockWindow(req.StartTime, req.EndTime) {
		writeError(w, http.StatusBadRequest, "invalid time window, expected HH:MM with endTime after startTime")
		return
	}

	id, err := h.repo.CreateRecurring(r.Context(), &model.RecurringSchedule{
		PartnerUserID: userID,
		DayOfWeek:     *req.DayOfWeek,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		IsActive:      true,
	})
	if err != nil {
		if storage.IsConflict(err) {
			writeError(w, http.StatusConflict, "recurring schedule overlaps an existing one")
			return
		}
		h.logger.Error("create recurring schedule failed", "userId", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create recurring schedule")
		return
	}
	writeJSON(w, http.StatusCreated, scheduleCreatedResponse{ID: id})
}

func (h *ScheduleHandler) SetRecurringActive(w http.ResponseWriter, r *http.Request) {
	userID := partnerUserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	scheduleID := r.PathValue("scheduleID")

	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "isActive is required")
		return
	}

	err := h.repo.SetRecurringActive(r.Context(), userID, scheduleID, *req.IsActive)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "recurring schedule not found")
			return
		}
		h.logger.Error("update recurring schedule failed", "userId", userID, "scheduleId", scheduleID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to update recurring schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScheduleHandler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	userID := partnerUserID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	schedules, err := h.repo.ListRecurring(r.Context(), userID)
	if err != nil {
		h.logger.Error("list recurring schedules failed", "userId", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list recurring schedules")
		return
	}
	items := make([]recurringItem, 0, len(schedules))
	for _, s := range schedules {
		items = append(items, recurringItem{ID: s.ID, DayOfWeek: s.DayOfWeek, StartTime: s.StartTime, EndTime: s.EndTime, IsActive: s.IsActive})
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": items})
}
