package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/amiko-app/amiko/services/booking-service/internal/availability"
)

type SlotsHandler struct {
	resolver *availability.Resolver
	logger   *slog.Logger
}

func NewSlotsHandler(resolver *availability.Resolver, logger *slog.Logger) *SlotsHandler {
	return &SlotsHandler{resolver: resolver, logger: logger}
}

// List serves GET /api/v1/partners/{partnerID}/available-slots.
// The date query parameter is the requested calendar date in the
// requester's timezone; the X-User-Timezone header overrides any
// stored preference.
func (h *SlotsHandler) List(w http.ResponseWriter, r *http.Request) {
	partnerID := strings.TrimSpace(r.PathValue("partnerID"))
	if partnerID == "" {
		writeError(w, http.StatusBadRequest, "missing partner id")
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "missing date parameter, expected YYYY-MM-DD")
		return
	}

	res, err := h.resolver.Resolve(r.Context(), availability.Request{
		PartnerID: partnerID,
		Date:      date,
		TZHeader:  strings.TrimSpace(r.Header.Get("X-User-Timezone")),
		UserID:    strings.TrimSpace(r.Header.Get("X-User-Id")),
	})
	if err != nil {
		if errors.Is(err, availability.ErrInvalidDate) {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		h.logger.Error("availability resolution failed", "partnerId", partnerID, "date", date, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to load available slots")
		return
	}

	if res.Slots == nil {
		res.Slots = []availability.Slot{}
	}
	writeJSON(w, http.StatusOK, res)
}
