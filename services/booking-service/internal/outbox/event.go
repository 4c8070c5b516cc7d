package outbox

import (
	"encoding/json"
	"time"

	"github.com/amiko-app/amiko/services/booking-service/internal/model"
)

const (
	EventBookingCreated   = "booking.created.v1"
	EventBookingCancelled = "booking.cancelled.v1"
)

type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type bookingPayload struct {
	BookingID     string `json:"bookingId"`
	UserID        string `json:"userId"`
	PartnerUserID string `json:"partnerUserId"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	Topic         string `json:"topic,omitempty"`
	CancelledAt   string `json:"cancelledAt,omitempty"`
}

func BookingCreated(b *model.Booking) (Event, error) {
	payload, err := json.Marshal(bookingPayload{
		BookingID:     b.ID,
		UserID:        b.UserID,
		PartnerUserID: b.PartnerUserID,
		Date:          b.Date,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Topic:         b.Topic,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     EventBookingCreated,
		Payload:       payload,
	}, nil
}

func BookingCancelled(b *model.Booking, cancelledAt time.Time) (Event, error) {
	payload, err := json.Marshal(bookingPayload{
		BookingID:     b.ID,
		UserID:        b.UserID,
		PartnerUserID: b.PartnerUserID,
		Date:          b.Date,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		CancelledAt:   cancelledAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     EventBookingCancelled,
		Payload:       payload,
	}, nil
}
