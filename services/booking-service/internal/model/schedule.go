package model

import "time"

// Schedule statuses. All schedule dates and clocks are authored in KST.
const (
	ScheduleAvailable = "available"
	ScheduleBooked    = "booked"
)

// OneOffSchedule is a single-day availability window created by a partner for
// a specific calendar date, overriding or supplementing their weekly pattern.
type OneOffSchedule struct {
	ID            string
	PartnerUserID string
	Date          string // KST calendar date, YYYY-MM-DD
	StartTime     string // KST wall clock, HH:MM
	EndTime       string
	Status        string
	CreatedAt     time.Time
}

// RecurringSchedule is a weekly-repeating availability window keyed by KST
// weekday (0=Sunday..6=Saturday). It is expanded on demand into discrete
// 20-minute slots and never mutated by the read path.
type RecurringSchedule struct {
	ID            string
	PartnerUserID string
	DayOfWeek     int
	StartTime     string
	EndTime       string
	IsActive      bool
	CreatedAt     time.Time
}

// Booking statuses.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Booking is a confirmed video-call reservation between a user and a partner.
// Times are stored in KST like the schedules they were booked from.
type Booking struct {
	ID            string
	UserID        string
	PartnerUserID string
	Date          string
	StartTime     string
	EndTime       string
	Status        string
	Topic         string
	CancelledAt   *time.Time
	CreatedAt     time.Time
}
