package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amiko-app/amiko/services/booking-service/internal/kst"
	"github.com/amiko-app/amiko/services/booking-service/internal/model"
	"github.com/amiko-app/amiko/services/booking-service/internal/usertz"
)

// ErrInvalidDate marks a request date that is not YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid date")

// ScheduleStore is the subset of schedule storage the resolver reads.
type ScheduleStore interface {
	ResolvePartnerUserID(ctx context.Context, partnerID string) (string, error)
	OneOffAvailable(ctx context.Context, partnerUserID string, from, to string) ([]model.OneOffSchedule, error)
	ActiveRecurring(ctx context.Context, partnerUserID string, dayOfWeek int) ([]model.RecurringSchedule, error)
}

// ProfileProvider supplies the requester's stored timezone preference
// and phone number for timezone inference.
type ProfileProvider interface {
	Profile(ctx context.Context, userID string) (timezone, phone string, err error)
}

// Debug carries per-request diagnostic counts returned to the caller.
type Debug struct {
	KSTDate        string `json:"kstDate"`
	KSTWeekday     int    `json:"kstWeekday"`
	OneOffRows     int    `json:"oneOffRows"`
	RecurringRows  int    `json:"recurringRows"`
	ExpandedSlots  int    `json:"expandedSlots"`
	AfterDateMatch int    `json:"afterDateMatch"`
	AfterDedupe    int    `json:"afterDedupe"`
	AfterLeadTime  int    `json:"afterLeadTime"`
	Degraded       bool   `json:"degraded,omitempty"`
}

// Result is the resolved availability for one partner and date.
type Result struct {
	Slots        []Slot `json:"slots"`
	UserTimezone string `json:"userTimezone"`
	Debug        Debug  `json:"debug"`
}

// Request names the inputs to a resolution.
type Request struct {
	PartnerID string
	Date      string // YYYY-MM-DD in the requester's timezone
	TZHeader  string // X-User-Timezone, may be empty
	UserID    string // may be empty for anonymous browsing
}

// Resolver computes bookable slots for a partner on a given date,
// converting the partner's KST schedule into the requester's timezone.
type Resolver struct {
	store   ScheduleStore
	profile ProfileProvider
	log     *slog.Logger
	now     func() time.Time
}

func NewResolver(store ScheduleStore, profile ProfileProvider, log *slog.Logger) *Resolver {
	return &Resolver{store: store, profile: profile, log: log, now: time.Now}
}

// Resolve runs the full pipeline: timezone resolution, KST date
// anchoring, schedule reads, slot expansion and conversion, merge,
// sort and lead-time filtering.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	if _, err := time.Parse(kst.DateLayout, req.Date); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, req.Date)
	}

	// Timezone precedence: header, stored preference, phone country
	// code, platform default.
	var storedTZ, phone string
	if req.UserID != "" && r.profile != nil {
		var err error
		storedTZ, phone, err = r.profile.Profile(ctx, req.UserID)
		if err != nil {
			r.log.Warn("profile lookup failed, continuing without stored preference",
				"userId", req.UserID, "err", err)
		}
	}
	tzName := usertz.Resolve(req.TZHeader, storedTZ, phone)
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		loc, _ = time.LoadLocation(usertz.Default)
		tzName = usertz.Default
	}

	kstDate, err := kst.DateIn(req.Date, tzName)
	if err != nil {
		return nil, fmt.Errorf("convert date to KST: %w", err)
	}

	partnerUserID, err := r.store.ResolvePartnerUserID(ctx, req.PartnerID)
	if err != nil {
		return nil, fmt.Errorf("resolve partner: %w", err)
	}

	debug := Debug{KSTDate: kstDate}

	// One-off schedules over a widened window so conversion across the
	// date line cannot miss rows adjacent to the requested date.
	day, _ := time.Parse(kst.DateLayout, kstDate)
	from := day.AddDate(0, 0, -1).Format(kst.DateLayout)
	to := day.AddDate(0, 0, 1).Format(kst.DateLayout)
	oneOff, err := r.store.OneOffAvailable(ctx, partnerUserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load one-off schedules: %w", err)
	}
	debug.OneOffRows = len(oneOff)

	primary, crossCheck, err := kst.Weekday(kstDate)
	if err != nil {
		return nil, fmt.Errorf("weekday of %s: %w", kstDate, err)
	}
	if primary != crossCheck {
		r.log.Warn("weekday methods disagree, using primary",
			"kstDate", kstDate, "primary", int(primary), "crossCheck", int(crossCheck))
	}
	debug.KSTWeekday = int(primary)

	// Recurring read failure degrades to one-off slots only.
	recurring, err := r.store.ActiveRecurring(ctx, partnerUserID, int(primary))
	if err != nil {
		r.log.Warn("recurring schedule query failed, serving one-off slots only",
			"partnerUserId", partnerUserID, "err", err)
		recurring = nil
		debug.Degraded = true
	}
	debug.RecurringRows = len(recurring)

	specific := r.convertOneOff(oneOff, tzName, req.Date, kstDate)
	expanded := r.expandRecurring(recurring, kstDate, tzName, req.Date, &debug)
	debug.AfterDateMatch = len(specific) + len(expanded)

	slots := MergeDedupe(specific, expanded)
	debug.AfterDedupe = len(slots)
	Sort(slots)

	slots = FilterLeadTime(slots, req.Date, loc, r.now())
	debug.AfterLeadTime = len(slots)

	return &Result{Slots: slots, UserTimezone: tzName, Debug: debug}, nil
}

// convertOneOff converts one-off rows to the requester's timezone and
// keeps those landing on the requested date. A row whose converted
// date misses is still kept when its original KST date matches the
// anchored KST date, so authors see what they published.
func (r *Resolver) convertOneOff(rows []model.OneOffSchedule, tzName, requestedDate, kstDate string) []Slot {
	out := make([]Slot, 0, len(rows))
	for _, row := range rows {
		date, start, err := kst.ToUserTZ(row.Date, row.StartTime, tzName)
		if err != nil {
			r.log.Warn("skipping unconvertible one-off schedule", "scheduleId", row.ID, "err", err)
			continue
		}
		_, end, err := kst.ToUserTZ(row.Date, row.EndTime, tzName)
		if err != nil {
			r.log.Warn("skipping unconvertible one-off schedule", "scheduleId", row.ID, "err", err)
			continue
		}
		if date != requestedDate && row.Date != kstDate {
			continue
		}
		out = append(out, Slot{Date: date, StartTime: start, EndTime: end, Source: SourceSpecific})
	}
	return out
}

func (r *Resolver) expandRecurring(rows []model.RecurringSchedule, kstDate, tzName, requestedDate string, debug *Debug) []Slot {
	var out []Slot
	for _, row := range rows {
		slots, err := ExpandWindow(kstDate, row.StartTime, row.EndTime)
		if err != nil {
			r.log.Warn("skipping malformed recurring schedule", "scheduleId", row.ID, "err", err)
			continue
		}
		debug.ExpandedSlots += len(slots)
		for _, s := range slots {
			date, start, err := kst.ToUserTZ(s.Date, s.StartTime, tzName)
			if err != nil {
				continue
			}
			_, end, err := kst.ToUserTZ(s.Date, s.EndTime, tzName)
			if err != nil {
				continue
			}
			if date != requestedDate && s.Date != kstDate {
				continue
			}
			out = append(out, Slot{Date: date, StartTime: start, EndTime: end, Source: SourceRecurring})
		}
	}
	return out
}
