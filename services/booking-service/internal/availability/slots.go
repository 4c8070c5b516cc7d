package availability

import (
	"sort"
	"time"

	"github.com/amiko-app/amiko/services/booking-service/internal/kst"
)

// SlotDuration is the fixed length of a bookable slot.
const SlotDuration = 20 * time.Minute

// LeadTime is the minimum notice required before a slot starts. It is
// applied only when the requested date is today in the user's timezone.
const LeadTime = 30 * time.Minute

const (
	SourceSpecific  = "specific"
	SourceRecurring = "recurring"
)

// Slot is a single bookable window expressed in the user's timezone.
type Slot struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Source    string `json:"source"`
}

type slotKey struct {
	date  string
	start string
	end   string
}

// ExpandWindow splits a [start, end) window on a KST date into
// consecutive fixed-length slots. A window shorter than one slot
// yields nothing; a trailing remainder is discarded.
func ExpandWindow(kstDate, startClock, endClock string) ([]Slot, error) {
	start, err := time.ParseInLocation(kst.ClockLayout, startClock, time.UTC)
	if err != nil {
		return nil, err
	}
	end, err := time.ParseInLocation(kst.ClockLayout, endClock, time.UTC)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, nil
	}
	n := int(end.Sub(start) / SlotDuration)
	slots := make([]Slot, 0, n)
	for i := 0; i < n; i++ {
		s := start.Add(time.Duration(i) * SlotDuration)
		e := s.Add(SlotDuration)
		slots = append(slots, Slot{
			Date:      kstDate,
			StartTime: s.Format(kst.ClockLayout),
			EndTime:   e.Format(kst.ClockLayout),
			Source:    SourceRecurring,
		})
	}
	return slots, nil
}

// MergeDedupe combines one-off and recurring slots. When both sources
// produce the same (date, start, end) triple the one-off slot wins.
func MergeDedupe(specific, recurring []Slot) []Slot {
	seen := make(map[slotKey]struct{}, len(specific)+len(recurring))
	out := make([]Slot, 0, len(specific)+len(recurring))
	for _, s := range specific {
		k := slotKey{s.Date, s.StartTime, s.EndTime}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	for _, s := range recurring {
		k := slotKey{s.Date, s.StartTime, s.EndTime}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Sort orders slots ascending by date, then start time, then end time.
func Sort(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Date != slots[j].Date {
			return slots[i].Date < slots[j].Date
		}
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].EndTime < slots[j].EndTime
	})
}

// FilterLeadTime drops slots starting less than LeadTime from now,
// but only when the requested date is today in the user's timezone.
// Dates in the past or future pass through untouched.
func FilterLeadTime(slots []Slot, requestedDate string, loc *time.Location, now time.Time) []Slot {
	today := now.In(loc).Format(kst.DateLayout)
	if requestedDate != today {
		return slots
	}
	cutoff := now.Add(LeadTime)
	out := slots[:0]
	for _, s := range slots {
		start, err := time.ParseInLocation(kst.DateLayout+" "+kst.ClockLayout, s.Date+" "+s.StartTime, loc)
		if err != nil {
			continue
		}
		if !start.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}
