package availability

import (
	"testing"
	"time"
)

func TestExpandWindowExactFit(t *testing.T) {
	slots, err := ExpandWindow("2026-03-02", "10:00", "11:00")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	want := [][2]string{{"10:00", "10:20"}, {"10:20", "10:40"}, {"10:40", "11:00"}}
	for i, s := range slots {
		if s.StartTime != want[i][0] || s.EndTime != want[i][1] {
			t.Fatalf("slot %d = %s-%s, want %s-%s", i, s.StartTime, s.EndTime, want[i][0], want[i][1])
		}
		if s.Source != SourceRecurring {
			t.Fatalf("slot %d source = %s", i, s.Source)
		}
	}
}

func TestExpandWindowRemainderDropped(t *testing.T) {
	slots, err := ExpandWindow("2026-03-02", "09:00", "09:50")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(slots))
	}
	if slots[1].EndTime != "09:40" {
		t.Fatalf("last slot ends at %s, want 09:40", slots[1].EndTime)
	}
}

func TestExpandWindowTooShort(t *testing.T) {
	slots, err := ExpandWindow("2026-03-02", "10:00", "10:10")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestExpandWindowInvertedWindow(t *testing.T) {
	slots, err := ExpandWindow("2026-03-02", "11:00", "10:00")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots for inverted window, got %d", len(slots))
	}
}

func TestMergeDedupeSpecificWins(t *testing.T) {
	specific := []Slot{{Date: "2026-03-02", StartTime: "10:00", EndTime: "10:20", Source: SourceSpecific}}
	recurring := []Slot{
		{Date: "2026-03-02", StartTime: "10:00", EndTime: "10:20", Source: SourceRecurring},
		{Date: "2026-03-02", StartTime: "10:20", EndTime: "10:40", Source: SourceRecurring},
	}
	merged := MergeDedupe(specific, recurring)
	if len(merged) != 2 {
		t.Fatalf("expected 2 slots after dedupe, got %d", len(merged))
	}
	for _, s := range merged {
		if s.StartTime == "10:00" && s.Source != SourceSpecific {
			t.Fatalf("collision kept %s, want %s", s.Source, SourceSpecific)
		}
	}
}

func TestSortOrdering(t *testing.T) {
	slots := []Slot{
		{Date: "2026-03-03", StartTime: "09:00", EndTime: "09:20"},
		{Date: "2026-03-02", StartTime: "14:00", EndTime: "14:20"},
		{Date: "2026-03-02", StartTime: "09:00", EndTime: "09:20"},
	}
	Sort(slots)
	if slots[0].Date != "2026-03-02" || slots[0].StartTime != "09:00" {
		t.Fatalf("unexpected first slot %+v", slots[0])
	}
	if slots[2].Date != "2026-03-03" {
		t.Fatalf("unexpected last slot %+v", slots[2])
	}
}

func TestFilterLeadTimeTodayOnly(t *testing.T) {
	loc, err := time.LoadLocation("America/Lima")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, loc)
	slots := []Slot{
		{Date: "2026-03-02", StartTime: "10:15", EndTime: "10:35"}, // 15 min away, dropped
		{Date: "2026-03-02", StartTime: "10:30", EndTime: "10:50"}, // exactly 30 min, kept
		{Date: "2026-03-02", StartTime: "11:00", EndTime: "11:20"}, // kept
	}
	got := FilterLeadTime(append([]Slot(nil), slots...), "2026-03-02", loc, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(got))
	}
	if got[0].StartTime != "10:30" {
		t.Fatalf("first kept slot starts %s, want 10:30", got[0].StartTime)
	}

	// A future date is never filtered, even for early-morning slots.
	future := []Slot{{Date: "2026-03-03", StartTime: "00:10", EndTime: "00:30"}}
	got = FilterLeadTime(append([]Slot(nil), future...), "2026-03-03", loc, now)
	if len(got) != 1 {
		t.Fatalf("future date filtered, got %d slots", len(got))
	}
}
