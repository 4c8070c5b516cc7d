package kst

import (
	"testing"
	"time"
)

func TestToKSTAndBack(t *testing.T) {
	// Lima is UTC-5 year round; KST is UTC+9.
	date, clock, err := ToKST("2026-03-02", "20:00", "America/Lima")
	if err != nil {
		t.Fatalf("ToKST failed: %v", err)
	}
	if date != "2026-03-03" || clock != "10:00" {
		t.Fatalf("expected 2026-03-03 10:00 KST, got %s %s", date, clock)
	}

	backDate, backClock, err := ToUserTZ(date, clock, "America/Lima")
	if err != nil {
		t.Fatalf("ToUserTZ failed: %v", err)
	}
	if backDate != "2026-03-02" || backClock != "20:00" {
		t.Fatalf("round trip mismatch: got %s %s", backDate, backClock)
	}
}

func TestRoundTripAcrossZones(t *testing.T) {
	// Round-trip holds away from DST transitions; the chosen dates avoid them.
	zones := []string{"America/Lima", "America/Mexico_City", "America/Sao_Paulo", "Asia/Seoul", "UTC"}
	clocks := []string{"00:00", "09:30", "14:20", "23:50"}
	for _, tz := range zones {
		for _, clock := range clocks {
			kd, kc, err := ToKST("2026-07-15", clock, tz)
			if err != nil {
				t.Fatalf("ToKST(%s %s): %v", clock, tz, err)
			}
			d, c, err := ToUserTZ(kd, kc, tz)
			if err != nil {
				t.Fatalf("ToUserTZ(%s %s): %v", kd, tz, err)
			}
			if d != "2026-07-15" || c != clock {
				t.Fatalf("round trip %s %s via %s: got %s %s", "2026-07-15", clock, tz, d, c)
			}
		}
	}
}

func TestDateRollover(t *testing.T) {
	// 23:50 KST is still the previous day in every Latin American zone.
	date, clock, err := ToUserTZ("2026-03-03", "00:10", "America/Lima")
	if err != nil {
		t.Fatalf("ToUserTZ failed: %v", err)
	}
	if date != "2026-03-02" || clock != "10:10" {
		t.Fatalf("expected rollover to 2026-03-02 10:10, got %s %s", date, clock)
	}
}

func TestDateIn(t *testing.T) {
	// Noon in Lima on March 2 is 02:00 KST on March 3.
	kstDate, err := DateIn("2026-03-02", "America/Lima")
	if err != nil {
		t.Fatalf("DateIn failed: %v", err)
	}
	if kstDate != "2026-03-03" {
		t.Fatalf("expected 2026-03-03, got %s", kstDate)
	}

	// Noon in Seoul is trivially the same KST date.
	same, err := DateIn("2026-03-02", "Asia/Seoul")
	if err != nil {
		t.Fatalf("DateIn failed: %v", err)
	}
	if same != "2026-03-02" {
		t.Fatalf("expected 2026-03-02, got %s", same)
	}
}

func TestWeekdayMethodsAgree(t *testing.T) {
	for _, date := range []string{"2026-03-01", "2026-03-02", "2026-12-31", "2027-01-01"} {
		primary, crossCheck, err := Weekday(date)
		if err != nil {
			t.Fatalf("Weekday(%s): %v", date, err)
		}
		if primary != crossCheck {
			t.Fatalf("weekday methods disagree for %s: %s vs %s", date, primary, crossCheck)
		}
	}
	primary, _, err := Weekday("2026-03-02")
	if err != nil {
		t.Fatalf("Weekday failed: %v", err)
	}
	if primary != time.Monday {
		t.Fatalf("2026-03-02 should be Monday, got %s", primary)
	}
}

func TestInvalidInputs(t *testing.T) {
	if _, _, err := ToKST("2026-03-02", "10:00", "Not/AZone"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
	if _, _, err := ToKST("03-02-2026", "10:00", "UTC"); err == nil {
		t.Fatal("expected error for malformed date")
	}
	if _, err := DateIn("2026-3-2", "UTC"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}
