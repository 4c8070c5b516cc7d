package render

import (
	"strings"
	"testing"
)

func TestBookingCreatedKorean(t *testing.T) {
	msg := BookingCreated("ko", BookingInfo{Date: "2026-03-01", StartTime: "20:00", EndTime: "20:20"})
	if msg.Subject != "예약이 확정되었습니다" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "2026-03-01") || !strings.Contains(msg.Body, "20:00~20:20") {
		t.Fatalf("body missing booking details: %q", msg.Body)
	}
}

func TestBookingCreatedSpanish(t *testing.T) {
	msg := BookingCreated("es", BookingInfo{Date: "2026-03-01", StartTime: "06:00", EndTime: "06:20"})
	if msg.Subject != "Tu reserva está confirmada" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "de 06:00 a 06:20") {
		t.Fatalf("body missing time range: %q", msg.Body)
	}
}

func TestUnknownLanguageFallsBackToSpanish(t *testing.T) {
	msg := Welcome("en")
	if msg.Subject != "Bienvenido a Amiko" {
		t.Fatalf("expected Spanish fallback, got %q", msg.Subject)
	}
}

func TestBookingCancelledBothLanguages(t *testing.T) {
	info := BookingInfo{Date: "2026-03-05", StartTime: "21:00", EndTime: "21:20"}
	ko := BookingCancelled("ko", info)
	es := BookingCancelled("es", info)
	if ko.Subject == es.Subject {
		t.Fatalf("expected distinct subjects, got %q", ko.Subject)
	}
	if !strings.Contains(es.Body, "cancelada") {
		t.Fatalf("spanish body missing cancellation notice: %q", es.Body)
	}
}
