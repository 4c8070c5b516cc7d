package usertz

import "testing"

func TestResolvePrecedence(t *testing.T) {
	// Header wins over everything.
	if tz := Resolve("America/Lima", "Asia/Seoul", "+52 55 1234 5678"); tz != "America/Lima" {
		t.Fatalf("expected header to win, got %s", tz)
	}
	// Invalid header falls through to stored preference.
	if tz := Resolve("Not/AZone", "Asia/Seoul", "+52 55 1234 5678"); tz != "Asia/Seoul" {
		t.Fatalf("expected stored preference, got %s", tz)
	}
	// Phone inference next.
	if tz := Resolve("", "", "+82 10 1234 5678"); tz != "Asia/Seoul" {
		t.Fatalf("expected phone inference, got %s", tz)
	}
	// Fallback.
	if tz := Resolve("", "", ""); tz != Default {
		t.Fatalf("expected default, got %s", tz)
	}
}

func TestFromPhone(t *testing.T) {
	cases := map[string]string{
		"+82 10-1234-5678": "Asia/Seoul",
		"+51 999 888 777":  "America/Lima",
		"+591 71234567":    "America/La_Paz", // longest prefix beats "59"
		"+5491122334455":   "America/Argentina/Buenos_Aires",
		"0082 10 1234":     "Asia/Seoul", // 00 international prefix
		"":                 "",
		"abc":              "",
	}
	for phone, want := range cases {
		if got := FromPhone(phone); got != want {
			t.Fatalf("FromPhone(%q) = %q, want %q", phone, got, want)
		}
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid("America/Guayaquil") {
		t.Fatal("expected valid zone")
	}
	if IsValid("") || IsValid("Seoul") {
		t.Fatal("expected invalid zones to be rejected")
	}
}
