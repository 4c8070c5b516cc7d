// Package usertz resolves the timezone a slot listing should be rendered in.
package usertz

import (
	"strings"
	"time"
)

// Default is the fallback when nothing else resolves. Most requests carry the
// client header or a stored preference, so this is rarely reached.
const Default = "America/Mexico_City"

// Resolve picks the requester's timezone with the precedence
// header > stored preference > phone country code > Default.
func Resolve(header, stored, phone string) string {
	if tz := strings.TrimSpace(header); IsValid(tz) {
		return tz
	}
	if tz := strings.TrimSpace(stored); IsValid(tz) {
		return tz
	}
	if tz := FromPhone(phone); tz != "" {
		return tz
	}
	return Default
}

// IsValid reports whether tz names a loadable IANA zone.
func IsValid(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// dialingPrefixes maps international dialing codes to a representative zone
// for the countries Amiko serves. Multi-zone countries get their most
// populous zone; precision beyond that comes from the stored preference.
var dialingPrefixes = map[string]string{
	"82":  "Asia/Seoul",
	"52":  "America/Mexico_City",
	"51":  "America/Lima",
	"57":  "America/Bogota",
	"54":  "America/Argentina/Buenos_Aires",
	"56":  "America/Santiago",
	"55":  "America/Sao_Paulo",
	"58":  "America/Caracas",
	"591": "America/La_Paz",
	"593": "America/Guayaquil",
	"595": "America/Asuncion",
	"598": "America/Montevideo",
	"502": "America/Guatemala",
	"503": "America/El_Salvador",
	"504": "America/Tegucigalpa",
	"505": "America/Managua",
	"506": "America/Costa_Rica",
	"507": "America/Panama",
	"53":  "America/Havana",
	"1":   "America/Santo_Domingo",
}

// FromPhone infers a timezone from an international phone number's country
// code via longest-prefix match. Returns "" when nothing matches.
func FromPhone(phone string) string {
	digits := normalizePhone(phone)
	if digits == "" {
		return ""
	}
	for l := 3; l >= 1; l-- {
		if len(digits) < l {
			continue
		}
		if tz, ok := dialingPrefixes[digits[:l]]; ok {
			return tz
		}
	}
	return ""
}

func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	// International call prefix.
	digits = strings.TrimPrefix(digits, "00")
	return digits
}
