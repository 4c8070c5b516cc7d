// Package kst converts between Korea Standard Time, the fixed zone in which
// all partner schedules are authored, and arbitrary requester timezones.
// Schedule rows are stored as calendar-date plus wall-clock strings; conversion
// to the requester's zone happens only at read time and is never persisted.
package kst

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var location *time.Location

func init() {
	var err error
	location, err = time.LoadLocation("Asia/Seoul")
	if err != nil {
		location = time.FixedZone("KST", 9*60*60)
	}
}

// Location returns the KST location. Korea has not observed DST since 1988,
// so KST is effectively a fixed UTC+9 offset.
func Location() *time.Location {
	return location
}

// Now returns the current instant in KST.
func Now() time.Time {
	return time.Now().In(location)
}

// ToKST converts a (date, clock) pair from the given IANA zone into KST.
func ToKST(date, clock, tz string) (string, string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", "", fmt.Errorf("load location %q: %w", tz, err)
	}
	return convert(date, clock, loc, location)
}

// ToUserTZ converts a (date, clock) pair from KST into the given IANA zone.
func ToUserTZ(date, clock, tz string) (string, string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", "", fmt.Errorf("load location %q: %w", tz, err)
	}
	return convert(date, clock, location, loc)
}

// DateIn returns the KST calendar date equivalent to the given requester-local
// date. The conversion is anchored at local noon so that ordinary offsets
// (within ±12h of KST) cannot push the result across an extra day boundary.
func DateIn(date, tz string) (string, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("load location %q: %w", tz, err)
	}
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	noon := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc)
	return noon.In(location).Format(DateLayout), nil
}

// Weekday computes the KST weekday for a KST calendar date twice: directly
// from the date, and via a UTC-noon-anchored cross-check. The two methods
// were inherited from the scheduling UI and have been observed to agree; the
// caller logs a warning and proceeds with primary if they ever diverge.
func Weekday(kstDate string) (primary, crossCheck time.Weekday, err error) {
	d, err := time.ParseInLocation(DateLayout, kstDate, location)
	if err != nil {
		return 0, 0, fmt.Errorf("parse kst date %q: %w", kstDate, err)
	}
	primary = d.Weekday()

	utcNoon := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC)
	crossCheck = utcNoon.In(location).Weekday()
	return primary, crossCheck, nil
}

func convert(date, clock string, from, to *time.Location) (string, string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", "", fmt.Errorf("parse date %q: %w", date, err)
	}
	c, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return "", "", fmt.Errorf("parse clock %q: %w", clock, err)
	}
	t := time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, from).In(to)
	return t.Format(DateLayout), t.Format(ClockLayout), nil
}
