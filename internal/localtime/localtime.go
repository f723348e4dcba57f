// Package localtime centralizes the naive wall-clock date handling used by
// the clinic backend. Timestamps from the backend carry no zone; they are
// always read as clinic-local time, never as UTC.
package localtime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the ISO calendar date used for leave days and query params.
	DateLayout = "2006-01-02"
	// TimestampLayout is the backend's appointment_datetime format.
	TimestampLayout = "2006-01-02 15:04:05"

	MinutesPerDay = 24 * 60
)

var (
	// ErrInvalidClock is returned for strings that are not a valid HH:MM.
	ErrInvalidClock = errors.New("localtime: invalid HH:MM clock value")
	// ErrInvalidTimestamp is returned for unparseable naive timestamps.
	ErrInvalidTimestamp = errors.New("localtime: invalid naive timestamp")
)

var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseNaiveTimestamp reads "YYYY-MM-DD HH:MM:SS" (or the T-separated form) as
// wall-clock time in loc. Fractional seconds and zone designators are ignored:
// the digits are taken as the clinic's wall clock.
func ParseNaiveTimestamp(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(raw)
	if len(s) > len("2006-01-02T15:04:05") {
		s = s[:len("2006-01-02T15:04:05")]
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}

// FormatTimestamp renders t in the backend's naive timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseDate reads a YYYY-MM-DD string as local midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("localtime: invalid date %q: %w", raw, err)
	}
	return t, nil
}

// FormatDate renders the calendar date of t as YYYY-MM-DD in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay truncates t to local midnight, keeping its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date, each read
// in its own location.
func SameDay(a, b time.Time) bool {
	return FormatDate(a) == FormatDate(b)
}

// MinutesSinceMidnight returns the wall-clock minute of day for t.
func MinutesSinceMidnight(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// At returns the instant at minute-of-day min on date's calendar day.
func At(date time.Time, min int) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, min/60, min%60, 0, 0, date.Location())
}

// ParseClock parses HH:MM (or H:MM) into a minute of day in [0, 1439].
func ParseClock(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || hh == "" || len(mm) != 2 || len(hh) > 2 || !allDigits(hh) || !allDigits(mm) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return h*60 + m, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatClock renders a minute of day as zero-padded 24h HH:MM.
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// Label12h renders a minute of day as "hh:MM AM/PM", e.g. 13:30 -> "01:30 PM".
func Label12h(min int) string {
	h, m := min/60, min%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h12, m, suffix)
}
