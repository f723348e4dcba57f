// Package schedule normalizes raw dentist records into validated recurring
// availability rules.
package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/dentalbook/internal/clinicapi"
	"github.com/wolfman30/dentalbook/internal/localtime"
)

// Status is the dentist's on/off switch.
type Status string

const (
	StatusAvailable Status = "Available"
	// StatusBusy is advisory: slots are still generated, the UI shows a warning.
	StatusBusy Status = "Busy"
	// StatusOff forces zero availability on every date.
	StatusOff Status = "Off"
)

// DayStatus explains why a calendar day is or is not bookable.
type DayStatus string

const (
	DayOpen   DayStatus = "Open"
	DayClosed DayStatus = "Closed"
	DayLeave  DayStatus = "Leave"
	DayOff    DayStatus = "Off"
)

// Default operating hours used when a dentist record has none.
const (
	DefaultOpen  = "09:00"
	DefaultClose = "17:00"
)

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether [start, end) intersects the interval.
func (i Interval) Overlaps(start, end int) bool {
	return start < i.End && end > i.Start
}

// Contains reports whether other lies fully inside i.
func (i Interval) Contains(other Interval) bool {
	return other.Start >= i.Start && other.End <= i.End
}

func (i Interval) String() string {
	return localtime.FormatClock(i.Start) + "-" + localtime.FormatClock(i.End)
}

// Rule is a dentist's normalized recurring availability.
type Rule struct {
	DentistID   string
	DentistName string
	Status      Status
	WorkingDays [7]bool
	Hours       Interval
	Lunch       *Interval
	// Breaks holds the merged, sorted union of the configured breaks.
	Breaks    []Interval
	LeaveDays map[string]struct{}
}

// IsWorkingDay reports whether date accepts bookings: leave days first, then
// the dentist status, then the weekday pattern.
func (r *Rule) IsWorkingDay(date time.Time) bool {
	return r.DayStatus(date) == DayOpen
}

// DayStatus classifies date for calendar rendering.
func (r *Rule) DayStatus(date time.Time) DayStatus {
	if r == nil {
		return DayClosed
	}
	if _, onLeave := r.LeaveDays[localtime.FormatDate(date)]; onLeave {
		return DayLeave
	}
	if r.Status == StatusOff {
		return DayOff
	}
	if !r.WorkingDays[int(date.Weekday())] {
		return DayClosed
	}
	return DayOpen
}

// MinutesWindow returns the operating window as minutes since midnight.
func (r *Rule) MinutesWindow() (int, int) {
	return r.Hours.Start, r.Hours.End
}

// MergedBreaks returns the union of the break intervals in ascending order.
// Rules built by hand may carry overlapping or unsorted breaks.
func (r *Rule) MergedBreaks() []Interval {
	return mergeIntervals(r.Breaks)
}

// Advisory returns a user-facing warning for dentists marked Busy.
func (r *Rule) Advisory() string {
	if r != nil && r.Status == StatusBusy {
		name := r.DentistName
		if name == "" {
			name = "This dentist"
		}
		return name + " is marked busy today; appointments may run late."
	}
	return ""
}

// WorkingWeekdays lists the weekdays the dentist works, Sunday first.
func (r *Rule) WorkingWeekdays() []time.Weekday {
	var days []time.Weekday
	for i, works := range r.WorkingDays {
		if works {
			days = append(days, time.Weekday(i))
		}
	}
	return days
}

// Normalize validates a raw dentist record and builds its Rule. Day indices
// outside 0..6 are dropped, as are leave days that are not YYYY-MM-DD.
// Malformed or out-of-window times fail with *MalformedScheduleError.
func Normalize(d clinicapi.Dentist) (*Rule, error) {
	id := d.ID.String()
	rule := &Rule{
		DentistID:   id,
		DentistName: strings.TrimSpace(d.Name),
		Status:      parseStatus(d.Status),
		LeaveDays:   make(map[string]struct{}, len(d.LeaveDays)),
	}

	for _, day := range d.Days {
		if day < 0 || day > 6 {
			continue
		}
		rule.WorkingDays[day] = true
	}

	hours := clinicapi.TimeRange{Start: DefaultOpen, End: DefaultClose}
	if d.OperatingHours != nil {
		if strings.TrimSpace(d.OperatingHours.Start) != "" {
			hours.Start = d.OperatingHours.Start
		}
		if strings.TrimSpace(d.OperatingHours.End) != "" {
			hours.End = d.OperatingHours.End
		}
	}
	window, err := parseRange(id, "operatingHours", hours)
	if err != nil {
		return nil, err
	}
	rule.Hours = window

	if d.Lunch != nil && (strings.TrimSpace(d.Lunch.Start) != "" || strings.TrimSpace(d.Lunch.End) != "") {
		lunch, err := parseRange(id, "lunch", *d.Lunch)
		if err != nil {
			return nil, err
		}
		if !window.Contains(lunch) {
			return nil, &MalformedScheduleError{DentistID: id, Field: "lunch", Value: lunch.String(), Reason: "outside operating hours " + window.String()}
		}
		rule.Lunch = &lunch
	}

	breaks := make([]Interval, 0, len(d.Breaks))
	for _, b := range d.Breaks {
		iv, err := parseRange(id, "breaks", b)
		if err != nil {
			return nil, err
		}
		if !window.Contains(iv) {
			return nil, &MalformedScheduleError{DentistID: id, Field: "breaks", Value: iv.String(), Reason: "outside operating hours " + window.String()}
		}
		breaks = append(breaks, iv)
	}
	rule.Breaks = mergeIntervals(breaks)

	for _, raw := range d.LeaveDays {
		day, err := localtime.ParseDate(raw, time.UTC)
		if err != nil {
			continue
		}
		rule.LeaveDays[localtime.FormatDate(day)] = struct{}{}
	}

	return rule, nil
}

func parseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "off":
		return StatusOff
	case "busy":
		return StatusBusy
	default:
		return StatusAvailable
	}
}

func parseRange(dentistID, field string, tr clinicapi.TimeRange) (Interval, error) {
	start, err := localtime.ParseClock(tr.Start)
	if err != nil {
		return Interval{}, &MalformedScheduleError{DentistID: dentistID, Field: field + ".start", Value: tr.Start, Reason: "not a valid HH:MM time", Err: err}
	}
	end, err := localtime.ParseClock(tr.End)
	if err != nil {
		return Interval{}, &MalformedScheduleError{DentistID: dentistID, Field: field + ".end", Value: tr.End, Reason: "not a valid HH:MM time", Err: err}
	}
	if start >= end {
		return Interval{}, &MalformedScheduleError{DentistID: dentistID, Field: field, Value: tr.Start + "-" + tr.End, Reason: "start must be before end"}
	}
	return Interval{Start: start, End: end}, nil
}

// mergeIntervals sorts and unions overlapping or touching intervals.
func mergeIntervals(in []Interval) []Interval {
	if len(in) == 0 {
		return nil
	}
	sorted := make([]Interval, len(in))
	copy(sorted, in)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}
