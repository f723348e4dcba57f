// Package availability computes the bookable half-hour slots of a dentist's
// day from the schedule rule and the appointments already on the books.
package availability

import (
	"time"

	"github.com/wolfman30/dentalbook/internal/clinicapi"
	"github.com/wolfman30/dentalbook/internal/localtime"
	"github.com/wolfman30/dentalbook/internal/schedule"
)

// SlotMinutes is the fixed bucket size.
const SlotMinutes = 30

// Kind classifies a slot. Only KindOpen slots are bookable.
type Kind string

const (
	KindOpen   Kind = "open"
	KindLunch  Kind = "lunch"
	KindBreak  Kind = "break"
	KindPast   Kind = "past"
	KindBooked Kind = "booked"
)

// Slot is one 30-minute bucket of a dentist's day.
type Slot struct {
	// Value is the canonical 24h HH:MM start time.
	Value string `json:"value"`
	// Label is the display text: 12h time, or "Lunch"/"Break".
	Label string `json:"label"`
	Kind  Kind   `json:"type"`
	Start int    `json:"-"`
}

// IsOpen reports whether the slot is free to book.
func (s Slot) IsOpen() bool { return s.Kind == KindOpen }

// BookedAppointment is an existing appointment as seen by the generator.
type BookedAppointment struct {
	DentistID string
	Start     time.Time
	Status    string
}

// Occupies reports whether the appointment blocks a slot. Cancelled
// appointments free their slot.
func (a BookedAppointment) Occupies() bool {
	return a.Status != clinicapi.StatusCancelled
}

// FromAPI converts backend appointments, dropping rows whose timestamp does
// not parse.
func FromAPI(appts []clinicapi.Appointment, loc *time.Location) []BookedAppointment {
	out := make([]BookedAppointment, 0, len(appts))
	for _, a := range appts {
		start, err := a.Start(loc)
		if err != nil {
			continue
		}
		out = append(out, BookedAppointment{
			DentistID: a.DentistID.String(),
			Start:     start,
			Status:    a.Status,
		})
	}
	return out
}

// GenerateSlots returns every 30-minute bucket of the operating window on
// date, ascending. now decides which of today's buckets are past. An empty
// list means the dentist does not work that day; callers tell "closed" from
// "fully booked" with rule.IsWorkingDay.
func GenerateSlots(rule *schedule.Rule, date time.Time, booked []BookedAppointment, now time.Time) []Slot {
	if rule == nil || !rule.IsWorkingDay(date) {
		return []Slot{}
	}

	day := localtime.FormatDate(date)
	isToday := day == localtime.FormatDate(now)
	nowMin := localtime.MinutesSinceMidnight(now)

	var taken []schedule.Interval
	for _, appt := range booked {
		if !appt.Occupies() {
			continue
		}
		if appt.DentistID != "" && appt.DentistID != rule.DentistID {
			continue
		}
		if localtime.FormatDate(appt.Start) != day {
			continue
		}
		start := localtime.MinutesSinceMidnight(appt.Start)
		taken = append(taken, schedule.Interval{Start: start, End: start + SlotMinutes})
	}

	breaks := rule.MergedBreaks()
	openMin, closeMin := rule.MinutesWindow()

	slots := make([]Slot, 0, (closeMin-openMin)/SlotMinutes)
	for t := openMin; t+SlotMinutes <= closeMin; t += SlotMinutes {
		end := t + SlotMinutes
		slot := Slot{
			Value: localtime.FormatClock(t),
			Label: localtime.Label12h(t),
			Kind:  KindOpen,
			Start: t,
		}

		switch {
		case rule.Lunch != nil && rule.Lunch.Overlaps(t, end):
			slot.Kind = KindLunch
			slot.Label = "Lunch"
		case overlapsAny(breaks, t, end):
			slot.Kind = KindBreak
			slot.Label = "Break"
		case isToday && t <= nowMin:
			slot.Kind = KindPast
		case overlapsAny(taken, t, end):
			slot.Kind = KindBooked
		}
		slots = append(slots, slot)
	}
	return slots
}

func overlapsAny(intervals []schedule.Interval, start, end int) bool {
	for _, iv := range intervals {
		if iv.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// FirstOpen returns the earliest open slot.
func FirstOpen(slots []Slot) (Slot, bool) {
	for _, s := range slots {
		if s.IsOpen() {
			return s, true
		}
	}
	return Slot{}, false
}

// OpenSlots filters to bookable slots, keeping order.
func OpenSlots(slots []Slot) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if s.IsOpen() {
			out = append(out, s)
		}
	}
	return out
}

// FindSlot looks up a slot by its HH:MM value.
func FindSlot(slots []Slot, value string) (Slot, bool) {
	for _, s := range slots {
		if s.Value == value {
			return s, true
		}
	}
	return Slot{}, false
}

// CountByKind tallies slots per classification.
func CountByKind(slots []Slot) map[Kind]int {
	counts := make(map[Kind]int, 5)
	for _, s := range slots {
		counts[s.Kind]++
	}
	return counts
}
