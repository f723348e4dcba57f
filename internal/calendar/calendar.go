// Package calendar holds the month-view state used to pick a booking date.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/dentalbook/internal/localtime"
	"github.com/wolfman30/dentalbook/internal/schedule"
)

// MonthLayout is the YYYY-MM form used in query strings.
const MonthLayout = "2006-01"

// Day is one cell of the month grid. Leading cells before the first of the
// month are Blank and carry nothing else.
type Day struct {
	Date       string             `json:"date,omitempty"`
	Number     int                `json:"day,omitempty"`
	Blank      bool               `json:"blank,omitempty"`
	Status     schedule.DayStatus `json:"status,omitempty"`
	Past       bool               `json:"past,omitempty"`
	Today      bool               `json:"today,omitempty"`
	Selectable bool               `json:"selectable"`
	Selected   bool               `json:"selected,omitempty"`
}

// State is the navigable month view for one dentist. It is not safe for
// concurrent use.
type State struct {
	rule     *schedule.Rule
	today    time.Time
	month    time.Time
	selected *time.Time
}

// New opens the calendar on today's month.
func New(rule *schedule.Rule, today time.Time) *State {
	today = localtime.StartOfDay(today)
	return &State{
		rule:  rule,
		today: today,
		month: firstOfMonth(today),
	}
}

// Month returns the first day of the displayed month.
func (s *State) Month() time.Time { return s.month }

// Prev moves one month back. Navigation is unconstrained.
func (s *State) Prev() { s.month = s.month.AddDate(0, -1, 0) }

// Next moves one month forward.
func (s *State) Next() { s.month = s.month.AddDate(0, 1, 0) }

// Show jumps to the month containing t.
func (s *State) Show(t time.Time) {
	s.month = firstOfMonth(t.In(s.today.Location()))
}

// IsSelectable reports whether date can be picked: not before today and a
// working day for the dentist.
func (s *State) IsSelectable(date time.Time) bool {
	day := localtime.StartOfDay(date.In(s.today.Location()))
	if day.Before(s.today) {
		return false
	}
	return s.rule.IsWorkingDay(day)
}

// Select picks date. Disabled dates leave the selection untouched and
// return false.
func (s *State) Select(date time.Time) bool {
	if !s.IsSelectable(date) {
		return false
	}
	day := localtime.StartOfDay(date.In(s.today.Location()))
	s.selected = &day
	return true
}

// Selected returns the picked date, if any.
func (s *State) Selected() (time.Time, bool) {
	if s.selected == nil {
		return time.Time{}, false
	}
	return *s.selected, true
}

// Clear drops the selection.
func (s *State) Clear() { s.selected = nil }

// Days renders the displayed month with leading blanks so the first cell
// lines up with its weekday column, Sunday first.
func (s *State) Days() []Day {
	offset := int(s.month.Weekday())
	last := s.month.AddDate(0, 1, -1).Day()

	days := make([]Day, 0, offset+last)
	for i := 0; i < offset; i++ {
		days = append(days, Day{Blank: true})
	}
	for n := 1; n <= last; n++ {
		date := time.Date(s.month.Year(), s.month.Month(), n, 0, 0, 0, 0, s.month.Location())
		cell := Day{
			Date:       localtime.FormatDate(date),
			Number:     n,
			Status:     s.rule.DayStatus(date),
			Past:       date.Before(s.today),
			Today:      date.Equal(s.today),
			Selectable: s.IsSelectable(date),
		}
		if s.selected != nil && s.selected.Equal(date) {
			cell.Selected = true
		}
		days = append(days, cell)
	}
	return days
}

// ParseMonth reads YYYY-MM as the first day of that month in loc.
func ParseMonth(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(MonthLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("calendar: invalid month %q: %w", raw, err)
	}
	return t, nil
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
