// Package capacity enforces the per-dentist daily booking cap on top of the
// generated slots.
package capacity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/dentalbook/internal/availability"
	"github.com/wolfman30/dentalbook/internal/clinicapi"
	"github.com/wolfman30/dentalbook/internal/localtime"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// DefaultDailyLimit applies when the backend reports no cap.
const DefaultDailyLimit = 5

var ErrMissingDentist = errors.New("capacity: dentist id is required")

// DailyLoad is how full a dentist's day is.
type DailyLoad struct {
	DentistID string `json:"dentist_id"`
	Date      string `json:"date"`
	Booked    int    `json:"booked"`
	Limit     int    `json:"limit"`
}

// IsFull reports whether no more bookings fit. A zero-value load is never full.
func (l DailyLoad) IsFull() bool {
	return l.Limit > 0 && l.Booked >= l.Limit
}

// Remaining returns how many bookings still fit, never negative.
func (l DailyLoad) Remaining() int {
	if l.Limit <= 0 {
		return 0
	}
	if r := l.Limit - l.Booked; r > 0 {
		return r
	}
	return 0
}

// LimitChecker is the backend call behind the gate.
type LimitChecker interface {
	CheckLimit(ctx context.Context, dentistID clinicapi.ID, date string) (*clinicapi.DailyLimit, error)
}

// Observer receives one event per lookup.
type Observer interface {
	ObserveCapacityCheck(full bool, err error)
}

// Gate looks up the daily load for a dentist and date.
type Gate struct {
	checker      LimitChecker
	defaultLimit int
	observer     Observer
	logger       *logging.Logger
}

// NewGate builds a Gate. defaultLimit <= 0 uses DefaultDailyLimit; observer may be nil.
func NewGate(checker LimitChecker, defaultLimit int, observer Observer, logger *logging.Logger) *Gate {
	if checker == nil {
		panic("capacity: limit checker cannot be nil")
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultDailyLimit
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Gate{checker: checker, defaultLimit: defaultLimit, observer: observer, logger: logger}
}

// Check fetches the load for dentistID on date.
func (g *Gate) Check(ctx context.Context, dentistID string, date time.Time) (DailyLoad, error) {
	dentistID = strings.TrimSpace(dentistID)
	if dentistID == "" {
		return DailyLoad{}, ErrMissingDentist
	}
	day := localtime.FormatDate(date)

	resp, err := g.checker.CheckLimit(ctx, clinicapi.ID(dentistID), day)
	if err != nil {
		g.notify(false, err)
		return DailyLoad{}, fmt.Errorf("capacity: check %s on %s: %w", dentistID, day, err)
	}

	load := DailyLoad{DentistID: dentistID, Date: day, Limit: g.defaultLimit}
	if resp != nil {
		load.Booked = resp.Count
		if resp.Limit > 0 {
			load.Limit = resp.Limit
		}
	}
	if load.IsFull() {
		g.logger.Debug("dentist fully booked", "dentist_id", dentistID, "date", day, "booked", load.Booked, "limit", load.Limit)
	}
	g.notify(load.IsFull(), nil)
	return load, nil
}

func (g *Gate) notify(full bool, err error) {
	if g.observer != nil {
		g.observer.ObserveCapacityCheck(full, err)
	}
}

// Choice is a slot paired with whether the user may pick it.
type Choice struct {
	availability.Slot
	Selectable bool `json:"selectable"`
}

// Apply marks each slot selectable when it is open and the day is not full.
// Slot kinds are left untouched.
func Apply(slots []availability.Slot, load DailyLoad) []Choice {
	full := load.IsFull()
	out := make([]Choice, len(slots))
	for i, s := range slots {
		out[i] = Choice{Slot: s, Selectable: s.IsOpen() && !full}
	}
	return out
}

// Selectable filters choices down to the ones the user may pick.
func Selectable(choices []Choice) []Choice {
	out := make([]Choice, 0, len(choices))
	for _, c := range choices {
		if c.Selectable {
			out = append(out, c)
		}
	}
	return out
}
