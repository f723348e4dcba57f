package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/dentalbook/internal/availability"
	"github.com/wolfman30/dentalbook/internal/calendar"
	"github.com/wolfman30/dentalbook/internal/capacity"
	"github.com/wolfman30/dentalbook/internal/clinicapi"
	"github.com/wolfman30/dentalbook/internal/localtime"
	"github.com/wolfman30/dentalbook/internal/schedule"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// DentistDirectory lists and resolves dentist records.
// *clinicapi.DentistCache satisfies it.
type DentistDirectory interface {
	ListDentists(ctx context.Context) ([]clinicapi.Dentist, error)
	GetDentist(ctx context.Context, id clinicapi.ID) (*clinicapi.Dentist, error)
}

// AppointmentLister reads a dentist's appointments for one day.
type AppointmentLister interface {
	ListAppointments(ctx context.Context, filter clinicapi.AppointmentFilter) ([]clinicapi.Appointment, error)
}

// CapacityChecker reports how full a dentist's day is. *capacity.Gate
// satisfies it.
type CapacityChecker interface {
	Check(ctx context.Context, dentistID string, date time.Time) (capacity.DailyLoad, error)
}

// SlotObserver counts generated slots by kind.
type SlotObserver interface {
	ObserveSlots(counts map[string]int)
}

// DentistsHandler serves the dentist directory, month calendars and
// per-day availability.
type DentistsHandler struct {
	dentists     DentistDirectory
	appointments AppointmentLister
	capacity     CapacityChecker
	observer     SlotObserver
	clock        clock
	logger       *logging.Logger
}

// DentistsConfig wires a DentistsHandler.
type DentistsConfig struct {
	Dentists     DentistDirectory
	Appointments AppointmentLister
	Capacity     CapacityChecker
	Observer     SlotObserver
	Location     *time.Location
	Now          func() time.Time
	Logger       *logging.Logger
}

// NewDentistsHandler creates a new dentists handler.
func NewDentistsHandler(cfg DentistsConfig) *DentistsHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &DentistsHandler{
		dentists:     cfg.Dentists,
		appointments: cfg.Appointments,
		capacity:     cfg.Capacity,
		observer:     cfg.Observer,
		clock:        newClock(cfg.Location, cfg.Now),
		logger:       cfg.Logger,
	}
}

// DentistResponse is a dentist's normalized schedule.
type DentistResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Specialization string   `json:"specialization,omitempty"`
	Status         string   `json:"status"`
	WorkingDays    []string `json:"working_days"`
	Hours          string   `json:"hours,omitempty"`
	Lunch          string   `json:"lunch,omitempty"`
	Breaks         []string `json:"breaks,omitempty"`
	LeaveDays      []string `json:"leave_days,omitempty"`
	Advisory       string   `json:"advisory,omitempty"`
	Bookable       bool     `json:"bookable"`
	ScheduleError  string   `json:"schedule_error,omitempty"`
}

func dentistResponse(d clinicapi.Dentist, rule *schedule.Rule, ruleErr error) DentistResponse {
	resp := DentistResponse{
		ID:             d.ID.String(),
		Name:           d.Name,
		Specialization: d.Specialization,
		Status:         d.Status,
		WorkingDays:    []string{},
	}
	if ruleErr != nil {
		resp.ScheduleError = "This dentist's schedule is unavailable right now."
		return resp
	}
	resp.Status = string(rule.Status)
	for _, wd := range rule.WorkingWeekdays() {
		resp.WorkingDays = append(resp.WorkingDays, wd.String())
	}
	resp.Hours = rule.Hours.String()
	if rule.Lunch != nil {
		resp.Lunch = rule.Lunch.String()
	}
	for _, b := range rule.MergedBreaks() {
		resp.Breaks = append(resp.Breaks, b.String())
	}
	for day := range rule.LeaveDays {
		resp.LeaveDays = append(resp.LeaveDays, day)
	}
	sort.Strings(resp.LeaveDays)
	resp.Advisory = rule.Advisory()
	resp.Bookable = rule.Status != schedule.StatusOff && len(resp.WorkingDays) > 0
	return resp
}

// ListDentists returns every dentist with its normalized schedule. A
// dentist with a malformed schedule is listed but not bookable.
func (h *DentistsHandler) ListDentists(w http.ResponseWriter, r *http.Request) {
	dentists, err := h.dentists.ListDentists(r.Context())
	if err != nil {
		h.logger.Error("failed to list dentists", "error", err)
		h.backendError(w, err)
		return
	}

	out := make([]DentistResponse, 0, len(dentists))
	for _, d := range dentists {
		rule, ruleErr := schedule.Normalize(d)
		if ruleErr != nil {
			h.logger.Warn("dentist schedule rejected", "dentist_id", d.ID, "error", ruleErr)
		}
		out = append(out, dentistResponse(d, rule, ruleErr))
	}
	writeJSON(w, http.StatusOK, map[string]any{"dentists": out})
}

// CalendarResponse is one month of a dentist's calendar.
type CalendarResponse struct {
	DentistID string         `json:"dentist_id"`
	Month     string         `json:"month"`
	Today     string         `json:"today"`
	Advisory  string         `json:"advisory,omitempty"`
	Days      []calendar.Day `json:"days"`
}

// Calendar renders ?month=YYYY-MM (default: the current month) for a
// dentist, marking each day with its status and selectability.
func (h *DentistsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}
	now := h.clock.Now()
	state := calendar.New(rule, now)
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		month, err := calendar.ParseMonth(raw, h.clock.loc)
		if err != nil {
			jsonError(w, "month must be YYYY-MM", http.StatusBadRequest)
			return
		}
		state.Show(month)
	}

	writeJSON(w, http.StatusOK, CalendarResponse{
		DentistID: rule.DentistID,
		Month:     state.Month().Format(calendar.MonthLayout),
		Today:     localtime.FormatDate(now),
		Advisory:  rule.Advisory(),
		Days:      state.Days(),
	})
}

// AvailabilityResponse is the classified slot list of one day.
type AvailabilityResponse struct {
	DentistID  string              `json:"dentist_id"`
	Date       string              `json:"date"`
	DayStatus  schedule.DayStatus  `json:"day_status"`
	Selectable bool                `json:"selectable"`
	Load       *capacity.DailyLoad `json:"load,omitempty"`
	Full       bool                `json:"full"`
	FirstOpen  string              `json:"first_open,omitempty"`
	Slots      []capacity.Choice   `json:"slots"`
	Warnings   []string            `json:"warnings,omitempty"`
}

// Availability returns the slots of ?date=YYYY-MM-DD. Appointments and the
// daily load are fetched in parallel. Days that cannot be picked come back
// with no slots and the reason in day_status.
func (h *DentistsHandler) Availability(w http.ResponseWriter, r *http.Request) {
	date, err := localtime.ParseDate(r.URL.Query().Get("date"), h.clock.loc)
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	rule, ok := h.loadRule(w, r)
	if !ok {
		return
	}
	now := h.clock.Now()
	day := localtime.FormatDate(date)

	resp := AvailabilityResponse{
		DentistID: rule.DentistID,
		Date:      day,
		DayStatus: rule.DayStatus(date),
		Slots:     []capacity.Choice{},
	}
	if msg := rule.Advisory(); msg != "" {
		resp.Warnings = append(resp.Warnings, msg)
	}
	if !calendar.New(rule, now).IsSelectable(date) {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Selectable = true

	var (
		appts []clinicapi.Appointment
		load  capacity.DailyLoad
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		appts, err = h.appointments.ListAppointments(gctx, clinicapi.AppointmentFilter{
			DentistID: clinicapi.ID(rule.DentistID),
			Date:      day,
		})
		return err
	})
	g.Go(func() error {
		var err error
		load, err = h.capacity.Check(gctx, rule.DentistID, date)
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Warn("availability refresh failed", "dentist_id", rule.DentistID, "date", day, "error", err)
		h.backendError(w, err)
		return
	}

	slots := availability.GenerateSlots(rule, date, availability.FromAPI(appts, h.clock.loc), now)
	if h.observer != nil {
		counts := make(map[string]int, 5)
		for kind, n := range availability.CountByKind(slots) {
			counts[string(kind)] = n
		}
		h.observer.ObserveSlots(counts)
	}

	resp.Load = &load
	resp.Full = load.IsFull()
	resp.Slots = capacity.Apply(slots, load)
	if first, ok := availability.FirstOpen(slots); ok && !resp.Full {
		resp.FirstOpen = first.Value
	}
	if resp.Full {
		name := rule.DentistName
		if name == "" {
			name = "The dentist"
		}
		resp.Warnings = append(resp.Warnings, name+" is fully booked on "+day+".")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *DentistsHandler) loadRule(w http.ResponseWriter, r *http.Request) (*schedule.Rule, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "dentistID"))
	if id == "" {
		jsonError(w, "missing dentistID", http.StatusBadRequest)
		return nil, false
	}
	dentist, err := h.dentists.GetDentist(r.Context(), clinicapi.ID(id))
	if err != nil {
		h.backendError(w, err)
		return nil, false
	}
	rule, err := schedule.Normalize(*dentist)
	if err != nil {
		h.logger.Warn("dentist schedule rejected", "dentist_id", id, "error", err)
		jsonError(w, "This dentist's schedule is unavailable right now.", http.StatusUnprocessableEntity)
		return nil, false
	}
	return rule, true
}

func (h *DentistsHandler) backendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinicapi.ErrNotFound):
		jsonError(w, "dentist not found", http.StatusNotFound)
	case clinicapi.IsNetwork(err):
		jsonError(w, "clinic backend unavailable", http.StatusBadGateway)
	default:
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
