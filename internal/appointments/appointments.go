// Package appointments answers "what is booked for me" for a signed-in
// patient.
package appointments

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/dentalbook/internal/clinicapi"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// Entry is an appointment with its parsed wall-clock start. HasStart is
// false when the backend sent an unparseable timestamp.
type Entry struct {
	clinicapi.Appointment
	StartsAt time.Time `json:"starts_at"`
	HasStart bool      `json:"-"`
}

// Closed reports whether the appointment no longer needs the patient.
func (e Entry) Closed() bool {
	return e.Status == clinicapi.StatusDone || e.Status == clinicapi.StatusCancelled
}

// Source is the slice of the clinic backend this package reads.
type Source interface {
	FindPatientByEmail(ctx context.Context, email string) (*clinicapi.Patient, error)
	ListAppointments(ctx context.Context, filter clinicapi.AppointmentFilter) ([]clinicapi.Appointment, error)
}

// Service loads a patient's appointments.
type Service struct {
	source Source
	loc    *time.Location
	logger *logging.Logger
}

func NewService(source Source, loc *time.Location, logger *logging.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{source: source, loc: loc, logger: logger}
}

// ForEmail returns the appointments of the patient registered under email,
// oldest first. A user without a patient record has no appointments.
func (s *Service) ForEmail(ctx context.Context, email string) ([]Entry, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	patient, err := s.source.FindPatientByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("appointments: find patient: %w", err)
	}
	if patient == nil {
		s.logger.Debug("no patient record for user", "email", email)
		return nil, nil
	}
	appts, err := s.source.ListAppointments(ctx, clinicapi.AppointmentFilter{PatientID: patient.ID})
	if err != nil {
		return nil, fmt.Errorf("appointments: list for patient %s: %w", patient.ID, err)
	}
	return Sorted(appts, s.loc), nil
}

// UpcomingForEmail returns the patient's next open appointment after now,
// or nil.
func (s *Service) UpcomingForEmail(ctx context.Context, email string, now time.Time) (*Entry, error) {
	entries, err := s.ForEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return Next(entries, now), nil
}

// Sorted parses and orders appointments by start. Rows with unparseable
// timestamps sort last, in their original order.
func Sorted(appts []clinicapi.Appointment, loc *time.Location) []Entry {
	entries := make([]Entry, 0, len(appts))
	for _, a := range appts {
		start, err := a.Start(loc)
		entries = append(entries, Entry{Appointment: a, StartsAt: start, HasStart: err == nil})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.HasStart != b.HasStart {
			return a.HasStart
		}
		return a.StartsAt.Before(b.StartsAt)
	})
	return entries
}

// Next returns the earliest entry strictly after now that is neither Done
// nor Cancelled.
func Next(entries []Entry, now time.Time) *Entry {
	var best *Entry
	for i := range entries {
		e := entries[i]
		if !e.HasStart || e.Closed() || !e.StartsAt.After(now) {
			continue
		}
		if best == nil || e.StartsAt.Before(best.StartsAt) {
			best = &entries[i]
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}
