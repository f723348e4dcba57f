// Package booking drives one patient's booking session: who the visit is
// for, which service, which date and slot, and the final submission to the
// clinic backend.
package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/dentalbook/internal/availability"
	"github.com/wolfman30/dentalbook/internal/calendar"
	"github.com/wolfman30/dentalbook/internal/capacity"
	"github.com/wolfman30/dentalbook/internal/catalog"
	"github.com/wolfman30/dentalbook/internal/clinicapi"
	"github.com/wolfman30/dentalbook/internal/identity"
	"github.com/wolfman30/dentalbook/internal/localtime"
	"github.com/wolfman30/dentalbook/internal/schedule"
	"github.com/wolfman30/dentalbook/internal/staleguard"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// BookedVia is stored in the notes of every appointment this service creates.
const BookedVia = "Booked via App"

var bookingTracer = otel.Tracer("dentalbook.internal.booking")

// State is the session's position in the booking flow.
type State string

const (
	StateSelectingPatient State = "selecting_patient"
	StateSelectingDate    State = "selecting_date"
	StateSelectingSlot    State = "selecting_slot"
	StateSubmitting       State = "submitting"
	StateConfirmed        State = "confirmed"
	// StateFailed keeps every selection; the slot-level actions and Submit
	// remain available.
	StateFailed State = "failed"
)

// PatientStore is the patient half of the clinic backend.
type PatientStore interface {
	FindPatientByEmail(ctx context.Context, email string) (*clinicapi.Patient, error)
	CreatePatient(ctx context.Context, req clinicapi.CreatePatientRequest) (*clinicapi.Patient, error)
	ListFamily(ctx context.Context, parentID clinicapi.ID) ([]clinicapi.Patient, error)
}

// AppointmentStore is the appointment half of the clinic backend.
type AppointmentStore interface {
	ListAppointments(ctx context.Context, filter clinicapi.AppointmentFilter) ([]clinicapi.Appointment, error)
	CreateAppointment(ctx context.Context, req clinicapi.CreateAppointmentRequest) (*clinicapi.Appointment, error)
}

// Directory resolves dentist records. Both *clinicapi.Client and
// *clinicapi.DentistCache satisfy it.
type Directory interface {
	GetDentist(ctx context.Context, id clinicapi.ID) (*clinicapi.Dentist, error)
}

// CapacityChecker reports how full a dentist's day is.
type CapacityChecker interface {
	Check(ctx context.Context, dentistID string, date time.Time) (capacity.DailyLoad, error)
}

// Observer receives booking metrics. *metrics.BookingMetrics satisfies it.
type Observer interface {
	ObserveSlots(counts map[string]int)
	ObserveSubmission(outcome string)
	ObserveStaleDiscard()
}

// Deps wires a Session to the backend. Patients, Appointments, Dentists and
// Capacity are required.
type Deps struct {
	Patients     PatientStore
	Appointments AppointmentStore
	Dentists     Directory
	Capacity     CapacityChecker
	Observer     Observer
	Location     *time.Location
	Now          func() time.Time
	// StrictServices rejects services that are not in the catalogue.
	StrictServices bool
	Logger         *logging.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	return d
}

// Selection is what the user has picked so far.
type Selection struct {
	// Patient is the person the visit is for. A zero ID with Self set means
	// the signed-in user, whose record may not exist yet.
	Patient   clinicapi.Patient
	Self      bool
	Service   string
	DentistID string
	Date      string
	Slot      string
}

// Confirmation describes a successful booking.
type Confirmation struct {
	Appointment clinicapi.Appointment
	PatientID   clinicapi.ID
	PatientName string
	DentistName string
	Date        string
	Slot        string
	Service     string
	// CreatedProfile is true when the patient record was created for this
	// booking.
	CreatedProfile bool
}

// Message is the patient-facing success text.
func (c *Confirmation) Message() string {
	name := c.PatientName
	if name == "" {
		name = "you"
	}
	return "Appointment booked for " + name + "!"
}

// Session is one user's booking flow against one dentist. Methods are safe
// for concurrent use; backend calls run without the lock held.
type Session struct {
	deps Deps

	mu         sync.Mutex
	state      State
	user       identity.User
	rule       *schedule.Rule
	profile    *clinicapi.Patient
	profileErr error
	family     []clinicapi.Patient
	selection  Selection
	load       capacity.DailyLoad
	choices    []capacity.Choice
	submitting bool
	lastErr    error

	generation staleguard.Generation
}

// NewSession builds an idle session. Call Start before anything else.
func NewSession(deps Deps) *Session {
	if deps.Patients == nil || deps.Appointments == nil || deps.Dentists == nil || deps.Capacity == nil {
		panic("booking: patients, appointments, dentists and capacity are required")
	}
	return &Session{deps: deps.withDefaults(), state: StateSelectingPatient}
}

// Start loads the dentist's schedule and the signed-in user's patient record
// and family. A user without a record is not an error: ProfileError reports
// it and Submit creates the record first.
func (s *Session) Start(ctx context.Context, user identity.User, dentistID string) error {
	ctx, span := bookingTracer.Start(ctx, "booking.start")
	defer span.End()
	span.SetAttributes(attribute.String("dentalbook.dentist_id", dentistID))

	user.Email = strings.TrimSpace(user.Email)
	if user.Email == "" {
		return &ValidationError{Field: "user", Message: "Please sign in to book an appointment."}
	}
	dentistID = strings.TrimSpace(dentistID)
	if dentistID == "" {
		return &ValidationError{Field: "dentist", Message: "Please choose a dentist."}
	}

	dentist, err := s.deps.Dentists.GetDentist(ctx, clinicapi.ID(dentistID))
	if err != nil {
		span.RecordError(err)
		return classify("load dentist", Selection{DentistID: dentistID}, err)
	}
	rule, err := schedule.Normalize(*dentist)
	if err != nil {
		span.SetStatus(codes.Error, "malformed schedule")
		s.deps.Logger.Warn("dentist schedule rejected", "dentist_id", dentistID, "error", err)
		return err
	}

	profile, err := s.deps.Patients.FindPatientByEmail(ctx, user.Email)
	if err != nil {
		span.RecordError(err)
		return classify("find patient", Selection{DentistID: dentistID}, err)
	}

	var family []clinicapi.Patient
	var profileErr error
	if profile == nil {
		profileErr = &NoProfileError{Email: user.Email}
	} else {
		family, err = s.deps.Patients.ListFamily(ctx, profile.ID)
		if err != nil {
			// Booking for oneself still works without the family list.
			s.deps.Logger.Warn("family lookup failed", "patient_id", profile.ID, "error", err)
			family = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return ErrSubmitInFlight
	}
	s.generation.Next()
	s.user = user
	s.rule = rule
	s.profile = profile
	s.profileErr = profileErr
	s.family = family
	s.selection = Selection{Patient: s.selfLocked(), Self: true, DentistID: rule.DentistID}
	s.choices, s.load = nil, capacity.DailyLoad{}
	s.lastErr = nil
	s.state = StateSelectingDate
	return nil
}

// selfLocked returns the user's own record, or a placeholder built from the
// identity claims when none exists yet.
func (s *Session) selfLocked() clinicapi.Patient {
	if s.profile != nil {
		return *s.profile
	}
	return clinicapi.Patient{FullName: s.user.FullName, Email: s.user.Email}
}

// State reports where the session is in the flow.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ProfileError returns *NoProfileError while the user has no patient record.
func (s *Session) ProfileError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileErr
}

// LastError is the failure that put the session in StateFailed.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Selection returns a copy of the current picks.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Rule returns the dentist's normalized schedule.
func (s *Session) Rule() *schedule.Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rule
}

// Patients lists who the visit can be for: the user first, then family.
func (s *Session) Patients() []clinicapi.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rule == nil {
		return nil
	}
	out := make([]clinicapi.Patient, 0, len(s.family)+1)
	out = append(out, s.selfLocked())
	out = append(out, s.family...)
	return out
}

// SelectPatient switches the visit to the user (empty id or the user's own
// id) or to a linked family member.
func (s *Session) SelectPatient(id clinicapi.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	id = clinicapi.ID(strings.TrimSpace(id.String()))
	if id == "" || (s.profile != nil && id == s.profile.ID) {
		s.selection.Patient = s.selfLocked()
		s.selection.Self = true
		return nil
	}
	for _, member := range s.family {
		if member.ID == id {
			s.selection.Patient = member
			s.selection.Self = false
			return nil
		}
	}
	return &ValidationError{Field: "patient", Message: "Please select who this appointment is for."}
}

// SelectService records the procedure. Catalogue titles and slugs are
// normalized to the catalogue title; free text is kept unless
// StrictServices is set.
func (s *Session) SelectService(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "service", Message: "Please choose a service."}
	}
	if svc, ok := catalog.Lookup(name); ok {
		name = svc.Title
	} else if s.deps.StrictServices {
		return &ValidationError{Field: "service", Message: "We don't offer that service yet."}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.selection.Service = name
	return nil
}

// SelectDate picks the visit date and refreshes that day's appointments and
// capacity. Past and non-working days are refused. When a newer SelectDate
// starts before this one finishes, this call's results are dropped and
// ErrSuperseded is returned.
func (s *Session) SelectDate(ctx context.Context, date time.Time) error {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	now := s.deps.Now().In(s.deps.Location)
	date = localtime.StartOfDay(date.In(s.deps.Location))
	if !calendar.New(s.rule, now).IsSelectable(date) {
		s.mu.Unlock()
		return &ValidationError{Field: "date", Message: "That day is not available. Please pick another date."}
	}
	rule := s.rule
	day := localtime.FormatDate(date)
	s.selection.Date = day
	s.selection.Slot = ""
	s.choices, s.load = nil, capacity.DailyLoad{}
	s.state = StateSelectingSlot
	tok := s.generation.Next()
	s.mu.Unlock()

	ctx, span := bookingTracer.Start(ctx, "booking.select_date")
	defer span.End()
	span.SetAttributes(
		attribute.String("dentalbook.dentist_id", rule.DentistID),
		attribute.String("dentalbook.date", day),
	)

	var (
		appts []clinicapi.Appointment
		load  capacity.DailyLoad
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		appts, err = s.deps.Appointments.ListAppointments(gctx, clinicapi.AppointmentFilter{
			DentistID: clinicapi.ID(rule.DentistID),
			Date:      day,
		})
		return err
	})
	g.Go(func() error {
		var err error
		load, err = s.deps.Capacity.Check(gctx, rule.DentistID, date)
		return err
	})
	fetchErr := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.generation.IsCurrent(tok) {
		span.SetAttributes(attribute.Bool("dentalbook.stale", true))
		if s.deps.Observer != nil {
			s.deps.Observer.ObserveStaleDiscard()
		}
		return ErrSuperseded
	}
	if fetchErr != nil {
		span.RecordError(fetchErr)
		s.deps.Logger.Warn("date refresh failed", "dentist_id", rule.DentistID, "date", day, "error", fetchErr)
		return classify("refresh "+day, s.selection, fetchErr)
	}

	slots := availability.GenerateSlots(rule, date, availability.FromAPI(appts, s.deps.Location), now)
	s.load = load
	s.choices = capacity.Apply(slots, load)
	if s.deps.Observer != nil {
		counts := make(map[string]int, 5)
		for kind, n := range availability.CountByKind(slots) {
			counts[string(kind)] = n
		}
		s.deps.Observer.ObserveSlots(counts)
	}
	return nil
}

// Slots returns the classified slots of the selected date with their
// selectability under the daily cap.
func (s *Session) Slots() []capacity.Choice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]capacity.Choice, len(s.choices))
	copy(out, s.choices)
	return out
}

// Load returns the daily load fetched for the selected date.
func (s *Session) Load() capacity.DailyLoad {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load
}

// SelectSlot picks a start time on the selected date. Only selectable open
// slots are accepted.
func (s *Session) SelectSlot(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	if s.selection.Date == "" {
		return &ValidationError{Field: "date", Message: "Please pick a date first."}
	}
	value = strings.TrimSpace(value)
	for _, c := range s.choices {
		if c.Value != value {
			continue
		}
		if !c.Selectable {
			if s.load.IsFull() {
				return &ValidationError{Field: "slot", Message: "This day is fully booked. Please choose another date."}
			}
			return &ValidationError{Field: "slot", Message: "That time is not available."}
		}
		s.selection.Slot = value
		if s.state == StateFailed {
			s.state = StateSelectingSlot
		}
		return nil
	}
	return &ValidationError{Field: "slot", Message: "That time is not available."}
}

// Warnings lists advisories to show next to the slots.
func (s *Session) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	if msg := s.rule.Advisory(); msg != "" {
		out = append(out, msg)
	}
	if s.selection.Date != "" && s.load.IsFull() {
		name := "The dentist"
		if s.rule != nil && s.rule.DentistName != "" {
			name = s.rule.DentistName
		}
		out = append(out, name+" is fully booked on "+s.selection.Date+".")
	}
	return out
}

// Submit books the selected slot. Only one submission runs at a time; a
// second call returns ErrSubmitInFlight. On failure every selection is kept
// so the user can retry.
func (s *Session) Submit(ctx context.Context) (*Confirmation, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if err := s.validateLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.submitting = true
	s.state = StateSubmitting
	sel := s.selection
	if sel.Service == "" {
		sel.Service = catalog.DefaultProcedure
	}
	needsProfile := sel.Self && s.profile == nil
	user := s.user
	dentistName := s.rule.DentistName
	s.mu.Unlock()

	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("dentalbook.dentist_id", sel.DentistID),
		attribute.String("dentalbook.date", sel.Date),
		attribute.String("dentalbook.slot", sel.Slot),
		attribute.Bool("dentalbook.jit_profile", needsProfile),
	)

	patient := sel.Patient
	if needsProfile {
		created, err := s.createProfile(ctx, user)
		if err != nil {
			return nil, s.fail(span, sel, "create patient", err)
		}
		patient = *created
	}

	appt, err := s.deps.Appointments.CreateAppointment(ctx, clinicapi.CreateAppointmentRequest{
		PatientID: patient.ID,
		DentistID: clinicapi.ID(sel.DentistID),
		TimeStart: sel.Date + " " + sel.Slot + ":00",
		Procedure: sel.Service,
		Status:    clinicapi.StatusScheduled,
		Notes:     BookedVia,
	})
	if err != nil {
		return nil, s.fail(span, sel, "create appointment", err)
	}

	conf := &Confirmation{
		Appointment:    *appt,
		PatientID:      patient.ID,
		PatientName:    patient.FullName,
		DentistName:    dentistName,
		Date:           sel.Date,
		Slot:           sel.Slot,
		Service:        sel.Service,
		CreatedProfile: needsProfile,
	}

	s.mu.Lock()
	s.submitting = false
	s.state = StateConfirmed
	s.lastErr = nil
	s.selection = Selection{Patient: s.selfLocked(), Self: true, DentistID: sel.DentistID}
	s.choices, s.load = nil, capacity.DailyLoad{}
	s.mu.Unlock()

	if s.deps.Observer != nil {
		s.deps.Observer.ObserveSubmission("confirmed")
	}
	s.deps.Logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"patient_id", patient.ID,
		"dentist_id", sel.DentistID,
		"date", sel.Date,
		"slot", sel.Slot,
	)
	return conf, nil
}

// createProfile creates the signed-in user's patient record and stores it so
// a retried submission does not create a second one.
func (s *Session) createProfile(ctx context.Context, user identity.User) (*clinicapi.Patient, error) {
	name := strings.TrimSpace(user.FullName)
	if name == "" {
		name = user.Email
	}
	created, err := s.deps.Patients.CreatePatient(ctx, clinicapi.CreatePatientRequest{
		FullName: name,
		Email:    user.Email,
	})
	if err != nil {
		return nil, err
	}
	s.deps.Logger.Info("created patient record on first booking", "patient_id", created.ID)

	s.mu.Lock()
	s.profile = created
	s.profileErr = nil
	if s.selection.Self {
		s.selection.Patient = *created
	}
	s.mu.Unlock()
	return created, nil
}

func (s *Session) fail(span trace.Span, sel Selection, op string, err error) error {
	classified := classify(op, sel, err)
	span.RecordError(classified)
	span.SetStatus(codes.Error, op)

	outcome := "failed"
	var conflict *CapacityConflictError
	var network *NetworkError
	switch {
	case errors.As(classified, &conflict):
		outcome = "capacity_conflict"
	case errors.As(classified, &network):
		outcome = "network_error"
	}

	s.mu.Lock()
	s.submitting = false
	s.state = StateFailed
	s.lastErr = classified
	s.mu.Unlock()

	if s.deps.Observer != nil {
		s.deps.Observer.ObserveSubmission(outcome)
	}
	s.deps.Logger.Warn("appointment submission failed", "op", op, "outcome", outcome, "dentist_id", sel.DentistID, "date", sel.Date, "slot", sel.Slot, "error", err)
	return classified
}

// editableLocked rejects selection changes before Start and during a
// submission.
func (s *Session) editableLocked() error {
	if s.rule == nil {
		return ErrNotStarted
	}
	if s.submitting {
		return ErrSubmitInFlight
	}
	if s.state == StateConfirmed {
		s.state = StateSelectingDate
	}
	return nil
}

func (s *Session) validateLocked() error {
	if s.rule == nil {
		return ErrNotStarted
	}
	sel := s.selection
	if !sel.Self && sel.Patient.ID == "" {
		return &ValidationError{Field: "patient", Message: "Please select who this appointment is for."}
	}
	if sel.Date == "" {
		return &ValidationError{Field: "date", Message: "Please pick a date."}
	}
	if sel.Slot == "" {
		return &ValidationError{Field: "slot", Message: "Please pick a time."}
	}
	for _, c := range s.choices {
		if c.Value == sel.Slot && c.Selectable {
			return nil
		}
	}
	return &ValidationError{Field: "slot", Message: "That time is no longer available."}
}
