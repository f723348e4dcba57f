package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/dentalbook/internal/appointments"
	"github.com/wolfman30/dentalbook/internal/booking"
	"github.com/wolfman30/dentalbook/internal/capacity"
	"github.com/wolfman30/dentalbook/internal/clinicapi"
	"github.com/wolfman30/dentalbook/internal/identity"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// Sunday morning. Wednesday 2026-10-21 is a working day for dentist 7.
var testNow = time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

// fakeClinic is an in-memory clinic backend served over httptest.
type fakeClinic struct {
	mu sync.Mutex

	dentists     string
	appointments []clinicapi.Appointment
	patients     []clinicapi.Patient
	limit        clinicapi.DailyLimit
	// createStatus, when set, is returned by POST /api/appointments.
	createStatus int
	createBody   string

	patientPosts int
	apptPosts    []clinicapi.CreateAppointmentRequest
}

func newFakeClinic() *fakeClinic {
	return &fakeClinic{
		dentists: `[
			{"id": 7, "name": "Dr. Reyes", "status": "Available", "days": [1, 3, 5],
			 "operatingHours": {"start": "09:00", "end": "17:00"},
			 "lunch": {"start": "12:00", "end": "13:00"},
			 "leaveDays": ["2026-10-23"]},
			{"id": 8, "name": "Dr. Cruz", "status": "Off", "days": [1, 2]},
			{"id": 9, "name": "Dr. Broken", "status": "Available", "days": [1],
			 "operatingHours": {"start": "9am", "end": "17:00"}}
		]`,
		limit: clinicapi.DailyLimit{Count: 1, Limit: 5},
	}
}

func (f *fakeClinic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/dentists":
		_, _ = io.WriteString(w, f.dentists)
	case r.Method == http.MethodGet && r.URL.Path == "/api/appointments/check-limit":
		_ = json.NewEncoder(w).Encode(f.limit)
	case r.Method == http.MethodGet && r.URL.Path == "/api/appointments":
		_ = json.NewEncoder(w).Encode(f.appointments)
	case r.Method == http.MethodPost && r.URL.Path == "/api/appointments":
		var req clinicapi.CreateAppointmentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.apptPosts = append(f.apptPosts, req)
		if f.createStatus != 0 {
			w.WriteHeader(f.createStatus)
			_, _ = io.WriteString(w, f.createBody)
			return
		}
		appt := clinicapi.Appointment{
			ID:        "501",
			PatientID: req.PatientID,
			DentistID: req.DentistID,
			DateTime:  req.TimeStart,
			Procedure: req.Procedure,
			Status:    req.Status,
		}
		f.appointments = append(f.appointments, appt)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(appt)
	case r.Method == http.MethodGet && r.URL.Path == "/api/patients":
		email := r.URL.Query().Get("email")
		out := []clinicapi.Patient{}
		for _, p := range f.patients {
			if p.Email == email {
				out = append(out, p)
			}
		}
		_ = json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodPost && r.URL.Path == "/api/patients":
		var req clinicapi.CreatePatientRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.patientPosts++
		p := clinicapi.Patient{ID: "99", FullName: req.FullName, Email: req.Email}
		f.patients = append(f.patients, p)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(p)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/family"):
		_, _ = io.WriteString(w, "[]")
	default:
		http.NotFound(w, r)
	}
}

type testEnv struct {
	clinic *fakeClinic
	router http.Handler
}

// newTestEnv wires the handlers against a fake clinic. Requests carrying an
// X-Test-Email header are treated as signed in.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clinic := newFakeClinic()
	ts := httptest.NewServer(clinic)
	t.Cleanup(ts.Close)

	logger := logging.NewWithWriter(io.Discard, "error")
	client := clinicapi.NewClient(clinicapi.ClientConfig{BaseURL: ts.URL, Location: time.UTC}, logger)
	gate := capacity.NewGate(client, capacity.DefaultDailyLimit, nil, logger)
	now := func() time.Time { return testNow }

	dentists := NewDentistsHandler(DentistsConfig{
		Dentists:     client,
		Appointments: client,
		Capacity:     gate,
		Location:     time.UTC,
		Now:          now,
		Logger:       logger,
	})
	bookings := NewBookingsHandler(booking.Deps{
		Patients:     client,
		Appointments: client,
		Dentists:     client,
		Capacity:     gate,
		Location:     time.UTC,
		Now:          now,
	}, logger)
	upcoming := NewAppointmentsHandler(appointments.NewService(client, time.UTC, logger), time.UTC, now, logger)

	r := chi.NewRouter()
	r.Get("/v1/services", ListServices)
	r.Get("/v1/dentists", dentists.ListDentists)
	r.Get("/v1/dentists/{dentistID}/calendar", dentists.Calendar)
	r.Get("/v1/dentists/{dentistID}/availability", dentists.Availability)
	r.Group(func(r chi.Router) {
		r.Use(fakeAuth)
		r.Post("/v1/bookings", bookings.Create)
		r.Get("/v1/me/appointments/upcoming", upcoming.Upcoming)
	})
	return &testEnv{clinic: clinic, router: r}
}

func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if email := r.Header.Get("X-Test-Email"); email != "" {
			ctx := identity.WithUser(r.Context(), identity.User{Subject: "u1", Email: email, FullName: "Ana Cruz"})
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func (e *testEnv) do(t *testing.T, method, target, body, email string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader).WithContext(context.Background())
	if email != "" {
		req.Header.Set("X-Test-Email", email)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}
