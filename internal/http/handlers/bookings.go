package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/dentalbook/internal/booking"
	"github.com/wolfman30/dentalbook/internal/clinicapi"
	"github.com/wolfman30/dentalbook/internal/identity"
	"github.com/wolfman30/dentalbook/internal/schedule"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// BookingsHandler books appointments for the signed-in user.
type BookingsHandler struct {
	deps   booking.Deps
	logger *logging.Logger
}

// NewBookingsHandler creates a new bookings handler.
func NewBookingsHandler(deps booking.Deps, logger *logging.Logger) *BookingsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if deps.Logger == nil {
		deps.Logger = logger
	}
	return &BookingsHandler{deps: deps, logger: logger}
}

// BookingResponse describes a confirmed booking.
type BookingResponse struct {
	AppointmentID  string `json:"appointment_id"`
	Status         string `json:"status"`
	PatientID      string `json:"patient_id"`
	PatientName    string `json:"patient_name"`
	DentistID      string `json:"dentist_id"`
	DentistName    string `json:"dentist_name"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Service        string `json:"service"`
	CreatedProfile bool   `json:"created_profile"`
	Message        string `json:"message"`
}

// Create handles POST /v1/bookings.
func (h *BookingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req booking.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	conf, err := booking.Book(r.Context(), h.deps, user, req)
	if err != nil {
		status := bookingStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("booking failed", "dentist_id", req.DentistID, "date", req.Date, "time", req.Time, "error", err)
		} else {
			h.logger.Info("booking rejected", "dentist_id", req.DentistID, "date", req.Date, "time", req.Time, "status", status, "error", err)
		}
		jsonError(w, booking.UserMessage(err), status)
		return
	}

	h.logger.Info("appointment booked",
		"appointment_id", conf.Appointment.ID,
		"patient_id", conf.PatientID,
		"dentist_id", req.DentistID,
		"date", conf.Date,
		"time", conf.Slot,
		"created_profile", conf.CreatedProfile,
	)
	writeJSON(w, http.StatusCreated, BookingResponse{
		AppointmentID:  conf.Appointment.ID.String(),
		Status:         conf.Appointment.Status,
		PatientID:      conf.PatientID.String(),
		PatientName:    conf.PatientName,
		DentistID:      req.DentistID,
		DentistName:    conf.DentistName,
		Date:           conf.Date,
		Time:           conf.Slot,
		Service:        conf.Service,
		CreatedProfile: conf.CreatedProfile,
		Message:        conf.Message(),
	})
}

// bookingStatus maps the booking error taxonomy onto HTTP status codes.
func bookingStatus(err error) int {
	var (
		validation *booking.ValidationError
		conflict   *booking.CapacityConflictError
		network    *booking.NetworkError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &conflict), errors.Is(err, booking.ErrSubmitInFlight):
		return http.StatusConflict
	case errors.Is(err, clinicapi.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, schedule.ErrMalformedSchedule):
		return http.StatusUnprocessableEntity
	case errors.As(err, &network), clinicapi.IsNetwork(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
