// Package clinicapi contains the typed client for the clinic REST backend.
package clinicapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Appointment statuses used by the backend.
const (
	StatusScheduled = "Scheduled"
	StatusCheckedIn = "Checked-In"
	StatusDone      = "Done"
	StatusCancelled = "Cancelled"
)

// ID is a backend identifier. The backend emits numeric ids, some screens
// pass them around as strings; both decode to the same value.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// DayIndex is a weekday index (0=Sun..6=Sat). Values that cannot be read as
// an integer decode to -1 so normalization can drop them.
type DayIndex int

// UnmarshalJSON accepts numbers and numeric strings.
func (d *DayIndex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = -1
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*d = -1
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*d = -1
			return nil
		}
		*d = DayIndex(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil || f != float64(int(f)) {
		*d = -1
		return nil
	}
	*d = DayIndex(int(f))
	return nil
}

// TimeRange is an HH:MM start/end pair as sent by the backend.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Dentist is the raw dentist record returned by GET /dentists.
type Dentist struct {
	ID             ID          `json:"id"`
	Name           string      `json:"name"`
	Specialization string      `json:"specialization,omitempty"`
	Status         string      `json:"status"`
	Days           []DayIndex  `json:"days"`
	OperatingHours *TimeRange  `json:"operatingHours,omitempty"`
	Lunch          *TimeRange  `json:"lunch,omitempty"`
	Breaks         []TimeRange `json:"breaks,omitempty"`
	LeaveDays      []string    `json:"leaveDays,omitempty"`
}

// Appointment is an appointment row as returned by GET /appointments.
type Appointment struct {
	ID          ID     `json:"id"`
	PatientID   ID     `json:"patient_id"`
	DentistID   ID     `json:"dentist_id"`
	DentistName string `json:"dentist_name,omitempty"`
	DateTime    string `json:"appointment_datetime"`
	Procedure   string `json:"procedure,omitempty"`
	Status      string `json:"status"`
	Notes       string `json:"notes,omitempty"`
}

// Start parses DateTime as a naive clinic-local timestamp.
func (a Appointment) Start(loc *time.Location) (time.Time, error) {
	return parseNaive(a.DateTime, loc)
}

// AppointmentFilter narrows GET /appointments. Empty fields are omitted.
type AppointmentFilter struct {
	DentistID ID
	PatientID ID
	Date      string
}

// CreateAppointmentRequest is the POST /appointments body.
type CreateAppointmentRequest struct {
	PatientID ID     `json:"patient_id"`
	DentistID ID     `json:"dentist_id"`
	TimeStart string `json:"timeStart"`
	Procedure string `json:"procedure"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

// DailyLimit is the GET /appointments/check-limit response.
type DailyLimit struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}

// Patient is a backend patient record. Family members carry ParentID.
type Patient struct {
	ID            ID     `json:"id"`
	FullName      string `json:"full_name"`
	Email         string `json:"email,omitempty"`
	ParentID      ID     `json:"parent_id,omitempty"`
	Birthdate     string `json:"birthdate,omitempty"`
	Gender        string `json:"gender,omitempty"`
	ContactNumber string `json:"contact_number,omitempty"`
	Address       string `json:"address,omitempty"`
}

// CreatePatientRequest is the POST /patients body.
type CreatePatientRequest struct {
	FullName      string `json:"full_name"`
	Email         string `json:"email,omitempty"`
	ParentID      ID     `json:"parent_id,omitempty"`
	Birthdate     string `json:"birthdate,omitempty"`
	Gender        string `json:"gender"`
	ContactNumber string `json:"contact_number"`
	Address       string `json:"address"`
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}
