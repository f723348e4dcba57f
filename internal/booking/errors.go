package booking

import (
	"errors"
	"fmt"

	"github.com/wolfman30/dentalbook/internal/clinicapi"
	"github.com/wolfman30/dentalbook/internal/schedule"
)

var (
	// ErrSubmitInFlight is returned when Submit is called while an earlier
	// submission has not finished.
	ErrSubmitInFlight = errors.New("booking: submission already in progress")
	// ErrSuperseded is returned by SelectDate when a newer date was picked
	// before its fetch completed. Its results were discarded.
	ErrSuperseded = errors.New("booking: superseded by a newer date selection")
	// ErrNotStarted is returned when the session has no dentist loaded.
	ErrNotStarted = errors.New("booking: session not started")
)

// ValidationError is a missing or invalid selection. It never reaches the
// network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: invalid %s: %s", e.Field, e.Message)
}

// NetworkError is a failed or timed-out backend call. Repeating the same
// action is safe.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("booking: %s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// CapacityConflictError means the backend refused the booking because the
// dentist's day filled up after the client checked. Retrying the same slot
// will not help.
type CapacityConflictError struct {
	DentistID string
	Date      string
	Message   string
	Err       error
}

func (e *CapacityConflictError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "daily booking limit reached"
	}
	return fmt.Sprintf("booking: dentist %s on %s: %s", e.DentistID, e.Date, msg)
}

func (e *CapacityConflictError) Unwrap() error { return e.Err }

// NoProfileError records that the signed-in user has no patient record yet.
// The session creates one just before the first submission.
type NoProfileError struct {
	Email string
}

func (e *NoProfileError) Error() string {
	return fmt.Sprintf("booking: no patient record for %s", e.Email)
}

// classify maps backend failures onto the booking taxonomy.
func classify(op string, sel Selection, err error) error {
	if err == nil {
		return nil
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return err
	}
	if errors.Is(err, clinicapi.ErrCapacityConflict) {
		conflict := &CapacityConflictError{DentistID: sel.DentistID, Date: sel.Date, Err: err}
		var status *clinicapi.StatusError
		if errors.As(err, &status) {
			conflict.Message = status.Message
		}
		return conflict
	}
	if clinicapi.IsNetwork(err) {
		return &NetworkError{Op: op, Err: err}
	}
	return fmt.Errorf("booking: %s: %w", op, err)
}

// UserMessage turns any error from this package into text for the patient.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		validation *ValidationError
		conflict   *CapacityConflictError
		network    *NetworkError
		noProfile  *NoProfileError
		status     *clinicapi.StatusError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &conflict):
		return "This day just filled up. Please choose another date or time."
	case errors.As(err, &network), clinicapi.IsNetwork(err):
		return "Network error. Please check your connection and try again."
	case errors.As(err, &noProfile):
		return "Your patient profile will be created with your first booking."
	case errors.Is(err, ErrSubmitInFlight):
		return "Your booking is already being submitted."
	case errors.Is(err, ErrSuperseded):
		return ""
	case errors.Is(err, schedule.ErrMalformedSchedule):
		return "This dentist's schedule is unavailable right now."
	case errors.As(err, &status) && status.Message != "":
		return status.Message
	default:
		return "Could not book appointment."
	}
}
