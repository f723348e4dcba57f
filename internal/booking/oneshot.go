package booking

import (
	"context"
	"strings"

	"github.com/wolfman30/dentalbook/internal/clinicapi"
	"github.com/wolfman30/dentalbook/internal/identity"
	"github.com/wolfman30/dentalbook/internal/localtime"
)

// Request is a complete booking submitted in a single call.
type Request struct {
	DentistID string `json:"dentist_id"`
	// PatientID is empty for the signed-in user, or a family member's id.
	PatientID string `json:"patient_id,omitempty"`
	Service   string `json:"service"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

// Book runs a whole session for req: start, select, refresh the date, pick
// the slot and submit. Slot availability and the daily cap are checked
// against fresh backend data before anything is written.
func Book(ctx context.Context, deps Deps, user identity.User, req Request) (*Confirmation, error) {
	deps = deps.withDefaults()
	date, err := localtime.ParseDate(req.Date, deps.Location)
	if err != nil {
		return nil, &ValidationError{Field: "date", Message: "Please pick a valid date (YYYY-MM-DD)."}
	}
	if strings.TrimSpace(req.Time) == "" {
		return nil, &ValidationError{Field: "slot", Message: "Please pick a time."}
	}

	session := NewSession(deps)
	if err := session.Start(ctx, user, req.DentistID); err != nil {
		return nil, err
	}
	if err := session.SelectPatient(clinicapi.ID(req.PatientID)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Service) != "" {
		if err := session.SelectService(req.Service); err != nil {
			return nil, err
		}
	}
	if err := session.SelectDate(ctx, date); err != nil {
		return nil, err
	}
	if err := session.SelectSlot(req.Time); err != nil {
		return nil, err
	}
	return session.Submit(ctx)
}
