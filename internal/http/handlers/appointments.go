package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wolfman30/dentalbook/internal/appointments"
	"github.com/wolfman30/dentalbook/internal/identity"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// UpcomingFinder returns a patient's next open appointment.
// *appointments.Service satisfies it.
type UpcomingFinder interface {
	UpcomingForEmail(ctx context.Context, email string, now time.Time) (*appointments.Entry, error)
}

// AppointmentsHandler serves the signed-in user's appointments.
type AppointmentsHandler struct {
	finder UpcomingFinder
	clock  clock
	logger *logging.Logger
}

func NewAppointmentsHandler(finder UpcomingFinder, loc *time.Location, now func() time.Time, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{finder: finder, clock: newClock(loc, now), logger: logger}
}

// Upcoming returns {"appointment": null} when nothing is scheduled.
func (h *AppointmentsHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	user, ok := identity.FromContext(r.Context())
	if !ok {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	entry, err := h.finder.UpcomingForEmail(r.Context(), user.Email, h.clock.Now())
	if err != nil {
		h.logger.Error("failed to load upcoming appointment", "email", user.Email, "error", err)
		jsonError(w, "could not load appointments", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointment": entry})
}
