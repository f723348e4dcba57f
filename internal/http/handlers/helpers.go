package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// clock carries the location naive timestamps are read in and the source of
// "now". Zero values fall back to the local zone and the wall clock.
type clock struct {
	loc *time.Location
	now func() time.Time
}

func newClock(loc *time.Location, now func() time.Time) clock {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return clock{loc: loc, now: now}
}

func (c clock) Now() time.Time {
	return c.now().In(c.loc)
}
