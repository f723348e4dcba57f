package schedule

import (
	"errors"
	"fmt"
)

// ErrMalformedSchedule matches every *MalformedScheduleError via errors.Is.
var ErrMalformedSchedule = errors.New("schedule: malformed dentist schedule")

// MalformedScheduleError reports a dentist record whose schedule fields
// cannot be used for slot math.
type MalformedScheduleError struct {
	DentistID string
	Field     string
	Value     string
	Reason    string
	Err       error
}

func (e *MalformedScheduleError) Error() string {
	return fmt.Sprintf("schedule: dentist %s: %s %q: %s", e.DentistID, e.Field, e.Value, e.Reason)
}

func (e *MalformedScheduleError) Unwrap() error { return e.Err }

func (e *MalformedScheduleError) Is(target error) bool {
	return target == ErrMalformedSchedule
}
