package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dentalbook/internal/clinicapi"
	"github.com/wolfman30/dentalbook/internal/schedule"
)

func mustRule(t *testing.T, mod func(d *clinicapi.Dentist)) *schedule.Rule {
	t.Helper()
	raw := clinicapi.Dentist{
		ID:             "7",
		Name:           "Dr. Reyes",
		Status:         "Available",
		Days:           []clinicapi.DayIndex{1, 3, 5},
		OperatingHours: &clinicapi.TimeRange{Start: "09:00", End: "17:00"},
		Lunch:          &clinicapi.TimeRange{Start: "12:00", End: "13:00"},
	}
	if mod != nil {
		mod(&raw)
	}
	rule, err := schedule.Normalize(raw)
	require.NoError(t, err)
	return rule
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	require.NoError(t, err)
	return ts
}

func values(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Value
	}
	return out
}

var wednesday = time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC)

func TestGenerateSlots_MonWedFriScenario(t *testing.T) {
	rule := mustRule(t, nil)
	slots := GenerateSlots(rule, wednesday, nil, at(t, "2026-10-21 08:00"))

	require.Len(t, slots, 16)
	open := OpenSlots(slots)
	assert.Equal(t, []string{
		"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
	}, values(open))

	counts := CountByKind(slots)
	assert.Equal(t, 14, counts[KindOpen])
	assert.Equal(t, 2, counts[KindLunch])

	first, ok := FirstOpen(slots)
	require.True(t, ok)
	assert.Equal(t, "09:00", first.Value)
	assert.Equal(t, "09:00 AM", first.Label)
}

func TestGenerateSlots_BookedAppointment(t *testing.T) {
	rule := mustRule(t, nil)
	booked := []BookedAppointment{{DentistID: "7", Start: at(t, "2026-10-21 10:00"), Status: clinicapi.StatusScheduled}}

	base := GenerateSlots(rule, wednesday, nil, at(t, "2026-10-21 08:00"))
	slots := GenerateSlots(rule, wednesday, booked, at(t, "2026-10-21 08:00"))
	require.Len(t, slots, len(base))

	for i := range slots {
		if slots[i].Value == "10:00" {
			assert.Equal(t, KindBooked, slots[i].Kind)
			continue
		}
		assert.Equal(t, base[i], slots[i], "slot %s changed", slots[i].Value)
	}
}

func TestGenerateSlots_IgnoresCancelledOtherDentistsAndOtherDays(t *testing.T) {
	rule := mustRule(t, nil)
	booked := []BookedAppointment{
		{DentistID: "7", Start: at(t, "2026-10-21 10:00"), Status: clinicapi.StatusCancelled},
		{DentistID: "9", Start: at(t, "2026-10-21 11:00"), Status: clinicapi.StatusScheduled},
		{DentistID: "7", Start: at(t, "2026-10-23 09:00"), Status: clinicapi.StatusScheduled},
		{DentistID: "7", Start: at(t, "2026-10-21 14:15"), Status: clinicapi.StatusCheckedIn},
	}
	slots := GenerateSlots(rule, wednesday, booked, at(t, "2026-10-20 08:00"))

	kinds := map[string]Kind{}
	for _, s := range slots {
		kinds[s.Value] = s.Kind
	}
	assert.Equal(t, KindOpen, kinds["10:00"])
	assert.Equal(t, KindOpen, kinds["11:00"])
	assert.Equal(t, KindOpen, kinds["09:00"])
	// An off-grid 14:15 appointment overlaps both neighbouring buckets.
	assert.Equal(t, KindBooked, kinds["14:00"])
	assert.Equal(t, KindBooked, kinds["14:30"])
	assert.Equal(t, KindOpen, kinds["15:00"])
}

func TestGenerateSlots_OffReturnsEmpty(t *testing.T) {
	rule := mustRule(t, func(d *clinicapi.Dentist) {
		d.Status = "Off"
		d.Days = []clinicapi.DayIndex{0, 1, 2, 3, 4, 5, 6}
	})
	for i := 0; i < 14; i++ {
		day := wednesday.AddDate(0, 0, i)
		assert.Empty(t, GenerateSlots(rule, day, nil, at(t, "2026-10-01 08:00")), "date %s", day.Format("2006-01-02"))
	}
}

func TestGenerateSlots_LeaveDayReturnsEmpty(t *testing.T) {
	rule := mustRule(t, func(d *clinicapi.Dentist) { d.LeaveDays = []string{"2026-10-21"} })
	slots := GenerateSlots(rule, wednesday, nil, at(t, "2026-10-20 08:00"))
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestGenerateSlots_NonWorkingDayReturnsEmpty(t *testing.T) {
	rule := mustRule(t, nil)
	tuesday := wednesday.AddDate(0, 0, -1)
	assert.Empty(t, GenerateSlots(rule, tuesday, nil, at(t, "2026-10-19 08:00")))
	assert.Empty(t, GenerateSlots(nil, wednesday, nil, at(t, "2026-10-19 08:00")))
}

func TestGenerateSlots_LunchBoundary(t *testing.T) {
	rule := mustRule(t, nil)
	slots := GenerateSlots(rule, wednesday, nil, at(t, "2026-10-20 08:00"))

	s1130, ok := FindSlot(slots, "11:30")
	require.True(t, ok)
	assert.Equal(t, KindOpen, s1130.Kind)

	s1200, ok := FindSlot(slots, "12:00")
	require.True(t, ok)
	assert.Equal(t, KindLunch, s1200.Kind)
	assert.Equal(t, "Lunch", s1200.Label)

	s1300, ok := FindSlot(slots, "13:00")
	require.True(t, ok)
	assert.Equal(t, KindOpen, s1300.Kind)
	assert.Equal(t, "01:00 PM", s1300.Label)
}

func TestGenerateSlots_PrecedenceLunchBreakPastBooked(t *testing.T) {
	rule := mustRule(t, func(d *clinicapi.Dentist) {
		d.Breaks = []clinicapi.TimeRange{{Start: "10:00", End: "10:45"}, {Start: "10:30", End: "11:00"}, {Start: "12:00", End: "12:30"}}
	})
	booked := []BookedAppointment{
		{DentistID: "7", Start: at(t, "2026-10-21 09:00"), Status: clinicapi.StatusScheduled},
		{DentistID: "7", Start: at(t, "2026-10-21 10:00"), Status: clinicapi.StatusScheduled},
		{DentistID: "7", Start: at(t, "2026-10-21 12:00"), Status: clinicapi.StatusScheduled},
		{DentistID: "7", Start: at(t, "2026-10-21 15:00"), Status: clinicapi.StatusScheduled},
	}
	slots := GenerateSlots(rule, wednesday, booked, at(t, "2026-10-21 09:30"))

	kinds := map[string]Kind{}
	for _, s := range slots {
		kinds[s.Value] = s.Kind
	}
	assert.Equal(t, KindPast, kinds["09:00"], "past beats booked")
	assert.Equal(t, KindPast, kinds["09:30"], "bucket starting at now is past")
	assert.Equal(t, KindBreak, kinds["10:00"], "break beats booked")
	assert.Equal(t, KindBreak, kinds["10:30"], "merged break")
	assert.Equal(t, KindOpen, kinds["11:00"])
	assert.Equal(t, KindLunch, kinds["12:00"], "lunch beats break and booked")
	assert.Equal(t, KindBooked, kinds["15:00"])
}

func TestGenerateSlots_PastOnlyAppliesToToday(t *testing.T) {
	rule := mustRule(t, nil)
	slots := GenerateSlots(rule, wednesday, nil, at(t, "2026-10-20 16:00"))
	assert.Zero(t, CountByKind(slots)[KindPast])

	lateToday := GenerateSlots(rule, wednesday, nil, at(t, "2026-10-21 16:45"))
	assert.Empty(t, OpenSlots(lateToday))
	assert.Len(t, lateToday, 16)
}

func TestGenerateSlots_DiscardsPartialBucket(t *testing.T) {
	rule := mustRule(t, func(d *clinicapi.Dentist) {
		d.OperatingHours = &clinicapi.TimeRange{Start: "09:00", End: "10:45"}
		d.Lunch = nil
	})
	slots := GenerateSlots(rule, wednesday, nil, at(t, "2026-10-20 08:00"))
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, values(slots))
}

func TestGenerateSlots_StrictlyIncreasingWithoutGaps(t *testing.T) {
	rule := mustRule(t, func(d *clinicapi.Dentist) {
		d.OperatingHours = &clinicapi.TimeRange{Start: "07:30", End: "19:00"}
		d.Breaks = []clinicapi.TimeRange{{Start: "15:00", End: "16:00"}}
	})
	slots := GenerateSlots(rule, wednesday, nil, at(t, "2026-10-21 11:10"))
	require.NotEmpty(t, slots)
	for i := 1; i < len(slots); i++ {
		assert.Less(t, slots[i-1].Value, slots[i].Value)
		assert.Equal(t, SlotMinutes, slots[i].Start-slots[i-1].Start)
	}
}

func TestGenerateSlots_Idempotent(t *testing.T) {
	rule := mustRule(t, func(d *clinicapi.Dentist) {
		d.Breaks = []clinicapi.TimeRange{{Start: "15:00", End: "15:30"}}
	})
	booked := []BookedAppointment{{DentistID: "7", Start: at(t, "2026-10-21 13:30"), Status: clinicapi.StatusScheduled}}
	now := at(t, "2026-10-21 10:05")

	first := GenerateSlots(rule, wednesday, booked, now)
	second := GenerateSlots(rule, wednesday, booked, now)
	assert.Equal(t, first, second)
}

func TestFromAPI(t *testing.T) {
	appts := []clinicapi.Appointment{
		{ID: "1", DentistID: "7", DateTime: "2026-10-21 10:00:00", Status: clinicapi.StatusScheduled},
		{ID: "2", DentistID: "7", DateTime: "", Status: clinicapi.StatusScheduled},
	}
	booked := FromAPI(appts, time.UTC)
	require.Len(t, booked, 1)
	assert.Equal(t, "7", booked[0].DentistID)
	assert.Equal(t, 10, booked[0].Start.Hour())
}
