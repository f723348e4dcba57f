package localtime

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNaiveTimestamp_KeepsWallClock(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{"space separated", "2026-10-21 10:00:00"},
		{"no seconds", "2026-10-21 10:00"},
		{"T separated", "2026-10-21T10:00:00"},
		{"zulu suffix ignored", "2026-10-21T10:00:00.000Z"},
		{"offset ignored", "2026-10-21T10:00:00+08:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNaiveTimestamp(tt.raw, manila)
			require.NoError(t, err)
			assert.Equal(t, "2026-10-21", FormatDate(got))
			assert.Equal(t, 600, MinutesSinceMidnight(got))
			assert.Equal(t, manila, got.Location())
		})
	}
}

func TestParseNaiveTimestamp_Invalid(t *testing.T) {
	for _, raw := range []string{"", "tomorrow", "2026-13-01 10:00:00", "2026-10-21"} {
		_, err := ParseNaiveTimestamp(raw, time.UTC)
		assert.Truef(t, errors.Is(err, ErrInvalidTimestamp), "raw %q: err = %v", raw, err)
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"9:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"12", 0, true},
		{"ab:cd", 0, true},
		{"12:5", 0, true},
		{"", 0, true},
		{"+9:00", 0, true},
		{"-0:30", 0, true},
		{"9:+5", 0, true},
		{" 9:00", 540, false},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.raw)
		if tt.wantErr {
			assert.ErrorIsf(t, err, ErrInvalidClock, "raw %q", tt.raw)
			continue
		}
		require.NoErrorf(t, err, "raw %q", tt.raw)
		assert.Equalf(t, tt.want, got, "raw %q", tt.raw)
	}
}

func TestClockFormatting(t *testing.T) {
	assert.Equal(t, "09:05", FormatClock(545))
	assert.Equal(t, "12:00 AM", Label12h(0))
	assert.Equal(t, "09:00 AM", Label12h(540))
	assert.Equal(t, "12:30 PM", Label12h(750))
	assert.Equal(t, "01:30 PM", Label12h(810))
}

func TestDateHelpers(t *testing.T) {
	d, err := ParseDate("2026-10-21", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Wednesday, d.Weekday())

	at := At(d, 13*60+30)
	assert.Equal(t, "2026-10-21 13:30:00", FormatTimestamp(at))
	assert.True(t, SameDay(d, at))
	assert.Equal(t, d, StartOfDay(at))

	_, err = ParseDate("21/10/2026", time.UTC)
	assert.Error(t, err)
}
