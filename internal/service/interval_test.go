package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unidept/timetable-api/internal/models"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		raw     string
		minutes int
		wantErr bool
	}{
		{raw: "00:00", minutes: 0},
		{raw: "09:30", minutes: 570},
		{raw: "23:59", minutes: 1439},
		{raw: "24:00", wantErr: true},
		{raw: "09:60", wantErr: true},
		{raw: "9:30", wantErr: true},
		{raw: "09-30", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := parseClock(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.minutes, got, tc.raw)
	}
}

func TestNewIntervalRejectsInvertedPeriod(t *testing.T) {
	_, err := newInterval(models.Monday, "10:00", "09:00")
	assert.Error(t, err)

	_, err = newInterval(models.Monday, "10:00", "10:00")
	assert.Error(t, err)
}

func TestIntervalOverlaps(t *testing.T) {
	base, err := newInterval(models.Monday, "09:00", "11:00")
	require.NoError(t, err)

	cases := []struct {
		name    string
		day     models.Weekday
		start   string
		end     string
		overlap bool
	}{
		{name: "identical", day: models.Monday, start: "09:00", end: "11:00", overlap: true},
		{name: "contained", day: models.Monday, start: "09:30", end: "10:30", overlap: true},
		{name: "partial overlap", day: models.Monday, start: "10:00", end: "12:00", overlap: true},
		{name: "touching end to start", day: models.Monday, start: "11:00", end: "12:00", overlap: false},
		{name: "touching start to end", day: models.Monday, start: "08:00", end: "09:00", overlap: false},
		{name: "disjoint", day: models.Monday, start: "12:00", end: "13:00", overlap: false},
		{name: "same period other day", day: models.Tuesday, start: "09:00", end: "11:00", overlap: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			other, err := newInterval(tc.day, tc.start, tc.end)
			require.NoError(t, err)
			assert.Equal(t, tc.overlap, base.Overlaps(other))
			assert.Equal(t, tc.overlap, other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestParseWeekdayCanonicalises(t *testing.T) {
	for _, raw := range []string{"Monday", "monday", "MONDAY", " monday "} {
		day, err := parseWeekday(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, models.Monday, day)
	}

	_, err := parseWeekday("Funday")
	assert.Error(t, err)
	_, err = parseWeekday("")
	assert.Error(t, err)
}

func TestSlotsOverlap(t *testing.T) {
	a := models.ScheduleSlot{Day: models.Wednesday, StartTime: "10:00", EndTime: "12:00"}
	b := models.ScheduleSlot{Day: models.Wednesday, StartTime: "11:00", EndTime: "13:00"}
	c := models.ScheduleSlot{Day: models.Thursday, StartTime: "11:00", EndTime: "13:00"}

	assert.True(t, slotsOverlap(a, b))
	assert.False(t, slotsOverlap(a, c))
}
