package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/unidept/timetable-api/internal/models"
)

// timeInterval is a half-open [start, end) period on a weekday, with
// start and end expressed as minutes since midnight. It is the atomic
// unit every conflict check reduces to.
type timeInterval struct {
	Day   models.Weekday
	Start int
	End   int
}

// Overlaps reports whether two intervals intersect. Intervals on
// different weekdays never overlap; touching endpoints do not overlap.
func (a timeInterval) Overlaps(b timeInterval) bool {
	if a.Day != b.Day {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

// parseClock converts a 24-hour "HH:MM" string to minutes since
// midnight. Integer arithmetic only; no timezone semantics.
func parseClock(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return hour*60 + minute, nil
}

// newInterval builds a validated interval from wall-clock strings.
// End must be strictly after start.
func newInterval(day models.Weekday, startTime, endTime string) (timeInterval, error) {
	start, err := parseClock(startTime)
	if err != nil {
		return timeInterval{}, err
	}
	end, err := parseClock(endTime)
	if err != nil {
		return timeInterval{}, err
	}
	if end <= start {
		return timeInterval{}, fmt.Errorf("end time %s must be after start time %s", endTime, startTime)
	}
	return timeInterval{Day: day, Start: start, End: end}, nil
}

// parseWeekday canonicalises a day name, accepting any casing.
func parseWeekday(raw string) (models.Weekday, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("day is required")
	}
	candidate := models.Weekday(strings.ToUpper(trimmed[:1]) + strings.ToLower(trimmed[1:]))
	if _, ok := models.WeekdayOrder[candidate]; !ok {
		return "", fmt.Errorf("unknown day %q", raw)
	}
	return candidate, nil
}

// slotInterval converts a committed schedule slot. Stored slots are
// validated on write, so a decode failure here is a data fault.
func slotInterval(slot models.ScheduleSlot) (timeInterval, error) {
	return newInterval(slot.Day, slot.StartTime, slot.EndTime)
}

// slotsOverlap is the convenience pairwise test for committed slots.
func slotsOverlap(a, b models.ScheduleSlot) bool {
	ia, err := slotInterval(a)
	if err != nil {
		return false
	}
	ib, err := slotInterval(b)
	if err != nil {
		return false
	}
	return ia.Overlaps(ib)
}
