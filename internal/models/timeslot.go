package models

import "time"

// Weekday is the canonical English day name used at the API boundary.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// WeekdayOrder maps day names to their position for deterministic sorting.
var WeekdayOrder = map[Weekday]int{
	Monday:    1,
	Tuesday:   2,
	Wednesday: 3,
	Thursday:  4,
	Friday:    5,
	Saturday:  6,
	Sunday:    7,
}

// TimeSlot is a candidate recurring weekly period of a semester's grid.
// (semester_id, day, start_time, end_time) is unique.
type TimeSlot struct {
	ID         string      `db:"id" json:"id"`
	SemesterID string      `db:"semester_id" json:"semester_id"`
	Day        Weekday     `db:"day" json:"day"`
	StartTime  string      `db:"start_time" json:"start_time"`
	EndTime    string      `db:"end_time" json:"end_time"`
	Label      SectionType `db:"label" json:"label"`
	IsActive   bool        `db:"is_active" json:"is_active"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// TimeSlotFilter defines filters supported by list endpoints.
type TimeSlotFilter struct {
	SemesterID string
	Day        Weekday
	Label      SectionType
	IsActive   *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
