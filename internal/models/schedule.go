package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ScheduleStatus tracks the publication lifecycle of a schedule.
type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "DRAFT"
	ScheduleStatusValidated ScheduleStatus = "VALIDATED"
	ScheduleStatusPublished ScheduleStatus = "PUBLISHED"
	ScheduleStatusCancelled ScheduleStatus = "CANCELLED"
)

// ScheduleSlot is one weekly meeting of a committed schedule.
type ScheduleSlot struct {
	Day       Weekday     `json:"day"`
	StartTime string      `json:"start_time"`
	EndTime   string      `json:"end_time"`
	Type      SectionType `json:"type"`
}

// ScheduleSlotList stores the weekly meetings as a JSON column.
type ScheduleSlotList []ScheduleSlot

// Value implements driver.Valuer.
func (l ScheduleSlotList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *ScheduleSlotList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported schedule slot source %T", src)
	}
}

// Schedule is the committed binding of one section to a doctor, a
// classroom and one or more weekly slots for a semester.
// (semester_id, section_id) is unique.
type Schedule struct {
	ID                 string           `db:"id" json:"id"`
	SemesterID         string           `db:"semester_id" json:"semester_id"`
	SectionID          string           `db:"section_id" json:"section_id"`
	DoctorID           string           `db:"doctor_id" json:"doctor_id"`
	ClassroomID        string           `db:"classroom_id" json:"classroom_id"`
	Slots              ScheduleSlotList `db:"slots" json:"slots"`
	TeachingAssistants pq.StringArray   `db:"teaching_assistants" json:"teaching_assistants"`
	Status             ScheduleStatus   `db:"status" json:"status"`
	PublishedAt        *time.Time       `db:"published_at" json:"published_at,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// ScheduleFilter defines filters supported by list endpoints.
type ScheduleFilter struct {
	SemesterID  string
	SectionID   string
	DoctorID    string
	ClassroomID string
	Status      ScheduleStatus
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
