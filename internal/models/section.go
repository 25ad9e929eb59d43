package models

import (
	"time"

	"github.com/lib/pq"
)

// SectionType distinguishes the session kind a section requires.
type SectionType string

const (
	SectionTypeLecture  SectionType = "LECTURE"
	SectionTypeLab      SectionType = "LAB"
	SectionTypeTutorial SectionType = "TUTORIAL"
)

// Section models one offering of a course within a semester.
type Section struct {
	ID                 string         `db:"id" json:"id"`
	SemesterID         string         `db:"semester_id" json:"semester_id"`
	CourseCode         string         `db:"course_code" json:"course_code"`
	CourseName         string         `db:"course_name" json:"course_name"`
	SectionNumber      int            `db:"section_number" json:"section_number"`
	Type               SectionType    `db:"type" json:"type"`
	Capacity           int            `db:"capacity" json:"capacity"`
	DoctorID           *string        `db:"doctor_id" json:"doctor_id,omitempty"`
	TeachingAssistants pq.StringArray `db:"teaching_assistants" json:"teaching_assistants"`
	IsActive           bool           `db:"is_active" json:"is_active"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// SectionFilter defines filters supported by list endpoints.
type SectionFilter struct {
	SemesterID string
	CourseCode string
	Type       SectionType
	DoctorID   string
	IsActive   *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
