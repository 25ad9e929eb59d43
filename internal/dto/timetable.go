package dto

import "github.com/unidept/timetable-api/internal/models"

// SlotInput is one proposed weekly meeting supplied by a caller.
type SlotInput struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Type      string `json:"type"`
}

// ConflictCheckRequest is the single strongly-typed candidate shape for
// conflict checks. Every call site normalises into this struct at the edge.
type ConflictCheckRequest struct {
	SemesterID         string      `json:"semester_id"`
	DoctorID           string      `json:"doctor_id"`
	ClassroomID        string      `json:"classroom_id"`
	SectionID          string      `json:"section_id,omitempty"`
	TeachingAssistants []string    `json:"teaching_assistants,omitempty"`
	Slots              []SlotInput `json:"slots"`
	ExcludeScheduleID  string      `json:"exclude_schedule_id,omitempty"`
}

// ConflictCheckResponse lists every violation found for a candidate.
type ConflictCheckResponse struct {
	Conflicts   []models.Conflict `json:"conflicts"`
	HasBlocking bool              `json:"has_blocking"`
}

// UnplacedSection reports why the generator could not place a section.
type UnplacedSection struct {
	SectionID  string `json:"section_id"`
	CourseCode string `json:"course_code,omitempty"`
	Reason     string `json:"reason"`
}

// GenerateTimetableResponse summarises one generator run.
type GenerateTimetableResponse struct {
	Generated          int               `json:"generated"`
	Unassigned         int               `json:"unassigned"`
	UnassignedSections []UnplacedSection `json:"unassigned_sections"`
	Schedules          []models.Schedule `json:"schedules"`
}

// ValidateTimetableResponse reports the semester-wide audit result.
type ValidateTimetableResponse struct {
	SchedulesCount int               `json:"schedules_count"`
	Conflicts      []models.Conflict `json:"conflicts"`
	Clean          bool              `json:"clean"`
}

// PublishTimetableResponse reports the outcome of a publish attempt.
type PublishTimetableResponse struct {
	Published      bool              `json:"published"`
	SchedulesCount int               `json:"schedules_count"`
	Conflicts      []models.Conflict `json:"conflicts,omitempty"`
}

// TimetableEntry is one denormalised row of a semester timetable view.
type TimetableEntry struct {
	ScheduleID string                `json:"schedule_id"`
	SectionID  string                `json:"section_id"`
	CourseCode string                `json:"course_code"`
	DoctorID   string                `json:"doctor_id"`
	DoctorName string                `json:"doctor_name"`
	Room       string                `json:"room"`
	Status     models.ScheduleStatus `json:"status"`
	Slots      []models.ScheduleSlot `json:"slots"`
}

// TimetableView is the cached per-semester read model.
type TimetableView struct {
	SemesterID string           `json:"semester_id"`
	Entries    []TimetableEntry `json:"entries"`
}
