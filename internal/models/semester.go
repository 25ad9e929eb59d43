package models

import "time"

// SemesterStatus tracks the lifecycle of a semester record.
type SemesterStatus string

const (
	SemesterStatusDraft    SemesterStatus = "DRAFT"
	SemesterStatusActive   SemesterStatus = "ACTIVE"
	SemesterStatusArchived SemesterStatus = "ARCHIVED"
)

// Semester models one academic semester of the department calendar.
type Semester struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Code      string         `db:"code" json:"code"`
	Year      int            `db:"year" json:"year"`
	StartDate time.Time      `db:"start_date" json:"start_date"`
	EndDate   time.Time      `db:"end_date" json:"end_date"`
	IsActive  bool           `db:"is_active" json:"is_active"`
	Status    SemesterStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// SemesterFilter defines filters supported by list endpoints.
type SemesterFilter struct {
	Year      int
	Status    SemesterStatus
	IsActive  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
