package models

import (
	"time"

	"github.com/lib/pq"
)

// Doctor models a teaching staff member of the department.
type Doctor struct {
	ID             string         `db:"id" json:"id"`
	EmployeeID     string         `db:"employee_id" json:"employee_id"`
	FullName       string         `db:"full_name" json:"full_name"`
	Specialization pq.StringArray `db:"specialization" json:"specialization"`
	MaxCourses     int            `db:"max_courses" json:"max_courses"`
	IsAvailable    bool           `db:"is_available" json:"is_available"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// DoctorFilter defines filters supported by list endpoints.
type DoctorFilter struct {
	Specialization string
	IsAvailable    *bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
