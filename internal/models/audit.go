package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AuditAction constants represent timetable actions to be logged.
const (
	AuditActionGenerate = "TIMETABLE_GENERATE"
	AuditActionValidate = "TIMETABLE_VALIDATE"
	AuditActionPublish  = "TIMETABLE_PUBLISH"
)

// AuditLog represents an audit trail record for a timetable operation.
type AuditLog struct {
	ID         string         `db:"id" json:"id"`
	Action     string         `db:"action" json:"action"`
	SemesterID string         `db:"semester_id" json:"semester_id"`
	Details    types.JSONText `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}
