package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unidept/timetable-api/internal/models"
)

// AuditRepository provides persistence for the timetable audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create stores one audit entry.
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO audit_logs (id, action, semester_id, details, created_at) VALUES (:id, :action, :semester_id, :details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create audit entry: %w", err)
	}
	return nil
}

// ListBySemester returns the audit trail of a semester, newest first.
func (r *AuditRepository) ListBySemester(ctx context.Context, semesterID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT id, action, semester_id, details, created_at FROM audit_logs WHERE semester_id = $1 ORDER BY created_at DESC LIMIT %d", limit)
	var entries []models.AuditLog
	if err := r.db.SelectContext(ctx, &entries, query, semesterID); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
