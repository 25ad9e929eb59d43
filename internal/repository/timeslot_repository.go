package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unidept/timetable-api/internal/models"
)

const timeSlotColumns = "id, semester_id, day, start_time, end_time, label, is_active, created_at, updated_at"

// TimeSlotRepository provides persistence for the semester slot grid.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository creates a new time slot repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// List returns time slots with optional filtering and pagination.
func (r *TimeSlotRepository) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, int, error) {
	base := "FROM time_slots WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("day = $%d", len(args)+1))
		args = append(args, filter.Day)
	}
	if filter.Label != "" {
		conditions = append(conditions, fmt.Sprintf("label = $%d", len(args)+1))
		args = append(args, filter.Label)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"day":        true,
		"start_time": true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_time"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", timeSlotColumns, base, sortBy, order, size, offset)
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list time slots: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count time slots: %w", err)
	}

	return slots, total, nil
}

// ListActive returns the active slots of a semester. Row order is not
// significant; the generator sorts by weekday before scanning.
func (r *TimeSlotRepository) ListActive(ctx context.Context, semesterID string) ([]models.TimeSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM time_slots WHERE semester_id = $1 AND is_active = TRUE ORDER BY start_time ASC", timeSlotColumns)
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, semesterID); err != nil {
		return nil, fmt.Errorf("list active time slots: %w", err)
	}
	return slots, nil
}

// FindByID loads a time slot by id.
func (r *TimeSlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM time_slots WHERE id = $1", timeSlotColumns)
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ExistsForPeriod reports whether a slot with the exact same period is
// already defined for the semester.
func (r *TimeSlotRepository) ExistsForPeriod(ctx context.Context, semesterID string, day models.Weekday, startTime, endTime string) (bool, error) {
	const query = `SELECT COUNT(*) FROM time_slots WHERE semester_id = $1 AND day = $2 AND start_time = $3 AND end_time = $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, semesterID, day, startTime, endTime); err != nil {
		return false, fmt.Errorf("check time slot period: %w", err)
	}
	return count > 0, nil
}

// Create stores a new time slot record.
func (r *TimeSlotRepository) Create(ctx context.Context, slot *models.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = now
	}
	slot.UpdatedAt = now

	const query = `INSERT INTO time_slots (id, semester_id, day, start_time, end_time, label, is_active, created_at, updated_at) VALUES (:id, :semester_id, :day, :start_time, :end_time, :label, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create time slot: %w", err)
	}
	return nil
}

// Update modifies a time slot record.
func (r *TimeSlotRepository) Update(ctx context.Context, slot *models.TimeSlot) error {
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE time_slots SET day = :day, start_time = :start_time, end_time = :end_time, label = :label, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("update time slot: %w", err)
	}
	return nil
}

// Delete removes a time slot by id.
func (r *TimeSlotRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM time_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete time slot: %w", err)
	}
	return nil
}
