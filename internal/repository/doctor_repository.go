package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unidept/timetable-api/internal/models"
)

const doctorColumns = "id, employee_id, full_name, specialization, max_courses, is_available, created_at, updated_at"

// DoctorRepository provides persistence for teaching staff.
type DoctorRepository struct {
	db *sqlx.DB
}

// NewDoctorRepository creates a new doctor repository.
func NewDoctorRepository(db *sqlx.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// List returns doctors with optional filtering and pagination.
func (r *DoctorRepository) List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, int, error) {
	base := "FROM doctors WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Specialization != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(specialization)", len(args)+1))
		args = append(args, filter.Specialization)
	}
	if filter.IsAvailable != nil {
		conditions = append(conditions, fmt.Sprintf("is_available = $%d", len(args)+1))
		args = append(args, *filter.IsAvailable)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"full_name":   true,
		"employee_id": true,
		"max_courses": true,
		"created_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "full_name"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", doctorColumns, base, sortBy, order, size, offset)
	var doctors []models.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	return doctors, total, nil
}

// FindByID loads a doctor by id.
func (r *DoctorRepository) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	query := fmt.Sprintf("SELECT %s FROM doctors WHERE id = $1", doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// FindByEmployeeID loads a doctor by employee number.
func (r *DoctorRepository) FindByEmployeeID(ctx context.Context, employeeID string) (*models.Doctor, error) {
	query := fmt.Sprintf("SELECT %s FROM doctors WHERE employee_id = $1", doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, employeeID); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// Create stores a new doctor record.
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	if doctor.Specialization == nil {
		doctor.Specialization = pq.StringArray{}
	}
	now := time.Now().UTC()
	if doctor.CreatedAt.IsZero() {
		doctor.CreatedAt = now
	}
	doctor.UpdatedAt = now

	const query = `INSERT INTO doctors (id, employee_id, full_name, specialization, max_courses, is_available, created_at, updated_at) VALUES (:id, :employee_id, :full_name, :specialization, :max_courses, :is_available, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

// Update modifies a doctor record.
func (r *DoctorRepository) Update(ctx context.Context, doctor *models.Doctor) error {
	doctor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE doctors SET employee_id = :employee_id, full_name = :full_name, specialization = :specialization, max_courses = :max_courses, is_available = :is_available, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("update doctor: %w", err)
	}
	return nil
}

// Delete removes a doctor by id.
func (r *DoctorRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM doctors WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	return nil
}
