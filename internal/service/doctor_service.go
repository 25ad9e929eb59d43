package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
)

type doctorRepository interface {
	List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, int, error)
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	FindByEmployeeID(ctx context.Context, employeeID string) (*models.Doctor, error)
	Create(ctx context.Context, doctor *models.Doctor) error
	Update(ctx context.Context, doctor *models.Doctor) error
	Delete(ctx context.Context, id string) error
}

// CreateDoctorRequest captures fields for creating teaching staff.
// MaxCourses zero means no teaching load cap.
type CreateDoctorRequest struct {
	EmployeeID     string   `json:"employee_id" validate:"required"`
	FullName       string   `json:"full_name" validate:"required"`
	Specialization []string `json:"specialization"`
	MaxCourses     int      `json:"max_courses" validate:"gte=0"`
}

// UpdateDoctorRequest modifies doctor fields.
type UpdateDoctorRequest struct {
	FullName       string   `json:"full_name" validate:"required"`
	Specialization []string `json:"specialization"`
	MaxCourses     int      `json:"max_courses" validate:"gte=0"`
	IsAvailable    *bool    `json:"is_available" validate:"required"`
}

// DoctorService handles teaching staff workflows.
type DoctorService struct {
	repo      doctorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDoctorService creates a new doctor service.
func NewDoctorService(repo doctorRepository, validate *validator.Validate, logger *zap.Logger) *DoctorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoctorService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated doctors.
func (s *DoctorService) List(ctx context.Context, filter models.DoctorFilter) ([]models.Doctor, *models.Pagination, error) {
	doctors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doctors")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return doctors, pagination, nil
}

// Get returns a doctor by identifier.
func (s *DoctorService) Get(ctx context.Context, id string) (*models.Doctor, error) {
	doctor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	return doctor, nil
}

// Create adds a new doctor ensuring employee id uniqueness.
func (s *DoctorService) Create(ctx context.Context, req CreateDoctorRequest) (*models.Doctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid doctor payload")
	}

	req.EmployeeID = strings.TrimSpace(req.EmployeeID)

	if _, err := s.repo.FindByEmployeeID(ctx, req.EmployeeID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "employee id already exists")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check employee id")
	}

	doctor := &models.Doctor{
		EmployeeID:     req.EmployeeID,
		FullName:       req.FullName,
		Specialization: pq.StringArray(req.Specialization),
		MaxCourses:     req.MaxCourses,
		IsAvailable:    true,
	}

	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create doctor")
	}
	return doctor, nil
}

// Update modifies an existing doctor.
func (s *DoctorService) Update(ctx context.Context, id string, req UpdateDoctorRequest) (*models.Doctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid doctor payload")
	}

	doctor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	doctor.FullName = req.FullName
	doctor.Specialization = pq.StringArray(req.Specialization)
	doctor.MaxCourses = req.MaxCourses
	doctor.IsAvailable = *req.IsAvailable

	if err := s.repo.Update(ctx, doctor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update doctor")
	}
	return doctor, nil
}

// Delete removes a doctor.
func (s *DoctorService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete doctor")
	}
	return nil
}
