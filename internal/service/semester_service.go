package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
)

type semesterRepository interface {
	List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	FindByCode(ctx context.Context, code string) (*models.Semester, error)
	Create(ctx context.Context, semester *models.Semester) error
	Update(ctx context.Context, semester *models.Semester) error
	Activate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// CreateSemesterRequest captures fields for creating semesters.
type CreateSemesterRequest struct {
	Name      string `json:"name" validate:"required"`
	Code      string `json:"code" validate:"required"`
	Year      int    `json:"year" validate:"required,gte=2000"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

// UpdateSemesterRequest modifies semester fields.
type UpdateSemesterRequest struct {
	Name      string                `json:"name" validate:"required"`
	Year      int                   `json:"year" validate:"required,gte=2000"`
	StartDate string                `json:"start_date" validate:"required"`
	EndDate   string                `json:"end_date" validate:"required"`
	Status    models.SemesterStatus `json:"status" validate:"required,oneof=DRAFT ACTIVE ARCHIVED"`
}

// SemesterService handles semester domain workflows.
type SemesterService struct {
	repo      semesterRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService creates a new semester service.
func NewSemesterService(repo semesterRepository, validate *validator.Validate, logger *zap.Logger) *SemesterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated semesters.
func (s *SemesterService) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, *models.Pagination, error) {
	semesters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
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
	return semesters, pagination, nil
}

// Get returns a semester by identifier.
func (s *SemesterService) Get(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// Create adds a new semester ensuring code uniqueness.
func (s *SemesterService) Create(ctx context.Context, req CreateSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester dates")
	}

	if _, err := s.repo.FindByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "semester code already exists")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check semester code")
	}

	semester := &models.Semester{
		Name:      req.Name,
		Code:      req.Code,
		Year:      req.Year,
		StartDate: start,
		EndDate:   end,
		Status:    models.SemesterStatusDraft,
	}

	if err := s.repo.Create(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}
	return semester, nil
}

// Update modifies an existing semester.
func (s *SemesterService) Update(ctx context.Context, id string, req UpdateSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}

	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester dates")
	}

	semester.Name = req.Name
	semester.Year = req.Year
	semester.StartDate = start
	semester.EndDate = end
	semester.Status = req.Status

	if err := s.repo.Update(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}
	return semester, nil
}

// Activate marks one semester as the active one.
func (s *SemesterService) Activate(ctx context.Context, id string) (*models.Semester, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.Activate(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate semester")
	}
	return s.Get(ctx, id)
}

// Delete removes a semester.
func (s *SemesterService) Delete(ctx context.Context, id string) error {
	semester, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if semester.IsActive {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot delete the active semester")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester")
	}
	return nil
}

func parseDateRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	return start, end, nil
}
