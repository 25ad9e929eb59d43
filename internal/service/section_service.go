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

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error)
	FindByID(ctx context.Context, id string) (*models.Section, error)
	Create(ctx context.Context, section *models.Section) error
	Update(ctx context.Context, section *models.Section) error
	Delete(ctx context.Context, id string) error
}

type sectionDoctorReader interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

// CreateSectionRequest captures fields for creating course sections.
type CreateSectionRequest struct {
	SemesterID         string   `json:"semester_id" validate:"required"`
	CourseCode         string   `json:"course_code" validate:"required"`
	CourseName         string   `json:"course_name" validate:"required"`
	SectionNumber      int      `json:"section_number" validate:"required,gt=0"`
	Type               string   `json:"type" validate:"required,oneof=LECTURE LAB TUTORIAL"`
	Capacity           int      `json:"capacity" validate:"required,gt=0"`
	DoctorID           *string  `json:"doctor_id"`
	TeachingAssistants []string `json:"teaching_assistants"`
}

// UpdateSectionRequest modifies section fields.
type UpdateSectionRequest struct {
	CourseCode         string   `json:"course_code" validate:"required"`
	CourseName         string   `json:"course_name" validate:"required"`
	SectionNumber      int      `json:"section_number" validate:"required,gt=0"`
	Type               string   `json:"type" validate:"required,oneof=LECTURE LAB TUTORIAL"`
	Capacity           int      `json:"capacity" validate:"required,gt=0"`
	DoctorID           *string  `json:"doctor_id"`
	TeachingAssistants []string `json:"teaching_assistants"`
	IsActive           *bool    `json:"is_active" validate:"required"`
}

// SectionService handles course section workflows.
type SectionService struct {
	repo      sectionRepository
	doctors   sectionDoctorReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService creates a new section service.
func NewSectionService(repo sectionRepository, doctors sectionDoctorReader, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, doctors: doctors, validator: validate, logger: logger}
}

// List returns paginated sections.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
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
	return sections, pagination, nil
}

// Get returns a section by identifier.
func (s *SectionService) Get(ctx context.Context, id string) (*models.Section, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// Create adds a new section. A doctor assignment is optional at creation
// time; unassigned sections are skipped by the generator.
func (s *SectionService) Create(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	if err := s.checkDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	section := &models.Section{
		SemesterID:         req.SemesterID,
		CourseCode:         strings.ToUpper(strings.TrimSpace(req.CourseCode)),
		CourseName:         req.CourseName,
		SectionNumber:      req.SectionNumber,
		Type:               models.SectionType(req.Type),
		Capacity:           req.Capacity,
		DoctorID:           req.DoctorID,
		TeachingAssistants: pq.StringArray(req.TeachingAssistants),
		IsActive:           true,
	}

	if err := s.repo.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}
	return section, nil
}

// Update modifies an existing section.
func (s *SectionService) Update(ctx context.Context, id string, req UpdateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	section, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	section.CourseCode = strings.ToUpper(strings.TrimSpace(req.CourseCode))
	section.CourseName = req.CourseName
	section.SectionNumber = req.SectionNumber
	section.Type = models.SectionType(req.Type)
	section.Capacity = req.Capacity
	section.DoctorID = req.DoctorID
	section.TeachingAssistants = pq.StringArray(req.TeachingAssistants)
	section.IsActive = *req.IsActive

	if err := s.repo.Update(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section")
	}
	return section, nil
}

// Delete removes a section.
func (s *SectionService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
	}
	return nil
}

func (s *SectionService) checkDoctor(ctx context.Context, doctorID *string) error {
	if doctorID == nil || *doctorID == "" {
		return nil
	}
	if _, err := s.doctors.FindByID(ctx, *doctorID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrValidation, "assigned doctor does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check doctor")
	}
	return nil
}
