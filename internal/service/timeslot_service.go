package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
)

type timeSlotRepository interface {
	List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, int, error)
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
	ExistsForPeriod(ctx context.Context, semesterID string, day models.Weekday, startTime, endTime string) (bool, error)
	Create(ctx context.Context, slot *models.TimeSlot) error
	Update(ctx context.Context, slot *models.TimeSlot) error
	Delete(ctx context.Context, id string) error
}

// CreateTimeSlotRequest captures fields for defining a slot of the
// semester grid.
type CreateTimeSlotRequest struct {
	SemesterID string `json:"semester_id" validate:"required"`
	Day        string `json:"day" validate:"required"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	Label      string `json:"label" validate:"required,oneof=LECTURE LAB TUTORIAL"`
}

// UpdateTimeSlotRequest modifies slot fields.
type UpdateTimeSlotRequest struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Label     string `json:"label" validate:"required,oneof=LECTURE LAB TUTORIAL"`
	IsActive  *bool  `json:"is_active" validate:"required"`
}

// TimeSlotService handles the semester slot grid workflows.
type TimeSlotService struct {
	repo      timeSlotRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeSlotService creates a new time slot service.
func NewTimeSlotService(repo timeSlotRepository, validate *validator.Validate, logger *zap.Logger) *TimeSlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeSlotService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated time slots.
func (s *TimeSlotService) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, *models.Pagination, error) {
	slots, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
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
	return slots, pagination, nil
}

// Get returns a time slot by identifier.
func (s *TimeSlotService) Get(ctx context.Context, id string) (*models.TimeSlot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}
	return slot, nil
}

// Create defines a new slot, validating the period and keeping the
// (semester, day, start, end) tuple unique.
func (s *TimeSlotService) Create(ctx context.Context, req CreateTimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}

	day, err := parseWeekday(req.Day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot day")
	}
	if _, err := newInterval(day, req.StartTime, req.EndTime); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot period")
	}

	exists, err := s.repo.ExistsForPeriod(ctx, req.SemesterID, day, req.StartTime, req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check time slot period")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "time slot already defined for this period")
	}

	slot := &models.TimeSlot{
		SemesterID: req.SemesterID,
		Day:        day,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Label:      models.SectionType(req.Label),
		IsActive:   true,
	}

	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time slot")
	}
	return slot, nil
}

// Update modifies an existing time slot.
func (s *TimeSlotService) Update(ctx context.Context, id string, req UpdateTimeSlotRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot payload")
	}

	slot, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	day, err := parseWeekday(req.Day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot day")
	}
	if _, err := newInterval(day, req.StartTime, req.EndTime); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time slot period")
	}

	slot.Day = day
	slot.StartTime = req.StartTime
	slot.EndTime = req.EndTime
	slot.Label = models.SectionType(req.Label)
	slot.IsActive = *req.IsActive

	if err := s.repo.Update(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update time slot")
	}
	return slot, nil
}

// Delete removes a time slot.
func (s *TimeSlotService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time slot")
	}
	return nil
}
