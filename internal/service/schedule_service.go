package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/unidept/timetable-api/internal/dto"
	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	SetStatus(ctx context.Context, id string, status models.ScheduleStatus, publishedAt *time.Time) error
	Delete(ctx context.Context, id string) error
}

type conflictChecker interface {
	Check(ctx context.Context, req dto.ConflictCheckRequest) ([]models.Conflict, error)
}

// CreateScheduleRequest captures fields for manual schedule placement.
type CreateScheduleRequest struct {
	SemesterID         string          `json:"semester_id" validate:"required"`
	SectionID          string          `json:"section_id" validate:"required"`
	DoctorID           string          `json:"doctor_id" validate:"required"`
	ClassroomID        string          `json:"classroom_id" validate:"required"`
	Slots              []dto.SlotInput `json:"slots" validate:"required,min=1,dive"`
	TeachingAssistants []string        `json:"teaching_assistants"`
}

// UpdateScheduleRequest modifies an existing placement.
type UpdateScheduleRequest struct {
	DoctorID           string          `json:"doctor_id" validate:"required"`
	ClassroomID        string          `json:"classroom_id" validate:"required"`
	Slots              []dto.SlotInput `json:"slots" validate:"required,min=1,dive"`
	TeachingAssistants []string        `json:"teaching_assistants"`
}

// ScheduleService handles manual schedule workflows. Every placement is
// checked against the conflict rules first and rejected when a blocking
// conflict exists.
type ScheduleService struct {
	repo      scheduleRepository
	checker   conflictChecker
	cache     timetableCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService creates a new schedule service.
func NewScheduleService(repo scheduleRepository, checker conflictChecker, cache timetableCache, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, checker: checker, cache: cache, validator: validate, logger: logger}
}

// List returns paginated schedules.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
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
	return schedules, pagination, nil
}

// Get returns a schedule by identifier.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// Create places a schedule after a conflict check. Blocking conflicts
// reject the placement and are returned for the caller to render.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.Schedule, []models.Conflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	conflicts, err := s.checker.Check(ctx, dto.ConflictCheckRequest{
		SemesterID:         req.SemesterID,
		DoctorID:           req.DoctorID,
		ClassroomID:        req.ClassroomID,
		SectionID:          req.SectionID,
		TeachingAssistants: req.TeachingAssistants,
		Slots:              req.Slots,
	})
	if err != nil {
		return nil, nil, err
	}
	if models.HasBlocking(conflicts) {
		return nil, conflicts, appErrors.Clone(appErrors.ErrConflict, "schedule has blocking conflicts")
	}

	slots, err := buildScheduleSlots(req.Slots)
	if err != nil {
		return nil, nil, err
	}

	schedule := &models.Schedule{
		SemesterID:         req.SemesterID,
		SectionID:          req.SectionID,
		DoctorID:           req.DoctorID,
		ClassroomID:        req.ClassroomID,
		Slots:              slots,
		TeachingAssistants: pq.StringArray(req.TeachingAssistants),
		Status:             models.ScheduleStatusDraft,
	}

	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.invalidate(ctx, schedule.SemesterID)
	return schedule, conflicts, nil
}

// Update replaces the placement of a non-published schedule. Any edit
// drops the schedule back to DRAFT.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleRequest) (*models.Schedule, []models.Conflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if schedule.Status == models.ScheduleStatusPublished {
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "published schedules cannot be modified")
	}

	conflicts, err := s.checker.Check(ctx, dto.ConflictCheckRequest{
		SemesterID:         schedule.SemesterID,
		DoctorID:           req.DoctorID,
		ClassroomID:        req.ClassroomID,
		SectionID:          schedule.SectionID,
		TeachingAssistants: req.TeachingAssistants,
		Slots:              req.Slots,
		ExcludeScheduleID:  schedule.ID,
	})
	if err != nil {
		return nil, nil, err
	}
	if models.HasBlocking(conflicts) {
		return nil, conflicts, appErrors.Clone(appErrors.ErrConflict, "schedule has blocking conflicts")
	}

	slots, err := buildScheduleSlots(req.Slots)
	if err != nil {
		return nil, nil, err
	}

	schedule.DoctorID = req.DoctorID
	schedule.ClassroomID = req.ClassroomID
	schedule.Slots = slots
	schedule.TeachingAssistants = pq.StringArray(req.TeachingAssistants)
	schedule.Status = models.ScheduleStatusDraft
	schedule.PublishedAt = nil

	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	s.invalidate(ctx, schedule.SemesterID)
	return schedule, conflicts, nil
}

// Cancel withdraws a schedule. Published schedules stay immutable; the
// timetable must be republished without the section instead.
func (s *ScheduleService) Cancel(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status == models.ScheduleStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "published schedules cannot be cancelled")
	}
	if schedule.Status == models.ScheduleStatusCancelled {
		return schedule, nil
	}

	if err := s.repo.SetStatus(ctx, id, models.ScheduleStatusCancelled, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel schedule")
	}
	schedule.Status = models.ScheduleStatusCancelled
	s.invalidate(ctx, schedule.SemesterID)
	return schedule, nil
}

// Delete removes a non-published schedule.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if schedule.Status == models.ScheduleStatusPublished {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "published schedules cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.invalidate(ctx, schedule.SemesterID)
	return nil
}

func (s *ScheduleService) invalidate(ctx context.Context, semesterID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, timetableCacheKey(semesterID)); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.String("semester_id", semesterID), zap.Error(err))
	}
}

// buildScheduleSlots normalises validated slot inputs for storage.
func buildScheduleSlots(inputs []dto.SlotInput) (models.ScheduleSlotList, error) {
	slots := make(models.ScheduleSlotList, 0, len(inputs))
	for _, in := range inputs {
		day, err := parseWeekday(in.Day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot day")
		}
		if _, err := newInterval(day, in.StartTime, in.EndTime); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot period")
		}
		slots = append(slots, models.ScheduleSlot{
			Day:       day,
			StartTime: in.StartTime,
			EndTime:   in.EndTime,
			Type:      models.SectionType(in.Type),
		})
	}
	return slots, nil
}
