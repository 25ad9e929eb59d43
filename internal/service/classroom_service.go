package service

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
)

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	Update(ctx context.Context, classroom *models.Classroom) error
	Delete(ctx context.Context, id string) error
}

// CreateClassroomRequest captures fields for creating classrooms.
type CreateClassroomRequest struct {
	RoomNumber       string                  `json:"room_number" validate:"required"`
	Building         string                  `json:"building" validate:"required"`
	Capacity         int                     `json:"capacity" validate:"required,gt=0"`
	RoomType         string                  `json:"room_type" validate:"required,oneof=LECTURE_HALL LAB SEMINAR_ROOM COMPUTER_LAB AUDITORIUM TUTORIAL_ROOM"`
	Facilities       []string                `json:"facilities"`
	UnavailableSlots []models.BlackoutWindow `json:"unavailable_slots"`
}

// UpdateClassroomRequest modifies classroom fields.
type UpdateClassroomRequest struct {
	RoomNumber       string                  `json:"room_number" validate:"required"`
	Building         string                  `json:"building" validate:"required"`
	Capacity         int                     `json:"capacity" validate:"required,gt=0"`
	RoomType         string                  `json:"room_type" validate:"required,oneof=LECTURE_HALL LAB SEMINAR_ROOM COMPUTER_LAB AUDITORIUM TUTORIAL_ROOM"`
	Facilities       []string                `json:"facilities"`
	IsAvailable      *bool                   `json:"is_available" validate:"required"`
	UnavailableSlots []models.BlackoutWindow `json:"unavailable_slots"`
}

// ClassroomService handles classroom domain workflows.
type ClassroomService struct {
	repo      classroomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService creates a new classroom service.
func NewClassroomService(repo classroomRepository, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated classrooms.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	classrooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
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
	return classrooms, pagination, nil
}

// Get returns a classroom by identifier.
func (s *ClassroomService) Get(ctx context.Context, id string) (*models.Classroom, error) {
	classroom, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return classroom, nil
}

// Create adds a new classroom.
func (s *ClassroomService) Create(ctx context.Context, req CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	blackouts, err := encodeBlackouts(req.UnavailableSlots)
	if err != nil {
		return nil, err
	}

	classroom := &models.Classroom{
		RoomNumber:       req.RoomNumber,
		Building:         req.Building,
		Capacity:         req.Capacity,
		RoomType:         models.RoomType(req.RoomType),
		Facilities:       pq.StringArray(req.Facilities),
		IsAvailable:      true,
		UnavailableSlots: blackouts,
	}

	if err := s.repo.Create(ctx, classroom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	return classroom, nil
}

// Update modifies an existing classroom.
func (s *ClassroomService) Update(ctx context.Context, id string, req UpdateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}

	classroom, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	blackouts, err := encodeBlackouts(req.UnavailableSlots)
	if err != nil {
		return nil, err
	}

	classroom.RoomNumber = req.RoomNumber
	classroom.Building = req.Building
	classroom.Capacity = req.Capacity
	classroom.RoomType = models.RoomType(req.RoomType)
	classroom.Facilities = pq.StringArray(req.Facilities)
	classroom.IsAvailable = *req.IsAvailable
	classroom.UnavailableSlots = blackouts

	if err := s.repo.Update(ctx, classroom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	return classroom, nil
}

// Delete removes a classroom.
func (s *ClassroomService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classroom")
	}
	return nil
}

// encodeBlackouts validates the weekly unavailability windows and encodes
// them for storage.
func encodeBlackouts(windows []models.BlackoutWindow) (types.JSONText, error) {
	for i := range windows {
		day, err := parseWeekday(windows[i].Day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blackout day")
		}
		windows[i].Day = string(day)
		if _, err := newInterval(day, windows[i].StartTime, windows[i].EndTime); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blackout period")
		}
	}
	if len(windows) == 0 {
		return types.JSONText("[]"), nil
	}
	payload, err := json.Marshal(windows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode blackout windows")
	}
	return types.JSONText(payload), nil
}
