package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unidept/timetable-api/internal/dto"
	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
)

type scheduleRepoStub struct {
	byID map[string]*models.Schedule

	created   *models.Schedule
	updated   *models.Schedule
	setStatus models.ScheduleStatus
	deleted   string
}

func (s *scheduleRepoStub) List(_ context.Context, _ models.ScheduleFilter) ([]models.Schedule, int, error) {
	return nil, 0, nil
}

func (s *scheduleRepoStub) FindByID(_ context.Context, id string) (*models.Schedule, error) {
	if sched, ok := s.byID[id]; ok {
		copied := *sched
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *scheduleRepoStub) Create(_ context.Context, schedule *models.Schedule) error {
	s.created = schedule
	return nil
}

func (s *scheduleRepoStub) Update(_ context.Context, schedule *models.Schedule) error {
	s.updated = schedule
	return nil
}

func (s *scheduleRepoStub) SetStatus(_ context.Context, _ string, status models.ScheduleStatus, _ *time.Time) error {
	s.setStatus = status
	return nil
}

func (s *scheduleRepoStub) Delete(_ context.Context, id string) error {
	s.deleted = id
	return nil
}

type checkerStub struct {
	conflicts []models.Conflict
	lastReq   dto.ConflictCheckRequest
}

func (s *checkerStub) Check(_ context.Context, req dto.ConflictCheckRequest) ([]models.Conflict, error) {
	s.lastReq = req
	return s.conflicts, nil
}

func validCreateRequest() CreateScheduleRequest {
	return CreateScheduleRequest{
		SemesterID:  "sem-1",
		SectionID:   "sec-1",
		DoctorID:    "doc-1",
		ClassroomID: "room-1",
		Slots: []dto.SlotInput{
			{Day: "Monday", StartTime: "09:00", EndTime: "11:00", Type: "LECTURE"},
		},
	}
}

func TestScheduleCreateRejectedOnBlockingConflict(t *testing.T) {
	repo := &scheduleRepoStub{}
	checker := &checkerStub{conflicts: []models.Conflict{
		{Type: models.ConflictTypeDoctor, Severity: models.SeverityError, Message: "double-booked"},
	}}
	svc := NewScheduleService(repo, checker, nil, nil, nil)

	schedule, conflicts, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, schedule)
	require.Len(t, conflicts, 1)
	assert.Nil(t, repo.created, "blocked placement must not be persisted")
}

func TestScheduleCreateWarningsDoNotBlock(t *testing.T) {
	repo := &scheduleRepoStub{}
	checker := &checkerStub{conflicts: []models.Conflict{
		{Type: models.ConflictTypeTA, Severity: models.SeverityWarning, Message: "ta overlap"},
	}}
	svc := NewScheduleService(repo, checker, nil, nil, nil)

	schedule, conflicts, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	require.NotNil(t, schedule)
	assert.Equal(t, models.ScheduleStatusDraft, schedule.Status)
	assert.Equal(t, models.Monday, schedule.Slots[0].Day)
	require.Len(t, conflicts, 1, "warnings are surfaced alongside the created schedule")
	assert.NotNil(t, repo.created)
}

func TestScheduleCreateNormalisesSlotDay(t *testing.T) {
	repo := &scheduleRepoStub{}
	svc := NewScheduleService(repo, &checkerStub{}, nil, nil, nil)

	req := validCreateRequest()
	req.Slots[0].Day = "monday"
	schedule, _, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.Monday, schedule.Slots[0].Day)
}

func TestScheduleCreateRejectsInvalidSlot(t *testing.T) {
	svc := NewScheduleService(&scheduleRepoStub{}, &checkerStub{}, nil, nil, nil)

	req := validCreateRequest()
	req.Slots[0].EndTime = "08:00"
	_, _, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleUpdatePublishedIsRefused(t *testing.T) {
	repo := &scheduleRepoStub{byID: map[string]*models.Schedule{
		"sched-1": {ID: "sched-1", SemesterID: "sem-1", SectionID: "sec-1", Status: models.ScheduleStatusPublished},
	}}
	svc := NewScheduleService(repo, &checkerStub{}, nil, nil, nil)

	_, _, err := svc.Update(context.Background(), "sched-1", UpdateScheduleRequest{
		DoctorID:    "doc-1",
		ClassroomID: "room-1",
		Slots:       []dto.SlotInput{{Day: "Monday", StartTime: "09:00", EndTime: "11:00"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.updated)
}

func TestScheduleUpdateExcludesOwnScheduleAndResetsStatus(t *testing.T) {
	repo := &scheduleRepoStub{byID: map[string]*models.Schedule{
		"sched-1": {ID: "sched-1", SemesterID: "sem-1", SectionID: "sec-1", Status: models.ScheduleStatusValidated},
	}}
	checker := &checkerStub{}
	svc := NewScheduleService(repo, checker, nil, nil, nil)

	schedule, _, err := svc.Update(context.Background(), "sched-1", UpdateScheduleRequest{
		DoctorID:    "doc-2",
		ClassroomID: "room-2",
		Slots:       []dto.SlotInput{{Day: "Tuesday", StartTime: "10:00", EndTime: "12:00"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "sched-1", checker.lastReq.ExcludeScheduleID)
	assert.Equal(t, models.ScheduleStatusDraft, schedule.Status, "edits drop the schedule back to draft")
	assert.Nil(t, schedule.PublishedAt)
	require.NotNil(t, repo.updated)
	assert.Equal(t, "doc-2", repo.updated.DoctorID)
}

func TestScheduleCancel(t *testing.T) {
	repo := &scheduleRepoStub{byID: map[string]*models.Schedule{
		"draft":     {ID: "draft", SemesterID: "sem-1", Status: models.ScheduleStatusDraft},
		"published": {ID: "published", SemesterID: "sem-1", Status: models.ScheduleStatusPublished},
		"cancelled": {ID: "cancelled", SemesterID: "sem-1", Status: models.ScheduleStatusCancelled},
	}}
	svc := NewScheduleService(repo, &checkerStub{}, nil, nil, nil)

	schedule, err := svc.Cancel(context.Background(), "draft")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCancelled, schedule.Status)
	assert.Equal(t, models.ScheduleStatusCancelled, repo.setStatus)

	_, err = svc.Cancel(context.Background(), "published")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	// Cancelling twice is a no-op, not an error.
	repo.setStatus = ""
	schedule, err = svc.Cancel(context.Background(), "cancelled")
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCancelled, schedule.Status)
	assert.Empty(t, repo.setStatus)
}

func TestScheduleDeletePublishedIsRefused(t *testing.T) {
	repo := &scheduleRepoStub{byID: map[string]*models.Schedule{
		"published": {ID: "published", SemesterID: "sem-1", Status: models.ScheduleStatusPublished},
	}}
	svc := NewScheduleService(repo, &checkerStub{}, nil, nil, nil)

	err := svc.Delete(context.Background(), "published")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestScheduleGetNotFound(t *testing.T) {
	svc := NewScheduleService(&scheduleRepoStub{}, &checkerStub{}, nil, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
