package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/unidept/timetable-api/internal/models"
	"github.com/unidept/timetable-api/internal/service"
)

type classroomReaderMock struct {
	rooms map[string]*models.Classroom
}

func (m classroomReaderMock) FindByID(_ context.Context, id string) (*models.Classroom, error) {
	if room, ok := m.rooms[id]; ok {
		return room, nil
	}
	return nil, sql.ErrNoRows
}

type sectionReaderMock struct{}

func (m sectionReaderMock) FindByID(_ context.Context, id string) (*models.Section, error) {
	return &models.Section{ID: id, Capacity: 30, Type: models.SectionTypeLecture}, nil
}

type scheduleReaderMock struct {
	schedules []models.Schedule
}

func (m scheduleReaderMock) ListBySemester(_ context.Context, _ string) ([]models.Schedule, error) {
	return m.schedules, nil
}

type sectionListerMock struct{}

func (m sectionListerMock) ListActive(_ context.Context, _ string) ([]models.Section, error) {
	return nil, nil
}

type slotListerMock struct{}

func (m slotListerMock) ListActive(_ context.Context, _ string) ([]models.TimeSlot, error) {
	return nil, nil
}

type classroomListerMock struct{}

func (m classroomListerMock) ListAvailable(_ context.Context) ([]models.Classroom, error) {
	return nil, nil
}

type scheduleStoreMock struct {
	count int
}

func (m *scheduleStoreMock) ListBySemester(_ context.Context, _ string) ([]models.Schedule, error) {
	return nil, nil
}

func (m *scheduleStoreMock) Create(_ context.Context, _ *models.Schedule) error {
	return nil
}

func (m *scheduleStoreMock) BulkSetStatus(_ context.Context, _ string, _ []models.ScheduleStatus, _ models.ScheduleStatus, _ *time.Time) (int, error) {
	return m.count, nil
}

type doctorReaderMock struct{}

func (m doctorReaderMock) FindByID(_ context.Context, _ string) (*models.Doctor, error) {
	return nil, sql.ErrNoRows
}

func newConflictServiceForTest(schedules []models.Schedule) *service.ConflictService {
	rooms := map[string]*models.Classroom{
		"room-1": {ID: "room-1", RoomNumber: "101", Building: "A", Capacity: 100, RoomType: models.RoomTypeLectureHall, IsAvailable: true},
	}
	return service.NewConflictService(sectionReaderMock{}, classroomReaderMock{rooms: rooms},
		scheduleReaderMock{schedules: schedules}, service.ConflictConfig{}, nil)
}

func TestCheckConflictsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	busy := []models.Schedule{{
		ID: "sched-1", SemesterID: "sem-1", DoctorID: "doc-1", ClassroomID: "room-1",
		Slots:  models.ScheduleSlotList{{Day: models.Monday, StartTime: "09:00", EndTime: "11:00"}},
		Status: models.ScheduleStatusDraft,
	}}
	handler := NewTimetableHandler(nil, newConflictServiceForTest(busy))

	payload := []byte(`{"semester_id":"sem-1","doctor_id":"doc-1","classroom_id":"room-1","slots":[{"day":"Monday","start_time":"10:00","end_time":"12:00"}]}`)
	req, _ := http.NewRequest(http.MethodPost, "/timetable/check", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.CheckConflicts(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data struct {
			Conflicts   []models.Conflict `json:"conflicts"`
			HasBlocking bool              `json:"has_blocking"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Data.HasBlocking)
	require.NotEmpty(t, envelope.Data.Conflicts)
}

func TestCheckConflictsEndpointBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(nil, newConflictServiceForTest(nil))

	req, _ := http.NewRequest(http.MethodPost, "/timetable/check", bytes.NewReader([]byte(`{"semester_id":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.CheckConflicts(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishEndpointRefusesWithConflicts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Two drafts with the same doctor in the same period block publication.
	clash := []models.Schedule{
		{ID: "s1", SemesterID: "sem-1", SectionID: "sec-1", DoctorID: "doc-1", ClassroomID: "room-1",
			Slots:  models.ScheduleSlotList{{Day: models.Monday, StartTime: "09:00", EndTime: "11:00"}},
			Status: models.ScheduleStatusDraft},
		{ID: "s2", SemesterID: "sem-1", SectionID: "sec-2", DoctorID: "doc-1", ClassroomID: "room-1",
			Slots:  models.ScheduleSlotList{{Day: models.Monday, StartTime: "10:00", EndTime: "12:00"}},
			Status: models.ScheduleStatusDraft},
	}
	timetableSvc := service.NewTimetableService(sectionListerMock{}, slotListerMock{}, classroomListerMock{},
		&scheduleStoreMock{}, doctorReaderMock{}, newConflictServiceForTest(clash), nil, nil, nil, nil,
		service.TimetableConfig{})
	handler := NewTimetableHandler(timetableSvc, nil)

	req, _ := http.NewRequest(http.MethodPost, "/semesters/sem-1/timetable/publish", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sem-1"}}

	handler.Publish(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPublishEndpointSucceedsWhenClean(t *testing.T) {
	gin.SetMode(gin.TestMode)

	clean := []models.Schedule{
		{ID: "s1", SemesterID: "sem-1", SectionID: "sec-1", DoctorID: "doc-1", ClassroomID: "room-1",
			Slots:  models.ScheduleSlotList{{Day: models.Monday, StartTime: "09:00", EndTime: "11:00"}},
			Status: models.ScheduleStatusValidated},
	}
	store := &scheduleStoreMock{count: 1}
	timetableSvc := service.NewTimetableService(sectionListerMock{}, slotListerMock{}, classroomListerMock{},
		store, doctorReaderMock{}, newConflictServiceForTest(clean), nil, nil, nil, nil,
		service.TimetableConfig{})
	handler := NewTimetableHandler(timetableSvc, nil)

	req, _ := http.NewRequest(http.MethodPost, "/semesters/sem-1/timetable/publish", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sem-1"}}

	handler.Publish(c)

	require.Equal(t, http.StatusOK, w.Code)
}
