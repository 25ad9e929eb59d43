package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unidept/timetable-api/internal/models"
)

type sectionListerStub struct {
	sections []models.Section
}

func (s sectionListerStub) ListActive(_ context.Context, _ string) ([]models.Section, error) {
	return s.sections, nil
}

type slotListerStub struct {
	slots []models.TimeSlot
}

func (s slotListerStub) ListActive(_ context.Context, _ string) ([]models.TimeSlot, error) {
	return s.slots, nil
}

type classroomListerStub struct {
	rooms []models.Classroom
}

func (s classroomListerStub) ListAvailable(_ context.Context) ([]models.Classroom, error) {
	return s.rooms, nil
}

type scheduleStoreStub struct {
	existing []models.Schedule
	created  []models.Schedule

	bulkFrom []models.ScheduleStatus
	bulkTo   models.ScheduleStatus
	bulkAt   *time.Time
	bulkRows int
	bulkHit  bool
}

func (s *scheduleStoreStub) ListBySemester(_ context.Context, _ string) ([]models.Schedule, error) {
	return append(append([]models.Schedule{}, s.existing...), s.created...), nil
}

func (s *scheduleStoreStub) Create(_ context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = fmt.Sprintf("sched-%d", len(s.created)+1)
	}
	s.created = append(s.created, *schedule)
	return nil
}

func (s *scheduleStoreStub) BulkSetStatus(_ context.Context, _ string, from []models.ScheduleStatus, to models.ScheduleStatus, publishedAt *time.Time) (int, error) {
	s.bulkHit = true
	s.bulkFrom = from
	s.bulkTo = to
	s.bulkAt = publishedAt
	return s.bulkRows, nil
}

type doctorReaderStub struct {
	doctors map[string]*models.Doctor
}

func (s doctorReaderStub) FindByID(_ context.Context, id string) (*models.Doctor, error) {
	if doctor, ok := s.doctors[id]; ok {
		return doctor, nil
	}
	return nil, sql.ErrNoRows
}

type auditorStub struct {
	conflicts []models.Conflict
	count     int
}

func (s auditorStub) AuditSemester(_ context.Context, _ string) ([]models.Conflict, int, error) {
	return s.conflicts, s.count, nil
}

type trailStub struct {
	actions []string
}

func (s *trailStub) Record(action, _ string, _ map[string]interface{}) {
	s.actions = append(s.actions, action)
}

type timetableFixture struct {
	sections []models.Section
	slots    []models.TimeSlot
	rooms    []models.Classroom
	doctors  map[string]*models.Doctor
	existing []models.Schedule
	auditor  auditorStub
}

func strPtr(s string) *string { return &s }

func newTimetableFixture(fx timetableFixture) (*TimetableService, *scheduleStoreStub, *trailStub) {
	store := &scheduleStoreStub{existing: fx.existing}
	trail := &trailStub{}
	svc := NewTimetableService(
		sectionListerStub{sections: fx.sections},
		slotListerStub{slots: fx.slots},
		classroomListerStub{rooms: fx.rooms},
		store,
		doctorReaderStub{doctors: fx.doctors},
		fx.auditor,
		trail,
		nil,
		nil,
		nil,
		TimetableConfig{},
	)
	return svc, store, trail
}

func lectureSlot(id string, day models.Weekday, start, end string) models.TimeSlot {
	return models.TimeSlot{ID: id, SemesterID: "sem-1", Day: day, StartTime: start, EndTime: end, Label: models.SectionTypeLecture, IsActive: true}
}

func TestGeneratePlacesSectionsDeterministically(t *testing.T) {
	svc, store, trail := newTimetableFixture(timetableFixture{
		sections: []models.Section{
			{ID: "sec-1", SemesterID: "sem-1", CourseCode: "CS101", SectionNumber: 1, Type: models.SectionTypeLecture, Capacity: 30, DoctorID: strPtr("doc-1"), IsActive: true},
			{ID: "sec-2", SemesterID: "sem-1", CourseCode: "CS102", SectionNumber: 1, Type: models.SectionTypeLecture, Capacity: 30, DoctorID: strPtr("doc-1"), IsActive: true},
		},
		// Slot order is scrambled on purpose; the generator must scan
		// Monday 09:00 first regardless of storage order.
		slots: []models.TimeSlot{
			lectureSlot("ts-2", models.Monday, "11:00", "13:00"),
			lectureSlot("ts-3", models.Tuesday, "09:00", "11:00"),
			lectureSlot("ts-1", models.Monday, "09:00", "11:00"),
		},
		rooms: []models.Classroom{
			{ID: "room-b", RoomNumber: "201", Building: "B", Capacity: 50, RoomType: models.RoomTypeLectureHall, IsAvailable: true},
			{ID: "room-a", RoomNumber: "101", Building: "A", Capacity: 50, RoomType: models.RoomTypeLectureHall, IsAvailable: true},
		},
		doctors: map[string]*models.Doctor{
			"doc-1": {ID: "doc-1", FullName: "Dr. Ahmed", MaxCourses: 0, IsAvailable: true},
		},
	})

	resp, err := svc.Generate(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Generated)
	assert.Zero(t, resp.Unassigned)
	require.Len(t, store.created, 2)

	first := store.created[0]
	assert.Equal(t, "sec-1", first.SectionID)
	assert.Equal(t, models.Monday, first.Slots[0].Day)
	assert.Equal(t, "09:00", first.Slots[0].StartTime)
	assert.Equal(t, "room-a", first.ClassroomID, "first classroom in (building, room) order wins")
	assert.Equal(t, models.ScheduleStatusDraft, first.Status)

	// Same doctor, so the second section moves to the next free slot.
	second := store.created[1]
	assert.Equal(t, "sec-2", second.SectionID)
	assert.Equal(t, models.Monday, second.Slots[0].Day)
	assert.Equal(t, "11:00", second.Slots[0].StartTime)

	assert.Equal(t, []string{models.AuditActionGenerate}, trail.actions)
}

func TestGenerateSkipsSectionWithoutDoctor(t *testing.T) {
	svc, store, _ := newTimetableFixture(timetableFixture{
		sections: []models.Section{
			{ID: "sec-1", SemesterID: "sem-1", CourseCode: "CS101", Type: models.SectionTypeLecture, Capacity: 30, IsActive: true},
		},
		slots: []models.TimeSlot{lectureSlot("ts-1", models.Monday, "09:00", "11:00")},
		rooms: []models.Classroom{
			{ID: "room-a", RoomNumber: "101", Building: "A", Capacity: 50, RoomType: models.RoomTypeLectureHall, IsAvailable: true},
		},
	})

	resp, err := svc.Generate(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.Zero(t, resp.Generated)
	require.Len(t, resp.UnassignedSections, 1)
	assert.Equal(t, "No professor assigned", resp.UnassignedSections[0].Reason)
	assert.Empty(t, store.created)
}

func TestGenerateRespectsDoctorMaxCourses(t *testing.T) {
	svc, store, _ := newTimetableFixture(timetableFixture{
		sections: []models.Section{
			{ID: "sec-1", SemesterID: "sem-1", CourseCode: "CS101", Type: models.SectionTypeLecture, Capacity: 30, DoctorID: strPtr("doc-1"), IsActive: true},
			{ID: "sec-2", SemesterID: "sem-1", CourseCode: "CS102", Type: models.SectionTypeLecture, Capacity: 30, DoctorID: strPtr("doc-1"), IsActive: true},
		},
		slots: []models.TimeSlot{
			lectureSlot("ts-1", models.Monday, "09:00", "11:00"),
			lectureSlot("ts-2", models.Monday, "11:00", "13:00"),
		},
		rooms: []models.Classroom{
			{ID: "room-a", RoomNumber: "101", Building: "A", Capacity: 50, RoomType: models.RoomTypeLectureHall, IsAvailable: true},
		},
		doctors: map[string]*models.Doctor{
			"doc-1": {ID: "doc-1", FullName: "Dr. Sara", MaxCourses: 1, IsAvailable: true},
		},
	})

	resp, err := svc.Generate(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Generated)
	require.Len(t, resp.UnassignedSections, 1)
	assert.Equal(t, "Professor Dr. Sara at max capacity", resp.UnassignedSections[0].Reason)
	require.Len(t, store.created, 1)
	assert.Equal(t, "sec-1", store.created[0].SectionID)
}

func TestGenerateReportsNoSlotAndNoClassroom(t *testing.T) {
	svc, _, _ := newTimetableFixture(timetableFixture{
		sections: []models.Section{
			// Lab section with only lecture slots available.
			{ID: "sec-1", SemesterID: "sem-1", CourseCode: "CS101", Type: models.SectionTypeLab, Capacity: 30, DoctorID: strPtr("doc-1"), IsActive: true},
			// Lecture section too large for the only hall.
			{ID: "sec-2", SemesterID: "sem-1", CourseCode: "CS102", Type: models.SectionTypeLecture, Capacity: 300, DoctorID: strPtr("doc-1"), IsActive: true},
		},
		slots: []models.TimeSlot{
			lectureSlot("ts-1", models.Monday, "09:00", "11:00"),
			lectureSlot("ts-2", models.Monday, "11:00", "13:00"),
		},
		rooms: []models.Classroom{
			{ID: "room-a", RoomNumber: "101", Building: "A", Capacity: 50, RoomType: models.RoomTypeLectureHall, IsAvailable: true},
		},
		doctors: map[string]*models.Doctor{
			"doc-1": {ID: "doc-1", FullName: "Dr. Omar", IsAvailable: true},
		},
	})

	resp, err := svc.Generate(context.Background(), "sem-1")
	require.NoError(t, err)
	require.Len(t, resp.UnassignedSections, 2)
	assert.Equal(t, "No suitable time slot available", resp.UnassignedSections[0].Reason)
	assert.Equal(t, "No suitable classroom available", resp.UnassignedSections[1].Reason)
}

func TestGenerateSkipsAlreadyScheduledSections(t *testing.T) {
	svc, store, _ := newTimetableFixture(timetableFixture{
		sections: []models.Section{
			{ID: "sec-1", SemesterID: "sem-1", CourseCode: "CS101", Type: models.SectionTypeLecture, Capacity: 30, DoctorID: strPtr("doc-1"), IsActive: true},
		},
		slots: []models.TimeSlot{lectureSlot("ts-1", models.Monday, "09:00", "11:00")},
		rooms: []models.Classroom{
			{ID: "room-a", RoomNumber: "101", Building: "A", Capacity: 50, RoomType: models.RoomTypeLectureHall, IsAvailable: true},
		},
		doctors: map[string]*models.Doctor{
			"doc-1": {ID: "doc-1", FullName: "Dr. Lina", IsAvailable: true},
		},
		existing: []models.Schedule{
			{ID: "sched-1", SemesterID: "sem-1", SectionID: "sec-1", DoctorID: "doc-1", ClassroomID: "room-a",
				Slots:  models.ScheduleSlotList{{Day: models.Monday, StartTime: "09:00", EndTime: "11:00"}},
				Status: models.ScheduleStatusDraft},
		},
	})

	resp, err := svc.Generate(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.Zero(t, resp.Generated)
	assert.Zero(t, resp.Unassigned)
	assert.Empty(t, store.created)
}

func TestGenerateAvoidsClassroomDoubleBooking(t *testing.T) {
	fx := timetableFixture{
		sections: []models.Section{
			{ID: "sec-2", SemesterID: "sem-1", CourseCode: "CS102", Type: models.SectionTypeLecture, Capacity: 30, DoctorID: strPtr("doc-2"), IsActive: true},
		},
		slots: []models.TimeSlot{lectureSlot("ts-1", models.Monday, "09:00", "11:00")},
		rooms: []models.Classroom{
			{ID: "room-a", RoomNumber: "101", Building: "A", Capacity: 50, RoomType: models.RoomTypeLectureHall, IsAvailable: true},
			{ID: "room-b", RoomNumber: "201", Building: "B", Capacity: 50, RoomType: models.RoomTypeLectureHall, IsAvailable: true},
		},
		doctors: map[string]*models.Doctor{
			"doc-2": {ID: "doc-2", FullName: "Dr. Hala", IsAvailable: true},
		},
		existing: []models.Schedule{
			{ID: "sched-1", SemesterID: "sem-1", SectionID: "sec-1", DoctorID: "doc-1", ClassroomID: "room-a",
				Slots:  models.ScheduleSlotList{{Day: models.Monday, StartTime: "09:00", EndTime: "11:00"}},
				Status: models.ScheduleStatusDraft},
		},
	}

	svc, store, _ := newTimetableFixture(fx)
	resp, err := svc.Generate(context.Background(), "sem-1")
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	assert.Equal(t, "room-b", store.created[0].ClassroomID, "occupied room is skipped")
	assert.Equal(t, 1, resp.Generated)

	// With no alternative room the slot is chosen first, so the section
	// goes unplaced for lack of a classroom rather than moving slots.
	fx.rooms = fx.rooms[:1]
	svc, store, _ = newTimetableFixture(fx)
	resp, err = svc.Generate(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.Empty(t, store.created)
	require.Len(t, resp.UnassignedSections, 1)
	assert.Equal(t, "No suitable classroom available", resp.UnassignedSections[0].Reason)
}

func TestValidateMarksDraftsValidatedWhenClean(t *testing.T) {
	svc, store, trail := newTimetableFixture(timetableFixture{
		auditor: auditorStub{count: 3},
	})
	store.bulkRows = 3

	resp, err := svc.Validate(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.True(t, resp.Clean)
	assert.Equal(t, 3, resp.SchedulesCount)
	assert.True(t, store.bulkHit)
	assert.Equal(t, []models.ScheduleStatus{models.ScheduleStatusDraft}, store.bulkFrom)
	assert.Equal(t, models.ScheduleStatusValidated, store.bulkTo)
	assert.Nil(t, store.bulkAt)
	assert.Equal(t, []string{models.AuditActionValidate}, trail.actions)
}

func TestValidateReportsConflictsWithoutTransition(t *testing.T) {
	svc, store, _ := newTimetableFixture(timetableFixture{
		auditor: auditorStub{
			count: 2,
			conflicts: []models.Conflict{
				{Type: models.ConflictTypeDoctor, Severity: models.SeverityError, Message: "double-booked"},
			},
		},
	})

	resp, err := svc.Validate(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.False(t, resp.Clean)
	require.Len(t, resp.Conflicts, 1)
	assert.False(t, store.bulkHit, "conflicting semesters must not transition")
}

func TestValidateWarningsOnlyIsClean(t *testing.T) {
	svc, store, _ := newTimetableFixture(timetableFixture{
		auditor: auditorStub{
			count: 2,
			conflicts: []models.Conflict{
				{Type: models.ConflictTypeTA, Severity: models.SeverityWarning, Message: "ta overlap"},
			},
		},
	})

	resp, err := svc.Validate(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.True(t, resp.Clean, "warnings do not block validation")
	assert.True(t, store.bulkHit)
}

func TestPublishRefusesOnBlockingConflicts(t *testing.T) {
	svc, store, trail := newTimetableFixture(timetableFixture{
		auditor: auditorStub{
			count: 2,
			conflicts: []models.Conflict{
				{Type: models.ConflictTypeClassroom, Severity: models.SeverityError, Message: "double-booked"},
			},
		},
	})

	resp, err := svc.Publish(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.False(t, resp.Published)
	require.Len(t, resp.Conflicts, 1)
	assert.False(t, store.bulkHit)
	assert.Empty(t, trail.actions)
}

func TestPublishTransitionsWholeSemester(t *testing.T) {
	svc, store, trail := newTimetableFixture(timetableFixture{
		auditor: auditorStub{count: 4},
	})
	store.bulkRows = 4

	resp, err := svc.Publish(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.True(t, resp.Published)
	assert.Equal(t, 4, resp.SchedulesCount)
	assert.True(t, store.bulkHit)
	assert.ElementsMatch(t, []models.ScheduleStatus{models.ScheduleStatusDraft, models.ScheduleStatusValidated}, store.bulkFrom)
	assert.Equal(t, models.ScheduleStatusPublished, store.bulkTo)
	require.NotNil(t, store.bulkAt)
	assert.Equal(t, []string{models.AuditActionPublish}, trail.actions)
}

func TestPublishEmptySemesterFails(t *testing.T) {
	svc, _, _ := newTimetableFixture(timetableFixture{auditor: auditorStub{count: 0}})

	_, err := svc.Publish(context.Background(), "sem-1")
	assert.Error(t, err)
}
