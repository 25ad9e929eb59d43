package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unidept/timetable-api/internal/dto"
	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
)

type timetableViewerStub struct {
	view *dto.TimetableView
}

func (s timetableViewerStub) Timetable(_ context.Context, _ string) (*dto.TimetableView, error) {
	return s.view, nil
}

type exportSemesterStub struct {
	semester *models.Semester
}

func (s exportSemesterStub) FindByID(_ context.Context, _ string) (*models.Semester, error) {
	if s.semester == nil {
		return nil, sql.ErrNoRows
	}
	return s.semester, nil
}

func exportFixture() *ExportService {
	view := &dto.TimetableView{
		SemesterID: "sem-1",
		Entries: []dto.TimetableEntry{
			{
				ScheduleID: "sched-1",
				CourseCode: "CS101",
				DoctorName: "Dr. Ahmed",
				Room:       "A 101",
				Status:     models.ScheduleStatusPublished,
				Slots:      []models.ScheduleSlot{{Day: models.Monday, StartTime: "09:00", EndTime: "11:00"}},
			},
		},
	}
	semester := &models.Semester{ID: "sem-1", Name: "Fall 2026", Code: "2026-FALL"}
	return NewExportService(timetableViewerStub{view: view}, exportSemesterStub{semester: semester}, nil, nil, nil)
}

func TestExportTimetableCSV(t *testing.T) {
	svc := exportFixture()

	result, err := svc.Timetable(context.Background(), "sem-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "timetable-2026-FALL.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Day,Start,End,Course,Professor,Room,Status", lines[0])
	assert.Equal(t, "Monday,09:00,11:00,CS101,Dr. Ahmed,A 101,PUBLISHED", lines[1])
}

func TestExportTimetablePDF(t *testing.T) {
	svc := exportFixture()

	result, err := svc.Timetable(context.Background(), "sem-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "timetable-2026-FALL.pdf", result.Filename)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.NotEmpty(t, result.Payload)
}

func TestExportTimetableUnknownFormat(t *testing.T) {
	svc := exportFixture()

	_, err := svc.Timetable(context.Background(), "sem-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportTimetableUnknownSemester(t *testing.T) {
	svc := NewExportService(timetableViewerStub{view: &dto.TimetableView{}}, exportSemesterStub{}, nil, nil, nil)

	_, err := svc.Timetable(context.Background(), "missing", "csv")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
