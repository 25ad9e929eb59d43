package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unidept/timetable-api/internal/models"
)

func newTimeSlotRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTimeSlotRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newTimeSlotRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "semester_id", "day", "start_time", "end_time", "label", "is_active", "created_at", "updated_at"}).
		AddRow("ts-1", "sem-1", "Monday", "09:00", "11:00", "LECTURE", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slots WHERE semester_id = $1 AND is_active = TRUE ORDER BY start_time ASC")).
		WithArgs("sem-1").
		WillReturnRows(rows)

	slots, err := repo.ListActive(context.Background(), "sem-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, models.Monday, slots[0].Day)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryExistsForPeriod(t *testing.T) {
	db, mock, cleanup := newTimeSlotRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM time_slots WHERE semester_id = $1 AND day = $2 AND start_time = $3 AND end_time = $4")).
		WithArgs("sem-1", "Monday", "09:00", "11:00").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsForPeriod(context.Background(), "sem-1", models.Monday, "09:00", "11:00")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM time_slots")).
		WithArgs("sem-1", "Tuesday", "09:00", "11:00").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err = repo.ExistsForPeriod(context.Background(), "sem-1", models.Tuesday, "09:00", "11:00")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newTimeSlotRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectExec("INSERT INTO time_slots").
		WithArgs(sqlmock.AnyArg(), "sem-1", "Monday", "09:00", "11:00", "LECTURE", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.TimeSlot{
		SemesterID: "sem-1",
		Day:        models.Monday,
		StartTime:  "09:00",
		EndTime:    "11:00",
		Label:      models.SectionTypeLecture,
		IsActive:   true,
	}
	require.NoError(t, repo.Create(context.Background(), slot))
	assert.NotEmpty(t, slot.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
