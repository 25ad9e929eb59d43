package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
)

type timeSlotRepoStub struct {
	byID    map[string]*models.TimeSlot
	taken   bool
	created *models.TimeSlot
	updated *models.TimeSlot
}

func (s *timeSlotRepoStub) List(_ context.Context, _ models.TimeSlotFilter) ([]models.TimeSlot, int, error) {
	return nil, 0, nil
}

func (s *timeSlotRepoStub) FindByID(_ context.Context, id string) (*models.TimeSlot, error) {
	if slot, ok := s.byID[id]; ok {
		copied := *slot
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *timeSlotRepoStub) ExistsForPeriod(_ context.Context, _ string, _ models.Weekday, _, _ string) (bool, error) {
	return s.taken, nil
}

func (s *timeSlotRepoStub) Create(_ context.Context, slot *models.TimeSlot) error {
	s.created = slot
	return nil
}

func (s *timeSlotRepoStub) Update(_ context.Context, slot *models.TimeSlot) error {
	s.updated = slot
	return nil
}

func (s *timeSlotRepoStub) Delete(_ context.Context, _ string) error {
	return nil
}

func validTimeSlotRequest() CreateTimeSlotRequest {
	return CreateTimeSlotRequest{
		SemesterID: "sem-1",
		Day:        "monday",
		StartTime:  "09:00",
		EndTime:    "11:00",
		Label:      "LECTURE",
	}
}

func TestTimeSlotCreateCanonicalisesDay(t *testing.T) {
	repo := &timeSlotRepoStub{}
	svc := NewTimeSlotService(repo, nil, nil)

	slot, err := svc.Create(context.Background(), validTimeSlotRequest())
	require.NoError(t, err)
	assert.Equal(t, models.Monday, slot.Day)
	assert.Equal(t, models.SectionTypeLecture, slot.Label)
	assert.True(t, slot.IsActive)
	assert.NotNil(t, repo.created)
}

func TestTimeSlotCreateRejectsBadPeriods(t *testing.T) {
	svc := NewTimeSlotService(&timeSlotRepoStub{}, nil, nil)

	cases := []struct {
		name   string
		mutate func(*CreateTimeSlotRequest)
	}{
		{name: "bad clock format", mutate: func(r *CreateTimeSlotRequest) { r.StartTime = "9:00" }},
		{name: "out of range", mutate: func(r *CreateTimeSlotRequest) { r.EndTime = "24:30" }},
		{name: "inverted period", mutate: func(r *CreateTimeSlotRequest) { r.StartTime = "11:00"; r.EndTime = "09:00" }},
		{name: "zero length", mutate: func(r *CreateTimeSlotRequest) { r.EndTime = "09:00" }},
		{name: "unknown day", mutate: func(r *CreateTimeSlotRequest) { r.Day = "Someday" }},
		{name: "bad label", mutate: func(r *CreateTimeSlotRequest) { r.Label = "SEMINAR" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validTimeSlotRequest()
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestTimeSlotCreateDuplicatePeriodConflicts(t *testing.T) {
	repo := &timeSlotRepoStub{taken: true}
	svc := NewTimeSlotService(repo, nil, nil)

	_, err := svc.Create(context.Background(), validTimeSlotRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestTimeSlotUpdate(t *testing.T) {
	repo := &timeSlotRepoStub{byID: map[string]*models.TimeSlot{
		"ts-1": {ID: "ts-1", SemesterID: "sem-1", Day: models.Monday, StartTime: "09:00", EndTime: "11:00", Label: models.SectionTypeLecture, IsActive: true},
	}}
	svc := NewTimeSlotService(repo, nil, nil)

	active := false
	slot, err := svc.Update(context.Background(), "ts-1", UpdateTimeSlotRequest{
		Day:       "TUESDAY",
		StartTime: "13:00",
		EndTime:   "15:00",
		Label:     "LAB",
		IsActive:  &active,
	})
	require.NoError(t, err)
	assert.Equal(t, models.Tuesday, slot.Day)
	assert.Equal(t, models.SectionTypeLab, slot.Label)
	assert.False(t, slot.IsActive)
	require.NotNil(t, repo.updated)
}

func TestTimeSlotUpdateMissing(t *testing.T) {
	svc := NewTimeSlotService(&timeSlotRepoStub{}, nil, nil)

	active := true
	_, err := svc.Update(context.Background(), "missing", UpdateTimeSlotRequest{
		Day: "Monday", StartTime: "09:00", EndTime: "11:00", Label: "LECTURE", IsActive: &active,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
