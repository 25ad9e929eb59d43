package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/unidept/timetable-api/internal/dto"
	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
)

type conflictSectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type conflictClassroomReader interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

type conflictScheduleReader interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.Schedule, error)
}

// ConflictConfig tunes candidate validation.
type ConflictConfig struct {
	MaxSlotsPerEntry int
}

// ConflictService detects scheduling conflicts for candidate assignments
// and audits whole semesters. Conflicts are returned as data; an error
// return means a fault (store unreachable, dangling reference), never a
// detected conflict.
type ConflictService struct {
	sections   conflictSectionReader
	classrooms conflictClassroomReader
	schedules  conflictScheduleReader
	maxSlots   int
	logger     *zap.Logger
}

// NewConflictService wires the detector's collaborators.
func NewConflictService(
	sections conflictSectionReader,
	classrooms conflictClassroomReader,
	schedules conflictScheduleReader,
	cfg ConflictConfig,
	logger *zap.Logger,
) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSlotsPerEntry <= 0 {
		cfg.MaxSlotsPerEntry = 8
	}
	return &ConflictService{
		sections:   sections,
		classrooms: classrooms,
		schedules:  schedules,
		maxSlots:   cfg.MaxSlotsPerEntry,
		logger:     logger,
	}
}

// candidate is the normalised in-memory shape both detection modes share.
type candidate struct {
	DoctorID           string
	ClassroomID        string
	TeachingAssistants []string
	Slots              []models.ScheduleSlot
}

// Check runs the incremental pre-insert/pre-update detection for a single
// proposed schedule against every other schedule in the semester. All
// checks run; the detector is diagnostic and does not stop at the first
// violation. Input errors are the one exception: with unusable input
// there is nothing sound to check, so the other checks are skipped.
func (s *ConflictService) Check(ctx context.Context, req dto.ConflictCheckRequest) ([]models.Conflict, error) {
	conflicts, cand := validateCandidate(req)
	if len(req.Slots) > s.maxSlots {
		conflicts = append(conflicts, models.Conflict{
			Type:     models.ConflictTypeInput,
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("at most %d slots allowed per schedule", s.maxSlots),
		})
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	classroom, err := s.classrooms.FindByID(ctx, req.ClassroomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("classroom %s not found", req.ClassroomID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}

	var section *models.Section
	if req.SectionID != "" {
		section, err = s.sections.FindByID(ctx, req.SectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s not found", req.SectionID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
	}

	conflicts = append(conflicts, staticConflicts(cand, classroom, section)...)

	existing, err := s.schedules.ListBySemester(ctx, req.SemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester schedules")
	}
	for _, sched := range existing {
		if sched.ID == req.ExcludeScheduleID || sched.Status == models.ScheduleStatusCancelled {
			continue
		}
		conflicts = append(conflicts, pairConflicts(cand, sched)...)
	}

	return conflicts, nil
}

// AuditSemester runs the full all-pairs audit over every non-cancelled
// schedule in the semester. Capacity, room-type and blackout checks run
// per schedule; cross-schedule checks run once per pair. A semester is
// publishable iff the result contains no error-severity conflict.
func (s *ConflictService) AuditSemester(ctx context.Context, semesterID string) ([]models.Conflict, int, error) {
	if semesterID == "" {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "semester id is required")
	}

	all, err := s.schedules.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester schedules")
	}

	schedules := make([]models.Schedule, 0, len(all))
	for _, sched := range all {
		if sched.Status != models.ScheduleStatusCancelled {
			schedules = append(schedules, sched)
		}
	}

	conflicts := make([]models.Conflict, 0)
	classroomCache := make(map[string]*models.Classroom)
	sectionCache := make(map[string]*models.Section)

	for _, sched := range schedules {
		classroom, err := s.cachedClassroom(ctx, classroomCache, sched.ClassroomID)
		if err != nil {
			return nil, 0, err
		}
		section, err := s.cachedSection(ctx, sectionCache, sched.SectionID)
		if err != nil {
			return nil, 0, err
		}
		static := staticConflicts(scheduleCandidate(sched), classroom, section)
		for i := range static {
			static[i].ReferencedSchedules = appendUnique(static[i].ReferencedSchedules, sched.ID)
		}
		conflicts = append(conflicts, static...)
	}

	for i := 0; i < len(schedules); i++ {
		cand := scheduleCandidate(schedules[i])
		for j := i + 1; j < len(schedules); j++ {
			pair := pairConflicts(cand, schedules[j])
			for k := range pair {
				pair[k].ReferencedSchedules = appendUnique(pair[k].ReferencedSchedules, schedules[i].ID)
			}
			conflicts = append(conflicts, pair...)
		}
	}

	return conflicts, len(schedules), nil
}

func (s *ConflictService) cachedClassroom(ctx context.Context, cache map[string]*models.Classroom, id string) (*models.Classroom, error) {
	if room, ok := cache[id]; ok {
		return room, nil
	}
	room, err := s.classrooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("classroom %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	cache[id] = room
	return room, nil
}

func (s *ConflictService) cachedSection(ctx context.Context, cache map[string]*models.Section, id string) (*models.Section, error) {
	if section, ok := cache[id]; ok {
		return section, nil
	}
	section, err := s.sections.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("section %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	cache[id] = section
	return section, nil
}

// validateCandidate normalises the request into a candidate and collects
// one input error per missing or malformed field.
func validateCandidate(req dto.ConflictCheckRequest) ([]models.Conflict, candidate) {
	var conflicts []models.Conflict
	inputError := func(message string) {
		conflicts = append(conflicts, models.Conflict{
			Type:     models.ConflictTypeInput,
			Severity: models.SeverityError,
			Message:  message,
		})
	}

	if req.SemesterID == "" {
		inputError("semester_id is required")
	}
	if req.DoctorID == "" {
		inputError("doctor_id is required")
	}
	if req.ClassroomID == "" {
		inputError("classroom_id is required")
	}
	if len(req.Slots) == 0 {
		inputError("at least one slot is required")
	}

	cand := candidate{
		DoctorID:           req.DoctorID,
		ClassroomID:        req.ClassroomID,
		TeachingAssistants: req.TeachingAssistants,
	}
	for _, raw := range req.Slots {
		day, err := parseWeekday(raw.Day)
		if err != nil {
			inputError(err.Error())
			continue
		}
		if _, err := newInterval(day, raw.StartTime, raw.EndTime); err != nil {
			inputError(err.Error())
			continue
		}
		cand.Slots = append(cand.Slots, models.ScheduleSlot{
			Day:       day,
			StartTime: raw.StartTime,
			EndTime:   raw.EndTime,
			Type:      models.SectionType(raw.Type),
		})
	}

	return conflicts, cand
}

// staticConflicts runs the per-schedule checks that need no other
// schedules: capacity, room-type compatibility and classroom blackouts.
func staticConflicts(cand candidate, classroom *models.Classroom, section *models.Section) []models.Conflict {
	conflicts := make([]models.Conflict, 0)

	if section != nil && classroom.Capacity < section.Capacity {
		conflicts = append(conflicts, models.Conflict{
			Type:     models.ConflictTypeCapacity,
			Severity: models.SeverityError,
			Message:  fmt.Sprintf("classroom capacity %d is below section capacity %d", classroom.Capacity, section.Capacity),
		})
	}

	for _, slot := range cand.Slots {
		if slot.Type == models.SectionTypeLab {
			if !classroom.RoomType.SupportsLab() {
				conflicts = append(conflicts, models.Conflict{
					Type:     models.ConflictTypeRoomType,
					Severity: models.SeverityError,
					Message:  fmt.Sprintf("lab session on %s requires a lab or computer lab, room %s is %s", slot.Day, classroom.RoomNumber, classroom.RoomType),
				})
			}
		} else if classroom.RoomType.SupportsLab() {
			conflicts = append(conflicts, models.Conflict{
				Type:     models.ConflictTypeRoomType,
				Severity: models.SeverityError,
				Message:  fmt.Sprintf("%s session on %s cannot use lab room %s", slot.Type, slot.Day, classroom.RoomNumber),
			})
		}
	}

	for _, slot := range cand.Slots {
		si, err := slotInterval(slot)
		if err != nil {
			continue
		}
		for _, window := range classroom.Blackouts() {
			day, err := parseWeekday(window.Day)
			if err != nil || day != slot.Day {
				continue
			}
			wi, err := newInterval(day, window.StartTime, window.EndTime)
			if err != nil {
				continue
			}
			if si.Overlaps(wi) {
				conflicts = append(conflicts, models.Conflict{
					Type:     models.ConflictTypeClassroom,
					Severity: models.SeverityError,
					Message:  fmt.Sprintf("classroom %s unavailable %s %s-%s: %s", classroom.RoomNumber, window.Day, window.StartTime, window.EndTime, window.Reason),
				})
			}
		}
	}

	return conflicts
}

// pairConflicts compares a candidate against one existing schedule and
// reports doctor/classroom double-bookings and TA overlaps.
func pairConflicts(cand candidate, existing models.Schedule) []models.Conflict {
	var conflicts []models.Conflict
	for _, candSlot := range cand.Slots {
		for _, existingSlot := range existing.Slots {
			if !slotsOverlap(candSlot, existingSlot) {
				continue
			}
			if cand.DoctorID == existing.DoctorID {
				conflicts = append(conflicts, models.Conflict{
					Type:                models.ConflictTypeDoctor,
					Severity:            models.SeverityError,
					Message:             fmt.Sprintf("doctor %s double-booked on %s %s-%s", cand.DoctorID, candSlot.Day, candSlot.StartTime, candSlot.EndTime),
					ReferencedSchedules: []string{existing.ID},
				})
			}
			if cand.ClassroomID == existing.ClassroomID {
				conflicts = append(conflicts, models.Conflict{
					Type:                models.ConflictTypeClassroom,
					Severity:            models.SeverityError,
					Message:             fmt.Sprintf("classroom %s double-booked on %s %s-%s", cand.ClassroomID, candSlot.Day, candSlot.StartTime, candSlot.EndTime),
					ReferencedSchedules: []string{existing.ID},
				})
			}
			for _, ta := range sharedAssistants(cand.TeachingAssistants, existing.TeachingAssistants) {
				conflicts = append(conflicts, models.Conflict{
					Type:                models.ConflictTypeTA,
					Severity:            models.SeverityWarning,
					Message:             fmt.Sprintf("teaching assistant %s has overlapping assignments on %s %s-%s", ta, candSlot.Day, candSlot.StartTime, candSlot.EndTime),
					ReferencedSchedules: []string{existing.ID},
				})
			}
		}
	}
	return conflicts
}

func scheduleCandidate(sched models.Schedule) candidate {
	return candidate{
		DoctorID:           sched.DoctorID,
		ClassroomID:        sched.ClassroomID,
		TeachingAssistants: sched.TeachingAssistants,
		Slots:              sched.Slots,
	}
}

func sharedAssistants(a []string, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	var shared []string
	for _, id := range b {
		if _, ok := set[id]; ok {
			shared = append(shared, id)
		}
	}
	return shared
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}
