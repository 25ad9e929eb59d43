package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/unidept/timetable-api/internal/dto"
	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
)

type timetableSectionLister interface {
	ListActive(ctx context.Context, semesterID string) ([]models.Section, error)
}

type timetableSlotLister interface {
	ListActive(ctx context.Context, semesterID string) ([]models.TimeSlot, error)
}

type timetableClassroomLister interface {
	ListAvailable(ctx context.Context) ([]models.Classroom, error)
}

type timetableScheduleStore interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	BulkSetStatus(ctx context.Context, semesterID string, from []models.ScheduleStatus, to models.ScheduleStatus, publishedAt *time.Time) (int, error)
}

type timetableDoctorReader interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

type semesterAuditor interface {
	AuditSemester(ctx context.Context, semesterID string) ([]models.Conflict, int, error)
}

type auditRecorder interface {
	Record(action, semesterID string, details map[string]interface{})
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// semesterLocks serializes mutating timetable operations per semester.
// The engine is snapshot-based, so two concurrent runs against one
// semester could otherwise both decide a slot is free.
type semesterLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSemesterLocks() *semesterLocks {
	return &semesterLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *semesterLocks) acquire(semesterID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[semesterID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[semesterID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// TimetableConfig tunes the timetable read cache.
type TimetableConfig struct {
	CacheTTL time.Duration
}

// TimetableService owns the semester timetable operations: greedy
// generation, semester-wide validation, publication and the cached
// timetable read model.
type TimetableService struct {
	sections   timetableSectionLister
	slots      timetableSlotLister
	classrooms timetableClassroomLister
	schedules  timetableScheduleStore
	doctors    timetableDoctorReader
	auditor    semesterAuditor
	trail      auditRecorder
	cache      timetableCache
	metrics    *MetricsService
	logger     *zap.Logger
	locks      *semesterLocks
	cacheTTL   time.Duration
}

// NewTimetableService wires the generator dependencies.
func NewTimetableService(
	sections timetableSectionLister,
	slots timetableSlotLister,
	classrooms timetableClassroomLister,
	schedules timetableScheduleStore,
	doctors timetableDoctorReader,
	auditor semesterAuditor,
	trail auditRecorder,
	cache timetableCache,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &TimetableService{
		sections:   sections,
		slots:      slots,
		classrooms: classrooms,
		schedules:  schedules,
		doctors:    doctors,
		auditor:    auditor,
		trail:      trail,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
		locks:      newSemesterLocks(),
		cacheTTL:   cfg.CacheTTL,
	}
}

// Generate places every unscheduled active section of the semester with a
// single deterministic greedy pass. Placements are committed one by one
// and become hard constraints for later sections; a section that cannot
// be placed is reported with a reason and never aborts the run.
func (s *TimetableService) Generate(ctx context.Context, semesterID string) (*dto.GenerateTimetableResponse, error) {
	if semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester id is required")
	}
	release := s.locks.acquire(semesterID)
	defer release()

	sections, err := s.sections.ListActive(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	timeslots, err := s.slots.ListActive(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	classrooms, err := s.classrooms.ListAvailable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	committed, err := s.schedules.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}

	sortTimeSlots(timeslots)
	sortClassrooms(classrooms)

	working := make([]models.Schedule, 0, len(committed))
	scheduledSections := make(map[string]struct{})
	for _, sched := range committed {
		if sched.Status == models.ScheduleStatusCancelled {
			continue
		}
		working = append(working, sched)
		scheduledSections[sched.SectionID] = struct{}{}
	}

	doctorCache := make(map[string]*models.Doctor)
	resp := &dto.GenerateTimetableResponse{
		UnassignedSections: make([]dto.UnplacedSection, 0),
		Schedules:          make([]models.Schedule, 0),
	}

	for _, section := range sections {
		if _, ok := scheduledSections[section.ID]; ok {
			continue
		}

		if section.DoctorID == nil || *section.DoctorID == "" {
			resp.UnassignedSections = append(resp.UnassignedSections, unplaced(section, "No professor assigned"))
			continue
		}

		doctor, err := s.cachedDoctor(ctx, doctorCache, *section.DoctorID)
		if err != nil {
			return nil, err
		}
		if !doctor.IsAvailable {
			resp.UnassignedSections = append(resp.UnassignedSections, unplaced(section, fmt.Sprintf("Professor %s is not available", doctor.FullName)))
			continue
		}
		if doctor.MaxCourses > 0 && countDoctorSchedules(working, doctor.ID) >= doctor.MaxCourses {
			resp.UnassignedSections = append(resp.UnassignedSections, unplaced(section, fmt.Sprintf("Professor %s at max capacity", doctor.FullName)))
			continue
		}

		slot, ok := s.findTimeSlot(timeslots, working, section, doctor.ID)
		if !ok {
			resp.UnassignedSections = append(resp.UnassignedSections, unplaced(section, "No suitable time slot available"))
			continue
		}

		room, ok := s.findClassroom(classrooms, working, section, slot)
		if !ok {
			resp.UnassignedSections = append(resp.UnassignedSections, unplaced(section, "No suitable classroom available"))
			continue
		}

		schedule := models.Schedule{
			SemesterID:  semesterID,
			SectionID:   section.ID,
			DoctorID:    doctor.ID,
			ClassroomID: room.ID,
			Slots: models.ScheduleSlotList{{
				Day:       slot.Day,
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
				Type:      section.Type,
			}},
			TeachingAssistants: section.TeachingAssistants,
			Status:             models.ScheduleStatusDraft,
		}
		if err := s.schedules.Create(ctx, &schedule); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule")
		}

		working = append(working, schedule)
		scheduledSections[section.ID] = struct{}{}
		resp.Schedules = append(resp.Schedules, schedule)
	}

	resp.Generated = len(resp.Schedules)
	resp.Unassigned = len(resp.UnassignedSections)

	s.invalidateTimetable(ctx, semesterID)
	s.metrics.ObserveGeneration(resp.Generated, resp.Unassigned)
	if s.trail != nil {
		s.trail.Record(models.AuditActionGenerate, semesterID, map[string]interface{}{
			"generated":  resp.Generated,
			"unassigned": resp.Unassigned,
		})
	}
	s.logger.Info("timetable generated",
		zap.String("semester_id", semesterID),
		zap.Int("generated", resp.Generated),
		zap.Int("unassigned", resp.Unassigned),
	)

	return resp, nil
}

// Validate audits the whole semester and, when no blocking conflict is
// found, bulk-transitions every draft schedule to VALIDATED.
func (s *TimetableService) Validate(ctx context.Context, semesterID string) (*dto.ValidateTimetableResponse, error) {
	if semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester id is required")
	}
	release := s.locks.acquire(semesterID)
	defer release()

	conflicts, count, err := s.auditor.AuditSemester(ctx, semesterID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ValidateTimetableResponse{
		SchedulesCount: count,
		Conflicts:      conflicts,
		Clean:          !models.HasBlocking(conflicts),
	}
	s.metrics.ObserveAudit(len(conflicts))

	if resp.Clean && count > 0 {
		if _, err := s.schedules.BulkSetStatus(ctx, semesterID,
			[]models.ScheduleStatus{models.ScheduleStatusDraft},
			models.ScheduleStatusValidated, nil); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark schedules validated")
		}
		s.invalidateTimetable(ctx, semesterID)
	}

	if s.trail != nil {
		s.trail.Record(models.AuditActionValidate, semesterID, map[string]interface{}{
			"schedules": count,
			"conflicts": len(conflicts),
			"clean":     resp.Clean,
		})
	}

	return resp, nil
}

// Publish re-audits the semester and either refuses with the conflict
// list, leaving every schedule untouched, or bulk-transitions the
// semester to PUBLISHED and stamps published_at.
func (s *TimetableService) Publish(ctx context.Context, semesterID string) (*dto.PublishTimetableResponse, error) {
	if semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester id is required")
	}
	release := s.locks.acquire(semesterID)
	defer release()

	conflicts, count, err := s.auditor.AuditSemester(ctx, semesterID)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveAudit(len(conflicts))

	if models.HasBlocking(conflicts) {
		return &dto.PublishTimetableResponse{
			Published:      false,
			SchedulesCount: count,
			Conflicts:      conflicts,
		}, nil
	}
	if count == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "semester has no schedules to publish")
	}

	now := time.Now().UTC()
	if _, err := s.schedules.BulkSetStatus(ctx, semesterID,
		[]models.ScheduleStatus{models.ScheduleStatusDraft, models.ScheduleStatusValidated},
		models.ScheduleStatusPublished, &now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish schedules")
	}

	s.invalidateTimetable(ctx, semesterID)
	if s.trail != nil {
		s.trail.Record(models.AuditActionPublish, semesterID, map[string]interface{}{
			"schedules":    count,
			"published_at": now,
		})
	}
	s.logger.Info("timetable published", zap.String("semester_id", semesterID), zap.Int("schedules", count))

	return &dto.PublishTimetableResponse{
		Published:      true,
		SchedulesCount: count,
		Conflicts:      conflicts,
	}, nil
}

// Timetable returns the denormalised semester view, served from cache
// when warm.
func (s *TimetableService) Timetable(ctx context.Context, semesterID string) (*dto.TimetableView, error) {
	if semesterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester id is required")
	}

	key := timetableCacheKey(semesterID)
	if s.cache != nil {
		var cached dto.TimetableView
		start := time.Now()
		err := s.cache.Get(ctx, key, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("timetable cache read failed", zap.String("semester_id", semesterID), zap.Error(err))
		}
	}

	view, err := s.buildTimetable(ctx, semesterID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		start := time.Now()
		if err := s.cache.Set(ctx, key, view, s.cacheTTL); err != nil {
			s.logger.Warn("timetable cache write failed", zap.String("semester_id", semesterID), zap.Error(err))
		}
		s.metrics.ObserveCacheWrite(time.Since(start))
	}

	return view, nil
}

func (s *TimetableService) buildTimetable(ctx context.Context, semesterID string) (*dto.TimetableView, error) {
	schedules, err := s.schedules.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedules")
	}
	sections, err := s.sections.ListActive(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	classrooms, err := s.classrooms.ListAvailable(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}

	sectionIndex := make(map[string]models.Section, len(sections))
	for _, section := range sections {
		sectionIndex[section.ID] = section
	}
	roomIndex := make(map[string]models.Classroom, len(classrooms))
	for _, room := range classrooms {
		roomIndex[room.ID] = room
	}

	doctorCache := make(map[string]*models.Doctor)
	view := &dto.TimetableView{SemesterID: semesterID, Entries: make([]dto.TimetableEntry, 0, len(schedules))}
	for _, sched := range schedules {
		if sched.Status == models.ScheduleStatusCancelled {
			continue
		}
		entry := dto.TimetableEntry{
			ScheduleID: sched.ID,
			SectionID:  sched.SectionID,
			DoctorID:   sched.DoctorID,
			Status:     sched.Status,
			Slots:      sched.Slots,
		}
		if section, ok := sectionIndex[sched.SectionID]; ok {
			entry.CourseCode = section.CourseCode
		}
		if room, ok := roomIndex[sched.ClassroomID]; ok {
			entry.Room = fmt.Sprintf("%s %s", room.Building, room.RoomNumber)
		}
		if doctor, err := s.cachedDoctor(ctx, doctorCache, sched.DoctorID); err == nil {
			entry.DoctorName = doctor.FullName
		}
		view.Entries = append(view.Entries, entry)
	}

	sort.SliceStable(view.Entries, func(i, j int) bool {
		return entrySortKey(view.Entries[i]) < entrySortKey(view.Entries[j])
	})

	return view, nil
}

func (s *TimetableService) findTimeSlot(timeslots []models.TimeSlot, working []models.Schedule, section models.Section, doctorID string) (models.TimeSlot, bool) {
	for _, slot := range timeslots {
		if slot.Label != section.Type {
			continue
		}
		candidate := models.ScheduleSlot{Day: slot.Day, StartTime: slot.StartTime, EndTime: slot.EndTime}
		if doctorBusy(working, doctorID, candidate) {
			continue
		}
		return slot, true
	}
	return models.TimeSlot{}, false
}

func (s *TimetableService) findClassroom(classrooms []models.Classroom, working []models.Schedule, section models.Section, slot models.TimeSlot) (models.Classroom, bool) {
	candidate := models.ScheduleSlot{Day: slot.Day, StartTime: slot.StartTime, EndTime: slot.EndTime}
	wantLab := section.Type == models.SectionTypeLab
	for _, room := range classrooms {
		if room.Capacity < section.Capacity {
			continue
		}
		if room.RoomType.SupportsLab() != wantLab {
			continue
		}
		if classroomBlackedOut(room, candidate) {
			continue
		}
		if classroomBusy(working, room.ID, candidate) {
			continue
		}
		return room, true
	}
	return models.Classroom{}, false
}

func (s *TimetableService) cachedDoctor(ctx context.Context, cache map[string]*models.Doctor, id string) (*models.Doctor, error) {
	if doctor, ok := cache[id]; ok {
		return doctor, nil
	}
	doctor, err := s.doctors.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("doctor %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	cache[id] = doctor
	return doctor, nil
}

func (s *TimetableService) invalidateTimetable(ctx context.Context, semesterID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, timetableCacheKey(semesterID)); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.String("semester_id", semesterID), zap.Error(err))
	}
}

func timetableCacheKey(semesterID string) string {
	return fmt.Sprintf("timetable:%s", semesterID)
}

func unplaced(section models.Section, reason string) dto.UnplacedSection {
	return dto.UnplacedSection{
		SectionID:  section.ID,
		CourseCode: section.CourseCode,
		Reason:     reason,
	}
}

func countDoctorSchedules(working []models.Schedule, doctorID string) int {
	count := 0
	for _, sched := range working {
		if sched.DoctorID == doctorID {
			count++
		}
	}
	return count
}

func doctorBusy(working []models.Schedule, doctorID string, candidate models.ScheduleSlot) bool {
	for _, sched := range working {
		if sched.DoctorID != doctorID {
			continue
		}
		for _, slot := range sched.Slots {
			if slotsOverlap(slot, candidate) {
				return true
			}
		}
	}
	return false
}

func classroomBusy(working []models.Schedule, classroomID string, candidate models.ScheduleSlot) bool {
	for _, sched := range working {
		if sched.ClassroomID != classroomID {
			continue
		}
		for _, slot := range sched.Slots {
			if slotsOverlap(slot, candidate) {
				return true
			}
		}
	}
	return false
}

func classroomBlackedOut(room models.Classroom, candidate models.ScheduleSlot) bool {
	ci, err := slotInterval(candidate)
	if err != nil {
		return false
	}
	for _, window := range room.Blackouts() {
		day, err := parseWeekday(window.Day)
		if err != nil || day != candidate.Day {
			continue
		}
		wi, err := newInterval(day, window.StartTime, window.EndTime)
		if err != nil {
			continue
		}
		if ci.Overlaps(wi) {
			return true
		}
	}
	return false
}

func sortTimeSlots(slots []models.TimeSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		di := models.WeekdayOrder[slots[i].Day]
		dj := models.WeekdayOrder[slots[j].Day]
		if di != dj {
			return di < dj
		}
		si, _ := parseClock(slots[i].StartTime)
		sj, _ := parseClock(slots[j].StartTime)
		return si < sj
	})
}

func sortClassrooms(rooms []models.Classroom) {
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].Building != rooms[j].Building {
			return rooms[i].Building < rooms[j].Building
		}
		return rooms[i].RoomNumber < rooms[j].RoomNumber
	})
}

func entrySortKey(entry dto.TimetableEntry) string {
	if len(entry.Slots) == 0 {
		return "9" + entry.ScheduleID
	}
	first := entry.Slots[0]
	return fmt.Sprintf("%d%s%s", models.WeekdayOrder[first.Day], first.StartTime, entry.ScheduleID)
}
