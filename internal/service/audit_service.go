package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
	"github.com/unidept/timetable-api/pkg/jobs"
)

type auditQueue interface {
	Enqueue(job jobs.Job) error
}

type auditWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

type auditReader interface {
	ListBySemester(ctx context.Context, semesterID string, limit int) ([]models.AuditLog, error)
}

// AuditService records timetable operations asynchronously. Writes go
// through the background queue so a slow audit insert never delays a
// generate or publish response.
type AuditService struct {
	queue  auditQueue
	reader auditReader
	logger *zap.Logger
}

// NewAuditService builds the audit trail front end.
func NewAuditService(queue auditQueue, reader auditReader, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{queue: queue, reader: reader, logger: logger}
}

// Trail returns the recorded operations of a semester, newest first.
func (s *AuditService) Trail(ctx context.Context, semesterID string, limit int) ([]models.AuditLog, error) {
	entries, err := s.reader.ListBySemester(ctx, semesterID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}
	return entries, nil
}

// Record enqueues one audit entry. Failures are logged and dropped; the
// audit trail is advisory and never blocks the operation it describes.
func (s *AuditService) Record(action, semesterID string, details map[string]interface{}) {
	if s == nil || s.queue == nil {
		return
	}
	payload, err := json.Marshal(details)
	if err != nil {
		s.logger.Warn("failed to encode audit details", zap.String("action", action), zap.Error(err))
		payload = nil
	}
	entry := models.AuditLog{
		ID:         uuid.NewString(),
		Action:     action,
		SemesterID: semesterID,
		Details:    payload,
	}
	if err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: action, Payload: entry}); err != nil {
		s.logger.Warn("failed to enqueue audit entry",
			zap.String("action", action),
			zap.String("semester_id", semesterID),
			zap.Error(err),
		)
	}
}

// AuditWorker persists queued audit entries.
type AuditWorker struct {
	repo   auditWriter
	logger *zap.Logger
}

// NewAuditWorker builds the queue consumer for audit entries.
func NewAuditWorker(repo auditWriter, logger *zap.Logger) *AuditWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditWorker{repo: repo, logger: logger}
}

// Handle writes one audit entry to storage.
func (w *AuditWorker) Handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload type %T", job.Payload)
	}
	if err := w.repo.Create(ctx, &entry); err != nil {
		return fmt.Errorf("persist audit entry %s: %w", entry.ID, err)
	}
	w.logger.Debug("audit entry recorded",
		zap.String("action", entry.Action),
		zap.String("semester_id", entry.SemesterID),
	)
	return nil
}
