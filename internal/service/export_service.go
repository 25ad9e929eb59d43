package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/unidept/timetable-api/internal/dto"
	"github.com/unidept/timetable-api/internal/models"
	appErrors "github.com/unidept/timetable-api/pkg/errors"
	"github.com/unidept/timetable-api/pkg/export"
)

type timetableViewer interface {
	Timetable(ctx context.Context, semesterID string) (*dto.TimetableView, error)
}

type exportSemesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult captures a rendered timetable document.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders semester timetables as downloadable documents.
type ExportService struct {
	timetable timetableViewer
	semesters exportSemesterReader
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(timetable timetableViewer, semesters exportSemesterReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		timetable: timetable,
		semesters: semesters,
		csv:       csv,
		pdf:       pdf,
		logger:    logger,
	}
}

// Timetable renders the semester timetable in the requested format.
func (s *ExportService) Timetable(ctx context.Context, semesterID, format string) (*ExportResult, error) {
	semester, err := s.semesters.FindByID(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
	}

	view, err := s.timetable.Timetable(ctx, semesterID)
	if err != nil {
		return nil, err
	}

	dataset := buildTimetableDataset(view)
	title := fmt.Sprintf("Timetable %s", semester.Name)

	switch strings.ToLower(format) {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("timetable-%s.csv", semester.Code),
			ContentType: "text/csv",
			Payload:     payload,
		}, nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Filename:    fmt.Sprintf("timetable-%s.pdf", semester.Code),
			ContentType: "application/pdf",
			Payload:     payload,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format, use csv or pdf")
	}
}

func buildTimetableDataset(view *dto.TimetableView) export.Dataset {
	headers := []string{"Day", "Start", "End", "Course", "Professor", "Room", "Status"}
	rows := make([]map[string]string, 0, len(view.Entries))
	for _, entry := range view.Entries {
		for _, slot := range entry.Slots {
			rows = append(rows, map[string]string{
				"Day":       string(slot.Day),
				"Start":     slot.StartTime,
				"End":       slot.EndTime,
				"Course":    entry.CourseCode,
				"Professor": entry.DoctorName,
				"Room":      entry.Room,
				"Status":    string(entry.Status),
			})
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
