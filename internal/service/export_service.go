package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	appErrors "github.com/noah-isme/ziel-classes-api/pkg/errors"
	"github.com/noah-isme/ziel-classes-api/pkg/export"
)

var bookingExportHeaders = []string{"Date", "Start", "End", "Teacher", "Teacher Type", "Student", "Subject", "Status", "Notes"}

type bookingLister interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders booking listings as CSV, PDF or XLSX.
type ExportService struct {
	bookings  bookingLister
	renderers map[string]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService wires the default renderers.
func NewExportService(bookings bookingLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	renderers := make(map[string]export.Renderer)
	for _, r := range []export.Renderer{export.NewCSVExporter(), export.NewPDFExporter(), export.NewXLSXExporter()} {
		renderers[r.Extension()] = r
	}
	return &ExportService{bookings: bookings, renderers: renderers, logger: logger, now: time.Now}
}

// ExportBookings renders the bookings matching filter in the requested format.
func (s *ExportService) ExportBookings(ctx context.Context, filter models.BookingFilter, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, pdf or xlsx")
	}

	bookings, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Title: "Bookings", Headers: bookingExportHeaders}
	for _, b := range bookings {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":         b.Date.String(),
			"Start":        string(b.StartTime),
			"End":          string(b.EndTime),
			"Teacher":      b.TeacherName,
			"Teacher Type": string(b.TeacherType),
			"Student":      b.StudentName,
			"Subject":      b.Subject,
			"Status":       string(b.Status),
			"Notes":        b.Notes,
		})
	}

	body, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Debug("bookings exported", zap.String("format", format), zap.Int("rows", len(dataset.Rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("bookings-%s.%s", s.now().UTC().Format("20060102-150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}
