package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
	appErrors "github.com/noah-isme/ziel-classes-api/pkg/errors"
)

type slotBookingReader interface {
	ListScheduledFor(ctx context.Context, resource models.ConflictResource, resourceID string, date scheduling.Date, excludeID string) ([]models.Booking, error)
	ListScheduledOn(ctx context.Context, date scheduling.Date) ([]models.Booking, error)
}

type availableStudentLister interface {
	ListAvailable(ctx context.Context, excludeIDs []string) ([]models.AvailableStudent, error)
}

// AvailableStudentsQuery selects students free for a teacher's candidate lesson.
type AvailableStudentsQuery struct {
	TeacherID     string
	Date          string
	StartTime     string
	EndTime       string
	ExcludeBooked bool
}

// SlotService reports free lesson slots and free students.
type SlotService struct {
	bookings slotBookingReader
	teachers teacherReader
	students availableStudentLister
	hours    scheduling.WorkingHours
	logger   *zap.Logger
}

// NewSlotService constructs a SlotService. Zero working hours fall back to 09:00-18:00 hourly.
func NewSlotService(bookings slotBookingReader, teachers teacherReader, students availableStudentLister, hours scheduling.WorkingHours, logger *zap.Logger) *SlotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hours.SlotDuration <= 0 || !scheduling.Before(hours.Start, hours.End) {
		hours = scheduling.DefaultWorkingHours()
	}
	return &SlotService{bookings: bookings, teachers: teachers, students: students, hours: hours, logger: logger}
}

// AvailableSlots lists the teacher's slots for the day, marking those taken by a scheduled booking.
func (s *SlotService) AvailableSlots(ctx context.Context, teacherID, rawDate string) ([]scheduling.Slot, error) {
	if teacherID == "" || rawDate == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id and date are required")
	}
	if err := validateID(teacherID, "teacher_id"); err != nil {
		return nil, err
	}
	date, err := scheduling.ParseDate(rawDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, "date must be YYYY-MM-DD")
	}
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}

	booked, err := s.bookings.ListScheduledFor(ctx, models.ConflictTeacher, teacherID, date, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
	}
	intervals := make([]scheduling.Interval, 0, len(booked))
	for _, b := range booked {
		intervals = append(intervals, b.Interval())
	}

	return scheduling.GenerateSlots(s.hours, intervals), nil
}

// AvailableStudents lists students without a scheduled booking overlapping the requested interval.
// With ExcludeBooked false every student is returned.
func (s *SlotService) AvailableStudents(ctx context.Context, query AvailableStudentsQuery) ([]models.AvailableStudent, error) {
	if query.TeacherID == "" || query.Date == "" || query.StartTime == "" || query.EndTime == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id, date, start_time and end_time are required")
	}
	if err := validateID(query.TeacherID, "teacher_id"); err != nil {
		return nil, err
	}
	date, start, end, err := parseSchedule(query.Date, query.StartTime, query.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTeacher(ctx, query.TeacherID); err != nil {
		return nil, err
	}

	var busy []string
	if query.ExcludeBooked {
		booked, err := s.bookings.ListScheduledOn(ctx, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings")
		}
		seen := make(map[string]struct{})
		for _, b := range booked {
			if !scheduling.Overlaps(start, end, b.StartTime, b.EndTime) {
				continue
			}
			if _, ok := seen[b.StudentID]; ok {
				continue
			}
			seen[b.StudentID] = struct{}{}
			busy = append(busy, b.StudentID)
		}
	}

	students, err := s.students.ListAvailable(ctx, busy)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	s.logger.Debug("available students resolved",
		zap.String("teacher_id", query.TeacherID),
		zap.String("date", date.String()),
		zap.Int("busy", len(busy)),
		zap.Int("available", len(students)),
	)
	return students, nil
}

func (s *SlotService) ensureTeacher(ctx context.Context, id string) error {
	if _, err := s.teachers.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return nil
}
