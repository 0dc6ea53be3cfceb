package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/repository"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
	appErrors "github.com/noah-isme/ziel-classes-api/pkg/errors"
)

type bookingRepository interface {
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	ListScheduledFor(ctx context.Context, resource models.ConflictResource, resourceID string, date scheduling.Date, excludeID string) ([]models.Booking, error)
	Create(ctx context.Context, booking *models.Booking) error
	Update(ctx context.Context, booking *models.Booking) error
	Delete(ctx context.Context, id string) error
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// BookingRules carries the scheduling policy that is configuration rather than input.
type BookingRules struct {
	// PartTimeSlot is the only window a part-time booking may be moved to on update.
	PartTimeSlot scheduling.Interval
}

// DefaultBookingRules returns the 09:00-10:00 part-time slot.
func DefaultBookingRules() BookingRules {
	return BookingRules{PartTimeSlot: scheduling.Interval{Start: "09:00", End: "10:00"}}
}

// BookingService validates and persists lesson bookings.
type BookingService struct {
	repo      bookingRepository
	teachers  teacherReader
	students  studentReader
	detector  *OverlapDetector
	rules     BookingRules
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookingService constructs a BookingService.
func NewBookingService(repo bookingRepository, teachers teacherReader, students studentReader, rules BookingRules, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !rules.PartTimeSlot.Valid() {
		rules.PartTimeSlot = DefaultBookingRules().PartTimeSlot
	}
	return &BookingService{
		repo:      repo,
		teachers:  teachers,
		students:  students,
		detector:  NewOverlapDetector(repo),
		rules:     rules,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns bookings matching the filter ordered by date then start time.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be scheduled, completed or cancelled")
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	bookings, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		if !bookings[i].Date.Equal(bookings[j].Date) {
			return bookings[i].Date.Before(bookings[j].Date)
		}
		return scheduling.Before(bookings[i].StartTime, bookings[j].StartTime)
	})
	return bookings, nil
}

// Get returns one booking.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	if err := validateID(id, "booking id"); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Create books a lesson after running availability and conflict checks.
func (s *BookingService) Create(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	booking, err := s.create(ctx, req)
	s.metrics.RecordBookingDecision("create", decisionOutcome(err))
	return booking, err
}

func (s *BookingService) create(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if err := validateID(req.TeacherID, "teacher_id"); err != nil {
		return nil, err
	}
	if err := validateID(req.StudentID, "student_id"); err != nil {
		return nil, err
	}
	date, start, end, err := parseSchedule(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	teacher, err := s.loadTeacher(ctx, req.TeacherID)
	if err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	if !scheduling.IsPermitted(teacher.TeacherType, teacher.AvailableTimeSlots, date, start, end) {
		return nil, appErrors.Clone(appErrors.ErrAvailability, "teacher is not available at the requested time")
	}
	if teacher.TeacherType == scheduling.TeacherPartTime {
		if err := s.ensureOnePerDay(ctx, teacher.ID, date, ""); err != nil {
			return nil, err
		}
	}
	if err := s.detector.Check(ctx, teacher.ID, student.ID, date, start, end, ""); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		TeacherID:   teacher.ID,
		StudentID:   student.ID,
		TeacherName: teacher.Name,
		TeacherType: teacher.TeacherType,
		StudentName: student.Name,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Status:      models.BookingScheduled,
		Subject:     strings.TrimSpace(req.Subject),
		Notes:       strings.TrimSpace(req.Notes),
	}
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, persistError(err, "failed to create booking")
	}
	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("teacher_id", booking.TeacherID),
		zap.String("student_id", booking.StudentID),
		zap.String("date", booking.Date.String()),
	)
	return booking, nil
}

// Update patches a booking. Moving it in time re-runs the conflict checks excluding itself.
func (s *BookingService) Update(ctx context.Context, id string, req models.UpdateBookingRequest) (*models.Booking, error) {
	booking, err := s.update(ctx, id, req)
	s.metrics.RecordBookingDecision("update", decisionOutcome(err))
	return booking, err
}

func (s *BookingService) update(ctx context.Context, id string, req models.UpdateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	if err := validateID(id, "booking id"); err != nil {
		return nil, err
	}
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.Status.IsTerminal() {
		if req.TouchesSchedule() || (req.Status != nil && *req.Status != booking.Status) {
			return nil, appErrors.Clone(appErrors.ErrFinalized, "booking is "+string(booking.Status)+" and can no longer be rescheduled")
		}
	}

	date, start, end := booking.Date, booking.StartTime, booking.EndTime
	if req.Date != nil {
		if date, err = scheduling.ParseDate(*req.Date); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, "date must be YYYY-MM-DD")
		}
	}
	if req.StartTime != nil {
		if start, err = scheduling.ParseTimeOfDay(*req.StartTime); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, "start_time must be HH:MM")
		}
	}
	if req.EndTime != nil {
		if end, err = scheduling.ParseTimeOfDay(*req.EndTime); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, "end_time must be HH:MM")
		}
	}
	if !scheduling.Before(start, end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	teacher, err := s.teachers.FindByID(ctx, booking.TeacherID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	student, err := s.students.FindByID(ctx, booking.StudentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	teacherType := booking.TeacherType
	if teacher != nil {
		teacherType = teacher.TeacherType
	}
	moved := !date.Equal(booking.Date) || start != booking.StartTime || end != booking.EndTime

	if teacherType == scheduling.TeacherPartTime && !booking.Status.IsTerminal() {
		if start != s.rules.PartTimeSlot.Start || end != s.rules.PartTimeSlot.End {
			return nil, appErrors.Clone(appErrors.ErrAvailability,
				"part-time teachers can only be booked from "+string(s.rules.PartTimeSlot.Start)+" to "+string(s.rules.PartTimeSlot.End))
		}
		if req.TouchesSchedule() && moved {
			if err := s.ensureOnePerDay(ctx, booking.TeacherID, date, booking.ID); err != nil {
				return nil, err
			}
		}
	}
	if req.TouchesSchedule() && moved && booking.Status == models.BookingScheduled {
		if err := s.detector.Check(ctx, booking.TeacherID, booking.StudentID, date, start, end, booking.ID); err != nil {
			return nil, err
		}
	}

	booking.Date, booking.StartTime, booking.EndTime = date, start, end
	if req.Status != nil {
		booking.Status = *req.Status
	}
	if req.Notes != nil {
		booking.Notes = strings.TrimSpace(*req.Notes)
	}
	if teacher != nil {
		booking.TeacherName = teacher.Name
		booking.TeacherType = teacher.TeacherType
	}
	if student != nil {
		booking.StudentName = student.Name
	}

	if err := s.repo.Update(ctx, booking); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, persistError(err, "failed to update booking")
	}
	return booking, nil
}

// Delete removes a booking permanently.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	if err := validateID(id, "booking id"); err != nil {
		s.metrics.RecordBookingDecision("delete", OutcomeInvalid)
		return err
	}
	err := s.repo.Delete(ctx, id)
	switch {
	case err == nil:
		s.metrics.RecordBookingDecision("delete", OutcomeAccepted)
		return nil
	case errors.Is(err, sql.ErrNoRows):
		s.metrics.RecordBookingDecision("delete", OutcomeNotFound)
		return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	default:
		s.metrics.RecordBookingDecision("delete", OutcomeStorageError)
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete booking")
	}
}

func (s *BookingService) ensureOnePerDay(ctx context.Context, teacherID string, date scheduling.Date, excludeID string) error {
	existing, err := s.repo.ListScheduledFor(ctx, models.ConflictTeacher, teacherID, date, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check part-time bookings")
	}
	for i := range existing {
		if existing[i].ID == excludeID {
			continue
		}
		return bookingConflict(models.ConflictTeacher, "part-time teacher already has a booking on "+date.String(), &existing[i])
	}
	return nil
}

func (s *BookingService) load(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

func (s *BookingService) loadTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func (s *BookingService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func parseSchedule(rawDate, rawStart, rawEnd string) (scheduling.Date, scheduling.TimeOfDay, scheduling.TimeOfDay, error) {
	date, err := scheduling.ParseDate(rawDate)
	if err != nil {
		return scheduling.Date{}, "", "", appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, "date must be YYYY-MM-DD")
	}
	start, err := scheduling.ParseTimeOfDay(rawStart)
	if err != nil {
		return scheduling.Date{}, "", "", appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, "start_time must be HH:MM")
	}
	end, err := scheduling.ParseTimeOfDay(rawEnd)
	if err != nil {
		return scheduling.Date{}, "", "", appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, "end_time must be HH:MM")
	}
	if !scheduling.Before(start, end) {
		return scheduling.Date{}, "", "", appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return date, start, end, nil
}

func validateID(id, field string) error {
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status, field+" is not a valid id")
	}
	return nil
}

// persistError maps a storage unique violation to CONFLICT.
func persistError(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "booking collides with an existing scheduled booking")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func decisionOutcome(err error) string {
	if err == nil {
		return OutcomeAccepted
	}
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) {
		return OutcomeStorageError
	}
	switch appErr.Code {
	case appErrors.ErrConflict.Code:
		return OutcomeConflict
	case appErrors.ErrAvailability.Code:
		return OutcomeUnavailable
	case appErrors.ErrValidation.Code, appErrors.ErrInvalidFormat.Code:
		return OutcomeInvalid
	case appErrors.ErrNotFound.Code:
		return OutcomeNotFound
	case appErrors.ErrFinalized.Code:
		return OutcomeFinalized
	}
	return OutcomeStorageError
}
