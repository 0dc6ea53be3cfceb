package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
	appErrors "github.com/noah-isme/ziel-classes-api/pkg/errors"
)

const (
	fullTimeTeacherID = "0b6f6d0e-1f58-4c57-9f38-2b0c3c6f2a01"
	partTimeTeacherID = "0b6f6d0e-1f58-4c57-9f38-2b0c3c6f2a02"
	visitingTeacherID = "0b6f6d0e-1f58-4c57-9f38-2b0c3c6f2a03"
	studentOneID      = "7d2c1b4a-6a0e-4f0c-8f35-9a1e0b9c5d01"
	studentTwoID      = "7d2c1b4a-6a0e-4f0c-8f35-9a1e0b9c5d02"
	missingID         = "ffffffff-ffff-4fff-8fff-ffffffffffff"
)

type bookingFixture struct {
	service  *BookingService
	bookings *memoryBookingRepo
	teachers *memoryTeacherRepo
	students *memoryStudentRepo
}

func newBookingFixture() *bookingFixture {
	bookings := newMemoryBookingRepo()
	teachers := newMemoryTeacherRepo(
		models.Teacher{ID: fullTimeTeacherID, Name: "Tara", TeacherType: scheduling.TeacherFullTime, Active: true},
		models.Teacher{ID: partTimeTeacherID, Name: "Paul", TeacherType: scheduling.TeacherPartTime, Active: true,
			AvailableTimeSlots: models.AvailabilityWindows{
				scheduling.Recurring(time.Monday, "08:00", "12:00"),
				scheduling.Recurring(time.Tuesday, "08:00", "12:00"),
			}},
		models.Teacher{ID: visitingTeacherID, Name: "Vera", TeacherType: scheduling.TeacherVisiting, Active: true,
			AvailableTimeSlots: models.AvailabilityWindows{scheduling.Recurring(time.Monday, "10:00", "12:00")}},
	)
	students := newMemoryStudentRepo(
		models.Student{ID: studentOneID, Name: "Sam"},
		models.Student{ID: studentTwoID, Name: "Sky"},
	)
	svc := NewBookingService(bookings, teachers, students, DefaultBookingRules(), nil, nil, nil)
	return &bookingFixture{service: svc, bookings: bookings, teachers: teachers, students: students}
}

func bookingRequest(teacherID, studentID, date, start, end string) models.CreateBookingRequest {
	return models.CreateBookingRequest{TeacherID: teacherID, StudentID: studentID, Date: date, StartTime: start, EndTime: end}
}

func strPtr(v string) *string { return &v }

func assertAppError(t *testing.T, err error, target *appErrors.Error) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected app error, got %T", err)
	assert.Equal(t, target.Code, appErr.Code, appErr.Message)
	assert.Equal(t, target.Status, appErr.Status)
	return appErr
}

func TestBookingEndToEndScenario(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	first, err := f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, models.BookingScheduled, first.Status)
	assert.Equal(t, "Tara", first.TeacherName)
	assert.Equal(t, "Sam", first.StudentName)
	assert.Equal(t, scheduling.TeacherFullTime, first.TeacherType)

	_, err = f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:30", "10:30"))
	appErr := assertAppError(t, err, appErrors.ErrConflict)
	conflict, ok := appErr.Details.(*models.BookingConflictError)
	require.True(t, ok)
	assert.Equal(t, models.ConflictTeacher, conflict.Resource)
	require.NotNil(t, conflict.Conflict)
	assert.Equal(t, first.ID, conflict.Conflict.BookingID)

	_, err = f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentTwoID, "2024-06-10", "10:00", "11:00"))
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, first.ID))

	_, err = f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)
}

func TestCreateBookingStudentConflictAcrossTeachers(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "10:00", "11:00"))
	require.NoError(t, err)

	_, err = f.service.Create(ctx, bookingRequest(visitingTeacherID, studentOneID, "2024-06-10", "10:30", "11:30"))
	appErr := assertAppError(t, err, appErrors.ErrConflict)
	conflict := appErr.Details.(*models.BookingConflictError)
	assert.Equal(t, models.ConflictStudent, conflict.Resource)
}

func TestCreateBookingIgnoresFinishedBookings(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	first, err := f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)
	cancelled := models.BookingCancelled
	_, err = f.service.Update(ctx, first.ID, models.UpdateBookingRequest{Status: &cancelled})
	require.NoError(t, err)

	_, err = f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentTwoID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)
}

func TestCreateBookingContainmentForVisitingTeacher(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.service.Create(ctx, bookingRequest(visitingTeacherID, studentOneID, "2024-06-10", "10:00", "11:00"))
	require.NoError(t, err)

	_, err = f.service.Create(ctx, bookingRequest(visitingTeacherID, studentTwoID, "2024-06-10", "09:30", "10:30"))
	assertAppError(t, err, appErrors.ErrAvailability)

	_, err = f.service.Create(ctx, bookingRequest(visitingTeacherID, studentTwoID, "2024-06-10", "11:00", "13:00"))
	assertAppError(t, err, appErrors.ErrAvailability)

	_, err = f.service.Create(ctx, bookingRequest(visitingTeacherID, studentTwoID, "2024-06-11", "10:00", "11:00"))
	assertAppError(t, err, appErrors.ErrAvailability)
}

func TestCreateBookingPartTimeOnePerDay(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.service.Create(ctx, bookingRequest(partTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)

	_, err = f.service.Create(ctx, bookingRequest(partTimeTeacherID, studentTwoID, "2024-06-10", "09:00", "10:00"))
	assertAppError(t, err, appErrors.ErrConflict)

	_, err = f.service.Create(ctx, bookingRequest(partTimeTeacherID, studentTwoID, "2024-06-10", "11:00", "12:00"))
	assertAppError(t, err, appErrors.ErrConflict)

	_, err = f.service.Create(ctx, bookingRequest(partTimeTeacherID, studentTwoID, "2024-06-11", "09:00", "10:00"))
	require.NoError(t, err)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.service.Create(ctx, models.CreateBookingRequest{})
	assertAppError(t, err, appErrors.ErrValidation)

	_, err = f.service.Create(ctx, bookingRequest("not-a-uuid", studentOneID, "2024-06-10", "09:00", "10:00"))
	assertAppError(t, err, appErrors.ErrInvalidFormat)

	_, err = f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "10/06/2024", "09:00", "10:00"))
	assertAppError(t, err, appErrors.ErrInvalidFormat)

	_, err = f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "9am", "10:00"))
	assertAppError(t, err, appErrors.ErrInvalidFormat)

	_, err = f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "10:00", "10:00"))
	assertAppError(t, err, appErrors.ErrValidation)

	_, err = f.service.Create(ctx, bookingRequest(missingID, studentOneID, "2024-06-10", "09:00", "10:00"))
	assertAppError(t, err, appErrors.ErrNotFound)

	_, err = f.service.Create(ctx, bookingRequest(fullTimeTeacherID, missingID, "2024-06-10", "09:00", "10:00"))
	assertAppError(t, err, appErrors.ErrNotFound)

	assert.Empty(t, f.bookings.items)
}

func TestCreateBookingNormalisesTimes(t *testing.T) {
	f := newBookingFixture()
	booking, err := f.service.Create(context.Background(), bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10T00:00:00.000Z", "9:00", "9:45"))
	require.NoError(t, err)
	assert.Equal(t, scheduling.TimeOfDay("09:00"), booking.StartTime)
	assert.Equal(t, scheduling.TimeOfDay("09:45"), booking.EndTime)
	assert.Equal(t, "2024-06-10", booking.Date.String())
}

func TestUpdateBookingNotesOnlySkipsConflictCheck(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	booking, err := f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)

	updated, err := f.service.Update(ctx, booking.ID, models.UpdateBookingRequest{Notes: strPtr("bring calculator")})
	require.NoError(t, err)
	assert.Equal(t, "bring calculator", updated.Notes)
	assert.Equal(t, booking.StartTime, updated.StartTime)

	// Re-sending the same times excludes the booking itself.
	updated, err = f.service.Update(ctx, booking.ID, models.UpdateBookingRequest{StartTime: strPtr("09:00"), EndTime: strPtr("10:00")})
	require.NoError(t, err)
	assert.Equal(t, scheduling.TimeOfDay("09:00"), updated.StartTime)
}

func TestUpdateBookingMoveDetectsConflict(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)
	second, err := f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentTwoID, "2024-06-10", "11:00", "12:00"))
	require.NoError(t, err)

	_, err = f.service.Update(ctx, second.ID, models.UpdateBookingRequest{StartTime: strPtr("09:30"), EndTime: strPtr("10:30")})
	assertAppError(t, err, appErrors.ErrConflict)

	moved, err := f.service.Update(ctx, second.ID, models.UpdateBookingRequest{StartTime: strPtr("10:00"), EndTime: strPtr("11:00")})
	require.NoError(t, err)
	assert.Equal(t, scheduling.TimeOfDay("10:00"), moved.StartTime)

	_, err = f.service.Update(ctx, second.ID, models.UpdateBookingRequest{EndTime: strPtr("09:00")})
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestUpdateBookingPartTimeFixedSlot(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	booking, err := f.service.Create(ctx, bookingRequest(partTimeTeacherID, studentOneID, "2024-06-10", "10:00", "11:00"))
	require.NoError(t, err)

	_, err = f.service.Update(ctx, booking.ID, models.UpdateBookingRequest{StartTime: strPtr("09:30"), EndTime: strPtr("10:30")})
	assertAppError(t, err, appErrors.ErrAvailability)

	updated, err := f.service.Update(ctx, booking.ID, models.UpdateBookingRequest{StartTime: strPtr("09:00"), EndTime: strPtr("10:00")})
	require.NoError(t, err)
	assert.Equal(t, scheduling.TimeOfDay("09:00"), updated.StartTime)
	assert.Equal(t, scheduling.TimeOfDay("10:00"), updated.EndTime)
}

func TestUpdateBookingPartTimeOnePerDay(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.service.Create(ctx, bookingRequest(partTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)
	tuesday, err := f.service.Create(ctx, bookingRequest(partTimeTeacherID, studentTwoID, "2024-06-11", "09:00", "10:00"))
	require.NoError(t, err)

	_, err = f.service.Update(ctx, tuesday.ID, models.UpdateBookingRequest{Date: strPtr("2024-06-10")})
	appErr := assertAppError(t, err, appErrors.ErrConflict)
	assert.Contains(t, appErr.Message, "2024-06-10")
}

func TestUpdateBookingTerminalGuard(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	booking, err := f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)
	completed := models.BookingCompleted
	_, err = f.service.Update(ctx, booking.ID, models.UpdateBookingRequest{Status: &completed})
	require.NoError(t, err)

	_, err = f.service.Update(ctx, booking.ID, models.UpdateBookingRequest{StartTime: strPtr("11:00"), EndTime: strPtr("12:00")})
	assertAppError(t, err, appErrors.ErrFinalized)

	scheduled := models.BookingScheduled
	_, err = f.service.Update(ctx, booking.ID, models.UpdateBookingRequest{Status: &scheduled})
	assertAppError(t, err, appErrors.ErrFinalized)

	updated, err := f.service.Update(ctx, booking.ID, models.UpdateBookingRequest{Notes: strPtr("went well")})
	require.NoError(t, err)
	assert.Equal(t, "went well", updated.Notes)
	assert.Equal(t, models.BookingCompleted, updated.Status)
}

func TestUpdateBookingRefreshesSnapshots(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	booking, err := f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)

	f.teachers.items[fullTimeTeacherID].Name = "Tara Renamed"
	delete(f.students.items, studentOneID)

	updated, err := f.service.Update(ctx, booking.ID, models.UpdateBookingRequest{Notes: strPtr("x")})
	require.NoError(t, err)
	assert.Equal(t, "Tara Renamed", updated.TeacherName)
	assert.Equal(t, "Sam", updated.StudentName)
}

func TestUpdateAndDeleteMissingBooking(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.service.Update(ctx, missingID, models.UpdateBookingRequest{Notes: strPtr("x")})
	assertAppError(t, err, appErrors.ErrNotFound)

	err = f.service.Delete(ctx, missingID)
	assertAppError(t, err, appErrors.ErrNotFound)

	err = f.service.Delete(ctx, "nope")
	assertAppError(t, err, appErrors.ErrInvalidFormat)
}

func TestListBookingsSortedAndFiltered(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-11", "09:00", "10:00"))
	require.NoError(t, err)
	_, err = f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentTwoID, "2024-06-10", "14:00", "15:00"))
	require.NoError(t, err)
	_, err = f.service.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "08:00", "09:00"))
	require.NoError(t, err)

	all, err := f.service.List(ctx, models.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2024-06-10", all[0].Date.String())
	assert.Equal(t, scheduling.TimeOfDay("08:00"), all[0].StartTime)
	assert.Equal(t, scheduling.TimeOfDay("14:00"), all[1].StartTime)
	assert.Equal(t, "2024-06-11", all[2].Date.String())

	onlyS2, err := f.service.List(ctx, models.BookingFilter{StudentID: studentTwoID})
	require.NoError(t, err)
	assert.Len(t, onlyS2, 1)

	_, err = f.service.List(ctx, models.BookingFilter{Status: "pending"})
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestCreateBookingStorageDuplicateIsConflict(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	existing := models.Booking{
		ID: "existing", TeacherID: fullTimeTeacherID, StudentID: studentTwoID,
		Date: scheduling.DateOf(2024, time.June, 10), StartTime: "09:00", EndTime: "10:00", Status: models.BookingScheduled,
	}
	f.bookings.items[existing.ID] = existing
	// Simulate a concurrent insert that the detector did not see.
	detectorBlind := &blindBookingRepo{memoryBookingRepo: f.bookings}
	svc := NewBookingService(detectorBlind, f.teachers, f.students, DefaultBookingRules(), nil, nil, nil)

	_, err := svc.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	assertAppError(t, err, appErrors.ErrConflict)
}

func TestUpdateBookingStorageDuplicateIsConflict(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()
	detectorBlind := &blindBookingRepo{memoryBookingRepo: f.bookings}
	svc := NewBookingService(detectorBlind, f.teachers, f.students, DefaultBookingRules(), nil, nil, nil)

	_, err := svc.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, bookingRequest(fullTimeTeacherID, studentTwoID, "2024-06-10", "11:00", "12:00"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, second.ID, models.UpdateBookingRequest{StartTime: strPtr("09:00"), EndTime: strPtr("10:00")})
	assertAppError(t, err, appErrors.ErrConflict)
	assert.Equal(t, scheduling.TimeOfDay("11:00"), f.bookings.items[second.ID].StartTime)
}

type blindBookingRepo struct {
	*memoryBookingRepo
}

func (b *blindBookingRepo) ListScheduledFor(ctx context.Context, resource models.ConflictResource, resourceID string, date scheduling.Date, excludeID string) ([]models.Booking, error) {
	return nil, nil
}

func TestBookingServiceRecordsDecisions(t *testing.T) {
	f := newBookingFixture()
	metrics := NewMetricsService()
	svc := NewBookingService(f.bookings, f.teachers, f.students, DefaultBookingRules(), metrics, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:00", "10:00"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, bookingRequest(fullTimeTeacherID, studentOneID, "2024-06-10", "09:30", "10:30"))
	require.Error(t, err)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	found := false
	for _, family := range families {
		if family.GetName() == "booking_decisions_total" {
			found = true
			assert.Len(t, family.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}
