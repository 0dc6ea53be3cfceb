package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
	appErrors "github.com/noah-isme/ziel-classes-api/pkg/errors"
)

type scheduledBookingLister interface {
	ListScheduledFor(ctx context.Context, resource models.ConflictResource, resourceID string, date scheduling.Date, excludeID string) ([]models.Booking, error)
}

// OverlapDetector answers whether a teacher or student is already busy during an interval.
// Only scheduled bookings block; completed and cancelled ones are ignored by the store query.
type OverlapDetector struct {
	store scheduledBookingLister
}

// NewOverlapDetector builds a detector backed by the booking store.
func NewOverlapDetector(store scheduledBookingLister) *OverlapDetector {
	return &OverlapDetector{store: store}
}

// HasConflict returns the first scheduled booking of the resource that overlaps [start, end) on date.
func (d *OverlapDetector) HasConflict(ctx context.Context, resource models.ConflictResource, resourceID string, date scheduling.Date, start, end scheduling.TimeOfDay, excludeID string) (bool, *models.Booking, error) {
	existing, err := d.store.ListScheduledFor(ctx, resource, resourceID, date, excludeID)
	if err != nil {
		return false, nil, err
	}
	for i := range existing {
		if existing[i].ID == excludeID {
			continue
		}
		if scheduling.Overlaps(start, end, existing[i].StartTime, existing[i].EndTime) {
			return true, &existing[i], nil
		}
	}
	return false, nil, nil
}

// Check runs HasConflict for the teacher then the student and returns a CONFLICT error on the first hit.
func (d *OverlapDetector) Check(ctx context.Context, teacherID, studentID string, date scheduling.Date, start, end scheduling.TimeOfDay, excludeID string) error {
	sides := []struct {
		resource models.ConflictResource
		id       string
	}{
		{models.ConflictTeacher, teacherID},
		{models.ConflictStudent, studentID},
	}
	for _, side := range sides {
		busy, existing, err := d.HasConflict(ctx, side.resource, side.id, date, start, end, excludeID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check booking conflicts")
		}
		if busy {
			return bookingConflict(side.resource, fmt.Sprintf("%s already has a booking from %s to %s", side.resource, existing.StartTime, existing.EndTime), existing)
		}
	}
	return nil
}

func bookingConflict(resource models.ConflictResource, message string, existing *models.Booking) error {
	domainErr := &models.BookingConflictError{Resource: resource, Message: message}
	if existing != nil {
		domainErr.Conflict = &models.BookingConflict{
			BookingID: existing.ID,
			TeacherID: existing.TeacherID,
			StudentID: existing.StudentID,
			Date:      existing.Date,
			StartTime: existing.StartTime,
			EndTime:   existing.EndTime,
		}
	}
	appErr := appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
	return appErrors.WithDetails(appErr, domainErr)
}
