package models

import (
	"time"

	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingScheduled BookingStatus = "scheduled"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Valid reports whether the status is known.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingScheduled, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the booking can no longer be moved or re-opened.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// Booking is one lesson between a teacher and a student.
// TeacherName, TeacherType and StudentName are snapshots taken at create/update time.
type Booking struct {
	ID          string                 `db:"id" json:"id"`
	TeacherID   string                 `db:"teacher_id" json:"teacher_id"`
	StudentID   string                 `db:"student_id" json:"student_id"`
	TeacherName string                 `db:"teacher_name" json:"teacher_name"`
	TeacherType scheduling.TeacherType `db:"teacher_type" json:"teacher_type"`
	StudentName string                 `db:"student_name" json:"student_name"`
	Date        scheduling.Date        `db:"date" json:"date"`
	StartTime   scheduling.TimeOfDay   `db:"start_time" json:"start_time"`
	EndTime     scheduling.TimeOfDay   `db:"end_time" json:"end_time"`
	Status      BookingStatus          `db:"status" json:"status"`
	Subject     string                 `db:"subject" json:"subject"`
	Notes       string                 `db:"notes" json:"notes"`
	CreatedAt   time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time              `db:"updated_at" json:"updated_at"`
}

// Interval returns the booking's [start, end) span.
func (b Booking) Interval() scheduling.Interval {
	return scheduling.Interval{Start: b.StartTime, End: b.EndTime}
}

// BookingFilter narrows booking listings. Zero values are ignored.
type BookingFilter struct {
	TeacherID string
	StudentID string
	StartDate *scheduling.Date
	EndDate   *scheduling.Date
	Status    BookingStatus
}

// CreateBookingRequest is the payload for booking a lesson. Date and times are parsed by the service.
type CreateBookingRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Subject   string `json:"subject" validate:"omitempty,max=64"`
	Notes     string `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateBookingRequest patches a booking; nil fields are left untouched.
type UpdateBookingRequest struct {
	Date      *string        `json:"date"`
	StartTime *string        `json:"start_time"`
	EndTime   *string        `json:"end_time"`
	Status    *BookingStatus `json:"status" validate:"omitempty,oneof=scheduled completed cancelled"`
	Notes     *string        `json:"notes" validate:"omitempty,max=2000"`
}

// TouchesSchedule reports whether the patch moves the booking in time.
func (r UpdateBookingRequest) TouchesSchedule() bool {
	return r.Date != nil || r.StartTime != nil || r.EndTime != nil
}

// ConflictResource names the side of a booking that collided.
type ConflictResource string

const (
	ConflictTeacher ConflictResource = "teacher"
	ConflictStudent ConflictResource = "student"
)

// BookingConflict describes the existing booking that blocks a request.
type BookingConflict struct {
	BookingID string               `json:"booking_id"`
	TeacherID string               `json:"teacher_id"`
	StudentID string               `json:"student_id"`
	Date      scheduling.Date      `json:"date"`
	StartTime scheduling.TimeOfDay `json:"start_time"`
	EndTime   scheduling.TimeOfDay `json:"end_time"`
}

// BookingConflictError is returned when a booking collides with an existing one.
type BookingConflictError struct {
	Resource ConflictResource `json:"resource"`
	Message  string           `json:"message"`
	Conflict *BookingConflict `json:"conflict,omitempty"`
}

func (e *BookingConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
