package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
)

const bookingColumns = "id, teacher_id, student_id, teacher_name, teacher_type, student_name, date, start_time, end_time, status, subject, notes, created_at, updated_at"

// BookingRepository persists bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs a BookingRepository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// List returns bookings matching the filter ordered by date then start time.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := "SELECT " + bookingColumns + " FROM bookings"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date ASC, start_time ASC"

	bookings := []models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// FindByID fetches a booking by ID.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := "SELECT " + bookingColumns + " FROM bookings WHERE id = $1"
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListScheduledFor returns the scheduled bookings of one teacher or student on a date, skipping excludeID.
func (r *BookingRepository) ListScheduledFor(ctx context.Context, resource models.ConflictResource, resourceID string, date scheduling.Date, excludeID string) ([]models.Booking, error) {
	column := "teacher_id"
	if resource == models.ConflictStudent {
		column = "student_id"
	}
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE %s = $1 AND date = $2 AND status = $3", bookingColumns, column)
	args := []interface{}{resourceID, date, models.BookingScheduled}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	query += " ORDER BY start_time ASC"

	bookings := []models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list scheduled %s bookings: %w", resource, err)
	}
	return bookings, nil
}

// ListScheduledOn returns every scheduled booking on a date.
func (r *BookingRepository) ListScheduledOn(ctx context.Context, date scheduling.Date) ([]models.Booking, error) {
	query := "SELECT " + bookingColumns + " FROM bookings WHERE date = $1 AND status = $2 ORDER BY start_time ASC"
	bookings := []models.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, date, models.BookingScheduled); err != nil {
		return nil, fmt.Errorf("list scheduled bookings: %w", err)
	}
	return bookings, nil
}

// CountScheduled counts scheduled bookings, optionally restricted to one date.
func (r *BookingRepository) CountScheduled(ctx context.Context, date *scheduling.Date) (int, error) {
	query := "SELECT COUNT(*) FROM bookings WHERE status = $1"
	args := []interface{}{models.BookingScheduled}
	if date != nil {
		query += " AND date = $2"
		args = append(args, *date)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return total, nil
}

// Create inserts a booking. A unique index hit surfaces as ErrDuplicate.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, teacher_id, student_id, teacher_name, teacher_type, student_name, date, start_time, end_time, status, subject, notes, created_at, updated_at)
		VALUES (:id, :teacher_id, :student_id, :teacher_name, :teacher_type, :student_name, :date, :start_time, :end_time, :status, :subject, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", translateError(err))
	}
	return nil
}

// Update rewrites the mutable booking columns.
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	booking.UpdatedAt = time.Now().UTC()
	const query = `UPDATE bookings SET teacher_name = :teacher_name, teacher_type = :teacher_type, student_name = :student_name,
		date = :date, start_time = :start_time, end_time = :end_time, status = :status, notes = :notes, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, booking)
	if err != nil {
		return fmt.Errorf("update booking: %w", translateError(err))
	}
	return requireAffected(res)
}

// Delete hard-deletes a booking. Missing rows return sql.ErrNoRows.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
