package models

import "time"

// DashboardStats is the admin overview.
type DashboardStats struct {
	StudentCount      int       `json:"student_count"`
	TeacherCount      int       `json:"teacher_count"`
	ScheduledBookings int       `json:"scheduled_bookings"`
	BookingsToday     int       `json:"bookings_today"`
	GeneratedAt       time.Time `json:"generated_at"`
}
