package scheduling

import (
	"errors"
	"fmt"
	"time"
)

// TeacherType classifies how a teacher's bookable time is constrained.
type TeacherType string

const (
	TeacherFullTime TeacherType = "full-time"
	TeacherPartTime TeacherType = "part-time"
	TeacherVisiting TeacherType = "visiting"
)

// Valid reports whether the type is one of the known values.
func (t TeacherType) Valid() bool {
	switch t {
	case TeacherFullTime, TeacherPartTime, TeacherVisiting:
		return true
	}
	return false
}

// RequiresAvailability reports whether bookings must fit a declared availability window.
func (t TeacherType) RequiresAvailability() bool {
	return t == TeacherPartTime || t == TeacherVisiting
}

var (
	ErrWindowDay   = errors.New("availability window needs a day of week (0-6) when recurring or a date when one-off")
	ErrWindowOrder = errors.New("availability window end time must be after start time")
)

// AvailabilityWindow is either a weekly recurring window or a one-off window on a specific date.
// IsRecurring selects which of DayOfWeek or Date is meaningful.
type AvailabilityWindow struct {
	IsRecurring bool          `json:"is_recurring"`
	DayOfWeek   *time.Weekday `json:"day_of_week,omitempty"`
	Date        *Date         `json:"date,omitempty"`
	StartTime   TimeOfDay     `json:"start_time"`
	EndTime     TimeOfDay     `json:"end_time"`
}

// Recurring builds a weekly window. Bounds are padded to "HH:MM" when they parse.
func Recurring(day time.Weekday, start, end TimeOfDay) AvailabilityWindow {
	d := day
	return AvailabilityWindow{IsRecurring: true, DayOfWeek: &d, StartTime: start.canonical(), EndTime: end.canonical()}
}

// OneOff builds a window valid on a single date. Bounds are padded to "HH:MM" when they parse.
func OneOff(date Date, start, end TimeOfDay) AvailabilityWindow {
	d := date
	return AvailabilityWindow{IsRecurring: false, Date: &d, StartTime: start.canonical(), EndTime: end.canonical()}
}

// Validate checks the variant tag and the time order.
func (w AvailabilityWindow) Validate() error {
	_, err := w.Normalize()
	return err
}

// Normalize validates w and returns a copy with zero-padded bounds and only the
// field selected by IsRecurring kept.
func (w AvailabilityWindow) Normalize() (AvailabilityWindow, error) {
	if w.IsRecurring {
		if w.DayOfWeek == nil || *w.DayOfWeek < time.Sunday || *w.DayOfWeek > time.Saturday {
			return w, ErrWindowDay
		}
	} else if w.Date == nil || w.Date.IsZero() {
		return w, ErrWindowDay
	}
	start, err := ParseTimeOfDay(string(w.StartTime))
	if err != nil {
		return w, err
	}
	end, err := ParseTimeOfDay(string(w.EndTime))
	if err != nil {
		return w, err
	}
	if !Before(start, end) {
		return w, fmt.Errorf("%w: %s-%s", ErrWindowOrder, start, end)
	}
	w.StartTime, w.EndTime = start, end
	if w.IsRecurring {
		w.Date = nil
	} else {
		w.DayOfWeek = nil
	}
	return w, nil
}

// MatchesDay reports whether the window applies to date.
func (w AvailabilityWindow) MatchesDay(date Date) bool {
	if w.IsRecurring {
		return w.DayOfWeek != nil && *w.DayOfWeek == date.Weekday()
	}
	return w.Date != nil && w.Date.Equal(date)
}

// Interval returns the window's time bounds.
func (w AvailabilityWindow) Interval() Interval {
	return Interval{Start: w.StartTime.canonical(), End: w.EndTime.canonical()}
}

// IsPermitted decides whether [start, end) on date may be booked for a teacher.
// Full-time teachers are always bookable; others need a matching window that fully contains the request.
func IsPermitted(teacherType TeacherType, windows []AvailabilityWindow, date Date, start, end TimeOfDay) bool {
	if !teacherType.RequiresAvailability() {
		return true
	}
	requested := Interval{Start: start.canonical(), End: end.canonical()}
	for _, w := range windows {
		if w.MatchesDay(date) && w.Interval().Contains(requested) {
			return true
		}
	}
	return false
}
