package models

import (
	"database/sql/driver"
	"time"

	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
)

// Subject keys offered by the centre.
const (
	SubjectPhysics         = "physics"
	SubjectChemistry       = "chemistry"
	SubjectMath            = "math"
	SubjectBiology         = "biology"
	SubjectComputerScience = "computer_science"
)

// KnownSubjects lists every subject key accepted on teachers and students.
var KnownSubjects = []string{SubjectPhysics, SubjectChemistry, SubjectMath, SubjectBiology, SubjectComputerScience}

// IsKnownSubject reports whether key is one of KnownSubjects.
func IsKnownSubject(key string) bool {
	for _, s := range KnownSubjects {
		if s == key {
			return true
		}
	}
	return false
}

// SubjectOffer is a subject a teacher can take and the fee charged per class.
type SubjectOffer struct {
	Selected bool    `json:"selected"`
	Fee      float64 `json:"fee"`
}

// TeacherSubjects is stored as a JSONB object keyed by subject.
type TeacherSubjects map[string]SubjectOffer

func (s TeacherSubjects) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	return jsonValue(map[string]SubjectOffer(s))
}

func (s *TeacherSubjects) Scan(src interface{}) error {
	out := TeacherSubjects{}
	if err := jsonScan(src, (*map[string]SubjectOffer)(&out)); err != nil {
		return err
	}
	*s = out
	return nil
}

// AvailabilityWindows is the ordered list of windows a part-time or visiting teacher can be booked in.
type AvailabilityWindows []scheduling.AvailabilityWindow

func (w AvailabilityWindows) Value() (driver.Value, error) {
	if w == nil {
		return "[]", nil
	}
	return jsonValue([]scheduling.AvailabilityWindow(w))
}

func (w *AvailabilityWindows) Scan(src interface{}) error {
	out := AvailabilityWindows{}
	if err := jsonScan(src, (*[]scheduling.AvailabilityWindow)(&out)); err != nil {
		return err
	}
	*w = out
	return nil
}

// Teacher is an instructor who can be booked for lessons.
type Teacher struct {
	ID                 string                 `db:"id" json:"id"`
	Name               string                 `db:"name" json:"name"`
	Email              string                 `db:"email" json:"email"`
	ContactNo          string                 `db:"contact_no" json:"contact_no"`
	Address            string                 `db:"address" json:"address"`
	TeacherType        scheduling.TeacherType `db:"teacher_type" json:"teacher_type"`
	AvailableTimeSlots AvailabilityWindows    `db:"available_time_slots" json:"available_time_slots"`
	Subjects           TeacherSubjects        `db:"subjects" json:"subjects"`
	PasswordHash       string                 `db:"password_hash" json:"-"`
	Active             bool                   `db:"active" json:"active"`
	JoiningDate        scheduling.Date        `db:"joining_date" json:"joining_date"`
	CreatedAt          time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time              `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search      string
	TeacherType scheduling.TeacherType
	Active      *bool
}

// CreateTeacherRequest is the admin payload for adding a teacher.
type CreateTeacherRequest struct {
	Name               string                          `json:"name" validate:"required,min=2,max=255"`
	Email              string                          `json:"email" validate:"required,email"`
	Password           string                          `json:"password" validate:"required,min=6"`
	ContactNo          string                          `json:"contact_no" validate:"omitempty,max=32"`
	Address            string                          `json:"address"`
	TeacherType        scheduling.TeacherType          `json:"teacher_type" validate:"omitempty,oneof=full-time part-time visiting"`
	AvailableTimeSlots []scheduling.AvailabilityWindow `json:"available_time_slots"`
	Subjects           map[string]SubjectOffer         `json:"subjects"`
	JoiningDate        *scheduling.Date                `json:"joining_date"`
}

// UpdateTeacherRequest patches a teacher; nil fields are left untouched.
type UpdateTeacherRequest struct {
	Name               *string                          `json:"name" validate:"omitempty,min=2,max=255"`
	Email              *string                          `json:"email" validate:"omitempty,email"`
	Password           *string                          `json:"password" validate:"omitempty,min=6"`
	ContactNo          *string                          `json:"contact_no" validate:"omitempty,max=32"`
	Address            *string                          `json:"address"`
	TeacherType        *scheduling.TeacherType          `json:"teacher_type" validate:"omitempty,oneof=full-time part-time visiting"`
	AvailableTimeSlots *[]scheduling.AvailabilityWindow `json:"available_time_slots"`
	Subjects           map[string]SubjectOffer          `json:"subjects"`
	Active             *bool                            `json:"active"`
}
