package models

import (
	"database/sql/driver"
	"time"

	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
)

// CourseEnrollment is one subject a student signed up for. Total is Fee times Classes.
type CourseEnrollment struct {
	Selected bool    `json:"selected"`
	Fee      float64 `json:"fee"`
	Classes  int     `json:"classes"`
	Total    float64 `json:"total"`
}

// StudentCourses is stored as a JSONB object keyed by subject.
type StudentCourses map[string]CourseEnrollment

func (c StudentCourses) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	return jsonValue(map[string]CourseEnrollment(c))
}

func (c *StudentCourses) Scan(src interface{}) error {
	out := StudentCourses{}
	if err := jsonScan(src, (*map[string]CourseEnrollment)(&out)); err != nil {
		return err
	}
	*c = out
	return nil
}

// Recalculate fills each course total and returns the sum over selected courses.
func (c StudentCourses) Recalculate() float64 {
	var sum float64
	for key, course := range c {
		course.Total = course.Fee * float64(course.Classes)
		c[key] = course
		if course.Selected {
			sum += course.Total
		}
	}
	return sum
}

// Student is a learner enrolled at the centre.
type Student struct {
	ID           string          `db:"id" json:"id"`
	Name         string          `db:"name" json:"name"`
	Email        string          `db:"email" json:"email"`
	ContactNo    string          `db:"contact_no" json:"contact_no"`
	Address      string          `db:"address" json:"address"`
	ClassName    string          `db:"class_name" json:"class_name"`
	CourseMode   string          `db:"course_mode" json:"course_mode"`
	StartDate    scheduling.Date `db:"start_date" json:"start_date"`
	EndDate      scheduling.Date `db:"end_date" json:"end_date"`
	Courses      StudentCourses  `db:"courses" json:"courses"`
	TotalAmount  float64         `db:"total_amount" json:"total_amount"`
	PasswordHash string          `db:"password_hash" json:"-"`
	Role         UserRole        `db:"role" json:"role"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClassName string
}

// AvailableStudent is the projection returned by the free-student lookup.
type AvailableStudent struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
	ContactNo string `db:"contact_no" json:"contact_no"`
	ClassName string `db:"class_name" json:"class_name"`
}

// CourseSelection is the registration input for one course.
type CourseSelection struct {
	Selected bool    `json:"selected"`
	Fee      float64 `json:"fee" validate:"gte=0"`
	Classes  int     `json:"classes" validate:"gte=0"`
}

// RegisterStudentRequest is the payload for registering a student.
type RegisterStudentRequest struct {
	Name       string                     `json:"name" validate:"required,min=2,max=255"`
	Email      string                     `json:"email" validate:"required,email"`
	Password   string                     `json:"password" validate:"required,min=6"`
	ContactNo  string                     `json:"contact_no" validate:"omitempty,max=32"`
	Address    string                     `json:"address"`
	ClassName  string                     `json:"class_name" validate:"omitempty,max=64"`
	CourseMode string                     `json:"course_mode" validate:"omitempty,max=32"`
	StartDate  *scheduling.Date           `json:"start_date"`
	EndDate    *scheduling.Date           `json:"end_date"`
	Courses    map[string]CourseSelection `json:"courses" validate:"dive"`
}

// UpdateStudentRequest patches a student; nil fields are left untouched.
type UpdateStudentRequest struct {
	Name       *string                    `json:"name" validate:"omitempty,min=2,max=255"`
	Email      *string                    `json:"email" validate:"omitempty,email"`
	ContactNo  *string                    `json:"contact_no" validate:"omitempty,max=32"`
	Address    *string                    `json:"address"`
	ClassName  *string                    `json:"class_name" validate:"omitempty,max=64"`
	CourseMode *string                    `json:"course_mode" validate:"omitempty,max=32"`
	StartDate  *scheduling.Date           `json:"start_date"`
	EndDate    *scheduling.Date           `json:"end_date"`
	Courses    map[string]CourseSelection `json:"courses" validate:"omitempty,dive"`
}

// StudentRegistration is returned after a successful registration.
type StudentRegistration struct {
	Student     *Student `json:"student"`
	AccessToken string   `json:"access_token"`
	ExpiresIn   int64    `json:"expires_in"`
}
