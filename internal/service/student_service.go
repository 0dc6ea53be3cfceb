package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/repository"
	appErrors "github.com/noah-isme/ziel-classes-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
	Count(ctx context.Context, filter models.StudentFilter) (int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type tokenIssuer interface {
	IssueToken(subject TokenSubject) (string, time.Time, error)
	ExpiresIn() int64
}

// StudentService provides student registration and maintenance.
type StudentService struct {
	repo      studentRepository
	tokens    tokenIssuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService creates a new student service instance.
func NewStudentService(repo studentRepository, tokens tokenIssuer, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, tokens: tokens, validator: validate, logger: logger}
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	students, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, nil
}

// Count returns the number of students matching the filter.
func (s *StudentService) Count(ctx context.Context, filter models.StudentFilter) (int, error) {
	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	return count, nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	if err := validateID(id, "student id"); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Register creates a student, prices the selected courses and issues an access token.
func (s *StudentService) Register(ctx context.Context, req models.RegisterStudentRequest) (*models.StudentRegistration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	courses, err := buildCourses(req.Courses)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.ensureUniqueEmail(ctx, email, ""); err != nil {
		return nil, err
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		ContactNo:    strings.TrimSpace(req.ContactNo),
		Address:      strings.TrimSpace(req.Address),
		ClassName:    strings.TrimSpace(req.ClassName),
		CourseMode:   strings.TrimSpace(req.CourseMode),
		Courses:      courses,
		TotalAmount:  courses.Recalculate(),
		PasswordHash: hash,
		Role:         models.RoleStudent,
	}
	if req.StartDate != nil {
		student.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		student.EndDate = *req.EndDate
	}
	if err := validateTerm(student); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register student")
	}

	registration := &models.StudentRegistration{Student: student}
	if s.tokens != nil {
		token, _, err := s.tokens.IssueToken(TokenSubject{ID: student.ID, Email: student.Email, FullName: student.Name, Role: student.Role})
		if err != nil {
			return nil, err
		}
		registration.AccessToken = token
		registration.ExpiresIn = s.tokens.ExpiresIn()
	}
	s.logger.Info("student registered", zap.String("student_id", student.ID), zap.Float64("total_amount", student.TotalAmount))
	return registration, nil
}

// Update modifies a student. Existing bookings keep their snapshots.
func (s *StudentService) Update(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := validateID(id, "student id"); err != nil {
		return nil, err
	}
	student, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := s.ensureUniqueEmail(ctx, email, id); err != nil {
			return nil, err
		}
		student.Email = email
	}
	assignTrimmed(&student.Name, req.Name)
	assignTrimmed(&student.ContactNo, req.ContactNo)
	assignTrimmed(&student.Address, req.Address)
	assignTrimmed(&student.ClassName, req.ClassName)
	assignTrimmed(&student.CourseMode, req.CourseMode)
	if req.StartDate != nil {
		student.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		student.EndDate = *req.EndDate
	}
	if req.Courses != nil {
		courses, err := buildCourses(req.Courses)
		if err != nil {
			return nil, err
		}
		student.Courses = courses
	}
	if student.Courses == nil {
		student.Courses = models.StudentCourses{}
	}
	student.TotalAmount = student.Courses.Recalculate()
	if err := validateTerm(student); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student. Bookings referencing the student are left in place.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := validateID(id, "student id"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

func (s *StudentService) load(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	return nil
}

func buildCourses(in map[string]models.CourseSelection) (models.StudentCourses, error) {
	out := models.StudentCourses{}
	for key, course := range in {
		if !models.IsKnownSubject(key) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown course "+key)
		}
		if course.Fee < 0 || course.Classes < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "fee and classes for "+key+" must not be negative")
		}
		out[key] = models.CourseEnrollment{Selected: course.Selected, Fee: course.Fee, Classes: course.Classes}
	}
	return out, nil
}

func validateTerm(student *models.Student) error {
	if !student.StartDate.IsZero() && !student.EndDate.IsZero() && student.EndDate.Before(student.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	return nil
}

func assignTrimmed(dst *string, value *string) {
	if value != nil {
		*dst = strings.TrimSpace(*value)
	}
}
