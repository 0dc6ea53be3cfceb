package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/repository"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
	appErrors "github.com/noah-isme/ziel-classes-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error)
	Count(ctx context.Context, filter models.TeacherFilter) (int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id string) error
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo      teacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// List returns teachers matching the filter.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error) {
	if filter.TeacherType != "" && !filter.TeacherType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_type must be full-time, part-time or visiting")
	}
	teachers, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// Count returns the number of teachers matching the filter.
func (s *TeacherService) Count(ctx context.Context, filter models.TeacherFilter) (int, error) {
	count, err := s.repo.Count(ctx, filter)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teachers")
	}
	return count, nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	if err := validateID(id, "teacher id"); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Create registers a new teacher record.
func (s *TeacherService) Create(ctx context.Context, req models.CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacherType := req.TeacherType
	if teacherType == "" {
		teacherType = scheduling.TeacherFullTime
	}
	windows, err := normalizeWindows(teacherType, req.AvailableTimeSlots)
	if err != nil {
		return nil, err
	}
	subjects, err := normalizeSubjects(req.Subjects)
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

	teacher := &models.Teacher{
		Name:               strings.TrimSpace(req.Name),
		Email:              email,
		ContactNo:          strings.TrimSpace(req.ContactNo),
		Address:            strings.TrimSpace(req.Address),
		TeacherType:        teacherType,
		AvailableTimeSlots: windows,
		Subjects:           subjects,
		PasswordHash:       hash,
		Active:             true,
	}
	if req.JoiningDate != nil {
		teacher.JoiningDate = *req.JoiningDate
	}

	if err := s.repo.Create(ctx, teacher); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID), zap.String("teacher_type", string(teacher.TeacherType)))
	return teacher, nil
}

// Update modifies an existing teacher. Existing bookings keep their snapshots.
func (s *TeacherService) Update(ctx context.Context, id string, req models.UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if err := validateID(id, "teacher id"); err != nil {
		return nil, err
	}
	teacher, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := s.ensureUniqueEmail(ctx, email, id); err != nil {
			return nil, err
		}
		teacher.Email = email
	}
	if req.Name != nil {
		teacher.Name = strings.TrimSpace(*req.Name)
	}
	if req.ContactNo != nil {
		teacher.ContactNo = strings.TrimSpace(*req.ContactNo)
	}
	if req.Address != nil {
		teacher.Address = strings.TrimSpace(*req.Address)
	}
	if req.Active != nil {
		teacher.Active = *req.Active
	}
	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		teacher.PasswordHash = hash
	}
	if req.Subjects != nil {
		subjects, err := normalizeSubjects(req.Subjects)
		if err != nil {
			return nil, err
		}
		teacher.Subjects = subjects
	}

	if req.TeacherType != nil {
		teacher.TeacherType = *req.TeacherType
	}
	windows := []scheduling.AvailabilityWindow(teacher.AvailableTimeSlots)
	if req.AvailableTimeSlots != nil {
		windows = *req.AvailableTimeSlots
	}
	if teacher.AvailableTimeSlots, err = normalizeWindows(teacher.TeacherType, windows); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, teacher); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher. Bookings referencing the teacher are left in place.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if err := validateID(id, "teacher id"); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}

func (s *TeacherService) load(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func (s *TeacherService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	return nil
}

// normalizeWindows validates windows for restricted teachers and drops them for full-time ones.
func normalizeWindows(teacherType scheduling.TeacherType, windows []scheduling.AvailabilityWindow) (models.AvailabilityWindows, error) {
	if !teacherType.RequiresAvailability() {
		return models.AvailabilityWindows{}, nil
	}
	if len(windows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, string(teacherType)+" teachers need at least one available time slot")
	}
	out := make(models.AvailabilityWindows, 0, len(windows))
	for _, w := range windows {
		normalized, err := w.Normalize()
		if err != nil {
			code, status := appErrors.ErrValidation.Code, appErrors.ErrValidation.Status
			if errors.Is(err, scheduling.ErrInvalidTimeFormat) {
				code, status = appErrors.ErrInvalidFormat.Code, appErrors.ErrInvalidFormat.Status
			}
			return nil, appErrors.Wrap(err, code, status, "invalid available time slot")
		}
		out = append(out, normalized)
	}
	return out, nil
}

func normalizeSubjects(in map[string]models.SubjectOffer) (models.TeacherSubjects, error) {
	out := models.TeacherSubjects{}
	for key, offer := range in {
		if !models.IsKnownSubject(key) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject "+key)
		}
		if offer.Fee < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "fee for "+key+" must not be negative")
		}
		out[key] = offer
	}
	return out, nil
}
