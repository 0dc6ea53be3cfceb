package service

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/repository"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
)

type memoryBookingRepo struct {
	mu    sync.Mutex
	items map[string]models.Booking
	err   error
}

func newMemoryBookingRepo() *memoryBookingRepo {
	return &memoryBookingRepo{items: make(map[string]models.Booking)}
}

func (m *memoryBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Booking
	for _, b := range m.items {
		if filter.TeacherID != "" && b.TeacherID != filter.TeacherID {
			continue
		}
		if filter.StudentID != "" && b.StudentID != filter.StudentID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.StartDate != nil && b.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && filter.EndDate.Before(b.Date) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *memoryBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.items[id]; ok {
		return &b, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryBookingRepo) ListScheduledFor(ctx context.Context, resource models.ConflictResource, resourceID string, date scheduling.Date, excludeID string) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Booking
	for _, b := range m.items {
		owner := b.TeacherID
		if resource == models.ConflictStudent {
			owner = b.StudentID
		}
		if owner != resourceID || !b.Date.Equal(date) || b.Status != models.BookingScheduled || b.ID == excludeID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *memoryBookingRepo) ListScheduledOn(ctx context.Context, date scheduling.Date) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Booking
	for _, b := range m.items {
		if b.Date.Equal(date) && b.Status == models.BookingScheduled {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memoryBookingRepo) CountScheduled(ctx context.Context, date *scheduling.Date) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, b := range m.items {
		if b.Status != models.BookingScheduled {
			continue
		}
		if date != nil && !b.Date.Equal(*date) {
			continue
		}
		count++
	}
	return count, nil
}

// duplicate mirrors the partial unique indexes on scheduled bookings.
func (m *memoryBookingRepo) duplicate(candidate models.Booking) bool {
	if candidate.Status != models.BookingScheduled {
		return false
	}
	for _, b := range m.items {
		if b.ID == candidate.ID || b.Status != models.BookingScheduled {
			continue
		}
		sameSlot := b.Date.Equal(candidate.Date) && b.StartTime == candidate.StartTime && b.EndTime == candidate.EndTime
		if sameSlot && (b.TeacherID == candidate.TeacherID || b.StudentID == candidate.StudentID) {
			return true
		}
	}
	return false
}

func (m *memoryBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.duplicate(*booking) {
		return &repository.DuplicateKeyError{Constraint: "uq_bookings_teacher_slot"}
	}
	booking.ID = uuid.NewString()
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	m.items[booking.ID] = *booking
	return nil
}

func (m *memoryBookingRepo) Update(ctx context.Context, booking *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[booking.ID]; !ok {
		return sql.ErrNoRows
	}
	if m.duplicate(*booking) {
		return &repository.DuplicateKeyError{Constraint: "uq_bookings_teacher_slot"}
	}
	booking.UpdatedAt = time.Now()
	m.items[booking.ID] = *booking
	return nil
}

func (m *memoryBookingRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type memoryTeacherRepo struct {
	items map[string]*models.Teacher
}

func newMemoryTeacherRepo(teachers ...models.Teacher) *memoryTeacherRepo {
	repo := &memoryTeacherRepo{items: make(map[string]*models.Teacher)}
	for i := range teachers {
		t := teachers[i]
		repo.items[t.ID] = &t
	}
	return repo
}

func (m *memoryTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error) {
	var out []models.Teacher
	for _, t := range m.items {
		if filter.TeacherType != "" && t.TeacherType != filter.TeacherType {
			continue
		}
		if filter.Active != nil && t.Active != *filter.Active {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (m *memoryTeacherRepo) Count(ctx context.Context, filter models.TeacherFilter) (int, error) {
	items, _ := m.List(ctx, filter)
	return len(items), nil
}

func (m *memoryTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := m.items[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryTeacherRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for id, t := range m.items {
		if strings.EqualFold(t.Email, email) && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	teacher.CreatedAt = time.Now()
	teacher.UpdatedAt = teacher.CreatedAt
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *memoryTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	if _, ok := m.items[teacher.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *memoryTeacherRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type memoryStudentRepo struct {
	items map[string]*models.Student
}

func newMemoryStudentRepo(students ...models.Student) *memoryStudentRepo {
	repo := &memoryStudentRepo{items: make(map[string]*models.Student)}
	for i := range students {
		s := students[i]
		repo.items[s.ID] = &s
	}
	return repo
}

func (m *memoryStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error) {
	var out []models.Student
	for _, s := range m.items {
		if filter.ClassName != "" && s.ClassName != filter.ClassName {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memoryStudentRepo) Count(ctx context.Context, filter models.StudentFilter) (int, error) {
	items, _ := m.List(ctx, filter)
	return len(items), nil
}

func (m *memoryStudentRepo) ListAvailable(ctx context.Context, excludeIDs []string) ([]models.AvailableStudent, error) {
	skip := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		skip[id] = struct{}{}
	}
	var out []models.AvailableStudent
	for _, s := range m.items {
		if _, busy := skip[s.ID]; busy {
			continue
		}
		out = append(out, models.AvailableStudent{ID: s.ID, Name: s.Name, Email: s.Email, ContactNo: s.ContactNo, ClassName: s.ClassName})
	}
	return out, nil
}

func (m *memoryStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryStudentRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for id, s := range m.items {
		if strings.EqualFold(s.Email, email) && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	student.CreatedAt = time.Now()
	student.UpdatedAt = student.CreatedAt
	cp := *student
	m.items[student.ID] = &cp
	return nil
}

func (m *memoryStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.items[student.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *student
	m.items[student.ID] = &cp
	return nil
}

func (m *memoryStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}
