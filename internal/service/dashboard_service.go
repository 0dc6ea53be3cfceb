package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
	appErrors "github.com/noah-isme/ziel-classes-api/pkg/errors"
)

const dashboardStatsKey = "dashboard:stats"

type studentCounter interface {
	Count(ctx context.Context, filter models.StudentFilter) (int, error)
}

type teacherCounter interface {
	Count(ctx context.Context, filter models.TeacherFilter) (int, error)
}

type scheduledBookingCounter interface {
	CountScheduled(ctx context.Context, date *scheduling.Date) (int, error)
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Students studentCounter
	Teachers teacherCounter
	Bookings scheduledBookingCounter
	Cache    *CacheService
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// DashboardService composes the admin overview.
type DashboardService struct {
	students studentCounter
	teachers teacherCounter
	bookings scheduledBookingCounter
	cache    *CacheService
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DashboardService{
		students: params.Students,
		teachers: params.Teachers,
		bookings: params.Bookings,
		cache:    params.Cache,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Stats returns the overview and whether it came from cache.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, bool, error) {
	var cached models.DashboardStats
	if s.cache.Get(ctx, dashboardStatsKey, &cached) {
		return &cached, true, nil
	}

	students, err := s.students.Count(ctx, models.StudentFilter{})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	teachers, err := s.teachers.Count(ctx, models.TeacherFilter{})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teachers")
	}
	scheduled, err := s.bookings.CountScheduled(ctx, nil)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count bookings")
	}
	now := s.now().UTC()
	today := scheduling.DateOf(now.Year(), now.Month(), now.Day())
	todayCount, err := s.bookings.CountScheduled(ctx, &today)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count bookings")
	}

	stats := &models.DashboardStats{
		StudentCount:      students,
		TeacherCount:      teachers,
		ScheduledBookings: scheduled,
		BookingsToday:     todayCount,
		GeneratedAt:       now,
	}
	s.cache.Set(ctx, dashboardStatsKey, stats, s.ttl)
	return stats, false, nil
}

// Invalidate drops cached dashboard payloads after a write.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	s.cache.Invalidate(ctx, "dashboard:*")
}
