package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ziel-classes-api/internal/handler"
	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/service"
)

type stubBookings struct {
	created int
}

func (s *stubBookings) List(context.Context, models.BookingFilter) ([]models.Booking, error) {
	return []models.Booking{}, nil
}

func (s *stubBookings) Create(_ context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	s.created++
	return &models.Booking{ID: "b-1", TeacherID: req.TeacherID}, nil
}

func (s *stubBookings) Update(_ context.Context, id string, _ models.UpdateBookingRequest) (*models.Booking, error) {
	return &models.Booking{ID: id}, nil
}

func (s *stubBookings) Delete(context.Context, string) error { return nil }

func newTestEngine(t *testing.T, bookings *stubBookings) (*gin.Engine, *service.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(nil, nil, nil, service.AuthConfig{AccessTokenSecret: "router-secret", AccessTokenExpiry: time.Hour})
	metrics := service.NewMetricsService()
	engine := New(Params{
		Metrics: metrics,
		Auth:    auth,
		Handlers: Handlers{
			Booking: handler.NewBookingHandler(bookings, nil, nil),
			Teacher: handler.NewTeacherHandler(nil),
			Student: handler.NewStudentHandler(nil),
			Auth:    handler.NewAuthHandler(auth),
			Metrics: handler.NewMetricsHandler(metrics, nil),
		},
		APIPrefix: "/api",
	})
	return engine, auth
}

func bearer(t *testing.T, auth *service.AuthService, role models.UserRole) string {
	t.Helper()
	token, _, err := auth.IssueToken(service.TokenSubject{ID: "u-1", Email: "u@ziel.test", Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRouterPublicRoutes(t *testing.T) {
	engine, _ := newTestEngine(t, &stubBookings{})

	for _, path := range []string{"/health", "/ready", "/metrics", "/api/timeslots"} {
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterWritesRequireAdmin(t *testing.T) {
	bookings := &stubBookings{}
	engine, auth := newTestEngine(t, bookings)
	body := []byte(`{"teacher_id":"t1","student_id":"s1","date":"2024-06-10","start_time":"09:00","end_time":"10:00"}`)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/timeslots", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/timeslots", bytes.NewReader(body))
	req.Header.Set("Authorization", bearer(t, auth, models.RoleStudent))
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, bookings.created)

	req = httptest.NewRequest(http.MethodPost, "/api/timeslots", bytes.NewReader(body))
	req.Header.Set("Authorization", bearer(t, auth, models.RoleAdmin))
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, bookings.created)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
