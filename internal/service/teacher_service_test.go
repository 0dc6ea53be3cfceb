package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
	appErrors "github.com/noah-isme/ziel-classes-api/pkg/errors"
)

func TestTeacherServiceCreateFullTime(t *testing.T) {
	repo := newMemoryTeacherRepo()
	svc := NewTeacherService(repo, nil, nil)

	teacher, err := svc.Create(context.Background(), models.CreateTeacherRequest{
		Name:     "Tara",
		Email:    "Tara@Ziel.test",
		Password: "secret123",
		AvailableTimeSlots: []scheduling.AvailabilityWindow{
			scheduling.Recurring(time.Monday, "10:00", "12:00"),
		},
		Subjects: map[string]models.SubjectOffer{models.SubjectMath: {Selected: true, Fee: 40}},
	})
	require.NoError(t, err)
	assert.Equal(t, scheduling.TeacherFullTime, teacher.TeacherType)
	assert.Equal(t, "tara@ziel.test", teacher.Email)
	assert.Empty(t, teacher.AvailableTimeSlots)
	assert.True(t, teacher.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte("secret123")))
}

func TestTeacherServiceCreateRestrictedNeedsWindows(t *testing.T) {
	svc := NewTeacherService(newMemoryTeacherRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreateTeacherRequest{
		Name: "Paul", Email: "paul@ziel.test", Password: "secret123", TeacherType: scheduling.TeacherPartTime,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, models.CreateTeacherRequest{
		Name: "Paul", Email: "paul@ziel.test", Password: "secret123", TeacherType: scheduling.TeacherPartTime,
		AvailableTimeSlots: []scheduling.AvailabilityWindow{scheduling.Recurring(time.Monday, "12:00", "10:00")},
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	teacher, err := svc.Create(ctx, models.CreateTeacherRequest{
		Name: "Vera", Email: "vera@ziel.test", Password: "secret123", TeacherType: scheduling.TeacherVisiting,
		AvailableTimeSlots: []scheduling.AvailabilityWindow{
			scheduling.OneOff(scheduling.DateOf(2024, time.June, 10), "10:00", "12:00"),
		},
	})
	require.NoError(t, err)
	require.Len(t, teacher.AvailableTimeSlots, 1)
	assert.False(t, teacher.AvailableTimeSlots[0].IsRecurring)
}

func TestTeacherServiceCreateRejectsDuplicateEmailAndUnknownSubject(t *testing.T) {
	repo := newMemoryTeacherRepo(models.Teacher{ID: fullTimeTeacherID, Email: "tara@ziel.test"})
	svc := NewTeacherService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.CreateTeacherRequest{Name: "Tara", Email: "tara@ziel.test", Password: "secret123"})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	_, err = svc.Create(ctx, models.CreateTeacherRequest{
		Name: "Tom", Email: "tom@ziel.test", Password: "secret123",
		Subjects: map[string]models.SubjectOffer{"history": {Selected: true}},
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(ctx, models.CreateTeacherRequest{Name: "Tom", Email: "tom@ziel.test", Password: "secret123", TeacherType: "intern"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestTeacherServiceUpdate(t *testing.T) {
	repo := newMemoryTeacherRepo(
		models.Teacher{ID: fullTimeTeacherID, Name: "Tara", Email: "tara@ziel.test", TeacherType: scheduling.TeacherFullTime, Active: true},
		models.Teacher{ID: partTimeTeacherID, Name: "Paul", Email: "paul@ziel.test", TeacherType: scheduling.TeacherFullTime, Active: true},
	)
	svc := NewTeacherService(repo, nil, nil)
	ctx := context.Background()

	partTime := scheduling.TeacherPartTime
	_, err := svc.Update(ctx, fullTimeTeacherID, models.UpdateTeacherRequest{TeacherType: &partTime})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	windows := []scheduling.AvailabilityWindow{scheduling.Recurring(time.Wednesday, "9:00", "11:00")}
	updated, err := svc.Update(ctx, fullTimeTeacherID, models.UpdateTeacherRequest{TeacherType: &partTime, AvailableTimeSlots: &windows})
	require.NoError(t, err)
	assert.Equal(t, scheduling.TeacherPartTime, updated.TeacherType)
	require.Len(t, updated.AvailableTimeSlots, 1)
	assert.Equal(t, scheduling.TimeOfDay("09:00"), updated.AvailableTimeSlots[0].StartTime)

	taken := "paul@ziel.test"
	_, err = svc.Update(ctx, fullTimeTeacherID, models.UpdateTeacherRequest{Email: &taken})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	name := "Tara B"
	updated, err = svc.Update(ctx, fullTimeTeacherID, models.UpdateTeacherRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Tara B", updated.Name)
	assert.Len(t, updated.AvailableTimeSlots, 1)

	_, err = svc.Update(ctx, missingID, models.UpdateTeacherRequest{Name: &name})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestTeacherServiceGetListCountDelete(t *testing.T) {
	active := true
	repo := newMemoryTeacherRepo(
		models.Teacher{ID: fullTimeTeacherID, Name: "Tara", TeacherType: scheduling.TeacherFullTime, Active: true},
		models.Teacher{ID: partTimeTeacherID, Name: "Paul", TeacherType: scheduling.TeacherPartTime, Active: false},
	)
	svc := NewTeacherService(repo, nil, nil)
	ctx := context.Background()

	teachers, err := svc.List(ctx, models.TeacherFilter{Active: &active})
	require.NoError(t, err)
	require.Len(t, teachers, 1)
	assert.Equal(t, "Tara", teachers[0].Name)

	count, err := svc.Count(ctx, models.TeacherFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = svc.List(ctx, models.TeacherFilter{TeacherType: "intern"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	got, err := svc.Get(ctx, partTimeTeacherID)
	require.NoError(t, err)
	assert.Equal(t, "Paul", got.Name)

	_, err = svc.Get(ctx, "bad-id")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidFormat))

	require.NoError(t, svc.Delete(ctx, partTimeTeacherID))
	err = svc.Delete(ctx, partTimeTeacherID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
