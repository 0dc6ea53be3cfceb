package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ziel-classes-api/internal/models"
	"github.com/noah-isme/ziel-classes-api/internal/scheduling"
)

var teacherRowColumns = []string{"id", "name", "email", "contact_no", "address", "teacher_type", "available_time_slots", "subjects", "password_hash", "active", "joining_date", "created_at", "updated_at"}

func TestTeacherRepositoryFindByIDDecodesJSON(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	windows := `[{"is_recurring":true,"day_of_week":1,"start_time":"10:00","end_time":"12:00"}]`
	subjects := `{"math":{"selected":true,"fee":500}}`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + teacherColumns + " FROM teachers WHERE id = $1")).
		WithArgs("t1").
		WillReturnRows(sqlmock.NewRows(teacherRowColumns).
			AddRow("t1", "Asha", "asha@example.com", "", "", "part-time", []byte(windows), []byte(subjects), "hash", true, now, now, now))

	teacher, err := repo.FindByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, scheduling.TeacherPartTime, teacher.TeacherType)
	require.Len(t, teacher.AvailableTimeSlots, 1)
	assert.Equal(t, time.Monday, *teacher.AvailableTimeSlots[0].DayOfWeek)
	assert.Equal(t, 500.0, teacher.Subjects["math"].Fee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryListAndCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + teacherColumns + " FROM teachers WHERE teacher_type = $1 AND (LOWER(name) LIKE $2 OR LOWER(email) LIKE $2) ORDER BY name ASC")).
		WithArgs(scheduling.TeacherVisiting, "%ash%").
		WillReturnRows(sqlmock.NewRows(teacherRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM teachers")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	list, err := repo.List(context.Background(), models.TeacherFilter{TeacherType: scheduling.TeacherVisiting, Search: "Ash"})
	require.NoError(t, err)
	assert.Empty(t, list)

	total, err := repo.Count(context.Background(), models.TeacherFilter{})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryExistsByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM teachers WHERE LOWER(email) = LOWER($1) AND id <> $2 LIMIT 1")).
		WithArgs("a@example.com", "t1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err := repo.ExistsByEmail(context.Background(), "a@example.com", "t1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teachers").WillReturnResult(sqlmock.NewResult(1, 1))
	teacher := &models.Teacher{Name: "Asha", Email: "asha@example.com", TeacherType: scheduling.TeacherFullTime, Active: true}
	require.NoError(t, repo.Create(context.Background(), teacher))
	assert.NotEmpty(t, teacher.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
