package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raito-kakutani/timable/internal/models"
)

func TestTimetableRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	plan := models.RotationPlan{Weeks: []models.Assignment{models.NewAssignment()}}
	plan.Weeks[0].Lessons[models.SlotKey{ClassID: "10A", Day: 0, Period: 0}] = models.Lesson{Subject: "math", TeacherID: "t1"}
	plan.Weeks[0].Lessons[models.SlotKey{ClassID: "10A", Day: 0, Period: 1}] = models.Lesson{Subject: "science", TeacherID: "t2"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM timetables")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(3))
	mock.ExpectExec("INSERT INTO timetables").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_slots").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 0, "10A", 0, 0, "math", "t1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO timetable_slots").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 0, "10A", 0, 1, "science", "t2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	timetable := &models.Timetable{Penalty: 4}
	require.NoError(t, repo.CreateVersioned(context.Background(), timetable, plan))
	assert.Equal(t, 3, timetable.Version)
	assert.Equal(t, models.TimetableStatusDraft, timetable.Status)
	assert.Equal(t, 1, timetable.Weeks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryPublishArchivesPrevious(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE timetables SET status").
		WithArgs(models.TimetableStatusArchived, sqlmock.AnyArg(), models.TimetableStatusPublished).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE timetables SET status").
		WithArgs(models.TimetableStatusPublished, sqlmock.AnyArg(), "tt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Publish(context.Background(), "tt-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryPublishMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE timetables SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE timetables SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Publish(context.Background(), "missing")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryLoadSlots(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "timetable_id", "week", "class_id", "day", "period", "subject", "teacher_id", "created_at"}).
		AddRow("s1", "tt-1", 0, "10A", 0, 0, "math", "t1", time.Now()).
		AddRow("s2", "tt-1", 1, "10A", 1, 0, "math", "t1", time.Now())
	mock.ExpectQuery("SELECT id, timetable_id, week").
		WithArgs("tt-1").
		WillReturnRows(rows)

	slots, err := repo.LoadSlots(context.Background(), "tt-1")
	require.NoError(t, err)
	require.Len(t, slots, 2)

	rebuilt := models.AssignmentFromSlots(slots, 2)
	assert.Len(t, rebuilt.Weeks, 2)
	assert.Equal(t, "math", rebuilt.Weeks[1].Lessons[models.SlotKey{ClassID: "10A", Day: 1, Period: 0}].Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}
