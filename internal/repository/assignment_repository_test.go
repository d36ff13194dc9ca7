package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famboard/chores-api/internal/models"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func assignmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "task_id", "assignee_id", "is_completed", "is_approved", "completion_time",
		"approval_time", "approved_reward_amount", "rejection_reason", "next_available_at",
		"created_at", "updated_at",
	})
}

func TestAssignmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	now := time.Now().UTC()
	rows := assignmentRows().
		AddRow("asg-1", "task-1", "child-1", true, false, now, nil, nil, nil, nil, now, now)
	mock.ExpectQuery("SELECT id, task_id").
		WithArgs("asg-1").
		WillReturnRows(rows)

	got, err := repo.FindByID(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.TaskID)
	assert.True(t, got.IsCompleted)
	assert.False(t, got.IsApproved)
}

func TestAssignmentRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	mock.ExpectQuery("SELECT id, task_id").
		WithArgs("missing").
		WillReturnRows(assignmentRows())

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAssignmentRepositoryListByAssignee(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "task_id", "assignee_id", "is_completed", "is_approved", "completion_time",
		"approval_time", "approved_reward_amount", "rejection_reason", "next_available_at",
		"created_at", "updated_at", "task_title", "task_disabled", "task_mode",
	}).
		AddRow("asg-1", "task-1", "child-1", false, false, nil, nil, nil, nil, nil, now, now,
			"Dishes", false, "SINGLE")
	mock.ExpectQuery("JOIN tasks").
		WithArgs("child-1").
		WillReturnRows(rows)

	got, err := repo.ListByAssignee(context.Background(), "child-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dishes", got[0].TaskTitle)
	assert.Equal(t, models.ModeSingle, got[0].TaskMode)
}

func TestAssignmentRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	mock.ExpectExec("UPDATE assignments SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assignee := "child-1"
	assignment := &models.Assignment{ID: "asg-1", TaskID: "task-1", AssigneeID: &assignee, IsCompleted: true}
	require.NoError(t, repo.Update(context.Background(), assignment))
	assert.False(t, assignment.UpdatedAt.IsZero())
}

func TestAssignmentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	mock.ExpectExec("UPDATE assignments SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assignment := &models.Assignment{ID: "gone"}
	err := repo.Update(context.Background(), assignment)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func taskLockRow(taskID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(taskID)
}

func TestAssignmentRepositoryClaimPoolWins(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	now := time.Now().UTC()
	assignee := "child-1"
	assignment := &models.Assignment{TaskID: "task-1", AssigneeID: &assignee}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM tasks WHERE id = (.+) FOR UPDATE").
		WithArgs("task-1").
		WillReturnRows(taskLockRow("task-1"))
	mock.ExpectExec("INSERT INTO assignments").
		WithArgs(sqlmock.AnyArg(), "task-1", assignee, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ClaimPool(context.Background(), assignment, now))
	assert.NotEmpty(t, assignment.ID)
	assert.Equal(t, now, assignment.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryClaimPoolLosesRace(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	now := time.Now().UTC()
	assignee := "child-2"
	assignment := &models.Assignment{TaskID: "task-1", AssigneeID: &assignee}

	// the winning claimer committed first; once the task lock releases, the
	// guard predicate sees its assignment and nothing inserts
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM tasks WHERE id = (.+) FOR UPDATE").
		WithArgs("task-1").
		WillReturnRows(taskLockRow("task-1"))
	mock.ExpectExec("INSERT INTO assignments").
		WithArgs(sqlmock.AnyArg(), "task-1", assignee, now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ClaimPool(context.Background(), assignment, now)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReclaim(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM tasks WHERE id = (.+) FOR UPDATE").
		WithArgs("task-1").
		WillReturnRows(taskLockRow("task-1"))
	mock.ExpectExec("UPDATE assignments SET is_completed = FALSE").
		WithArgs("task-1", "asg-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Reclaim(context.Background(), "task-1", "asg-1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReclaimStalePrecondition(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM tasks WHERE id = (.+) FOR UPDATE").
		WithArgs("task-1").
		WillReturnRows(taskLockRow("task-1"))
	mock.ExpectExec("UPDATE assignments SET is_completed = FALSE").
		WithArgs("task-1", "asg-1", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Reclaim(context.Background(), "task-1", "asg-1", now)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReclaimBlockedByAnotherClaim(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	now := time.Now().UTC()

	// the reclaimer's own row is approved and out of cooldown, but another
	// child already claimed the next cycle; the NOT EXISTS guard must see
	// that row and update nothing
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM tasks WHERE id = (.+) FOR UPDATE").
		WithArgs("task-1").
		WillReturnRows(taskLockRow("task-1"))
	mock.ExpectExec(`UPDATE assignments SET is_completed = FALSE(?s).*AND NOT EXISTS`).
		WithArgs("task-1", "asg-old", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Reclaim(context.Background(), "task-1", "asg-old", now)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewAssignmentRepository(db)
	mock.ExpectExec("DELETE FROM assignments").
		WithArgs("asg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "asg-1"))
}
