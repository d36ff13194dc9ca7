package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famboard/chores-api/internal/models"
	appErrors "github.com/famboard/chores-api/pkg/errors"
)

type poolTaskRepoStub struct {
	tasks map[string]models.Task
	pool  []models.Task
}

func (s *poolTaskRepoStub) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if task, ok := s.tasks[id]; ok {
		return &task, nil
	}
	return nil, sql.ErrNoRows
}

func (s *poolTaskRepoStub) ListPool(ctx context.Context) ([]models.Task, error) {
	return s.pool, nil
}

type poolAssignmentRepoStub struct {
	byID        map[string]models.Assignment
	byTaskUser  map[string]models.Assignment
	byTask      map[string][]models.Assignment
	claimTaken  bool
	reclaimLost bool
	claimed     *models.Assignment
	reclaimedID string
}

func poolKey(taskID, userID string) string { return taskID + "/" + userID }

func (s *poolAssignmentRepoStub) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := s.byID[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (s *poolAssignmentRepoStub) FindByTaskAndAssignee(ctx context.Context, taskID, assigneeID string) (*models.Assignment, error) {
	if a, ok := s.byTaskUser[poolKey(taskID, assigneeID)]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (s *poolAssignmentRepoStub) ListByTask(ctx context.Context, taskID string) ([]models.Assignment, error) {
	return s.byTask[taskID], nil
}

func (s *poolAssignmentRepoStub) ClaimPool(ctx context.Context, assignment *models.Assignment, now time.Time) error {
	if s.claimTaken {
		return sql.ErrNoRows
	}
	assignment.ID = "asg-new"
	s.claimed = assignment
	return nil
}

func (s *poolAssignmentRepoStub) Reclaim(ctx context.Context, taskID, id string, now time.Time) error {
	if s.reclaimLost {
		return sql.ErrNoRows
	}
	s.reclaimedID = id
	if a, ok := s.byID[id]; ok {
		a.ClearCycle()
		s.byID[id] = a
	}
	return nil
}

type visibilityCheckerStub struct {
	hidden map[string]bool
}

func (s *visibilityCheckerStub) FilterVisible(ctx context.Context, tasks []models.Task, viewer models.Actor) ([]models.Task, error) {
	if viewer.IsParent() {
		return tasks, nil
	}
	visible := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if s.hidden[task.ID] {
			continue
		}
		visible = append(visible, task)
	}
	return visible, nil
}

func (s *visibilityCheckerStub) IsHidden(ctx context.Context, taskID string, viewer models.Actor) (bool, error) {
	if viewer.IsParent() {
		return false, nil
	}
	return s.hidden[taskID], nil
}

type listingCacheStub struct {
	store      map[string][]byte
	gets, sets int
	deletes    int
}

func (s *listingCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	s.gets++
	return appErrors.Clone(appErrors.ErrCacheMiss, "miss")
}

func (s *listingCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.sets++
	return nil
}

func (s *listingCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deletes++
	return nil
}

func poolTask(id string) models.Task {
	return models.Task{
		ID:             id,
		Title:          "Walk the dog",
		CreatedBy:      "parent-1",
		Mode:           models.ModePool,
		RecurrenceRule: models.RecurrenceRule{Kind: models.RecurrenceDaily},
	}
}

func TestPoolServiceListAvailableComputesClaimability(t *testing.T) {
	now := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	assignee := "child-2"
	completedAt := now.Add(-6 * time.Hour)
	next := now.Add(6 * time.Hour)

	tasks := &poolTaskRepoStub{pool: []models.Task{poolTask("open"), poolTask("held"), poolTask("cooling")}}
	assignments := &poolAssignmentRepoStub{byTask: map[string][]models.Assignment{
		"held": {{ID: "a1", TaskID: "held", AssigneeID: &assignee, IsCompleted: true}},
		"cooling": {{
			ID: "a2", TaskID: "cooling", AssigneeID: &assignee,
			IsCompleted: true, IsApproved: true,
			CompletionTime: &completedAt, NextAvailableAt: &next,
		}},
	}}
	cache := &listingCacheStub{}
	svc := NewPoolService(tasks, assignments, &visibilityCheckerStub{}, cache, 30*time.Second, nil)

	viewer := models.Actor{UserID: "child-1", Role: models.RoleChild}
	views, err := svc.ListAvailable(context.Background(), viewer, now)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.True(t, views[0].Claimable)
	assert.Equal(t, 100, views[0].Progress)

	assert.False(t, views[1].Claimable)
	assert.Equal(t, 0, views[1].Progress)

	assert.False(t, views[2].Claimable)
	assert.Equal(t, 50, views[2].Progress)
	require.NotNil(t, views[2].NextAvailableAt)
	assert.Equal(t, next, *views[2].NextAvailableAt)

	assert.Equal(t, 1, cache.gets)
	assert.Equal(t, 1, cache.sets)
}

func TestPoolServiceListAvailableHidesFilteredTasks(t *testing.T) {
	tasks := &poolTaskRepoStub{pool: []models.Task{poolTask("open"), poolTask("secret")}}
	visibility := &visibilityCheckerStub{hidden: map[string]bool{"secret": true}}
	svc := NewPoolService(tasks, &poolAssignmentRepoStub{}, visibility, nil, 0, nil)

	viewer := models.Actor{UserID: "child-1", Role: models.RoleChild}
	views, err := svc.ListAvailable(context.Background(), viewer, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "open", views[0].Task.ID)
}

func TestPoolServiceClaimFirstClaimerWins(t *testing.T) {
	tasks := &poolTaskRepoStub{tasks: map[string]models.Task{"task-1": poolTask("task-1")}}
	assignments := &poolAssignmentRepoStub{}
	cache := &listingCacheStub{}
	svc := NewPoolService(tasks, assignments, &visibilityCheckerStub{}, cache, 0, nil)

	viewer := models.Actor{UserID: "child-1", Role: models.RoleChild}
	got, err := svc.Claim(context.Background(), "task-1", viewer, time.Now().UTC())
	require.NoError(t, err)

	require.NotNil(t, got.AssigneeID)
	assert.Equal(t, "child-1", *got.AssigneeID)
	assert.Equal(t, 1, cache.deletes)
}

func TestPoolServiceClaimLostRaceIsInvalidState(t *testing.T) {
	tasks := &poolTaskRepoStub{tasks: map[string]models.Task{"task-1": poolTask("task-1")}}
	assignments := &poolAssignmentRepoStub{claimTaken: true}
	svc := NewPoolService(tasks, assignments, &visibilityCheckerStub{}, nil, 0, nil)

	viewer := models.Actor{UserID: "child-1", Role: models.RoleChild}
	_, err := svc.Claim(context.Background(), "task-1", viewer, time.Now().UTC())
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}

func TestPoolServiceClaimRejectsParent(t *testing.T) {
	svc := NewPoolService(&poolTaskRepoStub{}, &poolAssignmentRepoStub{}, &visibilityCheckerStub{}, nil, 0, nil)

	parent := models.Actor{UserID: "parent-1", Role: models.RoleParent}
	_, err := svc.Claim(context.Background(), "task-1", parent, time.Now().UTC())
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestPoolServiceClaimRejectsHiddenTask(t *testing.T) {
	tasks := &poolTaskRepoStub{tasks: map[string]models.Task{"task-1": poolTask("task-1")}}
	visibility := &visibilityCheckerStub{hidden: map[string]bool{"task-1": true}}
	svc := NewPoolService(tasks, &poolAssignmentRepoStub{}, visibility, nil, 0, nil)

	viewer := models.Actor{UserID: "child-1", Role: models.RoleChild}
	_, err := svc.Claim(context.Background(), "task-1", viewer, time.Now().UTC())
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestPoolServiceClaimRejectsNonPoolTask(t *testing.T) {
	task := poolTask("task-1")
	task.Mode = models.ModeSingle
	tasks := &poolTaskRepoStub{tasks: map[string]models.Task{"task-1": task}}
	svc := NewPoolService(tasks, &poolAssignmentRepoStub{}, &visibilityCheckerStub{}, nil, 0, nil)

	viewer := models.Actor{UserID: "child-1", Role: models.RoleChild}
	_, err := svc.Claim(context.Background(), "task-1", viewer, time.Now().UTC())
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}

func TestPoolServiceReclaimAfterCooldown(t *testing.T) {
	now := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)
	assignee := "child-1"
	completedAt := time.Date(2024, 3, 12, 18, 0, 0, 0, time.UTC)
	next := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	existing := models.Assignment{
		ID: "asg-1", TaskID: "task-1", AssigneeID: &assignee,
		IsCompleted: true, IsApproved: true,
		CompletionTime: &completedAt, NextAvailableAt: &next,
	}

	tasks := &poolTaskRepoStub{tasks: map[string]models.Task{"task-1": poolTask("task-1")}}
	assignments := &poolAssignmentRepoStub{
		byID:       map[string]models.Assignment{"asg-1": existing},
		byTaskUser: map[string]models.Assignment{poolKey("task-1", "child-1"): existing},
	}
	svc := NewPoolService(tasks, assignments, &visibilityCheckerStub{}, nil, 0, nil)

	viewer := models.Actor{UserID: "child-1", Role: models.RoleChild}
	got, err := svc.Claim(context.Background(), "task-1", viewer, now)
	require.NoError(t, err)

	assert.Equal(t, "asg-1", assignments.reclaimedID)
	assert.False(t, got.IsCompleted)
	assert.False(t, got.IsApproved)
	assert.Nil(t, got.NextAvailableAt)
}

func TestPoolServiceReclaimLostToNewClaimerIsInvalidState(t *testing.T) {
	now := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)
	assignee := "child-1"
	next := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	existing := models.Assignment{
		ID: "asg-1", TaskID: "task-1", AssigneeID: &assignee,
		IsCompleted: true, IsApproved: true, NextAvailableAt: &next,
	}

	// the stale read looked reclaimable, but another child claimed the new
	// cycle first; the guarded update finds a blocking assignment
	tasks := &poolTaskRepoStub{tasks: map[string]models.Task{"task-1": poolTask("task-1")}}
	assignments := &poolAssignmentRepoStub{
		byID:        map[string]models.Assignment{"asg-1": existing},
		byTaskUser:  map[string]models.Assignment{poolKey("task-1", "child-1"): existing},
		reclaimLost: true,
	}
	svc := NewPoolService(tasks, assignments, &visibilityCheckerStub{}, nil, 0, nil)

	viewer := models.Actor{UserID: "child-1", Role: models.RoleChild}
	_, err := svc.Claim(context.Background(), "task-1", viewer, now)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
	assert.Empty(t, assignments.reclaimedID)
}

func TestPoolServiceReclaimDuringCooldownIsInvalidState(t *testing.T) {
	now := time.Date(2024, 3, 12, 20, 0, 0, 0, time.UTC)
	assignee := "child-1"
	next := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	existing := models.Assignment{
		ID: "asg-1", TaskID: "task-1", AssigneeID: &assignee,
		IsCompleted: true, IsApproved: true, NextAvailableAt: &next,
	}

	tasks := &poolTaskRepoStub{tasks: map[string]models.Task{"task-1": poolTask("task-1")}}
	assignments := &poolAssignmentRepoStub{
		byTaskUser: map[string]models.Assignment{poolKey("task-1", "child-1"): existing},
	}
	svc := NewPoolService(tasks, assignments, &visibilityCheckerStub{}, nil, 0, nil)

	viewer := models.Actor{UserID: "child-1", Role: models.RoleChild}
	_, err := svc.Claim(context.Background(), "task-1", viewer, now)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}

func TestPoolServiceReclaimPendingClaimIsNotFound(t *testing.T) {
	assignee := "child-1"
	existing := models.Assignment{ID: "asg-1", TaskID: "task-1", AssigneeID: &assignee, IsCompleted: true}

	tasks := &poolTaskRepoStub{tasks: map[string]models.Task{"task-1": poolTask("task-1")}}
	assignments := &poolAssignmentRepoStub{
		byTaskUser: map[string]models.Assignment{poolKey("task-1", "child-1"): existing},
	}
	svc := NewPoolService(tasks, assignments, &visibilityCheckerStub{}, nil, 0, nil)

	viewer := models.Actor{UserID: "child-1", Role: models.RoleChild}
	_, err := svc.Claim(context.Background(), "task-1", viewer, time.Now().UTC())
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
