package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famboard/chores-api/internal/models"
	appErrors "github.com/famboard/chores-api/pkg/errors"
)

type taskStoreStub struct {
	tasks    map[string]models.Task
	created  *models.Task
	disabled map[string]bool
	deleted  []string
}

func (s *taskStoreStub) FindByID(ctx context.Context, id string) (*models.Task, error) {
	if task, ok := s.tasks[id]; ok {
		return &task, nil
	}
	return nil, sql.ErrNoRows
}

func (s *taskStoreStub) ListByCreator(ctx context.Context, creatorID string) ([]models.Task, error) {
	result := []models.Task{}
	for _, task := range s.tasks {
		if task.CreatedBy == creatorID {
			result = append(result, task)
		}
	}
	return result, nil
}

func (s *taskStoreStub) Create(ctx context.Context, task *models.Task) error {
	task.ID = "task-new"
	s.created = task
	return nil
}

func (s *taskStoreStub) Update(ctx context.Context, task *models.Task) error {
	if _, ok := s.tasks[task.ID]; !ok {
		return sql.ErrNoRows
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *taskStoreStub) SetDisabled(ctx context.Context, id string, disabled bool) error {
	if s.disabled == nil {
		s.disabled = map[string]bool{}
	}
	s.disabled[id] = disabled
	return nil
}

func (s *taskStoreStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type assignmentCreatorStub struct {
	count    int
	existing map[string]models.Assignment
	created  *models.Assignment
}

func (s *assignmentCreatorStub) Create(ctx context.Context, assignment *models.Assignment) error {
	assignment.ID = "asg-new"
	s.created = assignment
	return nil
}

func (s *assignmentCreatorStub) FindByTaskAndAssignee(ctx context.Context, taskID, assigneeID string) (*models.Assignment, error) {
	if a, ok := s.existing[taskID+"/"+assigneeID]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (s *assignmentCreatorStub) CountByTask(ctx context.Context, taskID string) (int, error) {
	return s.count, nil
}

func (s *assignmentCreatorStub) ListByTask(ctx context.Context, taskID string) ([]models.Assignment, error) {
	return nil, nil
}

type familyReaderStub struct {
	users map[string]models.User
}

func (s *familyReaderStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return &user, nil
	}
	return nil, sql.ErrNoRows
}

func familyWithChild(parentID, childID string) *familyReaderStub {
	return &familyReaderStub{users: map[string]models.User{
		childID: {ID: childID, Role: models.RoleChild, ParentID: &parentID},
	}}
}

func validTaskRequest() CreateTaskRequest {
	amount := 1.5
	return CreateTaskRequest{
		Title:        "Water the plants",
		RewardAmount: &amount,
		Kind:         models.RecurrenceWeekly,
		Weekday:      1,
		Mode:         models.ModeSingle,
	}
}

func TestTaskServiceCreate(t *testing.T) {
	store := &taskStoreStub{tasks: map[string]models.Task{}}
	svc := NewTaskService(store, &assignmentCreatorStub{}, &familyReaderStub{}, validator.New(), nil)

	parent := models.Actor{UserID: "parent-1", Role: models.RoleParent}
	task, err := svc.Create(context.Background(), validTaskRequest(), parent)
	require.NoError(t, err)

	assert.Equal(t, "parent-1", task.CreatedBy)
	assert.Equal(t, models.RecurrenceWeekly, task.Kind)
	assert.NotNil(t, store.created)
}

func TestTaskServiceCreateRejectsChild(t *testing.T) {
	svc := NewTaskService(&taskStoreStub{}, &assignmentCreatorStub{}, &familyReaderStub{}, validator.New(), nil)

	child := models.Actor{UserID: "child-1", Role: models.RoleChild}
	_, err := svc.Create(context.Background(), validTaskRequest(), child)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestTaskServiceCreateRejectsMalformedRecurrence(t *testing.T) {
	svc := NewTaskService(&taskStoreStub{}, &assignmentCreatorStub{}, &familyReaderStub{}, validator.New(), nil)
	parent := models.Actor{UserID: "parent-1", Role: models.RoleParent}

	req := validTaskRequest()
	req.Weekday = 9
	_, err := svc.Create(context.Background(), req, parent)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	req = validTaskRequest()
	req.Kind = models.RecurrenceMonthly
	req.DayOfMonth = 32
	_, err = svc.Create(context.Background(), req, parent)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestTaskServiceCreateRejectsMixedRewardTerms(t *testing.T) {
	svc := NewTaskService(&taskStoreStub{}, &assignmentCreatorStub{}, &familyReaderStub{}, validator.New(), nil)
	parent := models.Actor{UserID: "parent-1", Role: models.RoleParent}

	req := validTaskRequest()
	lo, hi := 1.0, 3.0
	req.MinReward, req.MaxReward = &lo, &hi
	_, err := svc.Create(context.Background(), req, parent)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestTaskServiceUpdateRequiresAdministrator(t *testing.T) {
	store := &taskStoreStub{tasks: map[string]models.Task{
		"task-1": {ID: "task-1", CreatedBy: "parent-1", Mode: models.ModeSingle},
	}}
	svc := NewTaskService(store, &assignmentCreatorStub{}, &familyReaderStub{}, validator.New(), nil)

	other := models.Actor{UserID: "parent-2", Role: models.RoleParent}
	_, err := svc.Update(context.Background(), "task-1", validTaskRequest(), other)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestTaskServiceAssignSingleMode(t *testing.T) {
	store := &taskStoreStub{tasks: map[string]models.Task{
		"task-1": {ID: "task-1", CreatedBy: "parent-1", Mode: models.ModeSingle},
	}}
	assignments := &assignmentCreatorStub{}
	svc := NewTaskService(store, assignments, familyWithChild("parent-1", "child-1"), validator.New(), nil)

	parent := models.Actor{UserID: "parent-1", Role: models.RoleParent}
	got, err := svc.Assign(context.Background(), "task-1", "child-1", parent)
	require.NoError(t, err)

	require.NotNil(t, got.AssigneeID)
	assert.Equal(t, "child-1", *got.AssigneeID)
}

func TestTaskServiceAssignSingleModeConflict(t *testing.T) {
	store := &taskStoreStub{tasks: map[string]models.Task{
		"task-1": {ID: "task-1", CreatedBy: "parent-1", Mode: models.ModeSingle},
	}}
	assignments := &assignmentCreatorStub{count: 1}
	svc := NewTaskService(store, assignments, familyWithChild("parent-1", "child-1"), validator.New(), nil)

	parent := models.Actor{UserID: "parent-1", Role: models.RoleParent}
	_, err := svc.Assign(context.Background(), "task-1", "child-1", parent)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestTaskServiceAssignMultiModeDuplicate(t *testing.T) {
	store := &taskStoreStub{tasks: map[string]models.Task{
		"task-1": {ID: "task-1", CreatedBy: "parent-1", Mode: models.ModeMultiIndependent},
	}}
	assignments := &assignmentCreatorStub{existing: map[string]models.Assignment{
		"task-1/child-1": {ID: "asg-1"},
	}}
	svc := NewTaskService(store, assignments, familyWithChild("parent-1", "child-1"), validator.New(), nil)

	parent := models.Actor{UserID: "parent-1", Role: models.RoleParent}
	_, err := svc.Assign(context.Background(), "task-1", "child-1", parent)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestTaskServiceAssignPoolModeRejected(t *testing.T) {
	store := &taskStoreStub{tasks: map[string]models.Task{
		"task-1": {ID: "task-1", CreatedBy: "parent-1", Mode: models.ModePool},
	}}
	svc := NewTaskService(store, &assignmentCreatorStub{}, familyWithChild("parent-1", "child-1"), validator.New(), nil)

	parent := models.Actor{UserID: "parent-1", Role: models.RoleParent}
	_, err := svc.Assign(context.Background(), "task-1", "child-1", parent)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}

func TestTaskServiceAssignForeignChildRejected(t *testing.T) {
	store := &taskStoreStub{tasks: map[string]models.Task{
		"task-1": {ID: "task-1", CreatedBy: "parent-1", Mode: models.ModeSingle},
	}}
	svc := NewTaskService(store, &assignmentCreatorStub{}, familyWithChild("parent-2", "child-1"), validator.New(), nil)

	parent := models.Actor{UserID: "parent-1", Role: models.RoleParent}
	_, err := svc.Assign(context.Background(), "task-1", "child-1", parent)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestTaskServiceDisableEnable(t *testing.T) {
	store := &taskStoreStub{tasks: map[string]models.Task{
		"task-1": {ID: "task-1", CreatedBy: "parent-1", Mode: models.ModeSingle},
	}}
	svc := NewTaskService(store, &assignmentCreatorStub{}, &familyReaderStub{}, validator.New(), nil)

	parent := models.Actor{UserID: "parent-1", Role: models.RoleParent}
	require.NoError(t, svc.Disable(context.Background(), "task-1", parent))
	assert.True(t, store.disabled["task-1"])

	require.NoError(t, svc.Enable(context.Background(), "task-1", parent))
	assert.False(t, store.disabled["task-1"])
}

func TestTaskServiceDeleteUnknownTask(t *testing.T) {
	svc := NewTaskService(&taskStoreStub{tasks: map[string]models.Task{}}, &assignmentCreatorStub{}, &familyReaderStub{}, validator.New(), nil)

	parent := models.Actor{UserID: "parent-1", Role: models.RoleParent}
	err := svc.Delete(context.Background(), "missing", parent)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
