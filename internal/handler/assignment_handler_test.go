package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famboard/chores-api/internal/middleware"
	"github.com/famboard/chores-api/internal/models"
	appErrors "github.com/famboard/chores-api/pkg/errors"
)

type fakeChoreSrv struct {
	assignment *models.Assignment
	views      []models.AssignmentView
	err        error

	lastID     string
	lastActor  models.Actor
	lastReward *float64
	lastReason string
}

func (f *fakeChoreSrv) Complete(_ context.Context, id string, actor models.Actor, _ time.Time) (*models.Assignment, error) {
	f.lastID, f.lastActor = id, actor
	return f.assignment, f.err
}

func (f *fakeChoreSrv) Approve(_ context.Context, id string, actor models.Actor, reward *float64, _ time.Time) (*models.Assignment, error) {
	f.lastID, f.lastActor, f.lastReward = id, actor, reward
	return f.assignment, f.err
}

func (f *fakeChoreSrv) Reject(_ context.Context, id string, actor models.Actor, reason string, _ time.Time) (*models.Assignment, error) {
	f.lastID, f.lastActor, f.lastReason = id, actor, reason
	return f.assignment, f.err
}

func (f *fakeChoreSrv) Reset(_ context.Context, id string, actor models.Actor) (*models.Assignment, error) {
	f.lastID, f.lastActor = id, actor
	return f.assignment, f.err
}

func (f *fakeChoreSrv) ListMine(_ context.Context, actor models.Actor, _ time.Time) ([]models.AssignmentView, error) {
	f.lastActor = actor
	return f.views, f.err
}

func testContext(t *testing.T, method, target string, body []byte, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func TestAssignmentHandlerCompleteSuccess(t *testing.T) {
	srv := &fakeChoreSrv{assignment: &models.Assignment{ID: "asg-1", IsCompleted: true}}
	h := NewAssignmentHandler(srv, nil)

	c, rec := testContext(t, http.MethodPost, "/assignments/asg-1/complete", nil,
		&models.JWTClaims{UserID: "child-1", Role: models.RoleChild})
	c.Params = gin.Params{{Key: "id", Value: "asg-1"}}

	h.Complete(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "asg-1", srv.lastID)
	assert.Equal(t, "child-1", srv.lastActor.UserID)
}

func TestAssignmentHandlerCompleteConflict(t *testing.T) {
	srv := &fakeChoreSrv{err: appErrors.Clone(appErrors.ErrInvalidState, "completion is pending approval")}
	h := NewAssignmentHandler(srv, nil)

	c, rec := testContext(t, http.MethodPost, "/assignments/asg-1/complete", nil,
		&models.JWTClaims{UserID: "child-1", Role: models.RoleChild})
	c.Params = gin.Params{{Key: "id", Value: "asg-1"}}

	h.Complete(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAssignmentHandlerApprovePassesReward(t *testing.T) {
	srv := &fakeChoreSrv{assignment: &models.Assignment{ID: "asg-1", IsApproved: true}}
	h := NewAssignmentHandler(srv, nil)

	body, err := json.Marshal(ApproveRequest{RewardValue: floatPtr(3.5)})
	require.NoError(t, err)
	c, rec := testContext(t, http.MethodPost, "/assignments/asg-1/approve", body,
		&models.JWTClaims{UserID: "parent-1", Role: models.RoleParent})
	c.Params = gin.Params{{Key: "id", Value: "asg-1"}}

	h.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastReward)
	assert.Equal(t, 3.5, *srv.lastReward)
}

func TestAssignmentHandlerApproveWithoutBody(t *testing.T) {
	srv := &fakeChoreSrv{assignment: &models.Assignment{ID: "asg-1", IsApproved: true}}
	h := NewAssignmentHandler(srv, nil)

	c, rec := testContext(t, http.MethodPost, "/assignments/asg-1/approve", nil,
		&models.JWTClaims{UserID: "parent-1", Role: models.RoleParent})
	c.Params = gin.Params{{Key: "id", Value: "asg-1"}}

	h.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, srv.lastReward)
}

func TestAssignmentHandlerRejectPassesReason(t *testing.T) {
	srv := &fakeChoreSrv{assignment: &models.Assignment{ID: "asg-1"}}
	h := NewAssignmentHandler(srv, nil)

	body, err := json.Marshal(RejectRequest{Reason: "try again"})
	require.NoError(t, err)
	c, rec := testContext(t, http.MethodPost, "/assignments/asg-1/reject", body,
		&models.JWTClaims{UserID: "parent-1", Role: models.RoleParent})
	c.Params = gin.Params{{Key: "id", Value: "asg-1"}}

	h.Reject(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "try again", srv.lastReason)
}

func TestAssignmentHandlerListMine(t *testing.T) {
	srv := &fakeChoreSrv{views: []models.AssignmentView{
		{AssignmentDetail: models.AssignmentDetail{Assignment: models.Assignment{ID: "asg-1"}}, IsAvailable: true, Progress: 100},
	}}
	h := NewAssignmentHandler(srv, nil)

	c, rec := testContext(t, http.MethodGet, "/assignments", nil,
		&models.JWTClaims{UserID: "child-1", Role: models.RoleChild})

	h.ListMine(c)

	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []models.AssignmentView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.True(t, envelope.Data[0].IsAvailable)
}

func TestAssignmentHandlerForbiddenMapsTo403(t *testing.T) {
	srv := &fakeChoreSrv{err: appErrors.Clone(appErrors.ErrForbidden, "only the assignee may complete this task")}
	h := NewAssignmentHandler(srv, nil)

	c, rec := testContext(t, http.MethodPost, "/assignments/asg-1/complete", nil,
		&models.JWTClaims{UserID: "child-2", Role: models.RoleChild})
	c.Params = gin.Params{{Key: "id", Value: "asg-1"}}

	h.Complete(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func floatPtr(v float64) *float64 { return &v }
