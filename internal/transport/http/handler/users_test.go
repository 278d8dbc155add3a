package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-api-careauth/internal/domain"
	"github.com/go-api-careauth/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserSvc struct{ mock.Mock }

func (m *mockUserSvc) UpdateRole(ctx context.Context, caller *domain.User, userID, role string) (*domain.PublicProfile, error) {
	args := m.Called(ctx, caller, userID, role)
	if p, _ := args.Get(0).(*domain.PublicProfile); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserSvc) List(ctx context.Context, caller *domain.User, limit int, cursor string) ([]domain.PublicProfile, string, error) {
	args := m.Called(ctx, caller, limit, cursor)
	return args.Get(0).([]domain.PublicProfile), args.String(1), args.Error(2)
}
func (m *mockUserSvc) Delete(ctx context.Context, caller *domain.User, userID string) error {
	return m.Called(ctx, caller, userID).Error(0)
}

var adminCaller = &domain.User{UserID: "admin-1", Role: domain.RoleAdmin}

// withRouteAndUser attaches chi URL params and the caller to req.
func withRouteAndUser(req *http.Request, caller *domain.User, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(middleware.WithUser(ctx, caller))
}

func TestUpdateRole_OK(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("UpdateRole", mock.Anything, adminCaller, "u1", "Doctor").Return(&domain.PublicProfile{UserID: "u1", Role: domain.RoleDoctor}, nil)

	req := withRouteAndUser(httptest.NewRequest(http.MethodPut, "/", jsonBody(t, UpdateRoleRequest{Role: "Doctor"})), adminCaller, map[string]string{"id": "u1"})
	rr := httptest.NewRecorder()
	NewUserHandler(svc).UpdateRole(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var env ProfileEnvelope
	decodeBody(t, rr, &env)
	assert.Equal(t, domain.RoleDoctor, env.User.Role)
}

func TestUpdateRole_InvalidRoleRejectedAtBoundary(t *testing.T) {
	svc := &mockUserSvc{}
	req := withRouteAndUser(httptest.NewRequest(http.MethodPut, "/", jsonBody(t, UpdateRoleRequest{Role: "nurse"})), adminCaller, map[string]string{"id": "u1"})
	rr := httptest.NewRecorder()
	NewUserHandler(svc).UpdateRole(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateRole_NotFound(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("UpdateRole", mock.Anything, adminCaller, "ghost", "user").Return(nil, domain.ErrNotFound)

	req := withRouteAndUser(httptest.NewRequest(http.MethodPut, "/", jsonBody(t, UpdateRoleRequest{Role: "user"})), adminCaller, map[string]string{"id": "ghost"})
	rr := httptest.NewRecorder()
	NewUserHandler(svc).UpdateRole(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListUsers_PassesPaging(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("List", mock.Anything, adminCaller, 5, "abc").Return([]domain.PublicProfile{{Email: "a@x.com"}}, "def", nil)

	req := withRouteAndUser(httptest.NewRequest(http.MethodGet, "/?limit=5&cursor=abc", nil), adminCaller, nil)
	rr := httptest.NewRecorder()
	NewUserHandler(svc).List(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var env UsersPageEnvelope
	decodeBody(t, rr, &env)
	assert.Equal(t, "def", env.NextCursor)
	assert.Len(t, env.Data, 1)
}

func TestDeleteUser(t *testing.T) {
	svc := &mockUserSvc{}
	svc.On("Delete", mock.Anything, adminCaller, "u1").Return(nil)
	svc.On("Delete", mock.Anything, adminCaller, "ghost").Return(domain.ErrNotFound)
	h := NewUserHandler(svc)

	rr := httptest.NewRecorder()
	h.Delete(rr, withRouteAndUser(httptest.NewRequest(http.MethodDelete, "/", nil), adminCaller, map[string]string{"id": "u1"}))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.Delete(rr, withRouteAndUser(httptest.NewRequest(http.MethodDelete, "/", nil), adminCaller, map[string]string{"id": "ghost"}))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
