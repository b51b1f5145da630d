package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fludio/fludiobe/internal/policy"
	"github.com/fludio/fludiobe/middleware"
	"github.com/fludio/fludiobe/models"
	"github.com/fludio/fludiobe/services"
	"github.com/fludio/fludiobe/services/simstate"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockSimStateService is a mock implementation of SimStateService
type MockSimStateService struct {
	mock.Mock
}

func (m *MockSimStateService) List(ctx context.Context, principal *policy.Principal) ([]*models.SimState, error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SimState), args.Error(1)
}

func (m *MockSimStateService) Create(ctx context.Context, principal *policy.Principal, in simstate.CreateInput) (*models.SimState, error) {
	args := m.Called(ctx, principal, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SimState), args.Error(1)
}

func (m *MockSimStateService) Get(ctx context.Context, principal *policy.Principal, id int64) (*models.SimState, error) {
	args := m.Called(ctx, principal, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SimState), args.Error(1)
}

func (m *MockSimStateService) Update(ctx context.Context, principal *policy.Principal, id int64, in simstate.UpdateInput) (*models.SimState, error) {
	args := m.Called(ctx, principal, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SimState), args.Error(1)
}

func (m *MockSimStateService) Delete(ctx context.Context, principal *policy.Principal, id int64) error {
	return m.Called(ctx, principal, id).Error(0)
}

var handlerAlice = &policy.Principal{UserID: 1, Username: "alice"}

// asPrincipal attaches a principal and an optional {id} route parameter
func asPrincipal(req *http.Request, principal *policy.Principal, id string) *http.Request {
	ctx := middleware.WithPrincipal(req.Context(), principal)
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func sampleState() *models.SimState {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &models.SimState{
		ID:            5,
		OwnerID:       1,
		OwnerUsername: "alice",
		Name:          "run",
		Payload:       json.RawMessage(`{"v":1}`),
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}

func TestSimStateHandler_List(t *testing.T) {
	svc := new(MockSimStateService)
	handler := NewSimStateHandler(svc, zap.NewNop())
	svc.On("List", mock.Anything, handlerAlice).Return([]*models.SimState{sampleState()}, nil)

	w := httptest.NewRecorder()
	handler.HandleList(w, asPrincipal(httptest.NewRequest(http.MethodGet, "/api/simstates/", nil), handlerAlice, ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":5,"owner":"alice","name":"run","payload":{"v":1},
		"created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-01T00:00:00Z"}]`, w.Body.String())
}

func TestSimStateHandler_ListEmpty(t *testing.T) {
	svc := new(MockSimStateService)
	handler := NewSimStateHandler(svc, zap.NewNop())
	svc.On("List", mock.Anything, handlerAlice).Return([]*models.SimState{}, nil)

	w := httptest.NewRecorder()
	handler.HandleList(w, asPrincipal(httptest.NewRequest(http.MethodGet, "/api/simstates/", nil), handlerAlice, ""))

	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSimStateHandler_Create(t *testing.T) {
	t.Run("owner in body is ignored", func(t *testing.T) {
		svc := new(MockSimStateService)
		handler := NewSimStateHandler(svc, zap.NewNop())
		svc.On("Create", mock.Anything, handlerAlice, simstate.CreateInput{Name: "run", Payload: json.RawMessage(`{"v":1}`)}).
			Return(sampleState(), nil)

		req := jsonRequest(http.MethodPost, "/api/simstates/", `{"name":"run","payload":{"v":1},"owner":"bob"}`)
		w := httptest.NewRecorder()
		handler.HandleCreate(w, asPrincipal(req, handlerAlice, ""))

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("validation failure", func(t *testing.T) {
		svc := new(MockSimStateService)
		handler := NewSimStateHandler(svc, zap.NewNop())
		svc.On("Create", mock.Anything, handlerAlice, mock.Anything).
			Return(nil, services.NewValidationError("invalid simulation state", map[string]string{"payload": "payload too large (max 200000 bytes)"}))

		req := jsonRequest(http.MethodPost, "/api/simstates/", `{"payload":{}}`)
		w := httptest.NewRecorder()
		handler.HandleCreate(w, asPrincipal(req, handlerAlice, ""))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "payload too large")
	})
}

func TestSimStateHandler_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockSimStateService)
		handler := NewSimStateHandler(svc, zap.NewNop())
		svc.On("Get", mock.Anything, handlerAlice, int64(5)).Return(sampleState(), nil)

		w := httptest.NewRecorder()
		handler.HandleGet(w, asPrincipal(httptest.NewRequest(http.MethodGet, "/api/simstates/5/", nil), handlerAlice, "5"))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockSimStateService)
		handler := NewSimStateHandler(svc, zap.NewNop())
		svc.On("Get", mock.Anything, handlerAlice, int64(6)).Return(nil, services.ErrSimStateNotFound)

		w := httptest.NewRecorder()
		handler.HandleGet(w, asPrincipal(httptest.NewRequest(http.MethodGet, "/api/simstates/6/", nil), handlerAlice, "6"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := new(MockSimStateService)
		handler := NewSimStateHandler(svc, zap.NewNop())

		for _, id := range []string{"abc", "0", "-3"} {
			w := httptest.NewRecorder()
			handler.HandleGet(w, asPrincipal(httptest.NewRequest(http.MethodGet, "/api/simstates/x/", nil), handlerAlice, id))
			assert.Equal(t, http.StatusNotFound, w.Code, id)
		}
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSimStateHandler_Update(t *testing.T) {
	name := "renamed"

	tests := []struct {
		method string
		body   string
		want   simstate.UpdateInput
	}{
		{http.MethodPut, `{"name":"renamed","payload":{"v":2}}`, simstate.UpdateInput{Name: &name, Payload: json.RawMessage(`{"v":2}`)}},
		{http.MethodPatch, `{"name":"renamed"}`, simstate.UpdateInput{Name: &name, Partial: true}},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			svc := new(MockSimStateService)
			handler := NewSimStateHandler(svc, zap.NewNop())
			svc.On("Update", mock.Anything, handlerAlice, int64(5), tt.want).Return(sampleState(), nil)

			w := httptest.NewRecorder()
			handler.HandleUpdate(w, asPrincipal(jsonRequest(tt.method, "/api/simstates/5/", tt.body), handlerAlice, "5"))

			assert.Equal(t, http.StatusOK, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestSimStateHandler_Delete(t *testing.T) {
	svc := new(MockSimStateService)
	handler := NewSimStateHandler(svc, zap.NewNop())
	svc.On("Delete", mock.Anything, handlerAlice, int64(5)).Return(nil).Once()
	svc.On("Delete", mock.Anything, handlerAlice, int64(5)).Return(services.ErrSimStateNotFound).Once()

	w := httptest.NewRecorder()
	handler.HandleDelete(w, asPrincipal(httptest.NewRequest(http.MethodDelete, "/api/simstates/5/", nil), handlerAlice, "5"))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = httptest.NewRecorder()
	handler.HandleDelete(w, asPrincipal(httptest.NewRequest(http.MethodDelete, "/api/simstates/5/", nil), handlerAlice, "5"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
