package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	dsrDomain "github.com/allisson/trustcore/internal/dsr/domain"
	dsrUseCase "github.com/allisson/trustcore/internal/dsr/usecase"
	serviceAuthDomain "github.com/allisson/trustcore/internal/serviceauth/domain"
	serviceAuthHTTP "github.com/allisson/trustcore/internal/serviceauth/http"
)

// mockOrchestrator is a mock implementation of DSROrchestrator for testing.
type mockOrchestrator struct {
	mock.Mock
}

func (m *mockOrchestrator) ExportUserData(
	ctx context.Context,
	userID string,
	requestedBy dsrUseCase.Actor,
) (*dsrDomain.ExportBundle, error) {
	args := m.Called(ctx, userID, requestedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dsrDomain.ExportBundle), args.Error(1)
}

func (m *mockOrchestrator) RequestDeletion(
	ctx context.Context,
	input *dsrUseCase.RequestDeletionInput,
	actor dsrUseCase.Actor,
) (uuid.UUID, error) {
	args := m.Called(ctx, input, actor)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockOrchestrator) ExecuteDeletion(
	ctx context.Context,
	deletionID uuid.UUID,
	actor dsrUseCase.Actor,
) (*dsrDomain.DeletionResult, error) {
	args := m.Called(ctx, deletionID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dsrDomain.DeletionResult), args.Error(1)
}

func (m *mockOrchestrator) CancelDeletion(ctx context.Context, deletionID uuid.UUID, actor dsrUseCase.Actor) error {
	args := m.Called(ctx, deletionID, actor)
	return args.Error(0)
}

func (m *mockOrchestrator) GetPendingDeletions(ctx context.Context) ([]*dsrDomain.DeletionRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dsrDomain.DeletionRequest), args.Error(1)
}

func (m *mockOrchestrator) GetDeletionStatus(ctx context.Context, deletionID uuid.UUID) (*dsrDomain.DeletionRequest, error) {
	args := m.Called(ctx, deletionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dsrDomain.DeletionRequest), args.Error(1)
}

// callerMiddleware injects a verified caller for handler tests.
func callerMiddleware(serviceID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &serviceAuthDomain.TokenClaims{ServiceID: serviceID}
		c.Request = c.Request.WithContext(serviceAuthHTTP.WithCaller(c.Request.Context(), claims))
		c.Next()
	}
}

func setupRouter(orchestrator *mockOrchestrator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(orchestrator, logger)

	router := gin.New()
	router.Use(callerMiddleware("admin-portal"))
	router.POST("/v1/users/:user_id/export", handler.ExportHandler)
	router.POST("/v1/deletions", handler.RequestDeletionHandler)
	router.POST("/v1/deletions/:id/execute", handler.ExecuteDeletionHandler)
	router.POST("/v1/deletions/:id/cancel", handler.CancelDeletionHandler)
	router.GET("/v1/deletions/:id", handler.GetDeletionHandler)
	router.GET("/v1/deletions", handler.ListPendingDeletionsHandler)

	return router
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestExportHandler(t *testing.T) {
	t.Run("returns the export bundle", func(t *testing.T) {
		orchestrator := &mockOrchestrator{}
		orchestrator.On("ExportUserData", mock.Anything, "u-42",
			dsrUseCase.Actor{ID: "admin-portal", Email: "dpo@example.com", Role: "dpo"}).
			Return(&dsrDomain.ExportBundle{
				UserID:       "u-42",
				GeneratedAt:  time.Now().UTC(),
				Profile:      &dsrDomain.User{ID: "u-42", Email: "alice@example.com"},
				Sources:      []string{"users"},
				RecordCounts: map[string]int{"users": 1},
			}, nil)

		router := setupRouter(orchestrator)
		w := postJSON(router, "/v1/users/u-42/export", map[string]string{
			"actor_email": "dpo@example.com",
			"actor_role":  "dpo",
		})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "alice@example.com")
		orchestrator.AssertExpectations(t)
	})

	t.Run("maps a missing user to 404", func(t *testing.T) {
		orchestrator := &mockOrchestrator{}
		orchestrator.On("ExportUserData", mock.Anything, "missing", mock.Anything).
			Return(nil, dsrDomain.ErrUserNotFound)

		router := setupRouter(orchestrator)
		w := postJSON(router, "/v1/users/missing/export", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRequestDeletionHandler(t *testing.T) {
	t.Run("queues a deletion and returns 201", func(t *testing.T) {
		orchestrator := &mockOrchestrator{}
		id := uuid.Must(uuid.NewV7())
		now := time.Now().UTC()

		orchestrator.On("RequestDeletion", mock.Anything,
			&dsrUseCase.RequestDeletionInput{
				UserID:      "u-42",
				RequestedBy: "u-42",
				Reason:      "GDPR_RIGHT_TO_BE_FORGOTTEN",
			},
			dsrUseCase.Actor{ID: "admin-portal"}).
			Return(id, nil)
		orchestrator.On("GetDeletionStatus", mock.Anything, id).
			Return(&dsrDomain.DeletionRequest{
				ID:           id,
				UserID:       "u-42",
				Status:       dsrDomain.DeletionStatusPending,
				ScheduledFor: now.Add(dsrDomain.GracePeriod),
				CreatedAt:    now,
			}, nil)

		router := setupRouter(orchestrator)
		w := postJSON(router, "/v1/deletions", map[string]string{
			"user_id":      "u-42",
			"requested_by": "u-42",
			"reason":       "GDPR_RIGHT_TO_BE_FORGOTTEN",
		})

		require.Equal(t, http.StatusCreated, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, id.String(), response["id"])
		assert.Equal(t, "PENDING", response["status"])
	})

	t.Run("rejects a blank user_id with 422", func(t *testing.T) {
		orchestrator := &mockOrchestrator{}
		router := setupRouter(orchestrator)

		w := postJSON(router, "/v1/deletions", map[string]string{
			"user_id":      "  ",
			"requested_by": "u-42",
			"reason":       "GDPR_RIGHT_TO_BE_FORGOTTEN",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		orchestrator.AssertNotCalled(t, "RequestDeletion")
	})
}

func TestExecuteDeletionHandler(t *testing.T) {
	t.Run("returns the execution result", func(t *testing.T) {
		orchestrator := &mockOrchestrator{}
		id := uuid.Must(uuid.NewV7())

		orchestrator.On("ExecuteDeletion", mock.Anything, id, dsrUseCase.Actor{ID: "admin-portal"}).
			Return(&dsrDomain.DeletionResult{
				DeletionID: id,
				UserID:     "u-42",
				Status:     dsrDomain.DeletionStatusCompleted,
				SystemsDeleted: []string{
					dsrDomain.SourceEncryptedPII,
					dsrDomain.SourceExternalIDMappings,
					dsrDomain.SourceUsersAnonymized,
				},
				Errors:           []string{},
				VerificationHash: "abc123",
				CompletedAt:      time.Now().UTC(),
			}, nil)

		router := setupRouter(orchestrator)
		w := postJSON(router, "/v1/deletions/"+id.String()+"/execute", nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "COMPLETED")
		assert.Contains(t, w.Body.String(), "abc123")
	})

	t.Run("maps ErrAlreadyCompleted to 409", func(t *testing.T) {
		orchestrator := &mockOrchestrator{}
		id := uuid.Must(uuid.NewV7())
		orchestrator.On("ExecuteDeletion", mock.Anything, id, mock.Anything).
			Return(nil, dsrDomain.ErrAlreadyCompleted)

		router := setupRouter(orchestrator)
		w := postJSON(router, "/v1/deletions/"+id.String()+"/execute", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rejects a malformed id", func(t *testing.T) {
		orchestrator := &mockOrchestrator{}
		router := setupRouter(orchestrator)

		w := postJSON(router, "/v1/deletions/not-a-uuid/execute", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		orchestrator.AssertNotCalled(t, "ExecuteDeletion")
	})
}

func TestCancelDeletionHandler(t *testing.T) {
	t.Run("cancels and returns 204", func(t *testing.T) {
		orchestrator := &mockOrchestrator{}
		id := uuid.Must(uuid.NewV7())
		orchestrator.On("CancelDeletion", mock.Anything, id,
			dsrUseCase.Actor{ID: "admin-portal", Email: "alice@example.com", Role: "subject"}).
			Return(nil)

		router := setupRouter(orchestrator)
		w := postJSON(router, "/v1/deletions/"+id.String()+"/cancel", map[string]string{
			"cancelled_by": "u-42",
			"actor_email":  "alice@example.com",
			"actor_role":   "subject",
		})

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("maps ErrInvalidStateForCancel to 409", func(t *testing.T) {
		orchestrator := &mockOrchestrator{}
		id := uuid.Must(uuid.NewV7())
		orchestrator.On("CancelDeletion", mock.Anything, id, mock.Anything).
			Return(dsrDomain.ErrInvalidStateForCancel)

		router := setupRouter(orchestrator)
		w := postJSON(router, "/v1/deletions/"+id.String()+"/cancel", map[string]string{
			"cancelled_by": "u-42",
		})

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestGetDeletionHandler(t *testing.T) {
	t.Run("returns the request", func(t *testing.T) {
		orchestrator := &mockOrchestrator{}
		id := uuid.Must(uuid.NewV7())
		orchestrator.On("GetDeletionStatus", mock.Anything, id).
			Return(&dsrDomain.DeletionRequest{
				ID:     id,
				UserID: "u-42",
				Status: dsrDomain.DeletionStatusPending,
			}, nil)

		router := setupRouter(orchestrator)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/deletions/"+id.String(), nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), id.String())
	})

	t.Run("maps ErrRequestNotFound to 404", func(t *testing.T) {
		orchestrator := &mockOrchestrator{}
		id := uuid.Must(uuid.NewV7())
		orchestrator.On("GetDeletionStatus", mock.Anything, id).
			Return(nil, dsrDomain.ErrRequestNotFound)

		router := setupRouter(orchestrator)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/deletions/"+id.String(), nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListPendingDeletionsHandler(t *testing.T) {
	orchestrator := &mockOrchestrator{}
	orchestrator.On("GetPendingDeletions", mock.Anything).
		Return([]*dsrDomain.DeletionRequest{
			{ID: uuid.Must(uuid.NewV7()), UserID: "u-42", Status: dsrDomain.DeletionStatusPending},
			{ID: uuid.Must(uuid.NewV7()), UserID: "u-43", Status: dsrDomain.DeletionStatusPending},
		}, nil)

	router := setupRouter(orchestrator)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/deletions", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var response map[string][]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response["deletions"], 2)
}
