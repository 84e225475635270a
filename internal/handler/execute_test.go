package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Avilink123/avilink-sandbox/internal/apperror"
	"github.com/Avilink123/avilink-sandbox/internal/executor"
	"github.com/Avilink123/avilink-sandbox/internal/handler"
	"github.com/Avilink123/avilink-sandbox/internal/model"
)

// MockService implements handler.ExecutionService for testing without a real
// backend or database.
type MockService struct {
	CapturedUser    string
	CapturedCode    string
	CapturedTimeout time.Duration
	CapturedCapture bool
	ReturnRes       *executor.ExecutionResult
	ReturnErr       error

	Records   []model.ExecutionRecord
	RecordErr error
}

func (m *MockService) Execute(_ context.Context, userName, code string, timeout time.Duration, captureOutput bool) (*executor.ExecutionResult, error) {
	m.CapturedUser = userName
	m.CapturedCode = code
	m.CapturedTimeout = timeout
	m.CapturedCapture = captureOutput
	if m.ReturnErr != nil {
		return nil, m.ReturnErr
	}
	return m.ReturnRes, nil
}

func (m *MockService) GetExecution(_ context.Context, id string) (*model.ExecutionRecord, error) {
	if m.RecordErr != nil {
		return nil, m.RecordErr
	}
	for _, r := range m.Records {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, apperror.NotFound("execution", id)
}

func (m *MockService) ListExecutions(_ context.Context, _ string, _, _ int) ([]model.ExecutionRecord, error) {
	if m.RecordErr != nil {
		return nil, m.RecordErr
	}
	return m.Records, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestExecuteHandler_HandleExecute(t *testing.T) {
	logger := testLogger()

	t.Run("valid execution", func(t *testing.T) {
		mockSvc := &MockService{
			ReturnRes: &executor.ExecutionResult{
				Output:   "Hello World",
				Status:   model.StatusSuccess,
				Duration: 100 * time.Millisecond,
			},
		}

		h := handler.NewExecuteHandler(mockSvc, logger)

		reqBody := `{"code":"print('Hello World')","timeout_seconds":5,"user":"alice"}`
		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(reqBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var res struct {
			Output     string  `json:"output"`
			Error      *string `json:"error"`
			DurationMs int64   `json:"duration_ms"`
			Status     string  `json:"status"`
		}
		err := json.NewDecoder(rr.Body).Decode(&res)
		assert.NoError(t, err)
		assert.Equal(t, "Hello World", res.Output)
		assert.Nil(t, res.Error)
		assert.Equal(t, int64(100), res.DurationMs)
		assert.Equal(t, model.StatusSuccess, res.Status)

		assert.Equal(t, "print('Hello World')", mockSvc.CapturedCode)
		assert.Equal(t, "alice", mockSvc.CapturedUser)
		assert.Equal(t, 5*time.Second, mockSvc.CapturedTimeout)
		assert.True(t, mockSvc.CapturedCapture, "capture_output should default to true")
	})

	t.Run("error travels in the payload with status 200", func(t *testing.T) {
		mockSvc := &MockService{
			ReturnRes: &executor.ExecutionResult{
				Error:    "ZeroDivisionError: division by zero",
				Status:   model.StatusError,
				Duration: 40 * time.Millisecond,
			},
		}
		h := handler.NewExecuteHandler(mockSvc, logger)

		reqBody := `{"code":"print(1/0)"}`
		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(reqBody))
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var res struct {
			Error  *string `json:"error"`
			Status string  `json:"status"`
		}
		assert.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, model.StatusError, res.Status)
		if assert.NotNil(t, res.Error) {
			assert.Contains(t, *res.Error, "ZeroDivisionError")
		}
	})

	t.Run("invalid request body", func(t *testing.T) {
		mockSvc := &MockService{}
		h := handler.NewExecuteHandler(mockSvc, logger)

		reqBody := `{"invalid_json":`
		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(reqBody))
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("empty code maps to 400", func(t *testing.T) {
		mockSvc := &MockService{
			ReturnErr: apperror.ValidationFailed("code", "code is required"),
		}
		h := handler.NewExecuteHandler(mockSvc, logger)

		reqBody := `{"code":""}`
		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(reqBody))
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("negative timeout rejected before the service", func(t *testing.T) {
		mockSvc := &MockService{}
		h := handler.NewExecuteHandler(mockSvc, logger)

		reqBody := `{"code":"print(1)","timeout_seconds":-1}`
		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(reqBody))
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Empty(t, mockSvc.CapturedCode, "service must not be called")
	})

	t.Run("no backend maps to 503", func(t *testing.T) {
		mockSvc := &MockService{
			ReturnErr: apperror.Unavailable("no execution backend configured"),
		}
		h := handler.NewExecuteHandler(mockSvc, logger)

		reqBody := `{"code":"print(1)"}`
		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(reqBody))
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("explicit capture_output false is honoured", func(t *testing.T) {
		mockSvc := &MockService{
			ReturnRes: &executor.ExecutionResult{Status: model.StatusSuccess},
		}
		h := handler.NewExecuteHandler(mockSvc, logger)

		reqBody := `{"code":"print(1)","capture_output":false}`
		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(reqBody))
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.False(t, mockSvc.CapturedCapture)
	})
}
