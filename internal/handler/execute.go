package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/Avilink123/avilink-sandbox/internal/apperror"
	"github.com/Avilink123/avilink-sandbox/internal/executor"
	"github.com/Avilink123/avilink-sandbox/internal/model"
)

// ExecutionService is the slice of the service layer the HTTP handlers need.
// Declaring the interface HERE (at the consumer) instead of in the service
// package is the idiomatic Go dependency direction — handlers say what they
// need, the service happens to satisfy it.
type ExecutionService interface {
	Execute(ctx context.Context, userName, code string, timeout time.Duration, captureOutput bool) (*executor.ExecutionResult, error)
	GetExecution(ctx context.Context, id string) (*model.ExecutionRecord, error)
	ListExecutions(ctx context.Context, userName string, limit, offset int) ([]model.ExecutionRecord, error)
}

// ExecuteHandler handles code execution requests.
type ExecuteHandler struct {
	svc    ExecutionService
	logger *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler.
func NewExecuteHandler(svc ExecutionService, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		svc:    svc,
		logger: logger,
	}
}

// executeRequest is the wire format of POST /api/execute.
type executeRequest struct {
	Code           string  `json:"code"`
	TimeoutSeconds float64 `json:"timeout_seconds"`
	// Pointer distinguishes "absent" (default true) from an explicit false.
	CaptureOutput *bool  `json:"capture_output"`
	User          string `json:"user"`
}

// executeResponse is the wire format of a finished execution.
// Error is a pointer so "no error" serialises as null, not "".
type executeResponse struct {
	Output     string  `json:"output"`
	Error      *string `json:"error"`
	DurationMs int64   `json:"duration_ms"`
	Status     string  `json:"status"`
}

func toExecuteResponse(res *executor.ExecutionResult) executeResponse {
	resp := executeResponse{
		Output:     res.Output,
		DurationMs: res.Duration.Milliseconds(),
		Status:     res.Status,
	}
	if res.Error != "" {
		msg := res.Error
		resp.Error = &msg
	}
	return resp
}

// HandleExecute processes an incoming Python code execution request.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "invalid request body"))
		return
	}

	if req.TimeoutSeconds < 0 {
		writeError(w, apperror.ValidationFailed("timeout_seconds", "timeout must be positive"))
		return
	}
	timeout := time.Duration(req.TimeoutSeconds * float64(time.Second))

	captureOutput := true
	if req.CaptureOutput != nil {
		captureOutput = *req.CaptureOutput
	}

	h.logger.Info("executing python code snippet", slog.String("user", req.User))

	result, err := h.svc.Execute(r.Context(), req.User, req.Code, timeout, captureOutput)
	if err != nil {
		// Validation and missing-backend errors map to 4xx/503; anything
		// else is a generic 500. Runtime failures are NOT errors — they
		// arrive inside result and go out as a normal 200.
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExecuteResponse(result))
}
