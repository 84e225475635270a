package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// HistoryHandler serves the execution history endpoints.
type HistoryHandler struct {
	svc    ExecutionService
	logger *slog.Logger
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(svc ExecutionService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		svc:    svc,
		logger: logger,
	}
}

// HandleList returns execution records, newest first.
// Query parameters: user (optional filter), limit, offset.
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	// Atoi failures fall through as zero — the service applies defaults and
	// clamps, so a garbled limit degrades to the default page size.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	user := r.URL.Query().Get("user")

	records, err := h.svc.ListExecutions(r.Context(), user, limit, offset)
	if err != nil {
		h.logger.Error("failed to list executions", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// HandleGet returns a single execution record by ID.
func (h *HistoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.svc.GetExecution(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}
