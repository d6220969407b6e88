package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pawsoft/vetsync/internal/engine"
	"github.com/pawsoft/vetsync/internal/validation"
	"github.com/pawsoft/vetsync/pkg/api"
)

// BatchProcessor is the engine surface the handler depends on.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, sess engine.Session, req api.BatchRequest) *api.BatchResult
}

// SyncHandler handles push synchronization requests.
type SyncHandler struct {
	logger    *slog.Logger
	processor BatchProcessor
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(logger *slog.Logger, processor BatchProcessor) *SyncHandler {
	return &SyncHandler{
		logger:    logger,
		processor: processor,
	}
}

// HandlePush handles POST /api/v1/sync/push.
//
// The response is 200 whenever the batch was accepted for processing,
// even if individual operations failed or conflicted — per-operation
// fates live in the body. Only a malformed request, missing
// authentication or an engine panic produce non-200.
func (h *SyncHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenantID, ok := GetTenantID(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "tenant id not found in context")
		h.sendError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	userID, _ := GetUserID(ctx)

	var req api.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode push request", slog.Any("error", err))
		h.sendError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if fieldErrs := validation.ValidateBatch(&req); len(fieldErrs) > 0 {
		h.logger.WarnContext(ctx, "push request failed validation",
			slog.String("tenant_id", tenantID),
			slog.Int("problems", len(fieldErrs)),
		)
		h.sendError(w, http.StatusBadRequest, "request validation failed", fieldErrs)
		return
	}

	sess := engine.Session{TenantID: tenantID, UserID: userID}
	result := h.processor.ProcessBatch(ctx, sess, req)

	h.sendJSON(w, result, http.StatusOK)
}

func (h *SyncHandler) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func (h *SyncHandler) sendError(w http.ResponseWriter, statusCode int, message string, fields []api.FieldError) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Fields:  fields,
	}
	h.sendJSON(w, resp, statusCode)
}
