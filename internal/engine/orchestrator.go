// Package engine reconciles batches of offline-originated mutations
// against the shared multi-tenant store. One batch is processed
// synchronously and in submission order: later operations may depend on
// records created earlier in the same batch, and the engine never
// reorders. Each operation commits independently, so partial
// application is the normal case; callers complete the remainder with
// idempotent retries.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pawsoft/vetsync/internal/audit"
	"github.com/pawsoft/vetsync/internal/models"
	"github.com/pawsoft/vetsync/internal/server/storage"
	"github.com/pawsoft/vetsync/pkg/api"
)

// Session is the authenticated tenant/user context the engine trusts.
// Resolution of credentials to a Session happens outside the engine.
type Session struct {
	TenantID string
	UserID   string
}

// Orchestrator sequences guard, normalization, idempotency, conflict
// detection and execution for every operation in a batch.
type Orchestrator struct {
	guard    *TenantGuard
	registry *Registry
	executor *Executor
	sink     AuditSink
	logger   *slog.Logger
	now      func() time.Time
}

// New wires an orchestrator over the given store handle and audit sink.
func New(repo storage.Repository, sink AuditSink, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		guard:    NewTenantGuard(logger, sink),
		registry: NewRegistry(repo, time.Now),
		executor: NewExecutor(repo, logger),
		sink:     sink,
		logger:   logger,
		now:      time.Now,
	}
}

// ProcessBatch applies the operations in submission order and returns
// the complete accounting of every operation's fate. The aggregate
// Success flag is true only when nothing failed and nothing conflicted.
func (o *Orchestrator) ProcessBatch(ctx context.Context, sess Session, req api.BatchRequest) *api.BatchResult {
	result := &api.BatchResult{
		Outcomes: make([]api.OperationOutcome, 0, len(req.Operations)),
	}

	// aliases maps client-local placeholder ids to the durable ids of
	// records created earlier in this batch. Never outlives the batch.
	aliases := make(map[string]string)

	for _, op := range req.Operations {
		outcome := o.processOperation(ctx, sess, op, aliases)
		result.Outcomes = append(result.Outcomes, outcome)

		switch {
		case outcome.Conflict:
			result.Conflicts++
		case outcome.Success:
			result.Processed++
		default:
			result.Failed++
		}
	}

	result.Success = result.Failed == 0 && result.Conflicts == 0

	summary := audit.BatchSummary{
		ID:              uuid.New().String(),
		TenantID:        sess.TenantID,
		UserID:          sess.UserID,
		Operations:      len(req.Operations),
		Applied:         result.Processed,
		Failed:          result.Failed,
		Conflicts:       result.Conflicts,
		ClientTimestamp: req.ClientTimestamp,
		ReceivedAt:      o.now().UTC(),
	}
	if err := o.sink.RecordBatchSummary(ctx, summary); err != nil {
		o.logger.WarnContext(ctx, "failed to record batch summary", slog.Any("error", err))
	}

	o.logger.InfoContext(ctx, "batch processed",
		slog.String("tenant_id", sess.TenantID),
		slog.String("user_id", sess.UserID),
		slog.Int("operations", len(req.Operations)),
		slog.Int("applied", result.Processed),
		slog.Int("failed", result.Failed),
		slog.Int("conflicts", result.Conflicts),
	)

	return result
}

func (o *Orchestrator) processOperation(ctx context.Context, sess Session, op api.SyncOperation, aliases map[string]string) api.OperationOutcome {
	if err := o.guard.Check(ctx, op, sess.TenantID); err != nil {
		return api.OperationOutcome{ClientCorrelationID: op.ID, Error: err.Error()}
	}

	kind, ok := models.ParseEntityKind(op.EntityType)
	if !ok {
		return api.OperationOutcome{
			ClientCorrelationID: op.ID,
			Error:               fmt.Errorf("%w: %q", ErrUnknownEntityType, op.EntityType).Error(),
		}
	}
	entry := o.registry.Lookup(kind)

	placeholder := resolveAliases(&op, entry, aliases)

	outcome := o.executor.Execute(ctx, sess.TenantID, entry, op)

	if outcome.Success && op.Kind == api.OpCreate && placeholder != "" && outcome.ServerEntityID != "" {
		aliases[placeholder] = outcome.ServerEntityID
	}

	return outcome
}

// resolveAliases rewrites placeholder references in op to durable ids
// and returns the placeholder the payload itself declares (creates
// carry it in the payload's id field).
func resolveAliases(op *api.SyncOperation, entry *Entry, aliases map[string]string) string {
	if durable, ok := aliases[op.EntityID]; ok {
		op.EntityID = durable
	}

	if len(op.Payload) == 0 {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		// Malformed payloads are the normalizer's to report.
		return ""
	}

	placeholder, _ := payload["id"].(string)

	changed := false
	for _, field := range entry.ReferenceFields {
		ref, ok := payload[field].(string)
		if !ok {
			continue
		}
		if durable, ok := aliases[ref]; ok {
			payload[field] = durable
			changed = true
		}
	}
	if changed {
		if raw, err := json.Marshal(payload); err == nil {
			op.Payload = raw
		}
	}

	return placeholder
}
