package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pawsoft/vetsync/internal/audit"
	"github.com/pawsoft/vetsync/pkg/api"
)

// AuditSink persists reconciliation diagnostics. Sink failures are
// logged and swallowed: a broken audit file must not change batch
// outcomes.
type AuditSink interface {
	RecordTenantMismatch(ctx context.Context, entry audit.TenantMismatch) error
	RecordBatchSummary(ctx context.Context, entry audit.BatchSummary) error
}

// TenantGuard verifies that every operation's declared tenant matches
// the authenticated session's tenant before any storage access.
type TenantGuard struct {
	logger *slog.Logger
	sink   AuditSink
	now    func() time.Time
}

// NewTenantGuard creates a guard writing diagnostics to sink.
func NewTenantGuard(logger *slog.Logger, sink AuditSink) *TenantGuard {
	return &TenantGuard{
		logger: logger,
		sink:   sink,
		now:    time.Now,
	}
}

// Check fails closed: the operation passes only when its tenant id is a
// string strictly equal to the session tenant. A numeric tenant id that
// merely prints the same is still a rejection; loose typing must never
// cross the isolation boundary.
func (g *TenantGuard) Check(ctx context.Context, op api.SyncOperation, sessionTenant string) error {
	if !op.TenantID.IsZero() && op.TenantID.IsString && op.TenantID.Value == sessionTenant {
		return nil
	}

	g.logger.WarnContext(ctx, "operation tenant mismatch",
		slog.String("op_kind", string(op.Kind)),
		slog.String("entity_type", op.EntityType),
		slog.String("entity_id", op.EntityID),
		slog.String("declared_tenant", op.TenantID.String()),
		slog.String("session_tenant", sessionTenant),
	)

	entry := audit.TenantMismatch{
		ID:             uuid.New().String(),
		OpKind:         string(op.Kind),
		EntityType:     op.EntityType,
		EntityID:       op.EntityID,
		DeclaredTenant: op.TenantID.String(),
		SessionTenant:  sessionTenant,
		UserID:         op.UserID,
		OccurredAt:     g.now().UTC(),
	}
	if err := g.sink.RecordTenantMismatch(ctx, entry); err != nil {
		g.logger.ErrorContext(ctx, "failed to record tenant mismatch", slog.Any("error", err))
	}

	return fmt.Errorf("%w: operation declares tenant %q", ErrTenantMismatch, op.TenantID.String())
}
