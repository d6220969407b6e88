package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pawsoft/vetsync/internal/server/storage"
	"github.com/pawsoft/vetsync/pkg/api"
)

// Executor dispatches one operation to the correct storage verb and
// produces its outcome. Every failure is converted into a failed
// outcome; nothing an operation does can abort its siblings.
type Executor struct {
	repo        storage.Repository
	idempotency *IdempotencyResolver
	conflicts   *ConflictDetector
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// NewExecutor creates an executor over repo.
func NewExecutor(repo storage.Repository, logger *slog.Logger) *Executor {
	return &Executor{
		repo:        repo,
		idempotency: NewIdempotencyResolver(repo, logger),
		conflicts:   NewConflictDetector(),
		logger:      logger,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// Execute applies one operation for the session tenant. entry is the
// registry entry matching the operation's entity type.
func (e *Executor) Execute(ctx context.Context, tenantID string, entry *Entry, op api.SyncOperation) api.OperationOutcome {
	var outcome api.OperationOutcome
	var err error

	switch op.Kind {
	case api.OpCreate:
		outcome, err = e.executeCreate(ctx, tenantID, entry, op)
	case api.OpUpdate:
		outcome, err = e.executeUpdate(ctx, tenantID, entry, op)
	case api.OpDelete:
		outcome, err = e.executeDelete(ctx, tenantID, entry, op)
	default:
		outcome, err = e.executeTransition(ctx, tenantID, entry, op)
	}

	if err != nil {
		return e.failure(ctx, op, err)
	}

	outcome.ClientCorrelationID = op.ID
	return outcome
}

// executeCreate: normalize, idempotency check, insert.
func (e *Executor) executeCreate(ctx context.Context, tenantID string, entry *Entry, op api.SyncOperation) (api.OperationOutcome, error) {
	fields, err := entry.Normalizer.Normalize(ctx, tenantID, op.Kind, op.Payload)
	if err != nil {
		return api.OperationOutcome{}, err
	}

	// Proactive path: recognize a retried create before attempting the
	// insert at all.
	existing, err := e.idempotency.Resolve(ctx, tenantID, entry, fields)
	if err != nil {
		return api.OperationOutcome{}, err
	}
	if existing != nil {
		return api.OperationOutcome{Success: true, ServerEntityID: existing.ID, AlreadyApplied: true}, nil
	}

	now := e.now().UTC()
	rec := &storage.Record{
		ID:         e.newID(),
		TenantID:   tenantID,
		Revision:   1,
		Fields:     fields,
		NaturalKey: naturalKeyValue(entry, fields),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if insertErr := e.repo.Insert(ctx, entry.Collection, rec); insertErr != nil {
		if errors.Is(insertErr, storage.ErrDuplicateKey) {
			// Reactive path: a concurrent retry may have won the insert
			// race between our lookup and the write.
			existing, lookupErr := e.idempotency.Resolve(ctx, tenantID, entry, fields)
			if lookupErr == nil && existing != nil {
				return api.OperationOutcome{Success: true, ServerEntityID: existing.ID, AlreadyApplied: true}, nil
			}
		}
		// The original error is surfaced unmodified.
		return api.OperationOutcome{}, insertErr
	}

	return api.OperationOutcome{Success: true, ServerEntityID: rec.ID}, nil
}

// executeUpdate: load, conflict check, normalize, apply.
func (e *Executor) executeUpdate(ctx context.Context, tenantID string, entry *Entry, op api.SyncOperation) (api.OperationOutcome, error) {
	rec, err := e.loadLive(ctx, tenantID, entry, op.EntityID)
	if err != nil {
		return api.OperationOutcome{}, err
	}

	fields, err := entry.Normalizer.Normalize(ctx, tenantID, op.Kind, op.Payload)
	if err != nil {
		return api.OperationOutcome{}, err
	}

	if conflict := e.conflicts.Evaluate(rec, fields, op.LocalTimestamp, op.ExpectedVersion); conflict != nil {
		return api.OperationOutcome{Conflict: true, ConflictDetails: conflict.Details()}, nil
	}

	for key, value := range fields {
		rec.Fields[key] = value
	}
	rec.Revision++
	rec.UpdatedAt = e.now().UTC()
	rec.NaturalKey = naturalKeyValue(entry, rec.Fields)

	if err := e.repo.Update(ctx, entry.Collection, rec); err != nil {
		return api.OperationOutcome{}, err
	}

	return api.OperationOutcome{Success: true}, nil
}

// executeDelete: soft-delete only; terminal and idempotent.
func (e *Executor) executeDelete(ctx context.Context, tenantID string, entry *Entry, op api.SyncOperation) (api.OperationOutcome, error) {
	if op.EntityID == "" {
		return api.OperationOutcome{}, fmt.Errorf("%w: entity id is required", ErrInvalidPayload)
	}
	if err := e.repo.SoftDelete(ctx, tenantID, entry.Collection, op.EntityID, e.now().UTC()); err != nil {
		return api.OperationOutcome{}, err
	}
	return api.OperationOutcome{Success: true}, nil
}

// executeTransition: verify the source state, apply the terminal state
// and any transition-specific fields.
func (e *Executor) executeTransition(ctx context.Context, tenantID string, entry *Entry, op api.SyncOperation) (api.OperationOutcome, error) {
	transition, ok := entry.Transitions[op.Kind]
	if !ok {
		return api.OperationOutcome{}, fmt.Errorf("%w: %s does not support %q", ErrUnsupportedOperation, entry.Kind, op.Kind)
	}

	rec, err := e.loadLive(ctx, tenantID, entry, op.EntityID)
	if err != nil {
		return api.OperationOutcome{}, err
	}

	current, _ := rec.Fields["status"].(string)
	if current != transition.From {
		return api.OperationOutcome{}, fmt.Errorf("%w: expected status %q, got %q", ErrStatePrecondition, transition.From, current)
	}

	rec.Fields["status"] = transition.To
	if transition.Extra != nil {
		var payload map[string]any
		if len(op.Payload) > 0 {
			if err := json.Unmarshal(op.Payload, &payload); err != nil {
				return api.OperationOutcome{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
			}
		}
		for key, value := range transition.Extra(payload, e.now().UTC()) {
			rec.Fields[key] = value
		}
	}
	rec.Revision++
	rec.UpdatedAt = e.now().UTC()

	if err := e.repo.Update(ctx, entry.Collection, rec); err != nil {
		return api.OperationOutcome{}, err
	}

	return api.OperationOutcome{Success: true}, nil
}

// loadLive fetches a record and treats soft-deleted rows as missing.
func (e *Executor) loadLive(ctx context.Context, tenantID string, entry *Entry, id string) (*storage.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: entity id is required", ErrInvalidPayload)
	}
	rec, err := e.repo.Get(ctx, tenantID, entry.Collection, id)
	if err != nil {
		return nil, err
	}
	if rec.Deleted() {
		return nil, storage.ErrRecordNotFound
	}
	return rec, nil
}

// failure converts an error into a failed outcome. Recognized
// operation-level errors keep their message; anything else is an
// unexpected storage fault, logged with full context and reported
// generically.
func (e *Executor) failure(ctx context.Context, op api.SyncOperation, err error) api.OperationOutcome {
	if !isOperationError(err) {
		e.logger.ErrorContext(ctx, "unexpected error executing operation",
			slog.String("op_kind", string(op.Kind)),
			slog.String("entity_type", op.EntityType),
			slog.String("entity_id", op.EntityID),
			slog.Any("error", err),
		)
		return api.OperationOutcome{ClientCorrelationID: op.ID, Error: "internal error"}
	}
	return api.OperationOutcome{ClientCorrelationID: op.ID, Error: err.Error()}
}

func isOperationError(err error) bool {
	return errors.Is(err, ErrTenantMismatch) ||
		errors.Is(err, ErrUnknownEntityType) ||
		errors.Is(err, ErrInvalidPayload) ||
		errors.Is(err, ErrMissingDependency) ||
		errors.Is(err, ErrStatePrecondition) ||
		errors.Is(err, ErrUnsupportedOperation) ||
		errors.Is(err, storage.ErrRecordNotFound) ||
		errors.Is(err, storage.ErrDuplicateKey)
}

func naturalKeyValue(entry *Entry, fields map[string]any) string {
	if entry.NaturalKeyField == "" {
		return ""
	}
	value, _ := fields[entry.NaturalKeyField].(string)
	return value
}
