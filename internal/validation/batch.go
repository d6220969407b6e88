// Package validation checks request shape before any operation runs.
// A malformed batch rejects the whole request; per-operation semantic
// failures are the engine's responsibility, not validation's.
package validation

import (
	"fmt"

	"github.com/pawsoft/vetsync/pkg/api"
)

// MaxBatchOperations bounds a single request. Offline queues are
// flushed in chunks by clients; anything larger than this is a bug.
const MaxBatchOperations = 500

// ValidateBatch returns the field-level problems that make the request
// unprocessable. An empty result means every operation may be attempted.
func ValidateBatch(req *api.BatchRequest) []api.FieldError {
	var errs []api.FieldError

	if req.Operations == nil {
		errs = append(errs, api.FieldError{Index: -1, Field: "operations", Message: "operations is required"})
		return errs
	}
	if len(req.Operations) > MaxBatchOperations {
		errs = append(errs, api.FieldError{
			Index:   -1,
			Field:   "operations",
			Message: fmt.Sprintf("batch exceeds %d operations", MaxBatchOperations),
		})
		return errs
	}

	for i, op := range req.Operations {
		errs = append(errs, validateOperation(i, op)...)
	}

	return errs
}

func validateOperation(index int, op api.SyncOperation) []api.FieldError {
	var errs []api.FieldError

	add := func(field, message string) {
		errs = append(errs, api.FieldError{Index: index, Field: field, Message: message})
	}

	if op.Kind == "" {
		add("kind", "kind is required")
	} else if !op.Kind.Valid() {
		add("kind", fmt.Sprintf("unknown operation kind %q", op.Kind))
	}

	if op.EntityType == "" {
		add("entityType", "entityType is required")
	}

	switch op.Kind {
	case api.OpCreate:
		if op.EntityID != "" {
			add("entityId", "entityId must be absent for create")
		}
		if len(op.Payload) == 0 {
			add("payload", "payload is required for create")
		}
	case api.OpUpdate:
		if op.EntityID == "" {
			add("entityId", "entityId is required for update")
		}
		if len(op.Payload) == 0 {
			add("payload", "payload is required for update")
		}
	case api.OpDelete, api.OpApprove, api.OpReject, api.OpDischarge:
		if op.EntityID == "" {
			add("entityId", fmt.Sprintf("entityId is required for %s", op.Kind))
		}
	}

	if op.LocalTimestamp < 0 {
		add("localTimestamp", "localTimestamp cannot be negative")
	}
	if op.Kind == api.OpUpdate && op.LocalTimestamp == 0 {
		add("localTimestamp", "localTimestamp is required for update")
	}

	if op.TenantID.IsZero() {
		add("tenantId", "tenantId is required")
	}
	if op.UserID == "" {
		add("userId", "userId is required")
	}

	return errs
}
