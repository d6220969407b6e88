package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OpKind identifies the kind of mutation a client queued while offline.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"

	// Named workflow transitions. These are deliberately separate from
	// OpUpdate: each carries its own source-state guard.
	OpApprove   OpKind = "approve"
	OpReject    OpKind = "reject"
	OpDischarge OpKind = "discharge"
)

// KnownOpKinds lists every operation kind accepted on the wire.
var KnownOpKinds = []OpKind{OpCreate, OpUpdate, OpDelete, OpApprove, OpReject, OpDischarge}

// Valid reports whether k is one of the known operation kinds.
func (k OpKind) Valid() bool {
	for _, known := range KnownOpKinds {
		if k == known {
			return true
		}
	}
	return false
}

// TenantID carries a tenant identifier as it appeared on the wire.
// Offline clients have historically sent both string and numeric tenant
// ids; the guard compares them strictly, so the original JSON type must
// survive decoding.
type TenantID struct {
	Value    string
	IsString bool
	present  bool
}

// NewTenantID builds a string-typed tenant id (the canonical form).
func NewTenantID(value string) TenantID {
	return TenantID{Value: value, IsString: true, present: true}
}

// NewNumericTenantID builds a numeric-typed tenant id as legacy clients send it.
func NewNumericTenantID(value string) TenantID {
	return TenantID{Value: value, IsString: false, present: true}
}

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (t *TenantID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = TenantID{Value: s, IsString: true, present: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("tenant id must be a string or number: %w", err)
	}
	*t = TenantID{Value: n.String(), IsString: false, present: true}
	return nil
}

// MarshalJSON re-emits the id with its original JSON type.
func (t TenantID) MarshalJSON() ([]byte, error) {
	if !t.present {
		return []byte("null"), nil
	}
	if t.IsString {
		return json.Marshal(t.Value)
	}
	return []byte(t.Value), nil
}

// IsZero reports whether the field was absent (or null) in the request.
func (t TenantID) IsZero() bool {
	return !t.present
}

// String returns the wire value regardless of its original type.
func (t TenantID) String() string {
	return t.Value
}

// SyncOperation is one client-originated mutation intent.
type SyncOperation struct {
	// ID is a client-local correlation id, echoed back on the outcome so
	// the client can reconcile its local queue. Never stored.
	ID string `json:"id,omitempty"`

	Kind       OpKind `json:"kind"`
	EntityType string `json:"entityType"`

	// EntityID is required for update/delete/transition operations and
	// absent for create. May be a client-local placeholder referencing a
	// create earlier in the same batch.
	EntityID string `json:"entityId,omitempty"`

	// Payload shape depends on EntityType; it is validated and reshaped
	// by the per-family normalizer before any storage access.
	Payload json.RawMessage `json:"payload,omitempty"`

	// LocalTimestamp is when the client made this edit, in milliseconds
	// since epoch. Conflict detection compares it against the record's
	// server-side last-modified timestamp.
	LocalTimestamp int64 `json:"localTimestamp"`

	// ExpectedVersion optionally pins the revision the client last saw.
	ExpectedVersion *int64 `json:"expectedVersion,omitempty"`

	UserID   string   `json:"userId"`
	TenantID TenantID `json:"tenantId"`
}

// BatchRequest is an ordered list of operations submitted together.
// ClientTimestamp is the client's wall clock at submission; it is used
// for diagnostics only, never for conflict math.
type BatchRequest struct {
	Operations      []SyncOperation `json:"operations"`
	ClientTimestamp int64           `json:"clientTimestamp"`
}

// ConflictKind classifies why an update was refused.
type ConflictKind string

const (
	// ConflictTimestamp: the server modified the record after the
	// client's local edit was made, and field values diverge.
	ConflictTimestamp ConflictKind = "timestamp"
	// ConflictVersion: the client pinned an expectedVersion that no
	// longer matches the stored revision.
	ConflictVersion ConflictKind = "version"
)

// ConflictDetails carries both versions of a refused update so the
// caller can resolve it explicitly. The engine never picks a winner.
type ConflictDetails struct {
	Kind           ConflictKind   `json:"conflictKind"`
	AffectedFields []string       `json:"affectedFields"`
	LocalPayload   map[string]any `json:"localPayload"`
	ServerPayload  map[string]any `json:"serverPayload"`
}

// OperationOutcome reports the fate of one submitted operation.
type OperationOutcome struct {
	ClientCorrelationID string `json:"clientCorrelationId,omitempty"`
	Success             bool   `json:"success"`

	// ServerEntityID is set on successful creates: the durable id that
	// replaces any client-local placeholder.
	ServerEntityID string `json:"serverEntityId,omitempty"`

	// AlreadyApplied marks a create that was recognized as a safe
	// re-send of previously applied work.
	AlreadyApplied bool `json:"alreadyApplied,omitempty"`

	Conflict        bool             `json:"conflict,omitempty"`
	ConflictDetails *ConflictDetails `json:"conflictDetails,omitempty"`

	// Error is a human-readable failure reason, set only when the
	// operation failed for a non-conflict reason.
	Error string `json:"error,omitempty"`
}

// BatchResult aggregates per-operation outcomes. It is a response value
// only and is never persisted.
type BatchResult struct {
	// Success is true only if zero operations failed and zero conflicts
	// were reported. Partial success is visible through Outcomes.
	Success   bool               `json:"success"`
	Processed int                `json:"processed"`
	Failed    int                `json:"failed"`
	Conflicts int                `json:"conflicts"`
	Outcomes  []OperationOutcome `json:"outcomes"`
}
