package storage

import "time"

// Record is one persistent row as the reconciliation engine sees it.
// The engine never touches entity tables directly; it reads and writes
// Records through the Repository interface, which keeps the executor
// entity-agnostic.
type Record struct {
	ID       string
	TenantID string

	// Revision is a monotonically increasing counter bumped on every
	// applied update. It backs the optional expectedVersion check.
	Revision int64

	// Fields is the normalized document body. Values are plain JSON
	// types (string, float64, bool, map, slice).
	Fields map[string]any

	// NaturalKey is the business-unique value for families that have
	// one (a client's email), empty otherwise. Enforced unique per
	// tenant and collection among live records.
	NaturalKey string

	CreatedAt time.Time
	UpdatedAt time.Time

	// DeletedAt is the soft-delete marker. Rows are never physically
	// removed.
	DeletedAt *time.Time
}

// Deleted reports whether the record carries the soft-delete marker.
func (r *Record) Deleted() bool {
	return r.DeletedAt != nil
}

// LastModified returns the timestamp conflict detection compares
// against: updated_at, falling back to created_at for records never
// modified.
func (r *Record) LastModified() time.Time {
	if r.UpdatedAt.IsZero() {
		return r.CreatedAt
	}
	return r.UpdatedAt
}

// Clone creates a deep copy of the record.
func (r *Record) Clone() *Record {
	clone := *r
	clone.Fields = cloneFields(r.Fields)
	if r.DeletedAt != nil {
		at := *r.DeletedAt
		clone.DeletedAt = &at
	}
	return &clone
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneFields(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
