package storage

import (
	"context"
	"time"
)

// Repository is the narrow store handle the operation executor depends
// on. Every method is tenant-scoped: a record belonging to another
// tenant behaves exactly like a record that does not exist.
type Repository interface {
	// Get retrieves a record by id, including soft-deleted records (the
	// caller decides what a deleted record means for its operation).
	// Returns ErrRecordNotFound if no row exists for this tenant.
	Get(ctx context.Context, tenantID, collection, id string) (*Record, error)

	// FindByField retrieves the live (non-deleted) record whose document
	// field equals value. Used for natural-key idempotency lookups.
	// Returns ErrRecordNotFound when there is no match.
	FindByField(ctx context.Context, tenantID, collection, field, value string) (*Record, error)

	// Insert stores a new record. Returns ErrDuplicateKey when the
	// record's natural key collides with a live record of the same
	// tenant and collection.
	Insert(ctx context.Context, collection string, rec *Record) error

	// Update overwrites an existing record's document, revision,
	// natural key and updated_at. Returns ErrRecordNotFound if the row
	// is missing for this tenant.
	Update(ctx context.Context, collection string, rec *Record) error

	// SoftDelete sets the deletion marker. Deleting an already-deleted
	// record is a no-op success; the marker is set exactly once.
	// Returns ErrRecordNotFound if no row exists for this tenant.
	SoftDelete(ctx context.Context, tenantID, collection, id string, at time.Time) error
}
