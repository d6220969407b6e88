package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pawsoft/vetsync/internal/server/storage"
)

// IdempotencyResolver detects creates that are safe re-sends of
// already-applied work. A client that lost the acknowledgment of a
// successful create will retry it; for families with a natural key the
// retry is recognized by looking the key up instead of inserting a
// duplicate.
type IdempotencyResolver struct {
	repo   storage.Repository
	logger *slog.Logger
}

// NewIdempotencyResolver creates a resolver over repo.
func NewIdempotencyResolver(repo storage.Repository, logger *slog.Logger) *IdempotencyResolver {
	return &IdempotencyResolver{
		repo:   repo,
		logger: logger,
	}
}

// Resolve returns the existing live record matching the normalized
// payload's natural key, or nil when the create is genuinely new (or
// the family has no natural key). It runs proactively before every
// insert and reactively after a uniqueness violation.
func (r *IdempotencyResolver) Resolve(ctx context.Context, tenantID string, entry *Entry, fields map[string]any) (*storage.Record, error) {
	if entry.NaturalKeyField == "" {
		return nil, nil
	}

	value, _ := fields[entry.NaturalKeyField].(string)
	if value == "" {
		return nil, nil
	}

	rec, err := r.repo.FindByField(ctx, tenantID, entry.Collection, entry.NaturalKeyField, value)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("natural-key lookup failed: %w", err)
	}

	r.logger.DebugContext(ctx, "create resolved to existing record",
		slog.String("collection", entry.Collection),
		slog.String(entry.NaturalKeyField, value),
		slog.String("record_id", rec.ID),
	)

	return rec, nil
}
