package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pawsoft/vetsync/internal/models"
	"github.com/pawsoft/vetsync/internal/server/storage"
	"github.com/pawsoft/vetsync/pkg/api"
)

// Normalizer turns a raw client payload into fields safe to store.
// Each entity family has exactly one implementation; the executor stays
// entity-agnostic.
type Normalizer interface {
	// Normalize validates and reshapes raw for the given operation
	// kind. Create operations get required-field checks and defaults;
	// updates return only the fields the client actually sent, so the
	// conflict detector diffs nothing the client did not touch.
	Normalize(ctx context.Context, tenantID string, kind api.OpKind, raw json.RawMessage) (map[string]any, error)
}

// decodePayload unmarshals raw into both the typed shape (type
// validation, date coercion) and a plain map (field presence).
func decodePayload(raw json.RawMessage, shape any) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}
	var present map[string]any
	if err := json.Unmarshal(raw, &present); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(raw, shape); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return present, nil
}

// fieldSet accumulates normalized storage fields. Only fields known to
// the family's wire shape can enter it, which is what strips computed
// and denormalized values clients echo back.
type fieldSet struct {
	creating bool
	present  map[string]any
	fields   map[string]any
}

func newFieldSet(kind api.OpKind, present map[string]any) *fieldSet {
	return &fieldSet{
		creating: kind == api.OpCreate,
		present:  present,
		fields:   make(map[string]any),
	}
}

func (f *fieldSet) has(key string) bool {
	_, ok := f.present[key]
	return ok
}

// set stores v on create, or on update when the client sent the field.
func (f *fieldSet) set(key string, v any) {
	if f.creating || f.has(key) {
		f.fields[key] = v
	}
}

// setDefault stores v on create when the client omitted the field.
func (f *fieldSet) setDefault(key string, v any) {
	if f.creating && !f.has(key) {
		f.fields[key] = v
	}
}

// setTime stores the canonical RFC 3339 form of a coerced date field.
// Absent or null dates stay absent.
func (f *fieldSet) setTime(key string, t models.FlexTime) {
	if !t.IsZero() {
		f.fields[key] = t.Storage()
	}
}

// lookupParent loads a live parent record or fails the operation with a
// missing-dependency error. Writing an orphaned record is never an
// option.
func lookupParent(ctx context.Context, repo storage.Repository, tenantID, collection, id, label string) (*storage.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %s id is required", ErrInvalidPayload, label)
	}
	rec, err := repo.Get(ctx, tenantID, collection, id)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s %s does not exist", ErrMissingDependency, label, id)
		}
		return nil, err
	}
	if rec.Deleted() {
		return nil, fmt.Errorf("%w: %s %s does not exist", ErrMissingDependency, label, id)
	}
	return rec, nil
}
