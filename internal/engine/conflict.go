package engine

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pawsoft/vetsync/internal/server/storage"
	"github.com/pawsoft/vetsync/pkg/api"
)

// Conflict describes an update the engine refused to apply. Both
// versions are attached so the caller can resolve it explicitly; the
// engine never silently picks a winner.
type Conflict struct {
	Kind           api.ConflictKind
	AffectedFields []string
	Local          map[string]any
	Server         map[string]any
}

// Details converts the conflict to its wire form.
func (c *Conflict) Details() *api.ConflictDetails {
	return &api.ConflictDetails{
		Kind:           c.Kind,
		AffectedFields: c.AffectedFields,
		LocalPayload:   c.Local,
		ServerPayload:  c.Server,
	}
}

// ConflictDetector decides whether an incoming update collides with
// server-side changes the client never saw.
//
// The policy is last-writer-wins with detection: the record's
// last-modified timestamp is the optimistic-concurrency token. This is
// racy under client/server clock skew; a known limitation, kept rather
// than replaced with a vector-clock scheme.
type ConflictDetector struct{}

// NewConflictDetector creates a detector.
func NewConflictDetector() *ConflictDetector {
	return &ConflictDetector{}
}

// bookkeepingFields never participate in conflict diffs.
var bookkeepingFields = map[string]bool{
	"id":        true,
	"tenantId":  true,
	"revision":  true,
	"createdAt": true,
	"updatedAt": true,
	"deletedAt": true,
}

// Evaluate returns a non-nil Conflict when the update must not be
// applied. An update whose fields all match the stored values applies
// normally even when the server changed the record after the client's
// edit — agreeing writes are not true conflicts.
func (d *ConflictDetector) Evaluate(rec *storage.Record, incoming map[string]any, localTimestamp int64, expectedVersion *int64) *Conflict {
	diff := diffFields(rec.Fields, incoming)
	if len(diff) == 0 {
		return nil
	}

	if expectedVersion != nil && *expectedVersion != rec.Revision {
		return &Conflict{
			Kind:           api.ConflictVersion,
			AffectedFields: diff,
			Local:          incoming,
			Server:         rec.Fields,
		}
	}

	if rec.LastModified().UnixMilli() > localTimestamp {
		return &Conflict{
			Kind:           api.ConflictTimestamp,
			AffectedFields: diff,
			Local:          incoming,
			Server:         rec.Fields,
		}
	}

	return nil
}

// diffFields lists the incoming fields whose values differ from the
// stored document by deep equality, bookkeeping excluded.
func diffFields(stored, incoming map[string]any) []string {
	var fields []string
	for key, value := range incoming {
		if bookkeepingFields[key] {
			continue
		}
		if !jsonEqual(stored[key], value) {
			fields = append(fields, key)
		}
	}
	sort.Strings(fields)
	return fields
}

// jsonEqual compares two values through their canonical JSON encoding,
// so float64 vs int and map iteration order cannot produce false diffs.
func jsonEqual(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(aj, bj)
}
