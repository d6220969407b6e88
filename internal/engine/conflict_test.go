package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsoft/vetsync/internal/server/storage"
	"github.com/pawsoft/vetsync/pkg/api"
)

func conflictRecord(revision int64, updatedAt time.Time) *storage.Record {
	return &storage.Record{
		ID:       "rec-1",
		TenantID: "clinic-1",
		Revision: revision,
		Fields: map[string]any{
			"name":    "Rex",
			"species": "dog",
			"notes":   "friendly",
		},
		CreatedAt: updatedAt.Add(-time.Hour),
		UpdatedAt: updatedAt,
	}
}

func TestConflictDetector_Evaluate(t *testing.T) {
	serverTime := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	before := serverTime.Add(-time.Minute).UnixMilli()
	after := serverTime.Add(time.Minute).UnixMilli()
	rev := func(v int64) *int64 { return &v }

	tests := []struct {
		name            string
		incoming        map[string]any
		localTimestamp  int64
		expectedVersion *int64
		wantKind        api.ConflictKind
		wantFields      []string
		wantNil         bool
	}{
		{
			name:           "stale edit with divergent fields conflicts",
			incoming:       map[string]any{"name": "Max"},
			localTimestamp: before,
			wantKind:       api.ConflictTimestamp,
			wantFields:     []string{"name"},
		},
		{
			name:           "newer edit applies",
			incoming:       map[string]any{"name": "Max"},
			localTimestamp: after,
			wantNil:        true,
		},
		{
			name:           "agreeing stale write is not a conflict",
			incoming:       map[string]any{"name": "Rex", "species": "dog"},
			localTimestamp: before,
			wantNil:        true,
		},
		{
			name:            "version pin mismatch wins over timestamp",
			incoming:        map[string]any{"name": "Max"},
			localTimestamp:  after,
			expectedVersion: rev(1),
			wantKind:        api.ConflictVersion,
			wantFields:      []string{"name"},
		},
		{
			name:            "matching version pin falls through to timestamps",
			incoming:        map[string]any{"name": "Max"},
			localTimestamp:  after,
			expectedVersion: rev(3),
			wantNil:         true,
		},
		{
			name:           "bookkeeping fields never diff",
			incoming:       map[string]any{"name": "Rex", "revision": float64(99), "updatedAt": "bogus"},
			localTimestamp: before,
			wantNil:        true,
		},
		{
			name:           "affected fields are sorted",
			incoming:       map[string]any{"species": "cat", "name": "Max"},
			localTimestamp: before,
			wantKind:       api.ConflictTimestamp,
			wantFields:     []string{"name", "species"},
		},
	}

	detector := NewConflictDetector()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := conflictRecord(3, serverTime)

			conflict := detector.Evaluate(rec, tt.incoming, tt.localTimestamp, tt.expectedVersion)

			if tt.wantNil {
				assert.Nil(t, conflict)
				return
			}

			require.NotNil(t, conflict)
			assert.Equal(t, tt.wantKind, conflict.Kind)
			assert.Equal(t, tt.wantFields, conflict.AffectedFields)
			assert.Equal(t, tt.incoming, conflict.Local)
			assert.Equal(t, rec.Fields, conflict.Server)
		})
	}
}

func TestConflictDetector_NumericEquality(t *testing.T) {
	// Decoded JSON carries float64; stored documents may hold int-typed
	// values. Canonical encoding must not report a false diff.
	rec := conflictRecord(1, time.Now().UTC())
	rec.Fields["weight"] = 12

	detector := NewConflictDetector()
	conflict := detector.Evaluate(rec, map[string]any{"weight": float64(12)}, 0, nil)
	assert.Nil(t, conflict)
}

func TestConflict_Details(t *testing.T) {
	c := &Conflict{
		Kind:           api.ConflictTimestamp,
		AffectedFields: []string{"name"},
		Local:          map[string]any{"name": "Max"},
		Server:         map[string]any{"name": "Rex"},
	}

	details := c.Details()
	require.NotNil(t, details)
	assert.Equal(t, api.ConflictTimestamp, details.Kind)
	assert.Equal(t, []string{"name"}, details.AffectedFields)
	assert.Equal(t, c.Local, details.LocalPayload)
	assert.Equal(t, c.Server, details.ServerPayload)
}
