package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawsoft/vetsync/internal/server/storage"
	"github.com/pawsoft/vetsync/internal/server/storage/memory"
	"github.com/pawsoft/vetsync/pkg/api"
)

func batchOp(kind api.OpKind, entityType, entityID, payload string) api.SyncOperation {
	op := api.SyncOperation{
		Kind:           kind,
		EntityType:     entityType,
		EntityID:       entityID,
		LocalTimestamp: time.Now().Add(time.Hour).UnixMilli(),
		TenantID:       api.NewTenantID(testTenant),
		UserID:         "user-1",
	}
	if payload != "" {
		op.Payload = json.RawMessage(payload)
	}
	return op
}

func TestProcessBatch_CreateChainWithPlaceholders(t *testing.T) {
	repo := memory.New()
	sink := &memSink{}
	orch := New(repo, sink, testLogger())
	ctx := context.Background()

	// An offline client queues a whole visit: new owner, new pet, an
	// appointment for the pet, then approves it. Later operations refer
	// to earlier ones through client-local placeholder ids.
	req := api.BatchRequest{
		ClientTimestamp: time.Now().UnixMilli(),
		Operations: []api.SyncOperation{
			batchOp(api.OpCreate, "client", "", `{"id":"local-client","email":"ann@example.com","firstName":"Ann"}`),
			batchOp(api.OpCreate, "pet", "", `{"id":"local-pet","clientId":"local-client","name":"Rex"}`),
			batchOp(api.OpCreate, "appointment", "", `{"id":"local-appt","petId":"local-pet","reason":"vaccination"}`),
			batchOp(api.OpApprove, "appointment", "local-appt", ""),
		},
	}

	result := orch.ProcessBatch(ctx, Session{TenantID: testTenant, UserID: "user-1"}, req)

	require.True(t, result.Success)
	assert.Equal(t, 4, result.Processed)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Conflicts)
	require.Len(t, result.Outcomes, 4)

	clientID := result.Outcomes[0].ServerEntityID
	petID := result.Outcomes[1].ServerEntityID
	apptID := result.Outcomes[2].ServerEntityID
	require.NotEmpty(t, clientID)
	require.NotEmpty(t, petID)
	require.NotEmpty(t, apptID)

	pet, err := repo.Get(ctx, testTenant, CollectionPets, petID)
	require.NoError(t, err)
	assert.Equal(t, clientID, pet.Fields["clientId"], "placeholder resolved to durable client id")

	appt, err := repo.Get(ctx, testTenant, CollectionAppointments, apptID)
	require.NoError(t, err)
	assert.Equal(t, petID, appt.Fields["petId"])
	assert.Equal(t, clientID, appt.Fields["clientId"])
	assert.Equal(t, "approved", appt.Fields["status"])
}

func TestProcessBatch_TenantMismatchFailsOnlyThatOperation(t *testing.T) {
	repo := memory.New()
	sink := &memSink{}
	orch := New(repo, sink, testLogger())

	foreign := batchOp(api.OpCreate, "client", "", `{"email":"bob@example.com"}`)
	foreign.TenantID = api.NewTenantID("clinic-other")

	req := api.BatchRequest{Operations: []api.SyncOperation{
		foreign,
		batchOp(api.OpCreate, "client", "", `{"email":"ann@example.com"}`),
	}}

	result := orch.ProcessBatch(context.Background(), Session{TenantID: testTenant}, req)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Outcomes[0].Error, "tenant")
	assert.True(t, result.Outcomes[1].Success)
	assert.Len(t, sink.mismatches, 1)
}

func TestProcessBatch_UnknownEntityType(t *testing.T) {
	repo := memory.New()
	orch := New(repo, &memSink{}, testLogger())

	req := api.BatchRequest{Operations: []api.SyncOperation{
		batchOp(api.OpCreate, "invoice", "", `{"amount":10}`),
	}}

	result := orch.ProcessBatch(context.Background(), Session{TenantID: testTenant}, req)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Outcomes[0].Error, "unknown entity type")
}

func TestProcessBatch_CountsAndSummary(t *testing.T) {
	repo := memory.New()
	sink := &memSink{}
	orch := New(repo, sink, testLogger())
	ctx := context.Background()

	// Record the server touched "in the future" so the stale update
	// below conflicts deterministically.
	seedRecord(t, repo, CollectionClients, &storage.Record{
		ID:        "client-1",
		TenantID:  testTenant,
		Fields:    map[string]any{"email": "ann@example.com", "phone": "555-0100"},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC().Add(time.Hour),
	})

	stale := batchOp(api.OpUpdate, "client", "client-1", `{"phone":"555-0199"}`)
	stale.LocalTimestamp = time.Now().UnixMilli()

	req := api.BatchRequest{
		ClientTimestamp: 1234,
		Operations: []api.SyncOperation{
			batchOp(api.OpCreate, "client", "", `{"email":"bob@example.com"}`),
			batchOp(api.OpCreate, "pet", "", `{"name":"Rex","clientId":"nope"}`),
			stale,
		},
	}

	result := orch.ProcessBatch(ctx, Session{TenantID: testTenant, UserID: "user-1"}, req)

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Conflicts)

	require.Len(t, sink.summaries, 1)
	summary := sink.summaries[0]
	assert.Equal(t, testTenant, summary.TenantID)
	assert.Equal(t, "user-1", summary.UserID)
	assert.Equal(t, 3, summary.Operations)
	assert.Equal(t, 1, summary.Applied)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Conflicts)
	assert.Equal(t, int64(1234), summary.ClientTimestamp)
}

func TestProcessBatch_ReplayedBatchIsSafe(t *testing.T) {
	repo := memory.New()
	orch := New(repo, &memSink{}, testLogger())
	ctx := context.Background()
	sess := Session{TenantID: testTenant, UserID: "user-1"}

	req := api.BatchRequest{Operations: []api.SyncOperation{
		batchOp(api.OpCreate, "client", "", `{"id":"local-1","email":"ann@example.com"}`),
	}}

	first := orch.ProcessBatch(ctx, sess, req)
	require.True(t, first.Success)

	// The client never saw the response and flushes the same queue again.
	second := orch.ProcessBatch(ctx, sess, req)

	require.True(t, second.Success)
	assert.Equal(t, 1, second.Processed)
	assert.True(t, second.Outcomes[0].AlreadyApplied)
	assert.Equal(t, first.Outcomes[0].ServerEntityID, second.Outcomes[0].ServerEntityID)
}

func TestProcessBatch_EmptyBatch(t *testing.T) {
	repo := memory.New()
	sink := &memSink{}
	orch := New(repo, sink, testLogger())

	result := orch.ProcessBatch(context.Background(), Session{TenantID: testTenant},
		api.BatchRequest{Operations: []api.SyncOperation{}})

	assert.True(t, result.Success)
	assert.Empty(t, result.Outcomes)
	assert.Len(t, sink.summaries, 1)
}

func TestProcessBatch_AuditFailureDoesNotChangeOutcomes(t *testing.T) {
	repo := memory.New()
	orch := New(repo, &memSink{failWith: assert.AnError}, testLogger())

	req := api.BatchRequest{Operations: []api.SyncOperation{
		batchOp(api.OpCreate, "client", "", `{"email":"ann@example.com"}`),
	}}

	result := orch.ProcessBatch(context.Background(), Session{TenantID: testTenant}, req)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Processed)
}
