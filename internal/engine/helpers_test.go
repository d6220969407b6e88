package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pawsoft/vetsync/internal/audit"
	"github.com/pawsoft/vetsync/internal/server/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memSink collects audit entries in memory for assertions.
type memSink struct {
	mu         sync.Mutex
	mismatches []audit.TenantMismatch
	summaries  []audit.BatchSummary
	failWith   error
}

func (s *memSink) RecordTenantMismatch(_ context.Context, entry audit.TenantMismatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.mismatches = append(s.mismatches, entry)
	return nil
}

func (s *memSink) RecordBatchSummary(_ context.Context, entry audit.BatchSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.summaries = append(s.summaries, entry)
	return nil
}

// seedRecord inserts a record directly, bypassing the engine.
func seedRecord(t *testing.T, repo storage.Repository, collection string, rec *storage.Record) {
	t.Helper()
	if rec.Revision == 0 {
		rec.Revision = 1
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = fixedNow.Add(-time.Hour)
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	require.NoError(t, repo.Insert(context.Background(), collection, rec))
}
