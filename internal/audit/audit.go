// Package audit persists reconciliation diagnostics: tenant-isolation
// violations caught by the guard and per-batch processing summaries.
// Entries are append-only and keyed by time, so the file doubles as a
// chronological trail for support investigations.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketTenantMismatches = []byte("tenant_mismatches")
	bucketBatches          = []byte("batches")
)

// TenantMismatch records one operation that declared a tenant other
// than the authenticated session's tenant.
type TenantMismatch struct {
	ID             string    `json:"id"`
	OpKind         string    `json:"opKind"`
	EntityType     string    `json:"entityType"`
	EntityID       string    `json:"entityId,omitempty"`
	DeclaredTenant string    `json:"declaredTenant"`
	SessionTenant  string    `json:"sessionTenant"`
	UserID         string    `json:"userId,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// BatchSummary records the aggregate outcome of one processed batch.
type BatchSummary struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenantId"`
	UserID          string    `json:"userId,omitempty"`
	Operations      int       `json:"operations"`
	Applied         int       `json:"applied"`
	Failed          int       `json:"failed"`
	Conflicts       int       `json:"conflicts"`
	ClientTimestamp int64     `json:"clientTimestamp"`
	ReceivedAt      time.Time `json:"receivedAt"`
}

// Store is the BoltDB-backed audit trail.
type Store struct {
	db *bbolt.DB
}

// Open creates or opens the audit database at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit db: %w", err)
	}

	store := &Store{db: db}

	if err := store.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return store, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketTenantMismatches); err != nil {
			return fmt.Errorf("failed to create tenant_mismatches bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketBatches); err != nil {
			return fmt.Errorf("failed to create batches bucket: %w", err)
		}
		return nil
	})
}

// RecordTenantMismatch appends a guard diagnostic.
func (s *Store) RecordTenantMismatch(ctx context.Context, entry TenantMismatch) error {
	return s.put(bucketTenantMismatches, entryKey(entry.OccurredAt, entry.ID), entry)
}

// RecordBatchSummary appends a batch summary.
func (s *Store) RecordBatchSummary(ctx context.Context, entry BatchSummary) error {
	return s.put(bucketBatches, entryKey(entry.ReceivedAt, entry.ID), entry)
}

// ListTenantMismatches returns all mismatch entries recorded for the
// given session tenant, oldest first.
func (s *Store) ListTenantMismatches(ctx context.Context, sessionTenant string) ([]TenantMismatch, error) {
	var entries []TenantMismatch
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTenantMismatches).ForEach(func(k, v []byte) error {
			var entry TenantMismatch
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal mismatch entry: %w", err)
			}
			if entry.SessionTenant == sessionTenant {
				entries = append(entries, entry)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListBatchSummaries returns all batch summaries recorded for the given
// tenant, oldest first.
func (s *Store) ListBatchSummaries(ctx context.Context, tenantID string) ([]BatchSummary, error) {
	var entries []BatchSummary
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketBatches).ForEach(func(k, v []byte) error {
			var entry BatchSummary
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal batch summary: %w", err)
			}
			if entry.TenantID == tenantID {
				entries = append(entries, entry)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) put(bucket []byte, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucket).Put([]byte(key), data); err != nil {
			return fmt.Errorf("failed to put audit entry: %w", err)
		}
		return nil
	})
}

// entryKey orders entries chronologically; the id suffix keeps keys
// unique within one nanosecond.
func entryKey(at time.Time, id string) string {
	return at.UTC().Format(time.RFC3339Nano) + "_" + id
}
