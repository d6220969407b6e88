// Package memory provides an in-memory Repository implementation.
// It backs the engine's tests and makes the orchestrator runnable
// without a database file.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pawsoft/vetsync/internal/server/storage"
)

// Storage is a map-backed Repository. Safe for concurrent use.
type Storage struct {
	mu          sync.RWMutex
	collections map[string]map[string]*storage.Record
}

// New creates an empty in-memory storage.
func New() *Storage {
	return &Storage{
		collections: make(map[string]map[string]*storage.Record),
	}
}

// Get retrieves a record by id, including soft-deleted records.
func (s *Storage) Get(ctx context.Context, tenantID, collection, id string) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.collections[collection][id]
	if !ok || rec.TenantID != tenantID {
		return nil, storage.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// FindByField retrieves the live record whose document field equals value.
func (s *Storage) FindByField(ctx context.Context, tenantID, collection, field, value string) (*storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.collections[collection] {
		if rec.TenantID != tenantID || rec.Deleted() {
			continue
		}
		if v, ok := rec.Fields[field].(string); ok && v == value {
			return rec.Clone(), nil
		}
	}
	return nil, storage.ErrRecordNotFound
}

// Insert stores a new record, enforcing natural-key uniqueness among
// live records of the same tenant and collection.
func (s *Storage) Insert(ctx context.Context, collection string, rec *storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.NaturalKey != "" {
		for _, existing := range s.collections[collection] {
			if existing.TenantID == rec.TenantID && !existing.Deleted() && existing.NaturalKey == rec.NaturalKey {
				return storage.ErrDuplicateKey
			}
		}
	}

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]*storage.Record)
	}
	s.collections[collection][rec.ID] = rec.Clone()
	return nil
}

// Update overwrites an existing record.
func (s *Storage) Update(ctx context.Context, collection string, rec *storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][rec.ID]
	if !ok || existing.TenantID != rec.TenantID {
		return storage.ErrRecordNotFound
	}

	if rec.NaturalKey != "" {
		for id, other := range s.collections[collection] {
			if id == rec.ID || other.TenantID != rec.TenantID || other.Deleted() {
				continue
			}
			if other.NaturalKey == rec.NaturalKey {
				return storage.ErrDuplicateKey
			}
		}
	}

	clone := rec.Clone()
	clone.CreatedAt = existing.CreatedAt
	clone.DeletedAt = existing.DeletedAt
	s.collections[collection][rec.ID] = clone
	return nil
}

// SoftDelete sets the deletion marker; a second delete is a no-op.
func (s *Storage) SoftDelete(ctx context.Context, tenantID, collection, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.collections[collection][id]
	if !ok || rec.TenantID != tenantID {
		return storage.ErrRecordNotFound
	}
	if rec.DeletedAt == nil {
		deletedAt := at
		rec.DeletedAt = &deletedAt
		rec.UpdatedAt = at
	}
	return nil
}
