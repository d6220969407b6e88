package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pawsoft/vetsync/internal/server/storage"
)

const recordColumns = "id, tenant_id, revision, doc, natural_key, created_at, updated_at, deleted_at"

// Get retrieves a record by id, including soft-deleted records.
// Returns storage.ErrRecordNotFound if no row exists for this tenant.
func (s *Storage) Get(ctx context.Context, tenantID, collection, id string) (*storage.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM records
		WHERE collection = ? AND id = ? AND tenant_id = ?
	`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, collection, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return rec, nil
}

// FindByField retrieves the live record whose document field equals value.
// Returns storage.ErrRecordNotFound when there is no match.
func (s *Storage) FindByField(ctx context.Context, tenantID, collection, field, value string) (*storage.Record, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM records
		WHERE collection = ? AND tenant_id = ?
		  AND deleted_at IS NULL
		  AND json_extract(doc, ?) = ?
		LIMIT 1
	`

	path := "$." + field
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, collection, tenantID, path, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find record by %s: %w", field, err)
	}

	return rec, nil
}

// Insert stores a new record.
// Returns storage.ErrDuplicateKey on a natural-key uniqueness violation.
func (s *Storage) Insert(ctx context.Context, collection string, rec *storage.Record) error {
	doc, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	query := `
		INSERT INTO records (collection, id, tenant_id, revision, doc, natural_key, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = s.db.ExecContext(ctx, query,
		collection,
		rec.ID,
		rec.TenantID,
		rec.Revision,
		string(doc),
		nullableString(rec.NaturalKey),
		rec.CreatedAt.UnixMilli(),
		rec.UpdatedAt.UnixMilli(),
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// Update overwrites an existing record's document, revision, natural key
// and updated_at. Returns storage.ErrRecordNotFound if the row is missing
// for this tenant.
func (s *Storage) Update(ctx context.Context, collection string, rec *storage.Record) error {
	doc, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	query := `
		UPDATE records
		SET revision = ?, doc = ?, natural_key = ?, updated_at = ?
		WHERE collection = ? AND id = ? AND tenant_id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		rec.Revision,
		string(doc),
		nullableString(rec.NaturalKey),
		rec.UpdatedAt.UnixMilli(),
		collection,
		rec.ID,
		rec.TenantID,
	)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("failed to update record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrRecordNotFound
	}

	return nil
}

// SoftDelete sets the deletion marker. Deleting an already-deleted record
// is a no-op success. Returns storage.ErrRecordNotFound if no row exists
// for this tenant.
func (s *Storage) SoftDelete(ctx context.Context, tenantID, collection, id string, at time.Time) error {
	query := `
		UPDATE records
		SET deleted_at = ?, updated_at = ?
		WHERE collection = ? AND id = ? AND tenant_id = ? AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query,
		at.UnixMilli(),
		at.UnixMilli(),
		collection,
		id,
		tenantID,
	)

	if err != nil {
		return fmt.Errorf("failed to soft-delete record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		// Either the row does not exist or the marker is already set.
		if _, err := s.Get(ctx, tenantID, collection, id); err != nil {
			return err
		}
		return nil
	}

	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanRecord.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*storage.Record, error) {
	rec := &storage.Record{}
	var doc string
	var naturalKey sql.NullString
	var createdAt, updatedAt int64
	var deletedAt sql.NullInt64

	err := row.Scan(
		&rec.ID,
		&rec.TenantID,
		&rec.Revision,
		&doc,
		&naturalKey,
		&createdAt,
		&updatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(doc), &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}

	if naturalKey.Valid {
		rec.NaturalKey = naturalKey.String
	}
	rec.CreatedAt = time.UnixMilli(createdAt).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	if deletedAt.Valid {
		at := time.UnixMilli(deletedAt.Int64).UTC()
		rec.DeletedAt = &at
	}

	return rec, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
