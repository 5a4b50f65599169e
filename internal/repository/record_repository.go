package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/masjid-field-reports/internal/models"
	appErrors "github.com/noah-isme/masjid-field-reports/pkg/errors"
)

const recordColumns = `kind, record_id, mosque_code, code_day, status, created_at, created_by, payload`

// RecordRepository stores field reports in the field_records table. Status
// and created_at are kept verbatim; an absent status is stored as ''.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// ListByKind loads every record of a kind in insertion order.
func (r *RecordRepository) ListByKind(ctx context.Context, kind models.RecordKind) ([]models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM field_records WHERE kind = $1 ORDER BY inserted_at, record_id`
	records := make([]models.Record, 0)
	if err := r.db.SelectContext(ctx, &records, query, kind); err != nil {
		return nil, fmt.Errorf("list %s records: %w", kind, err)
	}
	return records, nil
}

// GetByID fetches one record of a kind.
func (r *RecordRepository) GetByID(ctx context.Context, kind models.RecordKind, id string) (*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM field_records WHERE kind = $1 AND record_id = $2`
	var record models.Record
	if err := r.db.GetContext(ctx, &record, query, kind, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "record not found")
		}
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return &record, nil
}

// Save inserts a record or replaces the editable columns of an existing one.
// Kind, creator, creation time and status never change through Save.
func (r *RecordRepository) Save(ctx context.Context, record models.Record) error {
	if record.Fields == nil {
		record.Fields = models.Fields{}
	}
	const query = `INSERT INTO field_records (kind, record_id, mosque_code, code_day, status, created_at, created_by, payload)
	VALUES (:kind, :record_id, :mosque_code, :code_day, :status, :created_at, :created_by, :payload)
	ON CONFLICT (record_id) DO UPDATE SET
		mosque_code = EXCLUDED.mosque_code,
		code_day = EXCLUDED.code_day,
		payload = EXCLUDED.payload,
		updated_at = now()
	WHERE field_records.kind = EXCLUDED.kind`
	res, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("save record %s: %w", record.RecordID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return appErrors.Clone(appErrors.ErrConflict, "record id belongs to another report kind")
	}
	return nil
}

// UpdateStatus sets the approval status of every listed record of a kind in
// one statement and returns how many rows changed.
func (r *RecordRepository) UpdateStatus(ctx context.Context, kind models.RecordKind, ids []string, status models.ApprovalStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE field_records SET status = $1, updated_at = now() WHERE kind = $2 AND record_id = ANY($3)`
	res, err := r.db.ExecContext(ctx, query, status, kind, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("update status of %d records: %w", len(ids), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update status rows affected: %w", err)
	}
	return affected, nil
}
