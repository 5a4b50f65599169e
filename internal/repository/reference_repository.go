package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/masjid-field-reports/internal/models"
)

// ReferenceRepository reads and seeds the mosque and day lookup tables.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository constructs the repository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// Mosques lists mosques ordered by code.
func (r *ReferenceRepository) Mosques(ctx context.Context) ([]models.Mosque, error) {
	const query = `SELECT mosque_code, name, site_type FROM mosques ORDER BY mosque_code`
	mosques := make([]models.Mosque, 0)
	if err := r.db.SelectContext(ctx, &mosques, query); err != nil {
		return nil, fmt.Errorf("list mosques: %w", err)
	}
	return mosques, nil
}

// Days lists days in their configured order.
func (r *ReferenceRepository) Days(ctx context.Context) ([]models.Day, error) {
	const query = `SELECT code_day, label FROM days ORDER BY position, code_day`
	days := make([]models.Day, 0)
	if err := r.db.SelectContext(ctx, &days, query); err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	return days, nil
}

// Upsert writes mosques and days in one transaction. Day order follows the
// slice order.
func (r *ReferenceRepository) Upsert(ctx context.Context, data models.ReferenceData) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reference upsert: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const mosqueQuery = `INSERT INTO mosques (mosque_code, name, site_type) VALUES ($1, $2, $3)
	ON CONFLICT (mosque_code) DO UPDATE SET name = EXCLUDED.name, site_type = EXCLUDED.site_type`
	for _, m := range data.Mosques {
		if _, err = tx.ExecContext(ctx, mosqueQuery, m.Code, m.Name, m.SiteType); err != nil {
			return fmt.Errorf("upsert mosque %s: %w", m.Code, err)
		}
	}

	const dayQuery = `INSERT INTO days (code_day, label, position) VALUES ($1, $2, $3)
	ON CONFLICT (code_day) DO UPDATE SET label = EXCLUDED.label, position = EXCLUDED.position`
	for i, d := range data.Days {
		if _, err = tx.ExecContext(ctx, dayQuery, d.Code, d.Label, i); err != nil {
			return fmt.Errorf("upsert day %s: %w", d.Code, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reference upsert: %w", err)
	}
	return nil
}
