package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

// ChangeRepo is the change log: one row per unit added, removed or modified
// during a scan run.
type ChangeRepo struct {
	db *sql.DB
}

func NewChangeRepo(db *sql.DB) *ChangeRepo {
	return &ChangeRepo{db: db}
}

// Add inserts all records of one run inside a transaction.
func (r *ChangeRepo) Add(ctx context.Context, records []domain.ChangeRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `
INSERT INTO inventory_changes (config_id, change_type, unit_key, details)
VALUES ($1, $2, $3, $4)`

	for _, rec := range records {
		details, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("marshal change details for %s: %w", rec.Key, err)
		}
		if _, err := tx.ExecContext(ctx, q, rec.ConfigID, rec.Type, rec.Key, details); err != nil {
			return fmt.Errorf("insert change for %s: %w", rec.Key, err)
		}
	}

	return tx.Commit()
}

// ListRecent returns the newest change records of one config.
func (r *ChangeRepo) ListRecent(ctx context.Context, configID int64, limit int) ([]domain.ChangeRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `
SELECT id, config_id, change_type, unit_key, details, created_at
FROM inventory_changes
WHERE config_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

	rows, err := r.db.QueryContext(ctx, q, configID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ChangeRecord, 0, limit)
	for rows.Next() {
		var (
			rec     domain.ChangeRecord
			details []byte
		)
		if err := rows.Scan(&rec.ID, &rec.ConfigID, &rec.Type, &rec.Key, &details, &rec.Timestamp); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &rec.Fields); err != nil {
				return nil, fmt.Errorf("change %d details: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneOlderThan deletes change records past the retention window.
func (r *ChangeRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM inventory_changes WHERE created_at < $1`
	res, err := r.db.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
