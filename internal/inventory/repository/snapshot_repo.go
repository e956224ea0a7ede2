package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

// SnapshotRepo persists the per-config snapshot history. Snapshots are
// append-only; "latest" is the most recent by created_at.
type SnapshotRepo struct {
	db *pgxpool.Pool
}

func NewSnapshotRepo(db *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// GetLatest returns the most recent snapshot of a config, or nil when the
// config has never been scanned.
func (r *SnapshotRepo) GetLatest(ctx context.Context, configID int64) (domain.Snapshot, error) {
	const q = `
select data from snapshots
where config_id = $1
order by created_at desc
limit 1;
`
	var data []byte
	err := r.db.QueryRow(ctx, q, configID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot for config %d: %w", configID, err)
	}
	return snap, nil
}

// Add appends a snapshot to the config's history. A plain transactional
// insert is enough for atomic visibility: runs for the same config do not
// overlap, and readers only ever see committed rows.
func (r *SnapshotRepo) Add(ctx context.Context, configID int64, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	const q = `
insert into snapshots (config_id, created_at, data)
values ($1, now(), $2);
`
	_, err = r.db.Exec(ctx, q, configID, data)
	return err
}

// PruneOlderThan deletes snapshots past the retention window and returns how
// many rows went away.
func (r *SnapshotRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `delete from snapshots where created_at < $1;`
	ct, err := r.db.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
