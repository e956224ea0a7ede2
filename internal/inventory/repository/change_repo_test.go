package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unitwatch/inventory-backend/internal/inventory/domain"
)

func TestChangeRepo_Add(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewChangeRepo(db)

	t.Run("inserts every record in one transaction", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO inventory_changes`).
			WithArgs(int64(7), domain.ChangeAdded, "C3-02", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`INSERT INTO inventory_changes`).
			WithArgs(int64(7), domain.ChangeChanged, "C3-01", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		old, new := "100", "150"
		err := repo.Add(context.Background(), []domain.ChangeRecord{
			{ConfigID: 7, Type: domain.ChangeAdded, Key: "C3-02"},
			{ConfigID: 7, Type: domain.ChangeChanged, Key: "C3-01", Fields: []domain.FieldChange{
				{Field: "price", Old: &old, New: &new},
			}},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no records is a no-op", func(t *testing.T) {
		err := repo.Add(context.Background(), nil)
		require.NoError(t, err)
	})
}

func TestChangeRepo_ListRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewChangeRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "config_id", "change_type", "unit_key", "details", "created_at"}).
		AddRow(int64(2), int64(7), domain.ChangeChanged, "C3-01",
			[]byte(`[{"field":"price","old":"100","new":"150"}]`), now).
		AddRow(int64(1), int64(7), domain.ChangeAdded, "C3-02", []byte(`[]`), now)

	mock.ExpectQuery(`SELECT id, config_id, change_type, unit_key, details, created_at`).
		WithArgs(int64(7), 10).
		WillReturnRows(rows)

	got, err := repo.ListRecent(context.Background(), 7, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "C3-01", got[0].Key)
	require.Len(t, got[0].Fields, 1)
	assert.Equal(t, "price", got[0].Fields[0].Field)
	assert.Empty(t, got[1].Fields)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangeRepo_PruneOlderThan(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewChangeRepo(db)

	cutoff := time.Now().AddDate(0, 0, -30)
	mock.ExpectExec(`DELETE FROM inventory_changes`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := repo.PruneOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}
