package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

const partItemsSchema = `
CREATE TABLE part_items (
    id TEXT PRIMARY KEY,
    part_id TEXT NOT NULL,
    warehouse_id TEXT NOT NULL,
    internal_serial TEXT NOT NULL UNIQUE,
    manufacturer_serial TEXT,
    status TEXT NOT NULL DEFAULT 'IN_STOCK',
    installed_vehicle_id TEXT,
    installed_at TIMESTAMP,
    received_receipt_id TEXT,
    received_at TIMESTAMP NOT NULL,
    last_moved_at TIMESTAMP
);
`

func newTestPartItemRepo(t *testing.T) (*sql.DB, *PartItemRepository) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(partItemsSchema)
	require.NoError(t, err)

	return db, &PartItemRepository{db: db, logger: zap.NewNop()}
}

func seedPartItem(t *testing.T, db *sql.DB, id, partID, warehouseID string, status entity.PartItemStatus, receivedAt time.Time) {
	_, err := db.Exec(
		`INSERT INTO part_items (id, part_id, warehouse_id, internal_serial, manufacturer_serial, status, received_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, partID, warehouseID, "SER-"+id, "MFG-"+id, status, receivedAt,
	)
	require.NoError(t, err)
}

func TestPartItemRepository_PickInStockFIFO_OldestFirst(t *testing.T) {
	db, repo := newTestPartItemRepo(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedPartItem(t, db, "unit-newest", "part-1", "wh-1", entity.PartInStock, base.Add(48*time.Hour))
	seedPartItem(t, db, "unit-oldest", "part-1", "wh-1", entity.PartInStock, base)
	seedPartItem(t, db, "unit-middle", "part-1", "wh-1", entity.PartInStock, base.Add(24*time.Hour))

	items, err := repo.PickInStockFIFO(context.Background(), "wh-1", "part-1", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "unit-oldest", items[0].ID)
	assert.Equal(t, "unit-middle", items[1].ID)
}

func TestPartItemRepository_PickInStockFIFO_SkipsUnavailable(t *testing.T) {
	db, repo := newTestPartItemRepo(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedPartItem(t, db, "unit-reserved", "part-1", "wh-1", entity.PartReserved, base)
	seedPartItem(t, db, "unit-issued", "part-1", "wh-1", entity.PartIssued, base.Add(time.Hour))
	seedPartItem(t, db, "unit-other-warehouse", "part-1", "wh-2", entity.PartInStock, base.Add(2*time.Hour))
	seedPartItem(t, db, "unit-other-part", "part-2", "wh-1", entity.PartInStock, base.Add(3*time.Hour))
	seedPartItem(t, db, "unit-available", "part-1", "wh-1", entity.PartInStock, base.Add(4*time.Hour))

	items, err := repo.PickInStockFIFO(context.Background(), "wh-1", "part-1", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "unit-available", items[0].ID)
}

func TestPartItemRepository_PickInStockFIFO_TieBreaksByID(t *testing.T) {
	db, repo := newTestPartItemRepo(t)

	receivedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedPartItem(t, db, "unit-b", "part-1", "wh-1", entity.PartInStock, receivedAt)
	seedPartItem(t, db, "unit-a", "part-1", "wh-1", entity.PartInStock, receivedAt)

	items, err := repo.PickInStockFIFO(context.Background(), "wh-1", "part-1", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "unit-a", items[0].ID)
	assert.Equal(t, "unit-b", items[1].ID)
}

func TestPartItemRepository_UpdateStatusWhere_GuardedCount(t *testing.T) {
	db, repo := newTestPartItemRepo(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seedPartItem(t, db, "unit-1", "part-1", "wh-1", entity.PartInStock, base)
	seedPartItem(t, db, "unit-2", "part-1", "wh-1", entity.PartReserved, base.Add(time.Hour))

	affected, err := repo.UpdateStatusWhere(context.Background(),
		[]string{"unit-1", "unit-2"}, entity.PartInStock, entity.PartReserved)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}
