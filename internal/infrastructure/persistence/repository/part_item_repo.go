package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// PartItemRepository implements port.PartItemRepository
type PartItemRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPartItemRepository creates a new part item repository
func NewPartItemRepository(db *sql.DB, logger *zap.Logger) port.PartItemRepository {
	return &PartItemRepository{
		db:     db,
		logger: logger,
	}
}

const partItemColumns = `
	id, part_id, warehouse_id, internal_serial, manufacturer_serial, status,
	installed_vehicle_id, installed_at, received_receipt_id, received_at, last_moved_at
`

// GetByIDs retrieves part units by id; missing ids are simply absent from the
// result
func (r *PartItemRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + partItemColumns + ` FROM part_items WHERE id IN (` + placeholders(len(ids)) + `)`
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to get part items", zap.Error(err))
		return nil, fmt.Errorf("failed to get part items: %w", err)
	}
	defer rows.Close()

	return scanPartItems(rows)
}

// PickInStockFIFO selects up to limit IN_STOCK units of one part in one
// warehouse, oldest received first
func (r *PartItemRepository) PickInStockFIFO(ctx context.Context, warehouseID, partID string, limit int) ([]*entity.PartItem, error) {
	query := `
		SELECT ` + partItemColumns + `
		FROM part_items
		WHERE warehouse_id = ? AND part_id = ? AND status = ?
		ORDER BY received_at ASC, id ASC
		LIMIT ?
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, warehouseID, partID, entity.PartInStock, limit)
	if err != nil {
		r.logger.Error("Failed to pick in-stock units",
			zap.String("warehouse_id", warehouseID), zap.String("part_id", partID), zap.Error(err))
		return nil, fmt.Errorf("failed to pick in-stock units: %w", err)
	}
	defer rows.Close()

	return scanPartItems(rows)
}

// UpdateStatusWhere flips status for every id currently in the expected prior
// status and returns the affected-row count. A count short of len(ids) means
// another caller moved some unit in between; callers treat it as Conflict.
func (r *PartItemRepository) UpdateStatusWhere(ctx context.Context, ids []string, from, to entity.PartItemStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE part_items
		SET status = ?, last_moved_at = ?
		WHERE id IN (` + placeholders(len(ids)) + `) AND status = ?
	`
	args := make([]interface{}, 0, len(ids)+3)
	args = append(args, to, time.Now())
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, from)

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update part item status",
			zap.String("from", string(from)), zap.String("to", string(to)), zap.Error(err))
		return 0, fmt.Errorf("failed to update part item status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected, nil
}

// InstallWhereIssued flips ISSUED units to INSTALLED, stamping the vehicle
// and install time, with the same affected-row-count contract as
// UpdateStatusWhere
func (r *PartItemRepository) InstallWhereIssued(ctx context.Context, ids []string, vehicleID string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE part_items
		SET status = ?, installed_vehicle_id = ?, installed_at = ?, last_moved_at = ?
		WHERE id IN (` + placeholders(len(ids)) + `) AND status = ?
	`
	args := make([]interface{}, 0, len(ids)+5)
	args = append(args, entity.PartInstalled, vehicleID, at, at)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, entity.PartIssued)

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to install part items", zap.String("vehicle_id", vehicleID), zap.Error(err))
		return 0, fmt.Errorf("failed to install part items: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected, nil
}

func scanPartItems(rows *sql.Rows) ([]*entity.PartItem, error) {
	var items []*entity.PartItem
	for rows.Next() {
		var item entity.PartItem
		var installedVehicleID, receivedReceiptID sql.NullString
		var installedAt, lastMovedAt sql.NullTime

		err := rows.Scan(
			&item.ID,
			&item.PartID,
			&item.WarehouseID,
			&item.InternalSerial,
			&item.ManufacturerSerial,
			&item.Status,
			&installedVehicleID,
			&installedAt,
			&receivedReceiptID,
			&item.ReceivedAt,
			&lastMovedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan part item: %w", err)
		}

		item.InstalledVehicleID = nullStr(installedVehicleID)
		item.ReceivedReceiptID = nullStr(receivedReceiptID)
		item.InstalledAt = nullTime(installedAt)
		item.LastMovedAt = nullTime(lastMovedAt)
		items = append(items, &item)
	}

	return items, rows.Err()
}

// Verify interface compliance
var _ port.PartItemRepository = (*PartItemRepository)(nil)
