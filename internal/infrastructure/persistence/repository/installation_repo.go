package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// InstallationRepository implements port.InstallationRepository
type InstallationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInstallationRepository creates a new installation repository
func NewInstallationRepository(db *sql.DB, logger *zap.Logger) port.InstallationRepository {
	return &InstallationRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts one row per installed item
func (r *InstallationRepository) CreateBatch(ctx context.Context, installations []*entity.Installation) error {
	query := `
		INSERT INTO work_order_installations (
			id, work_order_id, vehicle_id, part_id, part_item_id,
			qty_installed, installed_by, installed_at, odometer_at_install, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := getExecutor(ctx, r.db)
	for _, inst := range installations {
		_, err := exec.ExecContext(ctx, query,
			inst.ID,
			inst.WorkOrderID,
			inst.VehicleID,
			inst.PartID,
			inst.PartItemID,
			inst.QtyInstalled,
			inst.InstalledBy,
			inst.InstalledAt,
			inst.OdometerAtInstall,
			inst.Notes,
		)
		if err != nil {
			r.logger.Error("Failed to create installation", zap.String("work_order_id", inst.WorkOrderID), zap.Error(err))
			return fmt.Errorf("failed to create installation: %w", err)
		}
	}

	return nil
}

// ListByWorkOrder retrieves all installations of one work order, oldest first
func (r *InstallationRepository) ListByWorkOrder(ctx context.Context, workOrderID string) ([]*entity.Installation, error) {
	query := `
		SELECT id, work_order_id, vehicle_id, part_id, part_item_id,
			qty_installed, installed_by, installed_at, odometer_at_install, notes
		FROM work_order_installations
		WHERE work_order_id = ?
		ORDER BY installed_at ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, workOrderID)
	if err != nil {
		r.logger.Error("Failed to list installations", zap.String("work_order_id", workOrderID), zap.Error(err))
		return nil, fmt.Errorf("failed to list installations: %w", err)
	}
	defer rows.Close()

	var installations []*entity.Installation
	for rows.Next() {
		var inst entity.Installation
		var partItemID, notes sql.NullString
		var odometer sql.NullInt64

		err := rows.Scan(
			&inst.ID,
			&inst.WorkOrderID,
			&inst.VehicleID,
			&inst.PartID,
			&partItemID,
			&inst.QtyInstalled,
			&inst.InstalledBy,
			&inst.InstalledAt,
			&odometer,
			&notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installation: %w", err)
		}

		inst.PartItemID = nullStr(partItemID)
		inst.Notes = nullStr(notes)
		if odometer.Valid {
			v := odometer.Int64
			inst.OdometerAtInstall = &v
		}
		installations = append(installations, &inst)
	}

	return installations, rows.Err()
}

// InstalledQtyByWorkOrder returns part_id -> total qty installed on one work
// order
func (r *InstallationRepository) InstalledQtyByWorkOrder(ctx context.Context, workOrderID string) (map[string]int, error) {
	query := `
		SELECT part_id, SUM(qty_installed)
		FROM work_order_installations
		WHERE work_order_id = ?
		GROUP BY part_id
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, workOrderID)
	if err != nil {
		r.logger.Error("Failed to sum installed quantities", zap.String("work_order_id", workOrderID), zap.Error(err))
		return nil, fmt.Errorf("failed to sum installed quantities: %w", err)
	}
	defer rows.Close()

	qty := make(map[string]int)
	for rows.Next() {
		var partID string
		var total int
		if err := rows.Scan(&partID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan installed quantity: %w", err)
		}
		qty[partID] = total
	}

	return qty, rows.Err()
}

// Verify interface compliance
var _ port.InstallationRepository = (*InstallationRepository)(nil)
