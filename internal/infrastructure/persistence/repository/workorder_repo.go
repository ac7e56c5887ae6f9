package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// WorkOrderRepository implements port.WorkOrderService against the local
// maintenance_work_orders table.
type WorkOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkOrderRepository creates a new work order repository
func NewWorkOrderRepository(db *sql.DB, logger *zap.Logger) port.WorkOrderService {
	return &WorkOrderRepository{
		db:     db,
		logger: logger,
	}
}

// GetWorkOrder retrieves a work order, nil when absent
func (r *WorkOrderRepository) GetWorkOrder(ctx context.Context, id string) (*entity.WorkOrder, error) {
	query := `SELECT id, vehicle_id, status FROM maintenance_work_orders WHERE id = ?`

	var wo entity.WorkOrder
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(&wo.ID, &wo.VehicleID, &wo.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get work order", zap.String("id", id), zap.Error(err))
		return nil, apperr.Internal(fmt.Errorf("failed to get work order: %w", err))
	}

	return &wo, nil
}

// MarkInProgress flips an OPEN work order to IN_PROGRESS. Guarded on the
// prior status so only the first installation performs the flip.
func (r *WorkOrderRepository) MarkInProgress(ctx context.Context, id string) error {
	query := `UPDATE maintenance_work_orders SET status = ? WHERE id = ? AND status = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, entity.WorkOrderInProgress, id, entity.WorkOrderOpen)
	if err != nil {
		r.logger.Error("Failed to mark work order in progress", zap.String("id", id), zap.Error(err))
		return apperr.Internal(fmt.Errorf("failed to mark work order in progress: %w", err))
	}

	return nil
}

// Verify interface compliance
var _ port.WorkOrderService = (*WorkOrderRepository)(nil)
