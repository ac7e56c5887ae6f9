package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
)

// VehiclePortfolioRepository implements port.VehiclePortfolioService against
// the local vehicle_assignments table.
type VehiclePortfolioRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVehiclePortfolioRepository creates a new vehicle portfolio repository
func NewVehiclePortfolioRepository(db *sql.DB, logger *zap.Logger) port.VehiclePortfolioService {
	return &VehiclePortfolioRepository{
		db:     db,
		logger: logger,
	}
}

// IsInActivePortfolio reports whether the vehicle is currently assigned to
// the supervisor
func (r *VehiclePortfolioRepository) IsInActivePortfolio(ctx context.Context, vehicleID, supervisorID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM vehicle_assignments
			WHERE vehicle_id = ? AND supervisor_id = ? AND active = 1
		)
	`

	var active bool
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, vehicleID, supervisorID).Scan(&active)
	if err != nil {
		r.logger.Error("Failed to check vehicle portfolio", zap.String("vehicle_id", vehicleID), zap.Error(err))
		return false, apperr.Internal(fmt.Errorf("failed to check vehicle portfolio: %w", err))
	}

	return active, nil
}

// Verify interface compliance
var _ port.VehiclePortfolioService = (*VehiclePortfolioRepository)(nil)
