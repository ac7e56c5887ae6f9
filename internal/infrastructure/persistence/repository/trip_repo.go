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

// TripRepository implements port.TripService against the local trips and
// trip_assignments tables.
type TripRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sql.DB, logger *zap.Logger) port.TripService {
	return &TripRepository{
		db:     db,
		logger: logger,
	}
}

// GetFinancialStatus returns the trip's finance lock state
func (r *TripRepository) GetFinancialStatus(ctx context.Context, tripID string) (entity.TripFinancialStatus, error) {
	query := `SELECT financial_status FROM trips WHERE id = ?`

	var status entity.TripFinancialStatus
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, tripID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", apperr.NotFound("trip")
	}
	if err != nil {
		r.logger.Error("Failed to get trip financial status", zap.String("trip_id", tripID), zap.Error(err))
		return "", apperr.Internal(fmt.Errorf("failed to get trip financial status: %w", err))
	}

	return status, nil
}

// IsAssignedSupervisor reports whether the user has any historical assignment
// to the trip, narrowed to the vehicle when one is given
func (r *TripRepository) IsAssignedSupervisor(ctx context.Context, tripID string, vehicleID *string, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM trip_assignments WHERE trip_id = ? AND supervisor_id = ?`
	args := []interface{}{tripID, userID}
	if vehicleID != nil {
		query += ` AND vehicle_id = ?`
		args = append(args, *vehicleID)
	}
	query += `)`

	var assigned bool
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, args...).Scan(&assigned)
	if err != nil {
		r.logger.Error("Failed to check trip assignment", zap.String("trip_id", tripID), zap.Error(err))
		return false, apperr.Internal(fmt.Errorf("failed to check trip assignment: %w", err))
	}

	return assigned, nil
}

// SetFinancialStatus moves the trip's finance lock
func (r *TripRepository) SetFinancialStatus(ctx context.Context, tripID string, status entity.TripFinancialStatus) error {
	query := `UPDATE trips SET financial_status = ? WHERE id = ?`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, tripID)
	if err != nil {
		r.logger.Error("Failed to set trip financial status", zap.String("trip_id", tripID), zap.Error(err))
		return apperr.Internal(fmt.Errorf("failed to set trip financial status: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperr.Internal(fmt.Errorf("failed to get affected rows: %w", err))
	}
	if affected == 0 {
		return apperr.NotFound("trip")
	}

	return nil
}

// Verify interface compliance
var _ port.TripService = (*TripRepository)(nil)
