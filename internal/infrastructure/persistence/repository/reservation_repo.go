package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// ReservationRepository implements port.ReservationRepository
type ReservationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *sql.DB, logger *zap.Logger) port.ReservationRepository {
	return &ReservationRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts one reservation row per part unit
func (r *ReservationRepository) CreateBatch(ctx context.Context, requestID string, partItemIDs []string) error {
	query := `
		INSERT INTO inventory_request_reservations (id, request_id, part_item_id, created_at)
		VALUES (?, ?, ?, ?)
	`

	exec := getExecutor(ctx, r.db)
	now := time.Now()
	for _, itemID := range partItemIDs {
		_, err := exec.ExecContext(ctx, query, uuid.NewString(), requestID, itemID, now)
		if err != nil {
			r.logger.Error("Failed to create reservation", zap.String("request_id", requestID), zap.Error(err))
			return fmt.Errorf("failed to create reservation: %w", err)
		}
	}

	return nil
}

// ListByRequest retrieves the live reservations of one request
func (r *ReservationRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.Reservation, error) {
	query := `
		SELECT id, request_id, part_item_id, created_at
		FROM inventory_request_reservations
		WHERE request_id = ?
		ORDER BY created_at ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list reservations", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []*entity.Reservation
	for rows.Next() {
		var res entity.Reservation
		if err := rows.Scan(&res.ID, &res.RequestID, &res.PartItemID, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, &res)
	}

	return reservations, rows.Err()
}

// CountByRequest counts the live reservations of one request
func (r *ReservationRepository) CountByRequest(ctx context.Context, requestID string) (int, error) {
	query := `SELECT COUNT(*) FROM inventory_request_reservations WHERE request_id = ?`

	var count int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, requestID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count reservations", zap.String("request_id", requestID), zap.Error(err))
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	return count, nil
}

// DeleteByRequest removes every reservation row of one request
func (r *ReservationRepository) DeleteByRequest(ctx context.Context, requestID string) error {
	query := `DELETE FROM inventory_request_reservations WHERE request_id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to delete reservations", zap.String("request_id", requestID), zap.Error(err))
		return fmt.Errorf("failed to delete reservations: %w", err)
	}

	return nil
}

// Verify interface compliance
var _ port.ReservationRepository = (*ReservationRepository)(nil)
