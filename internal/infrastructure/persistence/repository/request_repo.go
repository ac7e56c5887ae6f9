package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new inventory request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a request and its lines
func (r *RequestRepository) Create(ctx context.Context, request *entity.InventoryRequest) error {
	query := `
		INSERT INTO inventory_requests (
			id, warehouse_id, work_order_id, requested_by, status, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	exec := getExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, query,
		request.ID,
		request.WarehouseID,
		request.WorkOrderID,
		request.RequestedBy,
		request.Status,
		request.Notes,
		request.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create inventory request", zap.Error(err))
		return fmt.Errorf("failed to create inventory request: %w", err)
	}

	lineQuery := `
		INSERT INTO inventory_request_lines (id, request_id, part_id, needed_qty, notes)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, line := range request.Lines {
		_, err := exec.ExecContext(ctx, lineQuery,
			line.ID, line.RequestID, line.PartID, line.NeededQty, line.Notes)
		if err != nil {
			r.logger.Error("Failed to create request line", zap.String("request_id", request.ID), zap.Error(err))
			return fmt.Errorf("failed to create request line: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a request with its lines, nil when absent
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.InventoryRequest, error) {
	query := `
		SELECT id, warehouse_id, work_order_id, requested_by, status, notes, created_at
		FROM inventory_requests
		WHERE id = ?
	`

	var request entity.InventoryRequest
	var workOrderID, notes sql.NullString

	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&request.ID,
		&request.WarehouseID,
		&workOrderID,
		&request.RequestedBy,
		&request.Status,
		&notes,
		&request.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get inventory request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get inventory request: %w", err)
	}

	request.WorkOrderID = nullStr(workOrderID)
	request.Notes = nullStr(notes)

	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	request.Lines = lines

	return &request, nil
}

// List retrieves requests matching the filter, newest first, without lines
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.InventoryRequest, error) {
	query := `
		SELECT id, warehouse_id, work_order_id, requested_by, status, notes, created_at
		FROM inventory_requests
		WHERE 1=1
	`
	var args []interface{}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, *filter.Status)
	}
	if filter.WarehouseID != nil {
		query += ` AND warehouse_id = ?`
		args = append(args, *filter.WarehouseID)
	}
	if filter.WorkOrderID != nil {
		query += ` AND work_order_id = ?`
		args = append(args, *filter.WorkOrderID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list inventory requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list inventory requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.InventoryRequest
	for rows.Next() {
		var request entity.InventoryRequest
		var workOrderID, notes sql.NullString

		err := rows.Scan(
			&request.ID,
			&request.WarehouseID,
			&workOrderID,
			&request.RequestedBy,
			&request.Status,
			&notes,
			&request.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory request: %w", err)
		}

		request.WorkOrderID = nullStr(workOrderID)
		request.Notes = nullStr(notes)
		requests = append(requests, &request)
	}

	return requests, rows.Err()
}

// UpdateStatus updates the status of a request
func (r *RequestRepository) UpdateStatus(ctx context.Context, id string, status entity.RequestStatus) error {
	query := `UPDATE inventory_requests SET status = ? WHERE id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update request status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update request status: %w", err)
	}

	return nil
}

// UpdateStatusNotes updates the status and notes of a request together
func (r *RequestRepository) UpdateStatusNotes(ctx context.Context, id string, status entity.RequestStatus, notes *string) error {
	query := `UPDATE inventory_requests SET status = ?, notes = ? WHERE id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, notes, id)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}

	return nil
}

func (r *RequestRepository) loadLines(ctx context.Context, requestID string) ([]entity.RequestLine, error) {
	query := `
		SELECT id, request_id, part_id, needed_qty, notes
		FROM inventory_request_lines
		WHERE request_id = ?
		ORDER BY rowid ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load request lines: %w", err)
	}
	defer rows.Close()

	var lines []entity.RequestLine
	for rows.Next() {
		var line entity.RequestLine
		var notes sql.NullString

		if err := rows.Scan(&line.ID, &line.RequestID, &line.PartID, &line.NeededQty, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan request line: %w", err)
		}

		line.Notes = nullStr(notes)
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
