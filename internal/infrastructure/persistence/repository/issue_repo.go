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

// IssueRepository implements port.IssueRepository
type IssueRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIssueRepository creates a new inventory issue repository
func NewIssueRepository(db *sql.DB, logger *zap.Logger) port.IssueRepository {
	return &IssueRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an issue and its lines
func (r *IssueRepository) Create(ctx context.Context, issue *entity.InventoryIssue) error {
	query := `
		INSERT INTO inventory_issues (
			id, warehouse_id, work_order_id, request_id, issued_by, status, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := getExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, query,
		issue.ID,
		issue.WarehouseID,
		issue.WorkOrderID,
		issue.RequestID,
		issue.IssuedBy,
		issue.Status,
		issue.Notes,
		issue.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create inventory issue", zap.Error(err))
		return fmt.Errorf("failed to create inventory issue: %w", err)
	}

	lineQuery := `
		INSERT INTO inventory_issue_lines (id, issue_id, part_id, part_item_id, qty, unit_cost, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, line := range issue.Lines {
		_, err := exec.ExecContext(ctx, lineQuery,
			line.ID, line.IssueID, line.PartID, line.PartItemID, line.Qty,
			decimalPtrString(line.UnitCost), line.Notes)
		if err != nil {
			r.logger.Error("Failed to create issue line", zap.String("issue_id", issue.ID), zap.Error(err))
			return fmt.Errorf("failed to create issue line: %w", err)
		}
	}

	return nil
}

// GetByID retrieves an issue with its lines, nil when absent
func (r *IssueRepository) GetByID(ctx context.Context, id string) (*entity.InventoryIssue, error) {
	query := `
		SELECT id, warehouse_id, work_order_id, request_id, issued_by, status, notes, posted_at, created_at
		FROM inventory_issues
		WHERE id = ?
	`

	var issue entity.InventoryIssue
	var requestID, notes sql.NullString
	var postedAt sql.NullTime

	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&issue.ID,
		&issue.WarehouseID,
		&issue.WorkOrderID,
		&requestID,
		&issue.IssuedBy,
		&issue.Status,
		&notes,
		&postedAt,
		&issue.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get inventory issue", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get inventory issue: %w", err)
	}

	issue.RequestID = nullStr(requestID)
	issue.Notes = nullStr(notes)
	issue.PostedAt = nullTime(postedAt)

	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	issue.Lines = lines

	return &issue, nil
}

// List retrieves issues matching the filter, newest first, without lines
func (r *IssueRepository) List(ctx context.Context, filter port.IssueFilter) ([]*entity.InventoryIssue, error) {
	query := `
		SELECT id, warehouse_id, work_order_id, request_id, issued_by, status, notes, posted_at, created_at
		FROM inventory_issues
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
	if filter.RequestID != nil {
		query += ` AND request_id = ?`
		args = append(args, *filter.RequestID)
	}
	if filter.WorkOrderID != nil {
		query += ` AND work_order_id = ?`
		args = append(args, *filter.WorkOrderID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list inventory issues", zap.Error(err))
		return nil, fmt.Errorf("failed to list inventory issues: %w", err)
	}
	defer rows.Close()

	var issues []*entity.InventoryIssue
	for rows.Next() {
		var issue entity.InventoryIssue
		var requestID, notes sql.NullString
		var postedAt sql.NullTime

		err := rows.Scan(
			&issue.ID,
			&issue.WarehouseID,
			&issue.WorkOrderID,
			&requestID,
			&issue.IssuedBy,
			&issue.Status,
			&notes,
			&postedAt,
			&issue.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory issue: %w", err)
		}

		issue.RequestID = nullStr(requestID)
		issue.Notes = nullStr(notes)
		issue.PostedAt = nullTime(postedAt)
		issues = append(issues, &issue)
	}

	return issues, rows.Err()
}

// MarkPosted sets status POSTED and stamps the post time
func (r *IssueRepository) MarkPosted(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE inventory_issues SET status = ?, posted_at = ? WHERE id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, entity.IssuePosted, at, id)
	if err != nil {
		r.logger.Error("Failed to mark issue posted", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark issue posted: %w", err)
	}

	return nil
}

// PostedQtyByWorkOrder returns part_id -> total qty on POSTED issues of one
// work order
func (r *IssueRepository) PostedQtyByWorkOrder(ctx context.Context, workOrderID string) (map[string]int, error) {
	query := `
		SELECT l.part_id, SUM(l.qty)
		FROM inventory_issue_lines l
		JOIN inventory_issues i ON i.id = l.issue_id
		WHERE i.work_order_id = ? AND i.status = ?
		GROUP BY l.part_id
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, workOrderID, entity.IssuePosted)
	if err != nil {
		r.logger.Error("Failed to sum posted quantities", zap.String("work_order_id", workOrderID), zap.Error(err))
		return nil, fmt.Errorf("failed to sum posted quantities: %w", err)
	}
	defer rows.Close()

	qty := make(map[string]int)
	for rows.Next() {
		var partID string
		var total int
		if err := rows.Scan(&partID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan posted quantity: %w", err)
		}
		qty[partID] = total
	}

	return qty, rows.Err()
}

// PostedItemIDsByWorkOrder returns the serial units issued to a work order
// through POSTED issues
func (r *IssueRepository) PostedItemIDsByWorkOrder(ctx context.Context, workOrderID string) (map[string]bool, error) {
	query := `
		SELECT l.part_item_id
		FROM inventory_issue_lines l
		JOIN inventory_issues i ON i.id = l.issue_id
		WHERE i.work_order_id = ? AND i.status = ?
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, workOrderID, entity.IssuePosted)
	if err != nil {
		r.logger.Error("Failed to list posted item ids", zap.String("work_order_id", workOrderID), zap.Error(err))
		return nil, fmt.Errorf("failed to list posted item ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var itemID string
		if err := rows.Scan(&itemID); err != nil {
			return nil, fmt.Errorf("failed to scan posted item id: %w", err)
		}
		ids[itemID] = true
	}

	return ids, rows.Err()
}

func (r *IssueRepository) loadLines(ctx context.Context, issueID string) ([]entity.IssueLine, error) {
	query := `
		SELECT id, issue_id, part_id, part_item_id, qty, unit_cost, notes
		FROM inventory_issue_lines
		WHERE issue_id = ?
		ORDER BY rowid ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load issue lines: %w", err)
	}
	defer rows.Close()

	var lines []entity.IssueLine
	for rows.Next() {
		var line entity.IssueLine
		var unitCost, notes sql.NullString

		if err := rows.Scan(&line.ID, &line.IssueID, &line.PartID, &line.PartItemID, &line.Qty, &unitCost, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan issue line: %w", err)
		}

		if unitCost.Valid {
			d, err := parseDecimal(unitCost.String)
			if err != nil {
				return nil, err
			}
			line.UnitCost = &d
		}
		line.Notes = nullStr(notes)
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

// Verify interface compliance
var _ port.IssueRepository = (*IssueRepository)(nil)
