package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// AdvanceRepository implements port.AdvanceRepository
type AdvanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdvanceRepository creates a new advance repository
func NewAdvanceRepository(db *sql.DB, logger *zap.Logger) port.AdvanceRepository {
	return &AdvanceRepository{
		db:     db,
		logger: logger,
	}
}

const advanceColumns = `
	id, amount, status, field_supervisor_id, issued_by,
	settlement_type, settlement_amount, settlement_reference, settlement_notes,
	settled_at, settled_by, created_at
`

// Create inserts a new cash advance
func (r *AdvanceRepository) Create(ctx context.Context, advance *entity.CashAdvance) error {
	query := `
		INSERT INTO cash_advances (
			id, amount, status, field_supervisor_id, issued_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		advance.ID,
		advance.Amount.String(),
		advance.Status,
		advance.FieldSupervisorID,
		advance.IssuedBy,
		advance.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create cash advance", zap.Error(err))
		return fmt.Errorf("failed to create cash advance: %w", err)
	}

	return nil
}

// GetByID retrieves a cash advance by ID, nil when absent
func (r *AdvanceRepository) GetByID(ctx context.Context, id string) (*entity.CashAdvance, error) {
	query := `SELECT ` + advanceColumns + ` FROM cash_advances WHERE id = ?`

	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id)
	advance, err := scanAdvance(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get cash advance", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get cash advance: %w", err)
	}

	return advance, nil
}

// List retrieves cash advances matching the filter, newest first
func (r *AdvanceRepository) List(ctx context.Context, filter port.AdvanceFilter) ([]*entity.CashAdvance, error) {
	query := `SELECT ` + advanceColumns + ` FROM cash_advances WHERE 1=1`
	var args []interface{}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, *filter.Status)
	}
	if filter.SupervisorID != nil {
		query += ` AND field_supervisor_id = ?`
		args = append(args, *filter.SupervisorID)
	}
	if filter.Search != "" {
		query += ` AND id LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list cash advances", zap.Error(err))
		return nil, fmt.Errorf("failed to list cash advances: %w", err)
	}
	defer rows.Close()

	var advances []*entity.CashAdvance
	for rows.Next() {
		advance, err := scanAdvance(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cash advance: %w", err)
		}
		advances = append(advances, advance)
	}

	return advances, rows.Err()
}

// UpdateStatus updates the status of a cash advance
func (r *AdvanceRepository) UpdateStatus(ctx context.Context, id string, status entity.AdvanceStatus) error {
	query := `UPDATE cash_advances SET status = ? WHERE id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update advance status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update advance status: %w", err)
	}

	return nil
}

// Close stamps all settlement fields and sets status CLOSED in one update
func (r *AdvanceRepository) Close(ctx context.Context, id string, settlement entity.Settlement) error {
	query := `
		UPDATE cash_advances
		SET status = ?, settlement_type = ?, settlement_amount = ?,
			settlement_reference = ?, settlement_notes = ?,
			settled_at = ?, settled_by = ?
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entity.AdvanceClosed,
		settlement.Type,
		settlement.Amount.String(),
		settlement.Reference,
		settlement.Notes,
		settlement.SettledAt,
		settlement.SettledBy,
		id,
	)
	if err != nil {
		r.logger.Error("Failed to close cash advance", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to close cash advance: %w", err)
	}

	return nil
}

// Reopen clears all settlement fields and sets status IN_REVIEW
func (r *AdvanceRepository) Reopen(ctx context.Context, id string) error {
	query := `
		UPDATE cash_advances
		SET status = ?, settlement_type = NULL, settlement_amount = NULL,
			settlement_reference = NULL, settlement_notes = NULL,
			settled_at = NULL, settled_by = NULL
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, entity.AdvanceInReview, id)
	if err != nil {
		r.logger.Error("Failed to reopen cash advance", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to reopen cash advance: %w", err)
	}

	return nil
}

func scanAdvance(scan func(dest ...interface{}) error) (*entity.CashAdvance, error) {
	var advance entity.CashAdvance
	var amount string
	var settlementType, settlementAmount, settlementReference, settlementNotes, settledBy sql.NullString
	var settledAt sql.NullTime

	err := scan(
		&advance.ID,
		&amount,
		&advance.Status,
		&advance.FieldSupervisorID,
		&advance.IssuedBy,
		&settlementType,
		&settlementAmount,
		&settlementReference,
		&settlementNotes,
		&settledAt,
		&settledBy,
		&advance.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	advance.Amount, err = parseDecimal(amount)
	if err != nil {
		return nil, err
	}
	if settlementType.Valid {
		t := entity.SettlementType(settlementType.String)
		advance.SettlementType = &t
	}
	if settlementAmount.Valid {
		d, err := parseDecimal(settlementAmount.String)
		if err != nil {
			return nil, err
		}
		advance.SettlementAmount = &d
	}
	if settlementReference.Valid {
		advance.SettlementReference = &settlementReference.String
	}
	if settlementNotes.Valid {
		advance.SettlementNotes = &settlementNotes.String
	}
	if settledAt.Valid {
		advance.SettledAt = &settledAt.Time
	}
	if settledBy.Valid {
		advance.SettledBy = &settledBy.String
	}

	return &advance, nil
}

// Verify interface compliance
var _ port.AdvanceRepository = (*AdvanceRepository)(nil)
