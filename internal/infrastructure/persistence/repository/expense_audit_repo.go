package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// ExpenseAuditRepository implements port.ExpenseAuditRepository
type ExpenseAuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseAuditRepository creates a new expense audit repository
func NewExpenseAuditRepository(db *sql.DB, logger *zap.Logger) port.ExpenseAuditRepository {
	return &ExpenseAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends one audit row
func (r *ExpenseAuditRepository) Create(ctx context.Context, audit *entity.ExpenseAudit) error {
	query := `
		INSERT INTO cash_expense_audits (
			id, expense_id, action, actor_id, before_state, after_state, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		audit.ID,
		audit.ExpenseID,
		audit.Action,
		audit.ActorID,
		audit.Before,
		audit.After,
		audit.Notes,
		audit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense audit: %w", err)
	}

	return nil
}

// ListByExpense retrieves the audit trail of one expense, oldest first
func (r *ExpenseAuditRepository) ListByExpense(ctx context.Context, expenseID string) ([]*entity.ExpenseAudit, error) {
	query := `
		SELECT id, expense_id, action, actor_id, before_state, after_state, notes, created_at
		FROM cash_expense_audits
		WHERE expense_id = ?
		ORDER BY created_at ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to list expense audits", zap.String("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("failed to list expense audits: %w", err)
	}
	defer rows.Close()

	var audits []*entity.ExpenseAudit
	for rows.Next() {
		var audit entity.ExpenseAudit
		var before, after, notes sql.NullString

		err := rows.Scan(
			&audit.ID,
			&audit.ExpenseID,
			&audit.Action,
			&audit.ActorID,
			&before,
			&after,
			&notes,
			&audit.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense audit: %w", err)
		}

		audit.Before = nullStr(before)
		audit.After = nullStr(after)
		audit.Notes = nullStr(notes)
		audits = append(audits, &audit)
	}

	return audits, rows.Err()
}

// Verify interface compliance
var _ port.ExpenseAuditRepository = (*ExpenseAuditRepository)(nil)
