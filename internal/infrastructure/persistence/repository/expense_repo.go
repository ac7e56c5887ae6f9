package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseColumns = `
	id, payment_source, amount, cash_advance_id, trip_id, vehicle_id,
	maintenance_work_order_id, expense_type, notes, receipt_url,
	approval_status, created_by,
	approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	appealed_by, appealed_at, appeal_reason, resolved_by, resolved_at,
	vendor_name, invoice_no, invoice_date, paid_method, payment_ref,
	vat_amount, invoice_total, created_at
`

// Create inserts a new cash expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.CashExpense) error {
	query := `
		INSERT INTO cash_expenses (
			id, payment_source, amount, cash_advance_id, trip_id, vehicle_id,
			maintenance_work_order_id, expense_type, notes, receipt_url,
			approval_status, created_by,
			vendor_name, invoice_no, invoice_date, paid_method, payment_ref,
			vat_amount, invoice_total, created_at
		) VALUES (` + placeholders(20) + `)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		expense.ID,
		expense.PaymentSource,
		expense.Amount.String(),
		expense.CashAdvanceID,
		expense.TripID,
		expense.VehicleID,
		expense.WorkOrderID,
		expense.ExpenseType,
		expense.Notes,
		expense.ReceiptURL,
		expense.ApprovalStatus,
		expense.CreatedBy,
		expense.VendorName,
		expense.InvoiceNo,
		expense.InvoiceDate,
		expense.PaidMethod,
		expense.PaymentRef,
		decimalPtrString(expense.VATAmount),
		decimalPtrString(expense.InvoiceTotal),
		expense.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	return nil
}

// GetByID retrieves a cash expense by ID, nil when absent
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*entity.CashExpense, error) {
	query := `SELECT ` + expenseColumns + ` FROM cash_expenses WHERE id = ?`

	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id)
	expense, err := scanExpense(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// List retrieves cash expenses matching the filter, newest first
func (r *ExpenseRepository) List(ctx context.Context, filter port.ExpenseFilter) ([]*entity.CashExpense, error) {
	query := `SELECT ` + expenseColumns + ` FROM cash_expenses` + filterClause(filter)
	args := filterArgs(filter)

	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.CashExpense
	for rows.Next() {
		expense, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

// Update writes all mutable approval fields of the expense row
func (r *ExpenseRepository) Update(ctx context.Context, expense *entity.CashExpense) error {
	query := `
		UPDATE cash_expenses
		SET approval_status = ?,
			approved_by = ?, approved_at = ?,
			rejected_by = ?, rejected_at = ?, rejection_reason = ?,
			appealed_by = ?, appealed_at = ?, appeal_reason = ?,
			resolved_by = ?, resolved_at = ?
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		expense.ApprovalStatus,
		expense.ApprovedBy,
		expense.ApprovedAt,
		expense.RejectedBy,
		expense.RejectedAt,
		expense.RejectionReason,
		expense.AppealedBy,
		expense.AppealedAt,
		expense.AppealReason,
		expense.ResolvedBy,
		expense.ResolvedAt,
		expense.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update expense", zap.String("id", expense.ID), zap.Error(err))
		return fmt.Errorf("failed to update expense: %w", err)
	}

	return nil
}

// CountOpenByAdvance counts PENDING and APPEALED expenses under an advance
func (r *ExpenseRepository) CountOpenByAdvance(ctx context.Context, advanceID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM cash_expenses
		WHERE cash_advance_id = ? AND approval_status IN (?, ?)
	`

	var count int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query,
		advanceID, entity.ExpensePending, entity.ExpenseAppealed).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count open expenses", zap.String("advance_id", advanceID), zap.Error(err))
		return 0, fmt.Errorf("failed to count open expenses: %w", err)
	}

	return count, nil
}

// SumSettledByAdvance sums APPROVED and REAPPROVED expense amounts. Amounts
// are summed as decimals in Go, never in SQL, so no float drift enters the
// settlement arithmetic.
func (r *ExpenseRepository) SumSettledByAdvance(ctx context.Context, advanceID string) (decimal.Decimal, error) {
	sums, err := r.SumSettledByAdvanceIDs(ctx, []string{advanceID})
	if err != nil {
		return decimal.Zero, err
	}
	sum, ok := sums[advanceID]
	if !ok {
		return decimal.Zero, nil
	}
	return sum, nil
}

// SumSettledByAdvanceIDs sums settled expense amounts grouped by advance
func (r *ExpenseRepository) SumSettledByAdvanceIDs(ctx context.Context, advanceIDs []string) (map[string]decimal.Decimal, error) {
	if len(advanceIDs) == 0 {
		return map[string]decimal.Decimal{}, nil
	}

	query := `
		SELECT cash_advance_id, amount FROM cash_expenses
		WHERE cash_advance_id IN (` + placeholders(len(advanceIDs)) + `)
		AND approval_status IN (?, ?)
	`
	args := make([]interface{}, 0, len(advanceIDs)+2)
	for _, id := range advanceIDs {
		args = append(args, id)
	}
	args = append(args, entity.ExpenseApproved, entity.ExpenseReapproved)

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to sum settled expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to sum settled expenses: %w", err)
	}
	defer rows.Close()

	sums := make(map[string]decimal.Decimal)
	for rows.Next() {
		var advanceID, amount string
		if err := rows.Scan(&advanceID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan settled expense: %w", err)
		}
		d, err := parseDecimal(amount)
		if err != nil {
			return nil, err
		}
		sums[advanceID] = sums[advanceID].Add(d)
	}

	return sums, rows.Err()
}

// SumsByStatus aggregates sums and counts per approval status
func (r *ExpenseRepository) SumsByStatus(ctx context.Context, filter port.ExpenseFilter) (map[entity.ApprovalStatus]port.StatusTotal, error) {
	query := `SELECT approval_status, amount FROM cash_expenses` + filterClause(filter)

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, filterArgs(filter)...)
	if err != nil {
		r.logger.Error("Failed to aggregate expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate expenses: %w", err)
	}
	defer rows.Close()

	totals := make(map[entity.ApprovalStatus]port.StatusTotal)
	for rows.Next() {
		var status entity.ApprovalStatus
		var amount string
		if err := rows.Scan(&status, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan expense aggregate: %w", err)
		}
		d, err := parseDecimal(amount)
		if err != nil {
			return nil, err
		}
		t := totals[status]
		t.Sum = t.Sum.Add(d)
		t.Count++
		totals[status] = t
	}

	return totals, rows.Err()
}

// TripTotals aggregates one trip's expenses by approval bucket and payment
// source
func (r *ExpenseRepository) TripTotals(ctx context.Context, tripID string) (*port.TripExpenseTotals, error) {
	query := `SELECT payment_source, approval_status, amount FROM cash_expenses WHERE trip_id = ?`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, tripID)
	if err != nil {
		r.logger.Error("Failed to aggregate trip expenses", zap.String("trip_id", tripID), zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate trip expenses: %w", err)
	}
	defer rows.Close()

	totals := &port.TripExpenseTotals{}
	for rows.Next() {
		var source entity.PaymentSource
		var status entity.ApprovalStatus
		var amount string
		if err := rows.Scan(&source, &status, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan trip expense: %w", err)
		}
		d, err := parseDecimal(amount)
		if err != nil {
			return nil, err
		}

		totals.TotalRecorded = totals.TotalRecorded.Add(d)
		switch {
		case status.IsSettled():
			totals.TotalApproved = totals.TotalApproved.Add(d)
			if source == entity.PaymentAdvance {
				totals.ApprovedAdvance = totals.ApprovedAdvance.Add(d)
			} else {
				totals.ApprovedCompany = totals.ApprovedCompany.Add(d)
			}
		case status.IsOpen():
			totals.TotalPending = totals.TotalPending.Add(d)
		default:
			totals.TotalRejected = totals.TotalRejected.Add(d)
		}
	}

	return totals, rows.Err()
}

func filterClause(filter port.ExpenseFilter) string {
	clause := ` WHERE 1=1`
	if filter.Status != nil {
		clause += ` AND approval_status = ?`
	}
	if filter.PaymentSource != nil {
		clause += ` AND payment_source = ?`
	}
	if filter.CreatedBy != nil {
		clause += ` AND created_by = ?`
	}
	if filter.AdvanceID != nil {
		clause += ` AND cash_advance_id = ?`
	}
	if filter.TripID != nil {
		clause += ` AND trip_id = ?`
	}
	if filter.Search != "" {
		clause += ` AND (expense_type LIKE ? OR notes LIKE ?)`
	}
	return clause
}

func filterArgs(filter port.ExpenseFilter) []interface{} {
	var args []interface{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
	}
	if filter.PaymentSource != nil {
		args = append(args, *filter.PaymentSource)
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
	}
	if filter.AdvanceID != nil {
		args = append(args, *filter.AdvanceID)
	}
	if filter.TripID != nil {
		args = append(args, *filter.TripID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}
	return args
}

func decimalPtrString(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func scanExpense(scan func(dest ...interface{}) error) (*entity.CashExpense, error) {
	var e entity.CashExpense
	var amount string
	var cashAdvanceID, tripID, vehicleID, workOrderID, notes, receiptURL sql.NullString
	var approvedBy, rejectedBy, rejectionReason, appealedBy, appealReason, resolvedBy sql.NullString
	var approvedAt, rejectedAt, appealedAt, resolvedAt sql.NullTime
	var vendorName, invoiceNo, paidMethod, paymentRef, vatAmount, invoiceTotal sql.NullString
	var invoiceDate sql.NullTime

	err := scan(
		&e.ID,
		&e.PaymentSource,
		&amount,
		&cashAdvanceID,
		&tripID,
		&vehicleID,
		&workOrderID,
		&e.ExpenseType,
		&notes,
		&receiptURL,
		&e.ApprovalStatus,
		&e.CreatedBy,
		&approvedBy,
		&approvedAt,
		&rejectedBy,
		&rejectedAt,
		&rejectionReason,
		&appealedBy,
		&appealedAt,
		&appealReason,
		&resolvedBy,
		&resolvedAt,
		&vendorName,
		&invoiceNo,
		&invoiceDate,
		&paidMethod,
		&paymentRef,
		&vatAmount,
		&invoiceTotal,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Amount, err = parseDecimal(amount)
	if err != nil {
		return nil, err
	}

	e.CashAdvanceID = nullStr(cashAdvanceID)
	e.TripID = nullStr(tripID)
	e.VehicleID = nullStr(vehicleID)
	e.WorkOrderID = nullStr(workOrderID)
	e.Notes = nullStr(notes)
	e.ReceiptURL = nullStr(receiptURL)
	e.ApprovedBy = nullStr(approvedBy)
	e.RejectedBy = nullStr(rejectedBy)
	e.RejectionReason = nullStr(rejectionReason)
	e.AppealedBy = nullStr(appealedBy)
	e.AppealReason = nullStr(appealReason)
	e.ResolvedBy = nullStr(resolvedBy)
	e.VendorName = nullStr(vendorName)
	e.InvoiceNo = nullStr(invoiceNo)
	e.PaidMethod = nullStr(paidMethod)
	e.PaymentRef = nullStr(paymentRef)
	e.ApprovedAt = nullTime(approvedAt)
	e.RejectedAt = nullTime(rejectedAt)
	e.AppealedAt = nullTime(appealedAt)
	e.ResolvedAt = nullTime(resolvedAt)
	e.InvoiceDate = nullTime(invoiceDate)

	if vatAmount.Valid {
		d, err := parseDecimal(vatAmount.String)
		if err != nil {
			return nil, err
		}
		e.VATAmount = &d
	}
	if invoiceTotal.Valid {
		d, err := parseDecimal(invoiceTotal.String)
		if err != nil {
			return nil, err
		}
		e.InvoiceTotal = &d
	}

	return &e, nil
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
