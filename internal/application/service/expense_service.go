package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
	"github.com/fleetworks/fleet-finance/internal/domain/workflow"
)

// CreateExpenseInput carries everything a caller may supply when recording a
// spend event. Invoice fields apply to COMPANY expenses only.
type CreateExpenseInput struct {
	PaymentSource entity.PaymentSource
	Amount        decimal.Decimal
	CashAdvanceID *string
	TripID        *string
	VehicleID     *string
	WorkOrderID   *string
	ExpenseType   string
	Notes         *string
	ReceiptURL    *string

	VendorName   *string
	InvoiceNo    *string
	InvoiceDate  *time.Time
	PaidMethod   *string
	PaymentRef   *string
	VATAmount    *decimal.Decimal
	InvoiceTotal *decimal.Decimal
}

// AppealDecision is the accountant's verdict on an appealed expense.
type AppealDecision string

const (
	AppealDecisionApprove AppealDecision = "APPROVE"
	AppealDecisionReject  AppealDecision = "REJECT"
)

// ExpenseSummary aggregates expenses by approval bucket.
type ExpenseSummary struct {
	ByStatus map[entity.ApprovalStatus]port.StatusTotal `json:"by_status"`
}

// ExpenseService owns the expense approval lifecycle: who may record spend,
// who may approve it, and the appeal cycle after rejection.
type ExpenseService interface {
	Create(ctx context.Context, actor entity.Actor, input CreateExpenseInput) (*entity.CashExpense, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.CashExpense, error)
	List(ctx context.Context, actor entity.Actor, filter port.ExpenseFilter) ([]*entity.CashExpense, error)
	Summary(ctx context.Context, actor entity.Actor, filter port.ExpenseFilter) (*ExpenseSummary, error)
	Approve(ctx context.Context, actor entity.Actor, id string, notes *string) (*entity.CashExpense, error)
	Reject(ctx context.Context, actor entity.Actor, id string, reason string) (*entity.CashExpense, error)
	Appeal(ctx context.Context, actor entity.Actor, id string, reason string) (*entity.CashExpense, error)
	ResolveAppeal(ctx context.Context, actor entity.Actor, id string, decision AppealDecision, notes *string) (*entity.CashExpense, error)
	Reopen(ctx context.Context, actor entity.Actor, id string) (*entity.CashExpense, error)
	AuditTrail(ctx context.Context, actor entity.Actor, id string) ([]*entity.ExpenseAudit, error)
}

type expenseServiceImpl struct {
	expenseRepo  port.ExpenseRepository
	advanceRepo  port.AdvanceRepository
	auditRepo    port.ExpenseAuditRepository
	tripSvc      port.TripService
	portfolioSvc port.VehiclePortfolioService
	workOrderSvc port.WorkOrderService
	capabilities port.Capabilities
	txManager    port.TransactionManager
	logger       Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	advanceRepo port.AdvanceRepository,
	auditRepo port.ExpenseAuditRepository,
	tripSvc port.TripService,
	portfolioSvc port.VehiclePortfolioService,
	workOrderSvc port.WorkOrderService,
	capabilities port.Capabilities,
	txManager port.TransactionManager,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		expenseRepo:  expenseRepo,
		advanceRepo:  advanceRepo,
		auditRepo:    auditRepo,
		tripSvc:      tripSvc,
		portfolioSvc: portfolioSvc,
		workOrderSvc: workOrderSvc,
		capabilities: capabilities,
		txManager:    txManager,
		logger:       logger,
	}
}

// Create records a PENDING expense. COMPANY spend is recorded by accountants
// against an invoice; ADVANCE spend is recorded by a field supervisor against
// their own OPEN advance.
func (s *expenseServiceImpl) Create(ctx context.Context, actor entity.Actor, input CreateExpenseInput) (*entity.CashExpense, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !input.PaymentSource.IsValid() {
		return nil, apperr.Validation("payment_source must be ADVANCE or COMPANY")
	}
	if input.Amount.Cmp(decimal.Zero) <= 0 {
		return nil, apperr.Validation("amount must be greater than 0")
	}
	if strings.TrimSpace(input.ExpenseType) == "" {
		return nil, apperr.Validation("expense_type is required")
	}

	vehicleID := input.VehicleID
	if input.WorkOrderID != nil {
		if !isUUID(*input.WorkOrderID) {
			return nil, apperr.Validation("invalid maintenance_work_order_id")
		}
		wo, err := s.workOrderSvc.GetWorkOrder(ctx, *input.WorkOrderID)
		if err != nil {
			return nil, err
		}
		if wo == nil {
			return nil, apperr.NotFound("work order")
		}
		// fall back to the work order's vehicle when none was given
		if vehicleID == nil {
			vehicleID = &wo.VehicleID
		}
	}
	if input.TripID != nil && !isUUID(*input.TripID) {
		return nil, apperr.Validation("invalid trip_id")
	}
	if vehicleID != nil && !isUUID(*vehicleID) {
		return nil, apperr.Validation("invalid vehicle_id")
	}

	switch input.PaymentSource {
	case entity.PaymentCompany:
		if err := s.validateCompanyCreate(ctx, actor, input); err != nil {
			return nil, err
		}
	case entity.PaymentAdvance:
		if err := s.validateAdvanceCreate(ctx, actor, input); err != nil {
			return nil, err
		}
	}

	expense := &entity.CashExpense{
		ID:             uuid.NewString(),
		PaymentSource:  input.PaymentSource,
		Amount:         input.Amount,
		TripID:         input.TripID,
		VehicleID:      vehicleID,
		WorkOrderID:    input.WorkOrderID,
		ExpenseType:    strings.TrimSpace(input.ExpenseType),
		Notes:          input.Notes,
		ReceiptURL:     input.ReceiptURL,
		ApprovalStatus: entity.ExpensePending,
		CreatedBy:      actor.ID,
		CreatedAt:      time.Now(),
	}
	if input.PaymentSource == entity.PaymentAdvance {
		expense.CashAdvanceID = input.CashAdvanceID
	} else {
		expense.VendorName = input.VendorName
		expense.InvoiceNo = input.InvoiceNo
		expense.InvoiceDate = input.InvoiceDate
		expense.PaidMethod = input.PaidMethod
		expense.PaymentRef = input.PaymentRef
		expense.VATAmount = input.VATAmount
		expense.InvoiceTotal = input.InvoiceTotal
	}

	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		s.logger.Error("Failed to create expense", "error", err, "actor_id", actor.ID)
		return nil, apperr.Internal(err)
	}

	s.logger.Info("Expense created",
		"id", expense.ID, "payment_source", string(expense.PaymentSource), "amount", expense.Amount.String())
	return expense, nil
}

func (s *expenseServiceImpl) validateCompanyCreate(ctx context.Context, actor entity.Actor, input CreateExpenseInput) error {
	if !actor.IsPrivileged() {
		return apperr.NotAuthorized("only ADMIN or ACCOUNTANT can record COMPANY expenses")
	}
	if input.CashAdvanceID != nil {
		return apperr.Validation("cash_advance_id is not allowed for COMPANY expenses")
	}
	if input.VendorName == nil || len(strings.TrimSpace(*input.VendorName)) < 2 {
		return apperr.Validation("vendor_name is required (at least 2 characters)")
	}
	if input.TripID != nil {
		status, err := s.tripSvc.GetFinancialStatus(ctx, *input.TripID)
		if err != nil {
			return err
		}
		if status.IsLocked() {
			return apperr.Conflict("trip finances are %s; expenses can no longer be recorded", status)
		}
	}
	return nil
}

func (s *expenseServiceImpl) validateAdvanceCreate(ctx context.Context, actor entity.Actor, input CreateExpenseInput) error {
	if input.CashAdvanceID == nil || !isUUID(*input.CashAdvanceID) {
		return apperr.Validation("cash_advance_id is required and must be uuid")
	}
	advance, err := s.advanceRepo.GetByID(ctx, *input.CashAdvanceID)
	if err != nil {
		return apperr.Internal(err)
	}
	if advance == nil {
		return apperr.NotFound("cash advance")
	}
	if advance.FieldSupervisorID != actor.ID {
		return apperr.Forbidden("cash advance belongs to a different supervisor")
	}
	if advance.Status != entity.AdvanceOpen {
		return apperr.WrongState("cash advance must be OPEN to record expenses (current: %s)", advance.Status)
	}

	if input.TripID != nil {
		status, err := s.tripSvc.GetFinancialStatus(ctx, *input.TripID)
		if err != nil {
			return err
		}
		if status.IsLocked() {
			return apperr.Conflict("trip finances are %s; expenses can no longer be recorded", status)
		}
		assigned, err := s.tripSvc.IsAssignedSupervisor(ctx, *input.TripID, input.VehicleID, actor.ID)
		if err != nil {
			return err
		}
		if !assigned {
			return apperr.Forbidden("you were never assigned to this trip")
		}
	} else if input.VehicleID != nil {
		// only a vehicle the caller named directly is portfolio-checked; the
		// vehicle inferred from a linked work order is stored but not gated
		inPortfolio, err := s.portfolioSvc.IsInActivePortfolio(ctx, *input.VehicleID, actor.ID)
		if err != nil {
			return err
		}
		if !inPortfolio {
			return apperr.Forbidden("vehicle is not in your active portfolio")
		}
	}
	return nil
}

// Get loads an expense; non-privileged callers may only read their own.
func (s *expenseServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.CashExpense, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	expense, err := s.loadExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() && expense.CreatedBy != actor.ID {
		return nil, apperr.Forbidden("forbidden")
	}
	return expense, nil
}

// List returns expenses, scoped to the caller's own when not privileged.
func (s *expenseServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.ExpenseFilter) ([]*entity.CashExpense, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		filter.CreatedBy = &actor.ID
	}
	expenses, err := s.expenseRepo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return expenses, nil
}

// Summary aggregates sums and counts per approval status under List scoping.
func (s *expenseServiceImpl) Summary(ctx context.Context, actor entity.Actor, filter port.ExpenseFilter) (*ExpenseSummary, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		filter.CreatedBy = &actor.ID
	}
	byStatus, err := s.expenseRepo.SumsByStatus(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &ExpenseSummary{ByStatus: byStatus}, nil
}

// Approve accepts a PENDING or APPEALED expense. PENDING becomes APPROVED,
// APPEALED becomes REAPPROVED. Any previous rejection is cleared.
func (s *expenseServiceImpl) Approve(ctx context.Context, actor entity.Actor, id string, notes *string) (*entity.CashExpense, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		return nil, apperr.NotAuthorized("only ADMIN or ACCOUNTANT can approve expenses")
	}

	var result *entity.CashExpense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		expense, err := s.loadExpense(txCtx, id)
		if err != nil {
			return err
		}

		machine := workflow.ExpenseLifecycle().Build(workflow.State(expense.ApprovalStatus))
		if err := machine.Fire(txCtx, workflow.TriggerApprove); err != nil {
			return apperr.WrongState("expense must be PENDING or APPEALED to approve (current: %s)", expense.ApprovalStatus)
		}

		before := snapshot(expense)
		action := entity.AuditActionApprove
		if expense.ApprovalStatus == entity.ExpenseAppealed {
			action = entity.AuditActionReapprove
		}
		expense.ApprovalStatus = entity.ApprovalStatus(machine.State())

		now := time.Now()
		expense.ApprovedBy = &actor.ID
		expense.ApprovedAt = &now
		expense.ResolvedBy = &actor.ID
		expense.ResolvedAt = &now
		expense.RejectedBy = nil
		expense.RejectedAt = nil
		expense.RejectionReason = nil

		if err := s.expenseRepo.Update(txCtx, expense); err != nil {
			return apperr.Internal(err)
		}
		s.writeAudit(txCtx, expense, action, actor.ID, before, notes)
		result = expense
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Expense approved", "id", id, "status", string(result.ApprovalStatus), "actor_id", actor.ID)
	return result, nil
}

// Reject declines a PENDING or APPEALED expense with a mandatory reason.
func (s *expenseServiceImpl) Reject(ctx context.Context, actor entity.Actor, id string, reason string) (*entity.CashExpense, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		return nil, apperr.NotAuthorized("only ADMIN or ACCOUNTANT can reject expenses")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}

	var result *entity.CashExpense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		expense, err := s.loadExpense(txCtx, id)
		if err != nil {
			return err
		}

		machine := workflow.ExpenseLifecycle().Build(workflow.State(expense.ApprovalStatus))
		if err := machine.Fire(txCtx, workflow.TriggerReject); err != nil {
			return apperr.WrongState("expense must be PENDING or APPEALED to reject (current: %s)", expense.ApprovalStatus)
		}

		before := snapshot(expense)
		expense.ApprovalStatus = entity.ExpenseRejected

		now := time.Now()
		expense.RejectedBy = &actor.ID
		expense.RejectedAt = &now
		expense.RejectionReason = &reason
		expense.ResolvedBy = &actor.ID
		expense.ResolvedAt = &now

		if err := s.expenseRepo.Update(txCtx, expense); err != nil {
			return apperr.Internal(err)
		}
		s.writeAudit(txCtx, expense, entity.AuditActionReject, actor.ID, before, &reason)
		result = expense
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Expense rejected", "id", id, "actor_id", actor.ID)
	return result, nil
}

// Appeal reopens review of a REJECTED expense. Only the expense owner, the
// advance's supervisor, or a privileged actor may appeal.
func (s *expenseServiceImpl) Appeal(ctx context.Context, actor entity.Actor, id string, reason string) (*entity.CashExpense, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("appeal reason is required")
	}

	var result *entity.CashExpense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		expense, err := s.loadExpense(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.checkAppealOwnership(txCtx, actor, expense); err != nil {
			return err
		}

		machine := workflow.ExpenseLifecycle().Build(workflow.State(expense.ApprovalStatus))
		if err := machine.Fire(txCtx, workflow.TriggerAppeal); err != nil {
			return apperr.WrongState("only REJECTED expenses can be appealed (current: %s)", expense.ApprovalStatus)
		}

		before := snapshot(expense)
		expense.ApprovalStatus = entity.ExpenseAppealed

		now := time.Now()
		expense.AppealedBy = &actor.ID
		expense.AppealedAt = &now
		expense.AppealReason = &reason
		expense.ResolvedBy = nil
		expense.ResolvedAt = nil

		if err := s.expenseRepo.Update(txCtx, expense); err != nil {
			return apperr.Internal(err)
		}
		s.writeAudit(txCtx, expense, entity.AuditActionAppeal, actor.ID, before, &reason)
		result = expense
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Expense appealed", "id", id, "actor_id", actor.ID)
	return result, nil
}

func (s *expenseServiceImpl) checkAppealOwnership(ctx context.Context, actor entity.Actor, expense *entity.CashExpense) error {
	if actor.IsPrivileged() || expense.CreatedBy == actor.ID {
		return nil
	}
	if expense.CashAdvanceID != nil {
		advance, err := s.advanceRepo.GetByID(ctx, *expense.CashAdvanceID)
		if err != nil {
			return apperr.Internal(err)
		}
		if advance != nil && advance.FieldSupervisorID == actor.ID {
			return nil
		}
	}
	return apperr.Forbidden("only the expense owner or the advance's supervisor can appeal")
}

// ResolveAppeal settles an APPEALED expense: APPROVE makes it REAPPROVED,
// REJECT makes it REJECTED again with notes as the new rejection reason.
// Appeal fields are left untouched so the history stays readable.
func (s *expenseServiceImpl) ResolveAppeal(ctx context.Context, actor entity.Actor, id string, decision AppealDecision, notes *string) (*entity.CashExpense, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		return nil, apperr.NotAuthorized("only ADMIN or ACCOUNTANT can resolve appeals")
	}
	if decision != AppealDecisionApprove && decision != AppealDecisionReject {
		return nil, apperr.Validation("decision must be APPROVE or REJECT")
	}
	if decision == AppealDecisionReject && (notes == nil || strings.TrimSpace(*notes) == "") {
		return nil, apperr.Validation("rejection reason is required when resolving an appeal with REJECT")
	}

	var result *entity.CashExpense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		expense, err := s.loadExpense(txCtx, id)
		if err != nil {
			return err
		}
		if expense.ApprovalStatus != entity.ExpenseAppealed {
			return apperr.WrongState("only APPEALED expenses can be resolved (current: %s)", expense.ApprovalStatus)
		}

		before := snapshot(expense)
		now := time.Now()
		expense.ResolvedBy = &actor.ID
		expense.ResolvedAt = &now

		var action string
		if decision == AppealDecisionApprove {
			action = entity.AuditActionResolveAppealOK
			expense.ApprovalStatus = entity.ExpenseReapproved
			expense.ApprovedBy = &actor.ID
			expense.ApprovedAt = &now
			expense.RejectedBy = nil
			expense.RejectedAt = nil
			expense.RejectionReason = nil
		} else {
			action = entity.AuditActionResolveAppealFail
			expense.ApprovalStatus = entity.ExpenseRejected
			reason := strings.TrimSpace(*notes)
			expense.RejectedBy = &actor.ID
			expense.RejectedAt = &now
			expense.RejectionReason = &reason
		}

		if err := s.expenseRepo.Update(txCtx, expense); err != nil {
			return apperr.Internal(err)
		}
		s.writeAudit(txCtx, expense, action, actor.ID, before, notes)
		result = expense
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Expense appeal resolved", "id", id, "decision", string(decision), "actor_id", actor.ID)
	return result, nil
}

// Reopen returns a REJECTED expense to PENDING with a clean slate: every
// rejection, appeal, and resolution field is cleared.
func (s *expenseServiceImpl) Reopen(ctx context.Context, actor entity.Actor, id string) (*entity.CashExpense, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		return nil, apperr.NotAuthorized("only ADMIN or ACCOUNTANT can reopen expenses")
	}

	var result *entity.CashExpense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		expense, err := s.loadExpense(txCtx, id)
		if err != nil {
			return err
		}

		machine := workflow.ExpenseLifecycle().Build(workflow.State(expense.ApprovalStatus))
		if err := machine.Fire(txCtx, workflow.TriggerReopen); err != nil {
			return apperr.WrongState("only REJECTED expenses can be reopened (current: %s)", expense.ApprovalStatus)
		}

		before := snapshot(expense)
		expense.ApprovalStatus = entity.ExpensePending
		expense.RejectedBy = nil
		expense.RejectedAt = nil
		expense.RejectionReason = nil
		expense.AppealedBy = nil
		expense.AppealedAt = nil
		expense.AppealReason = nil
		expense.ResolvedBy = nil
		expense.ResolvedAt = nil

		if err := s.expenseRepo.Update(txCtx, expense); err != nil {
			return apperr.Internal(err)
		}
		s.writeAudit(txCtx, expense, entity.AuditActionReopen, actor.ID, before, nil)
		result = expense
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Expense reopened to PENDING", "id", id, "actor_id", actor.ID)
	return result, nil
}

// AuditTrail returns the recorded transitions of one expense, oldest first.
func (s *expenseServiceImpl) AuditTrail(ctx context.Context, actor entity.Actor, id string) ([]*entity.ExpenseAudit, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	expense, err := s.loadExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() && expense.CreatedBy != actor.ID {
		return nil, apperr.Forbidden("forbidden")
	}
	if !s.capabilities.ExpenseAudit {
		return []*entity.ExpenseAudit{}, nil
	}
	trail, err := s.auditRepo.ListByExpense(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return trail, nil
}

// writeAudit records one transition inside the caller's transaction. Failures
// are logged and swallowed so the primary update never rolls back over
// telemetry.
func (s *expenseServiceImpl) writeAudit(ctx context.Context, expense *entity.CashExpense, action, actorID string, before *string, notes *string) {
	if !s.capabilities.ExpenseAudit {
		return
	}
	audit := &entity.ExpenseAudit{
		ID:        uuid.NewString(),
		ExpenseID: expense.ID,
		Action:    action,
		ActorID:   actorID,
		Before:    before,
		After:     snapshot(expense),
		Notes:     notes,
		CreatedAt: time.Now(),
	}
	if err := s.auditRepo.Create(ctx, audit); err != nil {
		s.logger.Warn("Failed to write expense audit row", "error", err, "expense_id", expense.ID, "action", action)
	}
}

func (s *expenseServiceImpl) loadExpense(ctx context.Context, id string) (*entity.CashExpense, error) {
	if !isUUID(id) {
		return nil, apperr.Validation("invalid expense id")
	}
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if expense == nil {
		return nil, apperr.NotFound("expense")
	}
	return expense, nil
}

// snapshot serializes the expense for the audit trail's before/after columns.
func snapshot(expense *entity.CashExpense) *string {
	data, err := json.Marshal(expense)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}
