package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
	"github.com/fleetworks/fleet-finance/internal/domain/workflow"
)

// CloseAdvanceInput carries the settlement an accountant proposes on close.
type CloseAdvanceInput struct {
	SettlementType entity.SettlementType
	Amount         decimal.Decimal
	Reference      *string
	Notes          *string
}

// AdvanceTotals is the settlement arithmetic computed from linked expenses.
type AdvanceTotals struct {
	AdvanceAmount decimal.Decimal `json:"advance_amount"`
	TotalApproved decimal.Decimal `json:"total_approved"`
	Remaining     decimal.Decimal `json:"remaining"`
	Shortage      decimal.Decimal `json:"shortage"`
}

// AdvanceSummary aggregates advances by rough status bucket.
type AdvanceSummary struct {
	SumAmount    decimal.Decimal `json:"sum_amount"`
	CountAll     int             `json:"count_all"`
	OpenCount    int             `json:"open_count"`
	SettledCount int             `json:"settled_count"`
}

// AdvanceService owns the cash advance lifecycle and settlement arithmetic.
type AdvanceService interface {
	Create(ctx context.Context, actor entity.Actor, supervisorID string, amount decimal.Decimal) (*entity.CashAdvance, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.CashAdvance, error)
	List(ctx context.Context, actor entity.Actor, filter port.AdvanceFilter) ([]*entity.CashAdvance, error)
	Summary(ctx context.Context, actor entity.Actor, filter port.AdvanceFilter) (*AdvanceSummary, error)
	SubmitForReview(ctx context.Context, actor entity.Actor, id string) (*entity.CashAdvance, error)
	Close(ctx context.Context, actor entity.Actor, id string, input CloseAdvanceInput) (*entity.CashAdvance, *AdvanceTotals, error)
	Reopen(ctx context.Context, actor entity.Actor, id string) (*entity.CashAdvance, error)
}

type advanceServiceImpl struct {
	advanceRepo port.AdvanceRepository
	expenseRepo port.ExpenseRepository
	userRepo    port.UserRepository
	txManager   port.TransactionManager
	logger      Logger
}

// NewAdvanceService creates a new AdvanceService
func NewAdvanceService(
	advanceRepo port.AdvanceRepository,
	expenseRepo port.ExpenseRepository,
	userRepo port.UserRepository,
	txManager port.TransactionManager,
	logger Logger,
) AdvanceService {
	return &advanceServiceImpl{
		advanceRepo: advanceRepo,
		expenseRepo: expenseRepo,
		userRepo:    userRepo,
		txManager:   txManager,
		logger:      logger,
	}
}

// Create issues an OPEN advance to a field supervisor.
func (s *advanceServiceImpl) Create(ctx context.Context, actor entity.Actor, supervisorID string, amount decimal.Decimal) (*entity.CashAdvance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		return nil, apperr.NotAuthorized("only ADMIN or ACCOUNTANT can issue cash advances")
	}
	if !isUUID(supervisorID) {
		return nil, apperr.Validation("field_supervisor_id is required and must be uuid")
	}
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, apperr.Validation("amount must be greater than 0")
	}

	exists, err := s.userRepo.Exists(ctx, supervisorID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !exists {
		return nil, apperr.Validation("invalid field_supervisor_id")
	}

	advance := &entity.CashAdvance{
		ID:                uuid.NewString(),
		Amount:            amount,
		Status:            entity.AdvanceOpen,
		FieldSupervisorID: supervisorID,
		IssuedBy:          actor.ID,
		CreatedAt:         time.Now(),
	}

	if err := s.advanceRepo.Create(ctx, advance); err != nil {
		s.logger.Error("Failed to create cash advance", "error", err, "supervisor_id", supervisorID)
		return nil, apperr.Internal(err)
	}

	s.logger.Info("Cash advance created", "id", advance.ID, "supervisor_id", supervisorID, "amount", amount.String())
	return advance, nil
}

// Get loads an advance; supervisors may only read their own.
func (s *advanceServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.CashAdvance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	advance, err := s.loadAdvance(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() && advance.FieldSupervisorID != actor.ID {
		return nil, apperr.Forbidden("forbidden")
	}
	return advance, nil
}

// List returns advances, scoped to the caller's own when not privileged.
func (s *advanceServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.AdvanceFilter) ([]*entity.CashAdvance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		filter.SupervisorID = &actor.ID
	}
	advances, err := s.advanceRepo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return advances, nil
}

// Summary aggregates advance counts and amounts under the same scoping as List.
func (s *advanceServiceImpl) Summary(ctx context.Context, actor entity.Actor, filter port.AdvanceFilter) (*AdvanceSummary, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		filter.SupervisorID = &actor.ID
	}
	filter.Limit = 0
	filter.Offset = 0

	advances, err := s.advanceRepo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	summary := &AdvanceSummary{SumAmount: decimal.Zero}
	for _, a := range advances {
		summary.SumAmount = summary.SumAmount.Add(a.Amount)
		summary.CountAll++
		switch a.Status {
		case entity.AdvanceClosed:
			summary.SettledCount++
		default:
			summary.OpenCount++
		}
	}
	return summary, nil
}

// SubmitForReview moves an OPEN advance to IN_REVIEW.
func (s *advanceServiceImpl) SubmitForReview(ctx context.Context, actor entity.Actor, id string) (*entity.CashAdvance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		return nil, apperr.NotAuthorized("only ADMIN or ACCOUNTANT can submit advance for review")
	}

	advance, err := s.loadAdvance(ctx, id)
	if err != nil {
		return nil, err
	}
	if advance.Status == entity.AdvanceClosed {
		return nil, apperr.Conflict("cash advance already CLOSED")
	}

	machine := workflow.AdvanceLifecycle().Build(workflow.State(advance.Status))
	if err := machine.Fire(ctx, workflow.TriggerSubmitReview); err != nil {
		return nil, apperr.WrongState("cash advance must be OPEN to submit review (current: %s)", advance.Status)
	}

	if err := s.advanceRepo.UpdateStatus(ctx, id, entity.AdvanceInReview); err != nil {
		s.logger.Error("Failed to submit advance for review", "error", err, "id", id)
		return nil, apperr.Internal(err)
	}

	advance.Status = entity.AdvanceInReview
	s.logger.Info("Cash advance moved to IN_REVIEW", "id", id, "actor_id", actor.ID)
	return advance, nil
}

// Close settles an IN_REVIEW advance. The settlement amount must match the
// computed remainder (RETURN) or shortage (SHORTAGE) exactly at 2 decimals;
// ADJUSTMENT is a manual override with no arithmetic check.
func (s *advanceServiceImpl) Close(ctx context.Context, actor entity.Actor, id string, input CloseAdvanceInput) (*entity.CashAdvance, *AdvanceTotals, error) {
	if err := requireActor(actor); err != nil {
		return nil, nil, err
	}
	if !actor.IsPrivileged() {
		return nil, nil, apperr.NotAuthorized("only ADMIN or ACCOUNTANT can close cash advances")
	}
	if !input.SettlementType.IsValid() {
		return nil, nil, apperr.Validation("settlement_type must be RETURN | SHORTAGE | ADJUSTMENT")
	}
	if input.Amount.Cmp(decimal.Zero) < 0 {
		return nil, nil, apperr.Validation("amount must be a number >= 0")
	}

	var (
		closed *entity.CashAdvance
		totals *AdvanceTotals
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		advance, err := s.loadAdvance(txCtx, id)
		if err != nil {
			return err
		}
		if advance.Status == entity.AdvanceClosed {
			return apperr.Conflict("cash advance already CLOSED")
		}

		machine := workflow.AdvanceLifecycle().Build(workflow.State(advance.Status))
		if err := machine.Fire(txCtx, workflow.TriggerClose); err != nil {
			return apperr.WrongState("cash advance must be IN_REVIEW before CLOSE (current: %s)", advance.Status)
		}

		openCount, err := s.expenseRepo.CountOpenByAdvance(txCtx, id)
		if err != nil {
			return apperr.Internal(err)
		}
		if openCount > 0 {
			return apperr.Conflict("cannot close cash advance while there are pending/appealed expenses").
				WithDetail("pending_count", openCount)
		}

		totalApproved, err := s.expenseRepo.SumSettledByAdvance(txCtx, id)
		if err != nil {
			return apperr.Internal(err)
		}

		t := &AdvanceTotals{
			AdvanceAmount: advance.Amount,
			TotalApproved: totalApproved,
			Remaining:     advance.Amount.Sub(totalApproved),
			Shortage:      totalApproved.Sub(advance.Amount),
		}

		switch input.SettlementType {
		case entity.SettlementReturn:
			if t.Remaining.Cmp(decimal.Zero) < 0 {
				return apperr.Validation("cannot RETURN when there is a shortage; use SHORTAGE or ADJUSTMENT").
					WithDetail("totals", t)
			}
			if !t.Remaining.Round(2).Equal(input.Amount.Round(2)) {
				return apperr.Validation("for CLOSE with RETURN, amount must equal remaining exactly").
					WithDetail("totals", t)
			}
		case entity.SettlementShortage:
			if t.Shortage.Cmp(decimal.Zero) <= 0 {
				return apperr.Validation("no shortage detected; use RETURN or ADJUSTMENT").
					WithDetail("totals", t)
			}
			if !t.Shortage.Round(2).Equal(input.Amount.Round(2)) {
				return apperr.Validation("for CLOSE with SHORTAGE, amount must equal shortage exactly").
					WithDetail("totals", t)
			}
		}

		settlement := entity.Settlement{
			Type:      input.SettlementType,
			Amount:    input.Amount,
			Reference: input.Reference,
			Notes:     input.Notes,
			SettledAt: time.Now(),
			SettledBy: actor.ID,
		}
		if err := s.advanceRepo.Close(txCtx, id, settlement); err != nil {
			return apperr.Internal(err)
		}

		advance.Status = entity.AdvanceClosed
		advance.SettlementType = &settlement.Type
		advance.SettlementAmount = &settlement.Amount
		advance.SettlementReference = settlement.Reference
		advance.SettlementNotes = settlement.Notes
		advance.SettledAt = &settlement.SettledAt
		advance.SettledBy = &settlement.SettledBy

		closed = advance
		totals = t
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Cash advance CLOSED", "id", id, "settlement_type", string(input.SettlementType), "amount", input.Amount.String())
	return closed, totals, nil
}

// Reopen returns a CLOSED advance to IN_REVIEW, clearing every settlement
// field.
func (s *advanceServiceImpl) Reopen(ctx context.Context, actor entity.Actor, id string) (*entity.CashAdvance, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		return nil, apperr.NotAuthorized("only ADMIN or ACCOUNTANT can reopen cash advances")
	}

	advance, err := s.loadAdvance(ctx, id)
	if err != nil {
		return nil, err
	}

	machine := workflow.AdvanceLifecycle().Build(workflow.State(advance.Status))
	if err := machine.Fire(ctx, workflow.TriggerReopen); err != nil {
		return nil, apperr.WrongState("only CLOSED advances can be reopened (current: %s)", advance.Status)
	}

	if err := s.advanceRepo.Reopen(ctx, id); err != nil {
		s.logger.Error("Failed to reopen cash advance", "error", err, "id", id)
		return nil, apperr.Internal(err)
	}

	advance.Status = entity.AdvanceInReview
	advance.SettlementType = nil
	advance.SettlementAmount = nil
	advance.SettlementReference = nil
	advance.SettlementNotes = nil
	advance.SettledAt = nil
	advance.SettledBy = nil

	s.logger.Info("Cash advance reopened to IN_REVIEW", "id", id, "actor_id", actor.ID)
	return advance, nil
}

func (s *advanceServiceImpl) loadAdvance(ctx context.Context, id string) (*entity.CashAdvance, error) {
	if !isUUID(id) {
		return nil, apperr.Validation("invalid cash advance id")
	}
	advance, err := s.advanceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if advance == nil {
		return nil, apperr.NotFound("cash advance")
	}
	return advance, nil
}
