package service

import (
	"context"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// TripFinanceService moves the per-trip finance lock. Locking a trip stops
// new expenses from being recorded against it while accountants reconcile.
type TripFinanceService interface {
	SubmitForReview(ctx context.Context, actor entity.Actor, tripID string) (entity.TripFinancialStatus, error)
	Close(ctx context.Context, actor entity.Actor, tripID string) (entity.TripFinancialStatus, error)
	Reopen(ctx context.Context, actor entity.Actor, tripID string) (entity.TripFinancialStatus, error)
	Totals(ctx context.Context, actor entity.Actor, tripID string) (*port.TripExpenseTotals, error)
}

type tripFinanceServiceImpl struct {
	expenseRepo port.ExpenseRepository
	tripSvc     port.TripService
	logger      Logger
}

// NewTripFinanceService creates a new TripFinanceService
func NewTripFinanceService(expenseRepo port.ExpenseRepository, tripSvc port.TripService, logger Logger) TripFinanceService {
	return &tripFinanceServiceImpl{
		expenseRepo: expenseRepo,
		tripSvc:     tripSvc,
		logger:      logger,
	}
}

// SubmitForReview locks an OPEN trip for reconciliation.
func (s *tripFinanceServiceImpl) SubmitForReview(ctx context.Context, actor entity.Actor, tripID string) (entity.TripFinancialStatus, error) {
	return s.transition(ctx, actor, tripID, entity.TripFinanceOpen, entity.TripFinanceInReview)
}

// Close finalizes a trip already under review. Open expenses against the trip
// block the close the same way they block closing an advance.
func (s *tripFinanceServiceImpl) Close(ctx context.Context, actor entity.Actor, tripID string) (entity.TripFinancialStatus, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}
	if !actor.IsPrivileged() {
		return "", apperr.NotAuthorized("only ADMIN or ACCOUNTANT can move trip finances")
	}
	if !isUUID(tripID) {
		return "", apperr.Validation("invalid trip id")
	}

	current, err := s.tripSvc.GetFinancialStatus(ctx, tripID)
	if err != nil {
		return "", err
	}
	if current != entity.TripFinanceInReview {
		return "", apperr.WrongState("trip finances must be IN_REVIEW to close (current: %s)", current)
	}

	totals, err := s.expenseRepo.TripTotals(ctx, tripID)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if totals.TotalPending.Sign() > 0 {
		return "", apperr.Conflict("cannot close trip finances while pending/appealed expenses remain").
			WithDetail("pending_total", totals.TotalPending)
	}

	if err := s.tripSvc.SetFinancialStatus(ctx, tripID, entity.TripFinanceClosed); err != nil {
		return "", err
	}
	s.logger.Info("Trip finances CLOSED", "trip_id", tripID, "actor_id", actor.ID)
	return entity.TripFinanceClosed, nil
}

// Reopen returns a CLOSED trip to IN_REVIEW.
func (s *tripFinanceServiceImpl) Reopen(ctx context.Context, actor entity.Actor, tripID string) (entity.TripFinancialStatus, error) {
	return s.transition(ctx, actor, tripID, entity.TripFinanceClosed, entity.TripFinanceInReview)
}

// Totals returns the trip's expense aggregation by approval bucket and
// payment source.
func (s *tripFinanceServiceImpl) Totals(ctx context.Context, actor entity.Actor, tripID string) (*port.TripExpenseTotals, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsPrivileged() {
		return nil, apperr.NotAuthorized("only ADMIN or ACCOUNTANT can view trip finance totals")
	}
	if !isUUID(tripID) {
		return nil, apperr.Validation("invalid trip id")
	}
	totals, err := s.expenseRepo.TripTotals(ctx, tripID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return totals, nil
}

func (s *tripFinanceServiceImpl) transition(ctx context.Context, actor entity.Actor, tripID string, from, to entity.TripFinancialStatus) (entity.TripFinancialStatus, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}
	if !actor.IsPrivileged() {
		return "", apperr.NotAuthorized("only ADMIN or ACCOUNTANT can move trip finances")
	}
	if !isUUID(tripID) {
		return "", apperr.Validation("invalid trip id")
	}

	current, err := s.tripSvc.GetFinancialStatus(ctx, tripID)
	if err != nil {
		return "", err
	}
	if current != from {
		return "", apperr.WrongState("trip finances must be %s (current: %s)", from, current)
	}
	if err := s.tripSvc.SetFinancialStatus(ctx, tripID, to); err != nil {
		return "", err
	}

	s.logger.Info("Trip finances moved", "trip_id", tripID, "from", string(from), "to", string(to), "actor_id", actor.ID)
	return to, nil
}
