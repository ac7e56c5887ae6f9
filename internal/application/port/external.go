package port

import (
	"context"

	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// TripService is the trip collaborator: the core reads the finance lock and
// assignment history, and moves the lock on behalf of accountants.
type TripService interface {
	// GetFinancialStatus returns the trip's finance lock state.
	GetFinancialStatus(ctx context.Context, tripID string) (entity.TripFinancialStatus, error)
	// IsAssignedSupervisor reports whether the user has any historical
	// assignment to the trip (and vehicle, when given).
	IsAssignedSupervisor(ctx context.Context, tripID string, vehicleID *string, userID string) (bool, error)
	SetFinancialStatus(ctx context.Context, tripID string, status entity.TripFinancialStatus) error
}

// VehiclePortfolioService answers whether a vehicle sits in a supervisor's
// active portfolio.
type VehiclePortfolioService interface {
	IsInActivePortfolio(ctx context.Context, vehicleID, supervisorID string) (bool, error)
}

// WorkOrderService is the maintenance collaborator. MarkInProgress is the one
// external write this core performs: flipping an OPEN work order on its first
// installation.
type WorkOrderService interface {
	GetWorkOrder(ctx context.Context, id string) (*entity.WorkOrder, error)
	MarkInProgress(ctx context.Context, id string) error
}

// Capabilities records which optional tables the schema carries, resolved
// once at startup instead of probing per call.
type Capabilities struct {
	ExpenseAudit  bool
	Installations bool
}
