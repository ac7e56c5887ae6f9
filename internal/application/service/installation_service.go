package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
	"github.com/fleetworks/fleet-finance/internal/domain/workflow"
)

// InstallationItemInput is one part installed on a work order's vehicle. A
// nil PartItemID means a bulk (non-serialized) part.
type InstallationItemInput struct {
	PartID       string
	PartItemID   *string
	QtyInstalled int
	Odometer     *int64
	Notes        *string
}

// InstallationService records parts installed under a work order, reconciling
// every installation against what was actually issued for that work order.
type InstallationService interface {
	Add(ctx context.Context, actor entity.Actor, workOrderID string, items []InstallationItemInput) ([]*entity.Installation, error)
	ListByWorkOrder(ctx context.Context, actor entity.Actor, workOrderID string) ([]*entity.Installation, error)
}

type installationServiceImpl struct {
	installationRepo port.InstallationRepository
	partItemRepo     port.PartItemRepository
	issueRepo        port.IssueRepository
	workOrderSvc     port.WorkOrderService
	capabilities     port.Capabilities
	txManager        port.TransactionManager
	logger           Logger
}

// NewInstallationService creates a new InstallationService
func NewInstallationService(
	installationRepo port.InstallationRepository,
	partItemRepo port.PartItemRepository,
	issueRepo port.IssueRepository,
	workOrderSvc port.WorkOrderService,
	capabilities port.Capabilities,
	txManager port.TransactionManager,
	logger Logger,
) InstallationService {
	return &installationServiceImpl{
		installationRepo: installationRepo,
		partItemRepo:     partItemRepo,
		issueRepo:        issueRepo,
		workOrderSvc:     workOrderSvc,
		capabilities:     capabilities,
		txManager:        txManager,
		logger:           logger,
	}
}

// Add records installations against a work order. Serial units must have been
// issued to this specific work order and still be ISSUED; bulk quantities may
// never push a part's installed total past its issued total. The first
// installation on an OPEN work order moves it to IN_PROGRESS.
func (s *installationServiceImpl) Add(ctx context.Context, actor entity.Actor, workOrderID string, items []InstallationItemInput) ([]*entity.Installation, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !s.capabilities.Installations {
		return nil, apperr.Conflict("installation tracking is not enabled in this deployment")
	}
	if !isUUID(workOrderID) {
		return nil, apperr.Validation("invalid work_order_id")
	}
	if len(items) == 0 {
		return nil, apperr.Validation("at least one installation item is required")
	}
	for i, item := range items {
		if !isUUID(item.PartID) {
			return nil, apperr.Validation("item %d: invalid part_id", i)
		}
		if item.PartItemID != nil {
			if !isUUID(*item.PartItemID) {
				return nil, apperr.Validation("item %d: invalid part_item_id", i)
			}
			if item.QtyInstalled != 1 {
				return nil, apperr.Validation("item %d: serial units install one at a time", i)
			}
		} else if item.QtyInstalled <= 0 {
			return nil, apperr.Validation("item %d: qty_installed must be greater than 0", i)
		}
	}

	var result []*entity.Installation
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		wo, err := s.workOrderSvc.GetWorkOrder(txCtx, workOrderID)
		if err != nil {
			return err
		}
		if wo == nil {
			return apperr.NotFound("work order")
		}
		if wo.Status.IsClosed() {
			return apperr.WrongState("work order is %s and no longer accepts installations", wo.Status)
		}

		issuedSerials, err := s.issueRepo.PostedItemIDsByWorkOrder(txCtx, workOrderID)
		if err != nil {
			return apperr.Internal(err)
		}
		issuedQty, err := s.issueRepo.PostedQtyByWorkOrder(txCtx, workOrderID)
		if err != nil {
			return apperr.Internal(err)
		}
		installedQty, err := s.installationRepo.InstalledQtyByWorkOrder(txCtx, workOrderID)
		if err != nil {
			return apperr.Internal(err)
		}

		// validate every item before flipping any unit
		var serialIDs []string
		added := make(map[string]int)
		for _, item := range items {
			if item.PartItemID != nil {
				if err := s.validateSerialItem(txCtx, item, issuedSerials); err != nil {
					return err
				}
				serialIDs = append(serialIDs, *item.PartItemID)
			} else {
				available := issuedQty[item.PartID] - installedQty[item.PartID] - added[item.PartID]
				if item.QtyInstalled > available {
					return apperr.Conflict("cannot install %d of part %s: only %d issued and not yet installed for this work order",
						item.QtyInstalled, item.PartID, max(available, 0))
				}
			}
			added[item.PartID] += item.QtyInstalled
		}

		now := time.Now()
		if len(serialIDs) > 0 {
			affected, err := s.partItemRepo.InstallWhereIssued(txCtx, serialIDs, wo.VehicleID, now)
			if err != nil {
				return apperr.Internal(err)
			}
			if affected != int64(len(serialIDs)) {
				return apperr.Conflict("stock changed, retry")
			}
		}

		installations := make([]*entity.Installation, 0, len(items))
		for _, item := range items {
			installations = append(installations, &entity.Installation{
				ID:                uuid.NewString(),
				WorkOrderID:       workOrderID,
				VehicleID:         wo.VehicleID,
				PartID:            item.PartID,
				PartItemID:        item.PartItemID,
				QtyInstalled:      item.QtyInstalled,
				InstalledBy:       actor.ID,
				InstalledAt:       now,
				OdometerAtInstall: item.Odometer,
				Notes:             item.Notes,
			})
		}
		if err := s.installationRepo.CreateBatch(txCtx, installations); err != nil {
			return apperr.Internal(err)
		}

		if wo.Status == entity.WorkOrderOpen {
			if err := s.workOrderSvc.MarkInProgress(txCtx, workOrderID); err != nil {
				return err
			}
		}

		result = installations
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Installations recorded", "work_order_id", workOrderID, "count", len(result), "actor_id", actor.ID)
	return result, nil
}

func (s *installationServiceImpl) validateSerialItem(ctx context.Context, item InstallationItemInput, issuedSerials map[string]bool) error {
	units, err := s.partItemRepo.GetByIDs(ctx, []string{*item.PartItemID})
	if err != nil {
		return apperr.Internal(err)
	}
	if len(units) == 0 {
		return apperr.NotFound("part item")
	}
	unit := units[0]
	if unit.PartID != item.PartID {
		return apperr.Validation("part item %s does not match part_id", unit.ID)
	}
	machine := workflow.PartItemLifecycle().Build(workflow.State(unit.Status))
	if err := machine.Fire(ctx, workflow.TriggerInstall); err != nil {
		return apperr.WrongState("part item %s must be ISSUED to install (current: %s)", unit.ID, unit.Status)
	}
	if !issuedSerials[unit.ID] {
		return apperr.Conflict("part item %s was not issued for this work order", unit.ID)
	}
	return nil
}

// ListByWorkOrder returns all installations recorded under a work order.
func (s *installationServiceImpl) ListByWorkOrder(ctx context.Context, actor entity.Actor, workOrderID string) ([]*entity.Installation, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isUUID(workOrderID) {
		return nil, apperr.Validation("invalid work_order_id")
	}
	if !s.capabilities.Installations {
		return []*entity.Installation{}, nil
	}
	installations, err := s.installationRepo.ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return installations, nil
}
