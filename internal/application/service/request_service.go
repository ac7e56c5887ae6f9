package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
	"github.com/fleetworks/fleet-finance/internal/domain/workflow"
)

// RequestLineInput is one part ask on a new inventory request.
type RequestLineInput struct {
	PartID    string
	NeededQty int
	Notes     *string
}

// RequestService owns the inventory request lifecycle and its reservation
// bookkeeping: approving a request reserves concrete stock units FIFO,
// unreserving or rejecting releases them.
type RequestService interface {
	Create(ctx context.Context, actor entity.Actor, warehouseID string, workOrderID *string, lines []RequestLineInput, notes *string) (*entity.InventoryRequest, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryRequest, error)
	List(ctx context.Context, actor entity.Actor, filter port.RequestFilter) ([]*entity.InventoryRequest, error)
	Reservations(ctx context.Context, actor entity.Actor, id string) ([]*entity.Reservation, error)
	Approve(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryRequest, error)
	Unreserve(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryRequest, error)
	Reject(ctx context.Context, actor entity.Actor, id string, reason string) (*entity.InventoryRequest, error)
}

type requestServiceImpl struct {
	requestRepo     port.RequestRepository
	reservationRepo port.ReservationRepository
	partItemRepo    port.PartItemRepository
	workOrderSvc    port.WorkOrderService
	txManager       port.TransactionManager
	logger          Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requestRepo port.RequestRepository,
	reservationRepo port.ReservationRepository,
	partItemRepo port.PartItemRepository,
	workOrderSvc port.WorkOrderService,
	txManager port.TransactionManager,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		requestRepo:     requestRepo,
		reservationRepo: reservationRepo,
		partItemRepo:    partItemRepo,
		workOrderSvc:    workOrderSvc,
		txManager:       txManager,
		logger:          logger,
	}
}

// Create records a PENDING request for parts from one warehouse.
func (s *requestServiceImpl) Create(ctx context.Context, actor entity.Actor, warehouseID string, workOrderID *string, lines []RequestLineInput, notes *string) (*entity.InventoryRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isUUID(warehouseID) {
		return nil, apperr.Validation("warehouse_id is required and must be uuid")
	}
	if len(lines) == 0 {
		return nil, apperr.Validation("at least one request line is required")
	}
	for i, line := range lines {
		if !isUUID(line.PartID) {
			return nil, apperr.Validation("line %d: invalid part_id", i)
		}
		if line.NeededQty <= 0 {
			return nil, apperr.Validation("line %d: needed_qty must be greater than 0", i)
		}
	}
	if workOrderID != nil {
		if !isUUID(*workOrderID) {
			return nil, apperr.Validation("invalid work_order_id")
		}
		wo, err := s.workOrderSvc.GetWorkOrder(ctx, *workOrderID)
		if err != nil {
			return nil, err
		}
		if wo == nil {
			return nil, apperr.NotFound("work order")
		}
	}

	request := &entity.InventoryRequest{
		ID:          uuid.NewString(),
		WarehouseID: warehouseID,
		WorkOrderID: workOrderID,
		RequestedBy: actor.ID,
		Status:      entity.RequestPending,
		Notes:       notes,
		CreatedAt:   time.Now(),
	}
	for _, line := range lines {
		request.Lines = append(request.Lines, entity.RequestLine{
			ID:        uuid.NewString(),
			RequestID: request.ID,
			PartID:    line.PartID,
			NeededQty: line.NeededQty,
			Notes:     line.Notes,
		})
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		s.logger.Error("Failed to create inventory request", "error", err, "actor_id", actor.ID)
		return nil, apperr.Internal(err)
	}

	s.logger.Info("Inventory request created", "id", request.ID, "warehouse_id", warehouseID, "lines", len(request.Lines))
	return request, nil
}

// Get loads a request with its lines.
func (s *requestServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.loadRequest(ctx, id)
}

// List returns requests matching the filter.
func (s *requestServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.RequestFilter) ([]*entity.InventoryRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	requests, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return requests, nil
}

// Reservations returns the live reservation rows of one request.
func (s *requestServiceImpl) Reservations(ctx context.Context, actor entity.Actor, id string) ([]*entity.Reservation, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := s.loadRequest(ctx, id); err != nil {
		return nil, err
	}
	reservations, err := s.reservationRepo.ListByRequest(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return reservations, nil
}

// Approve reserves stock for every line of a PENDING request, oldest received
// units first. The approval is all-or-nothing: every line is validated against
// available stock before any unit is flipped, and the flip itself is guarded
// so a racing approval surfaces as Conflict instead of a double reservation.
func (s *requestServiceImpl) Approve(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.CanDirectIssue() {
		return nil, apperr.NotAuthorized("only ADMIN or STOREKEEPER can approve inventory requests")
	}

	var result *entity.InventoryRequest
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		request, err := s.loadRequest(txCtx, id)
		if err != nil {
			return err
		}
		machine := workflow.RequestLifecycle().Build(workflow.State(request.Status))
		if err := machine.Fire(txCtx, workflow.TriggerApprove); err != nil {
			return apperr.WrongState("request must be PENDING to approve (current: %s)", request.Status)
		}
		existing, err := s.reservationRepo.CountByRequest(txCtx, id)
		if err != nil {
			return apperr.Internal(err)
		}
		if existing > 0 {
			return apperr.Conflict("request already has reservations").WithDetail("reservation_count", existing)
		}

		// validate every line before touching any unit
		var selectedIDs []string
		for _, line := range request.Lines {
			items, err := s.partItemRepo.PickInStockFIFO(txCtx, request.WarehouseID, line.PartID, line.NeededQty)
			if err != nil {
				return apperr.Internal(err)
			}
			if len(items) < line.NeededQty {
				return apperr.Conflict("insufficient stock, needed %d available %d", line.NeededQty, len(items)).
					WithDetail("part_id", line.PartID)
			}
			for _, item := range items {
				selectedIDs = append(selectedIDs, item.ID)
			}
		}

		affected, err := s.partItemRepo.UpdateStatusWhere(txCtx, selectedIDs, entity.PartInStock, entity.PartReserved)
		if err != nil {
			return apperr.Internal(err)
		}
		if affected != int64(len(selectedIDs)) {
			return apperr.Conflict("stock changed, retry")
		}
		if err := s.reservationRepo.CreateBatch(txCtx, id, selectedIDs); err != nil {
			return apperr.Internal(err)
		}
		if err := s.requestRepo.UpdateStatus(txCtx, id, entity.RequestApproved); err != nil {
			return apperr.Internal(err)
		}

		request.Status = entity.RequestApproved
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inventory request approved", "id", id, "actor_id", actor.ID)
	return result, nil
}

// Unreserve releases an APPROVED request's units back to stock and returns
// the request to PENDING.
func (s *requestServiceImpl) Unreserve(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.CanDirectIssue() {
		return nil, apperr.NotAuthorized("only ADMIN or STOREKEEPER can unreserve inventory requests")
	}

	var result *entity.InventoryRequest
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		request, err := s.loadRequest(txCtx, id)
		if err != nil {
			return err
		}
		machine := workflow.RequestLifecycle().Build(workflow.State(request.Status))
		if err := machine.Fire(txCtx, workflow.TriggerUnreserve); err != nil {
			return apperr.WrongState("request must be APPROVED to unreserve (current: %s)", request.Status)
		}
		if err := s.releaseReservations(txCtx, id); err != nil {
			return err
		}
		if err := s.requestRepo.UpdateStatus(txCtx, id, entity.RequestPending); err != nil {
			return apperr.Internal(err)
		}

		request.Status = entity.RequestPending
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inventory request unreserved", "id", id, "actor_id", actor.ID)
	return result, nil
}

// Reject declines a PENDING or APPROVED request, releasing any reservations
// first and appending the reason to the request notes.
func (s *requestServiceImpl) Reject(ctx context.Context, actor entity.Actor, id string, reason string) (*entity.InventoryRequest, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.CanDirectIssue() {
		return nil, apperr.NotAuthorized("only ADMIN or STOREKEEPER can reject inventory requests")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("rejection reason is required")
	}

	var result *entity.InventoryRequest
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		request, err := s.loadRequest(txCtx, id)
		if err != nil {
			return err
		}
		machine := workflow.RequestLifecycle().Build(workflow.State(request.Status))
		if err := machine.Fire(txCtx, workflow.TriggerReject); err != nil {
			return apperr.WrongState("request must be PENDING or APPROVED to reject (current: %s)", request.Status)
		}
		if request.Status == entity.RequestApproved {
			if err := s.releaseReservations(txCtx, id); err != nil {
				return err
			}
		}

		notes := "Rejected: " + reason
		if request.Notes != nil && strings.TrimSpace(*request.Notes) != "" {
			notes = *request.Notes + "\n" + notes
		}
		if err := s.requestRepo.UpdateStatusNotes(txCtx, id, entity.RequestRejected, &notes); err != nil {
			return apperr.Internal(err)
		}

		request.Status = entity.RequestRejected
		request.Notes = &notes
		result = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inventory request rejected", "id", id, "actor_id", actor.ID)
	return result, nil
}

// releaseReservations flips every reserved unit back to IN_STOCK and deletes
// the reservation rows. Runs inside the caller's transaction.
func (s *requestServiceImpl) releaseReservations(ctx context.Context, requestID string) error {
	reservations, err := s.reservationRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return apperr.Internal(err)
	}
	if len(reservations) > 0 {
		itemIDs := make([]string, 0, len(reservations))
		for _, r := range reservations {
			itemIDs = append(itemIDs, r.PartItemID)
		}
		affected, err := s.partItemRepo.UpdateStatusWhere(ctx, itemIDs, entity.PartReserved, entity.PartInStock)
		if err != nil {
			return apperr.Internal(err)
		}
		if affected != int64(len(itemIDs)) {
			return apperr.Conflict("stock changed, retry")
		}
	}
	if err := s.reservationRepo.DeleteByRequest(ctx, requestID); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *requestServiceImpl) loadRequest(ctx context.Context, id string) (*entity.InventoryRequest, error) {
	if !isUUID(id) {
		return nil, apperr.Validation("invalid request id")
	}
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if request == nil {
		return nil, apperr.NotFound("inventory request")
	}
	return request, nil
}
