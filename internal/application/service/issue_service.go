package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
	"github.com/fleetworks/fleet-finance/internal/domain/workflow"
)

// IssueLineInput is one serialized unit on a new issue draft.
type IssueLineInput struct {
	PartID     string
	PartItemID string
	Qty        int
	UnitCost   *decimal.Decimal
	Notes      *string
}

// CreateIssueInput describes a new issue draft. A nil RequestID makes this a
// direct issue, which requires a storekeeper role and a reason.
type CreateIssueInput struct {
	WarehouseID string
	WorkOrderID string
	RequestID   *string
	Lines       []IssueLineInput
	Reason      *string
	Notes       *string
}

// IssueService owns the issue document lifecycle: drafting against an
// approved request (or directly from stock) and posting, which is the moment
// stock units actually leave the warehouse.
type IssueService interface {
	CreateDraft(ctx context.Context, actor entity.Actor, input CreateIssueInput) (*entity.InventoryIssue, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryIssue, error)
	List(ctx context.Context, actor entity.Actor, filter port.IssueFilter) ([]*entity.InventoryIssue, error)
	Post(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryIssue, error)
}

type issueServiceImpl struct {
	issueRepo       port.IssueRepository
	requestRepo     port.RequestRepository
	reservationRepo port.ReservationRepository
	partItemRepo    port.PartItemRepository
	workOrderSvc    port.WorkOrderService
	txManager       port.TransactionManager
	logger          Logger
}

// NewIssueService creates a new IssueService
func NewIssueService(
	issueRepo port.IssueRepository,
	requestRepo port.RequestRepository,
	reservationRepo port.ReservationRepository,
	partItemRepo port.PartItemRepository,
	workOrderSvc port.WorkOrderService,
	txManager port.TransactionManager,
	logger Logger,
) IssueService {
	return &issueServiceImpl{
		issueRepo:       issueRepo,
		requestRepo:     requestRepo,
		reservationRepo: reservationRepo,
		partItemRepo:    partItemRepo,
		workOrderSvc:    workOrderSvc,
		txManager:       txManager,
		logger:          logger,
	}
}

// CreateDraft validates and records a DRAFT issue. No stock moves until Post.
func (s *issueServiceImpl) CreateDraft(ctx context.Context, actor entity.Actor, input CreateIssueInput) (*entity.InventoryIssue, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !isUUID(input.WarehouseID) {
		return nil, apperr.Validation("warehouse_id is required and must be uuid")
	}
	if !isUUID(input.WorkOrderID) {
		return nil, apperr.Validation("work_order_id is required and must be uuid")
	}
	if len(input.Lines) == 0 {
		return nil, apperr.Validation("at least one issue line is required")
	}
	for i, line := range input.Lines {
		if line.Qty != 1 {
			return nil, apperr.Validation("line %d: qty must be 1 for serial-tracked units", i)
		}
		if !isUUID(line.PartID) {
			return nil, apperr.Validation("line %d: invalid part_id", i)
		}
		if !isUUID(line.PartItemID) {
			return nil, apperr.Validation("line %d: invalid part_item_id", i)
		}
	}
	if input.RequestID == nil {
		if !actor.CanDirectIssue() {
			return nil, apperr.NotAuthorized("only ADMIN or STOREKEEPER can issue without a request")
		}
		if input.Reason == nil || len(strings.TrimSpace(*input.Reason)) < 5 {
			return nil, apperr.Validation("direct issues require a reason of at least 5 characters")
		}
	} else if !isUUID(*input.RequestID) {
		return nil, apperr.Validation("invalid request_id")
	}

	wo, err := s.workOrderSvc.GetWorkOrder(ctx, input.WorkOrderID)
	if err != nil {
		return nil, err
	}
	if wo == nil {
		return nil, apperr.NotFound("work order")
	}

	issue := &entity.InventoryIssue{
		ID:          uuid.NewString(),
		WarehouseID: input.WarehouseID,
		WorkOrderID: input.WorkOrderID,
		RequestID:   input.RequestID,
		IssuedBy:    actor.ID,
		Status:      entity.IssueDraft,
		Notes:       s.draftNotes(input),
		CreatedAt:   time.Now(),
	}
	for _, line := range input.Lines {
		issue.Lines = append(issue.Lines, entity.IssueLine{
			ID:         uuid.NewString(),
			IssueID:    issue.ID,
			PartID:     line.PartID,
			PartItemID: line.PartItemID,
			Qty:        1,
			UnitCost:   line.UnitCost,
			Notes:      line.Notes,
		})
	}

	if err := s.validateLines(ctx, issue); err != nil {
		return nil, err
	}

	if err := s.issueRepo.Create(ctx, issue); err != nil {
		s.logger.Error("Failed to create issue draft", "error", err, "actor_id", actor.ID)
		return nil, apperr.Internal(err)
	}

	s.logger.Info("Issue draft created", "id", issue.ID, "work_order_id", input.WorkOrderID, "direct", input.RequestID == nil)
	return issue, nil
}

func (s *issueServiceImpl) draftNotes(input CreateIssueInput) *string {
	if input.RequestID == nil && input.Reason != nil {
		reason := "Direct issue: " + strings.TrimSpace(*input.Reason)
		if input.Notes != nil && strings.TrimSpace(*input.Notes) != "" {
			reason = reason + "\n" + *input.Notes
		}
		return &reason
	}
	return input.Notes
}

// Get loads an issue with its lines.
func (s *issueServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryIssue, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.loadIssue(ctx, id)
}

// List returns issues matching the filter.
func (s *issueServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.IssueFilter) ([]*entity.InventoryIssue, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	issues, err := s.issueRepo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return issues, nil
}

// Post makes a DRAFT issue effective: it re-validates every line against
// current stock state, flips the units to ISSUED under a guarded update, and
// expires the linked request's reservations. Drafts can go stale between
// creation and posting, which is why validation runs again here.
func (s *issueServiceImpl) Post(ctx context.Context, actor entity.Actor, id string) (*entity.InventoryIssue, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.CanDirectIssue() {
		return nil, apperr.NotAuthorized("only ADMIN or STOREKEEPER can post issues")
	}

	var result *entity.InventoryIssue
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		issue, err := s.loadIssue(txCtx, id)
		if err != nil {
			return err
		}

		machine := workflow.IssueLifecycle().Build(workflow.State(issue.Status))
		if err := machine.Fire(txCtx, workflow.TriggerPost); err != nil {
			return apperr.WrongState("issue must be DRAFT to post (current: %s)", issue.Status)
		}
		if len(issue.Lines) == 0 {
			return apperr.Conflict("cannot post an issue with no lines")
		}
		if issue.WarehouseID == "" {
			return apperr.Conflict("cannot post an issue with no warehouse")
		}

		if err := s.validateLines(txCtx, issue); err != nil {
			return err
		}

		itemIDs := make([]string, 0, len(issue.Lines))
		for _, line := range issue.Lines {
			itemIDs = append(itemIDs, line.PartItemID)
		}
		from := entity.PartInStock
		if issue.RequestID != nil {
			from = entity.PartReserved
		}
		affected, err := s.partItemRepo.UpdateStatusWhere(txCtx, itemIDs, from, entity.PartIssued)
		if err != nil {
			return apperr.Internal(err)
		}
		if affected != int64(len(itemIDs)) {
			return apperr.Conflict("stock changed, retry")
		}

		now := time.Now()
		if err := s.issueRepo.MarkPosted(txCtx, id, now); err != nil {
			return apperr.Internal(err)
		}
		if issue.RequestID != nil {
			// reservations expire upon issue
			if err := s.requestRepo.UpdateStatus(txCtx, *issue.RequestID, entity.RequestIssued); err != nil {
				return apperr.Internal(err)
			}
			if err := s.reservationRepo.DeleteByRequest(txCtx, *issue.RequestID); err != nil {
				return apperr.Internal(err)
			}
		}

		issue.Status = entity.IssuePosted
		issue.PostedAt = &now
		result = issue
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Issue posted", "id", id, "actor_id", actor.ID)
	return result, nil
}

// validateLines checks every line of the issue against current stock state.
// Request-based issues need every unit RESERVED for that specific request;
// direct issues need every unit IN_STOCK. All lines are validated before any
// mutation so a failed post leaves nothing half-issued.
func (s *issueServiceImpl) validateLines(ctx context.Context, issue *entity.InventoryIssue) error {
	expectStatus := entity.PartInStock
	var reserved map[string]bool

	if issue.RequestID != nil {
		request, err := s.requestRepo.GetByID(ctx, *issue.RequestID)
		if err != nil {
			return apperr.Internal(err)
		}
		if request == nil {
			return apperr.NotFound("inventory request")
		}
		if request.Status != entity.RequestApproved {
			return apperr.WrongState("linked request must be APPROVED (current: %s)", request.Status)
		}
		if request.WarehouseID != issue.WarehouseID {
			return apperr.Conflict("request warehouse does not match issue warehouse")
		}
		if request.WorkOrderID != nil && *request.WorkOrderID != issue.WorkOrderID {
			return apperr.Conflict("request work order does not match issue work order")
		}

		reservations, err := s.reservationRepo.ListByRequest(ctx, *issue.RequestID)
		if err != nil {
			return apperr.Internal(err)
		}
		reserved = make(map[string]bool, len(reservations))
		for _, r := range reservations {
			reserved[r.PartItemID] = true
		}
		expectStatus = entity.PartReserved
	}

	itemIDs := make([]string, 0, len(issue.Lines))
	for _, line := range issue.Lines {
		itemIDs = append(itemIDs, line.PartItemID)
	}
	items, err := s.partItemRepo.GetByIDs(ctx, itemIDs)
	if err != nil {
		return apperr.Internal(err)
	}
	byID := make(map[string]*entity.PartItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	for _, line := range issue.Lines {
		item, ok := byID[line.PartItemID]
		if !ok {
			return apperr.NotFound("part item")
		}
		if item.Status != expectStatus {
			return apperr.WrongState("part item %s must be %s (current: %s)", item.ID, expectStatus, item.Status)
		}
		if item.WarehouseID != issue.WarehouseID {
			return apperr.Conflict("part item %s belongs to a different warehouse", item.ID)
		}
		if item.PartID != line.PartID {
			return apperr.Validation("part item %s does not match line part_id", item.ID)
		}
		if reserved != nil && !reserved[item.ID] {
			return apperr.Conflict("part item %s is not reserved for this request", item.ID)
		}
	}
	return nil
}

func (s *issueServiceImpl) loadIssue(ctx context.Context, id string) (*entity.InventoryIssue, error) {
	if !isUUID(id) {
		return nil, apperr.Validation("invalid issue id")
	}
	issue, err := s.issueRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if issue == nil {
		return nil, apperr.NotFound("inventory issue")
	}
	return issue, nil
}
