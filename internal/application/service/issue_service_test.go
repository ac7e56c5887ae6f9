package service

import (
	"context"
	"testing"
	"time"

	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

const (
	issueID     = "99999999-9999-9999-9999-999999999999"
	workOrderID = "ffffffff-ffff-ffff-ffff-ffffffffffff"
	itemOneID   = "10101010-1010-1010-1010-101010101010"
	itemTwoID   = "20202020-2020-2020-2020-202020202020"
)

type issueDeps struct {
	issueRepo       *mockIssueRepo
	requestRepo     *mockRequestRepo
	reservationRepo *mockReservationRepo
	partItemRepo    *mockPartItemRepo
	workOrderSvc    *mockWorkOrderService
}

func newIssueDeps() *issueDeps {
	return &issueDeps{
		issueRepo:       &mockIssueRepo{},
		requestRepo:     &mockRequestRepo{},
		reservationRepo: &mockReservationRepo{},
		partItemRepo:    &mockPartItemRepo{},
		workOrderSvc:    &mockWorkOrderService{},
	}
}

func (d *issueDeps) build() IssueService {
	return NewIssueService(
		d.issueRepo,
		d.requestRepo,
		d.reservationRepo,
		d.partItemRepo,
		d.workOrderSvc,
		&mockTxManager{},
		&mockLogger{},
	)
}

func reservedItem(id string) *entity.PartItem {
	return &entity.PartItem{
		ID:          id,
		PartID:      partID,
		WarehouseID: warehouseID,
		Status:      entity.PartReserved,
	}
}

func inStockItem(id string) *entity.PartItem {
	item := reservedItem(id)
	item.Status = entity.PartInStock
	return item
}

func draftIssue(requestID *string) *entity.InventoryIssue {
	return &entity.InventoryIssue{
		ID:          issueID,
		WarehouseID: warehouseID,
		WorkOrderID: workOrderID,
		RequestID:   requestID,
		IssuedBy:    storekeeper.ID,
		Status:      entity.IssueDraft,
		Lines: []entity.IssueLine{
			{ID: "30303030-3030-3030-3030-303030303030", IssueID: issueID, PartID: partID, PartItemID: itemOneID, Qty: 1},
		},
	}
}

func TestIssueService_CreateDraft_Validation(t *testing.T) {
	reason := "replacement for failed compressor"
	shortReason := "bad"
	rid := requestID

	tests := []struct {
		name     string
		actor    entity.Actor
		input    CreateIssueInput
		wantKind apperr.Kind
	}{
		{
			name:  "request-backed draft by supervisor",
			actor: supervisor,
			input: CreateIssueInput{
				WarehouseID: warehouseID,
				WorkOrderID: workOrderID,
				RequestID:   &rid,
				Lines:       []IssueLineInput{{PartID: partID, PartItemID: itemOneID, Qty: 1}},
			},
		},
		{
			name:  "direct issue by storekeeper with reason",
			actor: storekeeper,
			input: CreateIssueInput{
				WarehouseID: warehouseID,
				WorkOrderID: workOrderID,
				Lines:       []IssueLineInput{{PartID: partID, PartItemID: itemOneID, Qty: 1}},
				Reason:      &reason,
			},
		},
		{
			name:  "direct issue by supervisor refused",
			actor: supervisor,
			input: CreateIssueInput{
				WarehouseID: warehouseID,
				WorkOrderID: workOrderID,
				Lines:       []IssueLineInput{{PartID: partID, PartItemID: itemOneID, Qty: 1}},
				Reason:      &reason,
			},
			wantKind: apperr.KindNotAuthorized,
		},
		{
			name:  "direct issue reason too short",
			actor: storekeeper,
			input: CreateIssueInput{
				WarehouseID: warehouseID,
				WorkOrderID: workOrderID,
				Lines:       []IssueLineInput{{PartID: partID, PartItemID: itemOneID, Qty: 1}},
				Reason:      &shortReason,
			},
			wantKind: apperr.KindValidation,
		},
		{
			name:  "qty other than one refused",
			actor: storekeeper,
			input: CreateIssueInput{
				WarehouseID: warehouseID,
				WorkOrderID: workOrderID,
				RequestID:   &rid,
				Lines:       []IssueLineInput{{PartID: partID, PartItemID: itemOneID, Qty: 2}},
			},
			wantKind: apperr.KindValidation,
		},
		{
			name:  "no lines refused",
			actor: storekeeper,
			input: CreateIssueInput{
				WarehouseID: warehouseID,
				WorkOrderID: workOrderID,
				RequestID:   &rid,
			},
			wantKind: apperr.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newIssueDeps()
			deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
				r := pendingRequest(1)
				r.Status = entity.RequestApproved
				return r, nil
			}
			deps.reservationRepo.listByRequestFunc = func(ctx context.Context, rid string) ([]*entity.Reservation, error) {
				return []*entity.Reservation{{ID: "r1", RequestID: rid, PartItemID: itemOneID}}, nil
			}
			deps.partItemRepo.getByIDsFunc = func(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
				if tt.input.RequestID != nil {
					return []*entity.PartItem{reservedItem(itemOneID)}, nil
				}
				return []*entity.PartItem{inStockItem(itemOneID)}, nil
			}
			service := deps.build()

			issue, err := service.CreateDraft(context.Background(), tt.actor, tt.input)

			if tt.wantKind != "" {
				if apperr.KindOf(err) != tt.wantKind {
					t.Errorf("CreateDraft() error kind = %s, want %s (err=%v)", apperr.KindOf(err), tt.wantKind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateDraft() error = %v", err)
			}
			if issue.Status != entity.IssueDraft {
				t.Errorf("CreateDraft() status = %s, want DRAFT", issue.Status)
			}
			if len(issue.Lines) != 1 || issue.Lines[0].Qty != 1 {
				t.Errorf("CreateDraft() lines = %+v, want one line of qty 1", issue.Lines)
			}
		})
	}
}

func TestIssueService_CreateDraft_RequestChecks(t *testing.T) {
	rid := requestID
	input := CreateIssueInput{
		WarehouseID: warehouseID,
		WorkOrderID: workOrderID,
		RequestID:   &rid,
		Lines:       []IssueLineInput{{PartID: partID, PartItemID: itemOneID, Qty: 1}},
	}

	tests := []struct {
		name     string
		request  func() *entity.InventoryRequest
		reserved []string
		wantKind apperr.Kind
	}{
		{
			name: "pending request cannot back an issue",
			request: func() *entity.InventoryRequest {
				return pendingRequest(1)
			},
			wantKind: apperr.KindWrongState,
		},
		{
			name: "warehouse mismatch",
			request: func() *entity.InventoryRequest {
				r := pendingRequest(1)
				r.Status = entity.RequestApproved
				r.WarehouseID = "40404040-4040-4040-4040-404040404040"
				return r
			},
			wantKind: apperr.KindConflict,
		},
		{
			name: "unit not reserved for this request",
			request: func() *entity.InventoryRequest {
				r := pendingRequest(1)
				r.Status = entity.RequestApproved
				return r
			},
			reserved: []string{itemTwoID},
			wantKind: apperr.KindConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newIssueDeps()
			deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
				return tt.request(), nil
			}
			deps.reservationRepo.listByRequestFunc = func(ctx context.Context, rid string) ([]*entity.Reservation, error) {
				out := make([]*entity.Reservation, 0, len(tt.reserved))
				for _, itemID := range tt.reserved {
					out = append(out, &entity.Reservation{RequestID: rid, PartItemID: itemID})
				}
				return out, nil
			}
			deps.partItemRepo.getByIDsFunc = func(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
				return []*entity.PartItem{reservedItem(itemOneID)}, nil
			}
			service := deps.build()

			_, err := service.CreateDraft(context.Background(), storekeeper, input)
			if apperr.KindOf(err) != tt.wantKind {
				t.Errorf("CreateDraft() error kind = %s, want %s (err=%v)", apperr.KindOf(err), tt.wantKind, err)
			}
		})
	}
}

func TestIssueService_Post_RequestBacked(t *testing.T) {
	rid := requestID
	deps := newIssueDeps()
	deps.issueRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryIssue, error) {
		return draftIssue(&rid), nil
	}
	deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
		r := pendingRequest(1)
		r.Status = entity.RequestApproved
		return r, nil
	}
	deps.reservationRepo.listByRequestFunc = func(ctx context.Context, rid string) ([]*entity.Reservation, error) {
		return []*entity.Reservation{{RequestID: rid, PartItemID: itemOneID}}, nil
	}
	deps.partItemRepo.getByIDsFunc = func(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
		return []*entity.PartItem{reservedItem(itemOneID)}, nil
	}
	var flipFrom, flipTo entity.PartItemStatus
	deps.partItemRepo.updateStatusWhereFunc = func(ctx context.Context, ids []string, from, to entity.PartItemStatus) (int64, error) {
		flipFrom, flipTo = from, to
		return int64(len(ids)), nil
	}
	var posted bool
	deps.issueRepo.markPostedFunc = func(ctx context.Context, id string, at time.Time) error {
		posted = true
		return nil
	}
	var requestStatus entity.RequestStatus
	deps.requestRepo.updateStatusFunc = func(ctx context.Context, id string, status entity.RequestStatus) error {
		requestStatus = status
		return nil
	}
	var reservationsDeleted bool
	deps.reservationRepo.deleteByRequestFunc = func(ctx context.Context, rid string) error {
		reservationsDeleted = true
		return nil
	}
	service := deps.build()

	issue, err := service.Post(context.Background(), storekeeper, issueID)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if issue.Status != entity.IssuePosted {
		t.Errorf("Post() status = %s, want POSTED", issue.Status)
	}
	if issue.PostedAt == nil {
		t.Errorf("Post() posted_at not stamped")
	}
	if flipFrom != entity.PartReserved || flipTo != entity.PartIssued {
		t.Errorf("Post() flipped %s to %s, want RESERVED to ISSUED", flipFrom, flipTo)
	}
	if !posted {
		t.Errorf("Post() issue row not marked posted")
	}
	if requestStatus != entity.RequestIssued {
		t.Errorf("Post() request status = %s, want ISSUED", requestStatus)
	}
	if !reservationsDeleted {
		t.Errorf("Post() reservations not expired")
	}
}

func TestIssueService_Post_Direct(t *testing.T) {
	deps := newIssueDeps()
	deps.issueRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryIssue, error) {
		return draftIssue(nil), nil
	}
	deps.partItemRepo.getByIDsFunc = func(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
		return []*entity.PartItem{inStockItem(itemOneID)}, nil
	}
	var flipFrom entity.PartItemStatus
	deps.partItemRepo.updateStatusWhereFunc = func(ctx context.Context, ids []string, from, to entity.PartItemStatus) (int64, error) {
		flipFrom = from
		return int64(len(ids)), nil
	}
	deps.requestRepo.updateStatusFunc = func(ctx context.Context, id string, status entity.RequestStatus) error {
		t.Fatal("direct issues must not touch any request")
		return nil
	}
	service := deps.build()

	issue, err := service.Post(context.Background(), storekeeper, issueID)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if issue.Status != entity.IssuePosted {
		t.Errorf("Post() status = %s, want POSTED", issue.Status)
	}
	if flipFrom != entity.PartInStock {
		t.Errorf("Post() flipped from %s, want IN_STOCK", flipFrom)
	}
}

func TestIssueService_Post_Failures(t *testing.T) {
	t.Run("supervisor cannot post", func(t *testing.T) {
		service := newIssueDeps().build()
		_, err := service.Post(context.Background(), supervisor, issueID)
		if apperr.KindOf(err) != apperr.KindNotAuthorized {
			t.Errorf("Post() error kind = %s, want NOT_AUTHORIZED", apperr.KindOf(err))
		}
	})

	t.Run("posted issue cannot post again", func(t *testing.T) {
		deps := newIssueDeps()
		deps.issueRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryIssue, error) {
			issue := draftIssue(nil)
			issue.Status = entity.IssuePosted
			return issue, nil
		}
		service := deps.build()

		_, err := service.Post(context.Background(), storekeeper, issueID)
		if apperr.KindOf(err) != apperr.KindWrongState {
			t.Errorf("Post() error kind = %s, want WRONG_STATE", apperr.KindOf(err))
		}
	})

	t.Run("stale stock surfaces as conflict", func(t *testing.T) {
		deps := newIssueDeps()
		deps.issueRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryIssue, error) {
			return draftIssue(nil), nil
		}
		deps.partItemRepo.getByIDsFunc = func(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
			return []*entity.PartItem{inStockItem(itemOneID)}, nil
		}
		deps.partItemRepo.updateStatusWhereFunc = func(ctx context.Context, ids []string, from, to entity.PartItemStatus) (int64, error) {
			return 0, nil
		}
		service := deps.build()

		_, err := service.Post(context.Background(), storekeeper, issueID)
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Errorf("Post() error kind = %s, want CONFLICT", apperr.KindOf(err))
		}
	})

	t.Run("unit already issued fails revalidation", func(t *testing.T) {
		deps := newIssueDeps()
		deps.issueRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryIssue, error) {
			return draftIssue(nil), nil
		}
		deps.partItemRepo.getByIDsFunc = func(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
			item := inStockItem(itemOneID)
			item.Status = entity.PartIssued
			return []*entity.PartItem{item}, nil
		}
		service := deps.build()

		_, err := service.Post(context.Background(), storekeeper, issueID)
		if apperr.KindOf(err) != apperr.KindWrongState {
			t.Errorf("Post() error kind = %s, want WRONG_STATE", apperr.KindOf(err))
		}
	})
}
