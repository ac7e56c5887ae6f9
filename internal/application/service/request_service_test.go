package service

import (
	"context"
	"strings"
	"testing"

	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

const (
	requestID   = "88888888-8888-8888-8888-888888888888"
	warehouseID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	partID      = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

var storekeeper = entity.Actor{ID: "cccccccc-cccc-cccc-cccc-cccccccccccc", Role: entity.RoleStorekeeper}

type requestDeps struct {
	requestRepo     *mockRequestRepo
	reservationRepo *mockReservationRepo
	partItemRepo    *mockPartItemRepo
	workOrderSvc    *mockWorkOrderService
}

func newRequestDeps() *requestDeps {
	return &requestDeps{
		requestRepo:     &mockRequestRepo{},
		reservationRepo: &mockReservationRepo{},
		partItemRepo:    &mockPartItemRepo{},
		workOrderSvc:    &mockWorkOrderService{},
	}
}

func (d *requestDeps) build() RequestService {
	return NewRequestService(
		d.requestRepo,
		d.reservationRepo,
		d.partItemRepo,
		d.workOrderSvc,
		&mockTxManager{},
		&mockLogger{},
	)
}

func pendingRequest(neededQty int) *entity.InventoryRequest {
	return &entity.InventoryRequest{
		ID:          requestID,
		WarehouseID: warehouseID,
		RequestedBy: supervisorID,
		Status:      entity.RequestPending,
		Lines: []entity.RequestLine{
			{ID: "dddddddd-dddd-dddd-dddd-dddddddddddd", RequestID: requestID, PartID: partID, NeededQty: neededQty},
		},
	}
}

func stockItems(n int) []*entity.PartItem {
	items := make([]*entity.PartItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, &entity.PartItem{
			ID:          "eeeeeeee-eeee-eeee-eeee-ee000000000" + string(rune('0'+i)),
			PartID:      partID,
			WarehouseID: warehouseID,
			Status:      entity.PartInStock,
		})
	}
	return items
}

func TestRequestService_Create(t *testing.T) {
	tests := []struct {
		name        string
		warehouseID string
		lines       []RequestLineInput
		wantKind    apperr.Kind
	}{
		{
			name:        "valid single line",
			warehouseID: warehouseID,
			lines:       []RequestLineInput{{PartID: partID, NeededQty: 2}},
		},
		{
			name:        "no lines",
			warehouseID: warehouseID,
			lines:       nil,
			wantKind:    apperr.KindValidation,
		},
		{
			name:        "zero quantity",
			warehouseID: warehouseID,
			lines:       []RequestLineInput{{PartID: partID, NeededQty: 0}},
			wantKind:    apperr.KindValidation,
		},
		{
			name:        "bad warehouse id",
			warehouseID: "not-a-uuid",
			lines:       []RequestLineInput{{PartID: partID, NeededQty: 1}},
			wantKind:    apperr.KindValidation,
		},
		{
			name:        "bad part id",
			warehouseID: warehouseID,
			lines:       []RequestLineInput{{PartID: "nope", NeededQty: 1}},
			wantKind:    apperr.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newRequestDeps().build()

			request, err := service.Create(context.Background(), supervisor, tt.warehouseID, nil, tt.lines, nil)

			if tt.wantKind != "" {
				if apperr.KindOf(err) != tt.wantKind {
					t.Errorf("Create() error kind = %s, want %s", apperr.KindOf(err), tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if request.Status != entity.RequestPending {
				t.Errorf("Create() status = %s, want PENDING", request.Status)
			}
			if len(request.Lines) != len(tt.lines) {
				t.Errorf("Create() lines = %d, want %d", len(request.Lines), len(tt.lines))
			}
			if request.RequestedBy != supervisorID {
				t.Errorf("Create() requested_by = %s, want %s", request.RequestedBy, supervisorID)
			}
		})
	}
}

func TestRequestService_Approve(t *testing.T) {
	t.Run("reserves FIFO stock and approves", func(t *testing.T) {
		deps := newRequestDeps()
		deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
			return pendingRequest(2), nil
		}
		deps.partItemRepo.pickInStockFIFOFunc = func(ctx context.Context, wid, pid string, limit int) ([]*entity.PartItem, error) {
			if wid != warehouseID || pid != partID {
				t.Errorf("PickInStockFIFO(%s, %s), want warehouse %s part %s", wid, pid, warehouseID, partID)
			}
			return stockItems(2), nil
		}
		var reservedIDs []string
		deps.reservationRepo.createBatchFunc = func(ctx context.Context, rid string, itemIDs []string) error {
			reservedIDs = itemIDs
			return nil
		}
		var finalStatus entity.RequestStatus
		deps.requestRepo.updateStatusFunc = func(ctx context.Context, id string, status entity.RequestStatus) error {
			finalStatus = status
			return nil
		}
		service := deps.build()

		request, err := service.Approve(context.Background(), storekeeper, requestID)
		if err != nil {
			t.Fatalf("Approve() error = %v", err)
		}
		if request.Status != entity.RequestApproved {
			t.Errorf("Approve() status = %s, want APPROVED", request.Status)
		}
		if finalStatus != entity.RequestApproved {
			t.Errorf("Approve() persisted status = %s, want APPROVED", finalStatus)
		}
		if len(reservedIDs) != 2 {
			t.Errorf("Approve() reserved %d units, want 2", len(reservedIDs))
		}
	})

	t.Run("supervisor cannot approve", func(t *testing.T) {
		service := newRequestDeps().build()
		_, err := service.Approve(context.Background(), supervisor, requestID)
		if apperr.KindOf(err) != apperr.KindNotAuthorized {
			t.Errorf("Approve() error kind = %s, want NOT_AUTHORIZED", apperr.KindOf(err))
		}
	})

	t.Run("already reserved request conflicts", func(t *testing.T) {
		deps := newRequestDeps()
		deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
			return pendingRequest(1), nil
		}
		deps.reservationRepo.countByRequestFunc = func(ctx context.Context, rid string) (int, error) {
			return 1, nil
		}
		service := deps.build()

		_, err := service.Approve(context.Background(), storekeeper, requestID)
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Errorf("Approve() error kind = %s, want CONFLICT", apperr.KindOf(err))
		}
	})

	t.Run("insufficient stock conflicts with part detail", func(t *testing.T) {
		deps := newRequestDeps()
		deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
			return pendingRequest(3), nil
		}
		deps.partItemRepo.pickInStockFIFOFunc = func(ctx context.Context, wid, pid string, limit int) ([]*entity.PartItem, error) {
			return stockItems(1), nil
		}
		service := deps.build()

		_, err := service.Approve(context.Background(), storekeeper, requestID)
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Fatalf("Approve() error kind = %s, want CONFLICT", apperr.KindOf(err))
		}
		if apperr.DetailsOf(err)["part_id"] != partID {
			t.Errorf("Approve() details = %v, want part_id %s", apperr.DetailsOf(err), partID)
		}
	})

	t.Run("racing approval surfaces as conflict", func(t *testing.T) {
		deps := newRequestDeps()
		deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
			return pendingRequest(2), nil
		}
		deps.partItemRepo.pickInStockFIFOFunc = func(ctx context.Context, wid, pid string, limit int) ([]*entity.PartItem, error) {
			return stockItems(2), nil
		}
		deps.partItemRepo.updateStatusWhereFunc = func(ctx context.Context, ids []string, from, to entity.PartItemStatus) (int64, error) {
			return 1, nil
		}
		service := deps.build()

		_, err := service.Approve(context.Background(), storekeeper, requestID)
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Errorf("Approve() error kind = %s, want CONFLICT", apperr.KindOf(err))
		}
	})

	t.Run("non-pending request rejected", func(t *testing.T) {
		deps := newRequestDeps()
		deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
			r := pendingRequest(1)
			r.Status = entity.RequestApproved
			return r, nil
		}
		service := deps.build()

		_, err := service.Approve(context.Background(), storekeeper, requestID)
		if apperr.KindOf(err) != apperr.KindWrongState {
			t.Errorf("Approve() error kind = %s, want WRONG_STATE", apperr.KindOf(err))
		}
	})
}

func TestRequestService_Unreserve(t *testing.T) {
	t.Run("releases units and returns to pending", func(t *testing.T) {
		deps := newRequestDeps()
		deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
			r := pendingRequest(2)
			r.Status = entity.RequestApproved
			return r, nil
		}
		deps.reservationRepo.listByRequestFunc = func(ctx context.Context, rid string) ([]*entity.Reservation, error) {
			return []*entity.Reservation{
				{ID: "r1", RequestID: requestID, PartItemID: "item-1"},
				{ID: "r2", RequestID: requestID, PartItemID: "item-2"},
			}, nil
		}
		var released []string
		var from, to entity.PartItemStatus
		deps.partItemRepo.updateStatusWhereFunc = func(ctx context.Context, ids []string, fromStatus, toStatus entity.PartItemStatus) (int64, error) {
			released, from, to = ids, fromStatus, toStatus
			return int64(len(ids)), nil
		}
		deleted := false
		deps.reservationRepo.deleteByRequestFunc = func(ctx context.Context, rid string) error {
			deleted = true
			return nil
		}
		service := deps.build()

		request, err := service.Unreserve(context.Background(), storekeeper, requestID)
		if err != nil {
			t.Fatalf("Unreserve() error = %v", err)
		}
		if request.Status != entity.RequestPending {
			t.Errorf("Unreserve() status = %s, want PENDING", request.Status)
		}
		if len(released) != 2 || from != entity.PartReserved || to != entity.PartInStock {
			t.Errorf("Unreserve() released %v from %s to %s", released, from, to)
		}
		if !deleted {
			t.Errorf("Unreserve() reservation rows not deleted")
		}
	})

	t.Run("pending request cannot unreserve", func(t *testing.T) {
		deps := newRequestDeps()
		deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
			return pendingRequest(1), nil
		}
		service := deps.build()

		_, err := service.Unreserve(context.Background(), storekeeper, requestID)
		if apperr.KindOf(err) != apperr.KindWrongState {
			t.Errorf("Unreserve() error kind = %s, want WRONG_STATE", apperr.KindOf(err))
		}
	})
}

func TestRequestService_Reject(t *testing.T) {
	t.Run("rejects approved request and releases stock", func(t *testing.T) {
		deps := newRequestDeps()
		existingNotes := "urgent"
		deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
			r := pendingRequest(1)
			r.Status = entity.RequestApproved
			r.Notes = &existingNotes
			return r, nil
		}
		deps.reservationRepo.listByRequestFunc = func(ctx context.Context, rid string) ([]*entity.Reservation, error) {
			return []*entity.Reservation{{ID: "r1", RequestID: requestID, PartItemID: "item-1"}}, nil
		}
		released := false
		deps.partItemRepo.updateStatusWhereFunc = func(ctx context.Context, ids []string, from, to entity.PartItemStatus) (int64, error) {
			released = true
			return int64(len(ids)), nil
		}
		service := deps.build()

		request, err := service.Reject(context.Background(), storekeeper, requestID, "parts reallocated")
		if err != nil {
			t.Fatalf("Reject() error = %v", err)
		}
		if request.Status != entity.RequestRejected {
			t.Errorf("Reject() status = %s, want REJECTED", request.Status)
		}
		if !released {
			t.Errorf("Reject() reserved stock not released")
		}
		if request.Notes == nil || !strings.Contains(*request.Notes, "Rejected: parts reallocated") {
			t.Errorf("Reject() notes = %v, want rejection appended", request.Notes)
		}
		if !strings.HasPrefix(*request.Notes, "urgent\n") {
			t.Errorf("Reject() original notes lost: %q", *request.Notes)
		}
	})

	t.Run("reason is required", func(t *testing.T) {
		service := newRequestDeps().build()
		_, err := service.Reject(context.Background(), storekeeper, requestID, "  ")
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("Reject() error kind = %s, want VALIDATION", apperr.KindOf(err))
		}
	})

	t.Run("issued request cannot be rejected", func(t *testing.T) {
		deps := newRequestDeps()
		deps.requestRepo.getByIDFunc = func(ctx context.Context, id string) (*entity.InventoryRequest, error) {
			r := pendingRequest(1)
			r.Status = entity.RequestIssued
			return r, nil
		}
		service := deps.build()

		_, err := service.Reject(context.Background(), storekeeper, requestID, "too late")
		if apperr.KindOf(err) != apperr.KindWrongState {
			t.Errorf("Reject() error kind = %s, want WRONG_STATE", apperr.KindOf(err))
		}
	})
}
