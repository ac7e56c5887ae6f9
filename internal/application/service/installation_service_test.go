package service

import (
	"context"
	"testing"
	"time"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

type installDeps struct {
	installationRepo *mockInstallationRepo
	partItemRepo     *mockPartItemRepo
	issueRepo        *mockIssueRepo
	workOrderSvc     *mockWorkOrderService
	capabilities     port.Capabilities
}

func newInstallDeps() *installDeps {
	return &installDeps{
		installationRepo: &mockInstallationRepo{},
		partItemRepo:     &mockPartItemRepo{},
		issueRepo:        &mockIssueRepo{},
		workOrderSvc:     &mockWorkOrderService{},
		capabilities:     port.Capabilities{ExpenseAudit: true, Installations: true},
	}
}

func (d *installDeps) build() InstallationService {
	return NewInstallationService(
		d.installationRepo,
		d.partItemRepo,
		d.issueRepo,
		d.workOrderSvc,
		d.capabilities,
		&mockTxManager{},
		&mockLogger{},
	)
}

func issuedUnit(id string) *entity.PartItem {
	return &entity.PartItem{
		ID:          id,
		PartID:      partID,
		WarehouseID: warehouseID,
		Status:      entity.PartIssued,
	}
}

func TestInstallationService_Add_Serial(t *testing.T) {
	itemID := itemOneID
	deps := newInstallDeps()
	deps.issueRepo.postedItemIDsByWorkOrderFunc = func(ctx context.Context, woID string) (map[string]bool, error) {
		return map[string]bool{itemOneID: true}, nil
	}
	deps.partItemRepo.getByIDsFunc = func(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
		return []*entity.PartItem{issuedUnit(itemOneID)}, nil
	}
	var installedIDs []string
	deps.partItemRepo.installWhereIssuedFunc = func(ctx context.Context, ids []string, vehicleID string, at time.Time) (int64, error) {
		installedIDs = ids
		return int64(len(ids)), nil
	}
	var saved []*entity.Installation
	deps.installationRepo.createBatchFunc = func(ctx context.Context, installations []*entity.Installation) error {
		saved = installations
		return nil
	}
	markedInProgress := false
	deps.workOrderSvc.markInProgressFunc = func(ctx context.Context, id string) error {
		markedInProgress = true
		return nil
	}
	service := deps.build()

	result, err := service.Add(context.Background(), supervisor, workOrderID, []InstallationItemInput{
		{PartID: partID, PartItemID: &itemID, QtyInstalled: 1},
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Add() = %d installations, want 1", len(result))
	}
	if result[0].VehicleID != "VEH-1" {
		t.Errorf("Add() vehicle = %s, want VEH-1", result[0].VehicleID)
	}
	if len(installedIDs) != 1 || installedIDs[0] != itemOneID {
		t.Errorf("Add() flipped units %v, want [%s]", installedIDs, itemOneID)
	}
	if len(saved) != 1 {
		t.Errorf("Add() persisted %d rows, want 1", len(saved))
	}
	if !markedInProgress {
		t.Errorf("Add() open work order not moved to IN_PROGRESS")
	}
}

func TestInstallationService_Add_Bulk(t *testing.T) {
	tests := []struct {
		name      string
		issued    int
		installed int
		addQty    int
		wantKind  apperr.Kind
	}{
		{"within issued balance", 5, 2, 3, ""},
		{"exceeds issued balance", 5, 2, 4, apperr.KindConflict},
		{"nothing issued", 0, 0, 1, apperr.KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := newInstallDeps()
			deps.issueRepo.postedQtyByWorkOrderFunc = func(ctx context.Context, woID string) (map[string]int, error) {
				return map[string]int{partID: tt.issued}, nil
			}
			deps.installationRepo.installedQtyByWorkOrderFunc = func(ctx context.Context, woID string) (map[string]int, error) {
				return map[string]int{partID: tt.installed}, nil
			}
			service := deps.build()

			result, err := service.Add(context.Background(), supervisor, workOrderID, []InstallationItemInput{
				{PartID: partID, QtyInstalled: tt.addQty},
			})

			if tt.wantKind != "" {
				if apperr.KindOf(err) != tt.wantKind {
					t.Errorf("Add() error kind = %s, want %s", apperr.KindOf(err), tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if result[0].QtyInstalled != tt.addQty {
				t.Errorf("Add() qty = %d, want %d", result[0].QtyInstalled, tt.addQty)
			}
			if result[0].PartItemID != nil {
				t.Errorf("Add() bulk row carries a part_item_id")
			}
		})
	}
}

func TestInstallationService_Add_BulkCountsItemsInSameBatch(t *testing.T) {
	deps := newInstallDeps()
	deps.issueRepo.postedQtyByWorkOrderFunc = func(ctx context.Context, woID string) (map[string]int, error) {
		return map[string]int{partID: 3}, nil
	}
	service := deps.build()

	// two items of 2 against 3 issued: the second must fail
	_, err := service.Add(context.Background(), supervisor, workOrderID, []InstallationItemInput{
		{PartID: partID, QtyInstalled: 2},
		{PartID: partID, QtyInstalled: 2},
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("Add() error kind = %s, want CONFLICT", apperr.KindOf(err))
	}
}

func TestInstallationService_Add_Failures(t *testing.T) {
	itemID := itemOneID

	t.Run("capability disabled", func(t *testing.T) {
		deps := newInstallDeps()
		deps.capabilities = port.Capabilities{ExpenseAudit: true, Installations: false}
		service := deps.build()

		_, err := service.Add(context.Background(), supervisor, workOrderID, []InstallationItemInput{
			{PartID: partID, QtyInstalled: 1},
		})
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Errorf("Add() error kind = %s, want CONFLICT", apperr.KindOf(err))
		}
	})

	t.Run("closed work order", func(t *testing.T) {
		deps := newInstallDeps()
		deps.workOrderSvc.getWorkOrderFunc = func(ctx context.Context, id string) (*entity.WorkOrder, error) {
			return &entity.WorkOrder{ID: id, VehicleID: "VEH-1", Status: entity.WorkOrderCompleted}, nil
		}
		service := deps.build()

		_, err := service.Add(context.Background(), supervisor, workOrderID, []InstallationItemInput{
			{PartID: partID, QtyInstalled: 1},
		})
		if apperr.KindOf(err) != apperr.KindWrongState {
			t.Errorf("Add() error kind = %s, want WRONG_STATE", apperr.KindOf(err))
		}
	})

	t.Run("serial qty other than one", func(t *testing.T) {
		service := newInstallDeps().build()
		_, err := service.Add(context.Background(), supervisor, workOrderID, []InstallationItemInput{
			{PartID: partID, PartItemID: &itemID, QtyInstalled: 2},
		})
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("Add() error kind = %s, want VALIDATION", apperr.KindOf(err))
		}
	})

	t.Run("serial unit issued under another work order", func(t *testing.T) {
		deps := newInstallDeps()
		deps.issueRepo.postedItemIDsByWorkOrderFunc = func(ctx context.Context, woID string) (map[string]bool, error) {
			return map[string]bool{}, nil
		}
		deps.partItemRepo.getByIDsFunc = func(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
			return []*entity.PartItem{issuedUnit(itemOneID)}, nil
		}
		service := deps.build()

		_, err := service.Add(context.Background(), supervisor, workOrderID, []InstallationItemInput{
			{PartID: partID, PartItemID: &itemID, QtyInstalled: 1},
		})
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Errorf("Add() error kind = %s, want CONFLICT", apperr.KindOf(err))
		}
	})

	t.Run("serial unit not in issued state", func(t *testing.T) {
		deps := newInstallDeps()
		deps.issueRepo.postedItemIDsByWorkOrderFunc = func(ctx context.Context, woID string) (map[string]bool, error) {
			return map[string]bool{itemOneID: true}, nil
		}
		deps.partItemRepo.getByIDsFunc = func(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
			unit := issuedUnit(itemOneID)
			unit.Status = entity.PartInstalled
			return []*entity.PartItem{unit}, nil
		}
		service := deps.build()

		_, err := service.Add(context.Background(), supervisor, workOrderID, []InstallationItemInput{
			{PartID: partID, PartItemID: &itemID, QtyInstalled: 1},
		})
		if apperr.KindOf(err) != apperr.KindWrongState {
			t.Errorf("Add() error kind = %s, want WRONG_STATE", apperr.KindOf(err))
		}
	})

	t.Run("guarded install short count conflicts", func(t *testing.T) {
		deps := newInstallDeps()
		deps.issueRepo.postedItemIDsByWorkOrderFunc = func(ctx context.Context, woID string) (map[string]bool, error) {
			return map[string]bool{itemOneID: true}, nil
		}
		deps.partItemRepo.getByIDsFunc = func(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
			return []*entity.PartItem{issuedUnit(itemOneID)}, nil
		}
		deps.partItemRepo.installWhereIssuedFunc = func(ctx context.Context, ids []string, vehicleID string, at time.Time) (int64, error) {
			return 0, nil
		}
		service := deps.build()

		_, err := service.Add(context.Background(), supervisor, workOrderID, []InstallationItemInput{
			{PartID: partID, PartItemID: &itemID, QtyInstalled: 1},
		})
		if apperr.KindOf(err) != apperr.KindConflict {
			t.Errorf("Add() error kind = %s, want CONFLICT", apperr.KindOf(err))
		}
	})
}

func TestInstallationService_ListByWorkOrder_CapabilityOff(t *testing.T) {
	deps := newInstallDeps()
	deps.capabilities = port.Capabilities{ExpenseAudit: true, Installations: false}
	deps.installationRepo.listByWorkOrderFunc = func(ctx context.Context, woID string) ([]*entity.Installation, error) {
		t.Fatal("installation repo must not be queried when the capability is off")
		return nil, nil
	}
	service := deps.build()

	installations, err := service.ListByWorkOrder(context.Background(), supervisor, workOrderID)
	if err != nil {
		t.Fatalf("ListByWorkOrder() error = %v", err)
	}
	if len(installations) != 0 {
		t.Errorf("ListByWorkOrder() = %d rows, want empty", len(installations))
	}
}
