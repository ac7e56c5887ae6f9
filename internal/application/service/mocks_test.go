package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetworks/fleet-finance/internal/application/port"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// Mock repositories

type mockAdvanceRepo struct {
	createFunc       func(ctx context.Context, advance *entity.CashAdvance) error
	getByIDFunc      func(ctx context.Context, id string) (*entity.CashAdvance, error)
	listFunc         func(ctx context.Context, filter port.AdvanceFilter) ([]*entity.CashAdvance, error)
	updateStatusFunc func(ctx context.Context, id string, status entity.AdvanceStatus) error
	closeFunc        func(ctx context.Context, id string, settlement entity.Settlement) error
	reopenFunc       func(ctx context.Context, id string) error
}

func (m *mockAdvanceRepo) Create(ctx context.Context, advance *entity.CashAdvance) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, advance)
	}
	return nil
}

func (m *mockAdvanceRepo) GetByID(ctx context.Context, id string) (*entity.CashAdvance, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockAdvanceRepo) List(ctx context.Context, filter port.AdvanceFilter) ([]*entity.CashAdvance, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.CashAdvance{}, nil
}

func (m *mockAdvanceRepo) UpdateStatus(ctx context.Context, id string, status entity.AdvanceStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockAdvanceRepo) Close(ctx context.Context, id string, settlement entity.Settlement) error {
	if m.closeFunc != nil {
		return m.closeFunc(ctx, id, settlement)
	}
	return nil
}

func (m *mockAdvanceRepo) Reopen(ctx context.Context, id string) error {
	if m.reopenFunc != nil {
		return m.reopenFunc(ctx, id)
	}
	return nil
}

type mockExpenseRepo struct {
	createFunc                 func(ctx context.Context, expense *entity.CashExpense) error
	getByIDFunc                func(ctx context.Context, id string) (*entity.CashExpense, error)
	listFunc                   func(ctx context.Context, filter port.ExpenseFilter) ([]*entity.CashExpense, error)
	updateFunc                 func(ctx context.Context, expense *entity.CashExpense) error
	countOpenByAdvanceFunc     func(ctx context.Context, advanceID string) (int, error)
	sumSettledByAdvanceFunc    func(ctx context.Context, advanceID string) (decimal.Decimal, error)
	sumSettledByAdvanceIDsFunc func(ctx context.Context, advanceIDs []string) (map[string]decimal.Decimal, error)
	sumsByStatusFunc           func(ctx context.Context, filter port.ExpenseFilter) (map[entity.ApprovalStatus]port.StatusTotal, error)
	tripTotalsFunc             func(ctx context.Context, tripID string) (*port.TripExpenseTotals, error)
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *entity.CashExpense) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, expense)
	}
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id string) (*entity.CashExpense, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockExpenseRepo) List(ctx context.Context, filter port.ExpenseFilter) ([]*entity.CashExpense, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.CashExpense{}, nil
}

func (m *mockExpenseRepo) Update(ctx context.Context, expense *entity.CashExpense) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, expense)
	}
	return nil
}

func (m *mockExpenseRepo) CountOpenByAdvance(ctx context.Context, advanceID string) (int, error) {
	if m.countOpenByAdvanceFunc != nil {
		return m.countOpenByAdvanceFunc(ctx, advanceID)
	}
	return 0, nil
}

func (m *mockExpenseRepo) SumSettledByAdvance(ctx context.Context, advanceID string) (decimal.Decimal, error) {
	if m.sumSettledByAdvanceFunc != nil {
		return m.sumSettledByAdvanceFunc(ctx, advanceID)
	}
	return decimal.Zero, nil
}

func (m *mockExpenseRepo) SumSettledByAdvanceIDs(ctx context.Context, advanceIDs []string) (map[string]decimal.Decimal, error) {
	if m.sumSettledByAdvanceIDsFunc != nil {
		return m.sumSettledByAdvanceIDsFunc(ctx, advanceIDs)
	}
	return map[string]decimal.Decimal{}, nil
}

func (m *mockExpenseRepo) SumsByStatus(ctx context.Context, filter port.ExpenseFilter) (map[entity.ApprovalStatus]port.StatusTotal, error) {
	if m.sumsByStatusFunc != nil {
		return m.sumsByStatusFunc(ctx, filter)
	}
	return map[entity.ApprovalStatus]port.StatusTotal{}, nil
}

func (m *mockExpenseRepo) TripTotals(ctx context.Context, tripID string) (*port.TripExpenseTotals, error) {
	if m.tripTotalsFunc != nil {
		return m.tripTotalsFunc(ctx, tripID)
	}
	return &port.TripExpenseTotals{}, nil
}

type mockExpenseAuditRepo struct {
	createFunc        func(ctx context.Context, audit *entity.ExpenseAudit) error
	listByExpenseFunc func(ctx context.Context, expenseID string) ([]*entity.ExpenseAudit, error)
}

func (m *mockExpenseAuditRepo) Create(ctx context.Context, audit *entity.ExpenseAudit) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, audit)
	}
	return nil
}

func (m *mockExpenseAuditRepo) ListByExpense(ctx context.Context, expenseID string) ([]*entity.ExpenseAudit, error) {
	if m.listByExpenseFunc != nil {
		return m.listByExpenseFunc(ctx, expenseID)
	}
	return []*entity.ExpenseAudit{}, nil
}

type mockRequestRepo struct {
	createFunc            func(ctx context.Context, request *entity.InventoryRequest) error
	getByIDFunc           func(ctx context.Context, id string) (*entity.InventoryRequest, error)
	listFunc              func(ctx context.Context, filter port.RequestFilter) ([]*entity.InventoryRequest, error)
	updateStatusFunc      func(ctx context.Context, id string, status entity.RequestStatus) error
	updateStatusNotesFunc func(ctx context.Context, id string, status entity.RequestStatus, notes *string) error
}

func (m *mockRequestRepo) Create(ctx context.Context, request *entity.InventoryRequest) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, request)
	}
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*entity.InventoryRequest, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockRequestRepo) List(ctx context.Context, filter port.RequestFilter) ([]*entity.InventoryRequest, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.InventoryRequest{}, nil
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id string, status entity.RequestStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockRequestRepo) UpdateStatusNotes(ctx context.Context, id string, status entity.RequestStatus, notes *string) error {
	if m.updateStatusNotesFunc != nil {
		return m.updateStatusNotesFunc(ctx, id, status, notes)
	}
	return nil
}

type mockReservationRepo struct {
	createBatchFunc     func(ctx context.Context, requestID string, partItemIDs []string) error
	listByRequestFunc   func(ctx context.Context, requestID string) ([]*entity.Reservation, error)
	countByRequestFunc  func(ctx context.Context, requestID string) (int, error)
	deleteByRequestFunc func(ctx context.Context, requestID string) error
}

func (m *mockReservationRepo) CreateBatch(ctx context.Context, requestID string, partItemIDs []string) error {
	if m.createBatchFunc != nil {
		return m.createBatchFunc(ctx, requestID, partItemIDs)
	}
	return nil
}

func (m *mockReservationRepo) ListByRequest(ctx context.Context, requestID string) ([]*entity.Reservation, error) {
	if m.listByRequestFunc != nil {
		return m.listByRequestFunc(ctx, requestID)
	}
	return []*entity.Reservation{}, nil
}

func (m *mockReservationRepo) CountByRequest(ctx context.Context, requestID string) (int, error) {
	if m.countByRequestFunc != nil {
		return m.countByRequestFunc(ctx, requestID)
	}
	return 0, nil
}

func (m *mockReservationRepo) DeleteByRequest(ctx context.Context, requestID string) error {
	if m.deleteByRequestFunc != nil {
		return m.deleteByRequestFunc(ctx, requestID)
	}
	return nil
}

type mockPartItemRepo struct {
	getByIDsFunc           func(ctx context.Context, ids []string) ([]*entity.PartItem, error)
	pickInStockFIFOFunc    func(ctx context.Context, warehouseID, partID string, limit int) ([]*entity.PartItem, error)
	updateStatusWhereFunc  func(ctx context.Context, ids []string, from, to entity.PartItemStatus) (int64, error)
	installWhereIssuedFunc func(ctx context.Context, ids []string, vehicleID string, at time.Time) (int64, error)
}

func (m *mockPartItemRepo) GetByIDs(ctx context.Context, ids []string) ([]*entity.PartItem, error) {
	if m.getByIDsFunc != nil {
		return m.getByIDsFunc(ctx, ids)
	}
	return []*entity.PartItem{}, nil
}

func (m *mockPartItemRepo) PickInStockFIFO(ctx context.Context, warehouseID, partID string, limit int) ([]*entity.PartItem, error) {
	if m.pickInStockFIFOFunc != nil {
		return m.pickInStockFIFOFunc(ctx, warehouseID, partID, limit)
	}
	return []*entity.PartItem{}, nil
}

func (m *mockPartItemRepo) UpdateStatusWhere(ctx context.Context, ids []string, from, to entity.PartItemStatus) (int64, error) {
	if m.updateStatusWhereFunc != nil {
		return m.updateStatusWhereFunc(ctx, ids, from, to)
	}
	return int64(len(ids)), nil
}

func (m *mockPartItemRepo) InstallWhereIssued(ctx context.Context, ids []string, vehicleID string, at time.Time) (int64, error) {
	if m.installWhereIssuedFunc != nil {
		return m.installWhereIssuedFunc(ctx, ids, vehicleID, at)
	}
	return int64(len(ids)), nil
}

type mockIssueRepo struct {
	createFunc                   func(ctx context.Context, issue *entity.InventoryIssue) error
	getByIDFunc                  func(ctx context.Context, id string) (*entity.InventoryIssue, error)
	listFunc                     func(ctx context.Context, filter port.IssueFilter) ([]*entity.InventoryIssue, error)
	markPostedFunc               func(ctx context.Context, id string, at time.Time) error
	postedQtyByWorkOrderFunc     func(ctx context.Context, workOrderID string) (map[string]int, error)
	postedItemIDsByWorkOrderFunc func(ctx context.Context, workOrderID string) (map[string]bool, error)
}

func (m *mockIssueRepo) Create(ctx context.Context, issue *entity.InventoryIssue) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, issue)
	}
	return nil
}

func (m *mockIssueRepo) GetByID(ctx context.Context, id string) (*entity.InventoryIssue, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockIssueRepo) List(ctx context.Context, filter port.IssueFilter) ([]*entity.InventoryIssue, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.InventoryIssue{}, nil
}

func (m *mockIssueRepo) MarkPosted(ctx context.Context, id string, at time.Time) error {
	if m.markPostedFunc != nil {
		return m.markPostedFunc(ctx, id, at)
	}
	return nil
}

func (m *mockIssueRepo) PostedQtyByWorkOrder(ctx context.Context, workOrderID string) (map[string]int, error) {
	if m.postedQtyByWorkOrderFunc != nil {
		return m.postedQtyByWorkOrderFunc(ctx, workOrderID)
	}
	return map[string]int{}, nil
}

func (m *mockIssueRepo) PostedItemIDsByWorkOrder(ctx context.Context, workOrderID string) (map[string]bool, error) {
	if m.postedItemIDsByWorkOrderFunc != nil {
		return m.postedItemIDsByWorkOrderFunc(ctx, workOrderID)
	}
	return map[string]bool{}, nil
}

type mockInstallationRepo struct {
	createBatchFunc             func(ctx context.Context, installations []*entity.Installation) error
	listByWorkOrderFunc         func(ctx context.Context, workOrderID string) ([]*entity.Installation, error)
	installedQtyByWorkOrderFunc func(ctx context.Context, workOrderID string) (map[string]int, error)
}

func (m *mockInstallationRepo) CreateBatch(ctx context.Context, installations []*entity.Installation) error {
	if m.createBatchFunc != nil {
		return m.createBatchFunc(ctx, installations)
	}
	return nil
}

func (m *mockInstallationRepo) ListByWorkOrder(ctx context.Context, workOrderID string) ([]*entity.Installation, error) {
	if m.listByWorkOrderFunc != nil {
		return m.listByWorkOrderFunc(ctx, workOrderID)
	}
	return []*entity.Installation{}, nil
}

func (m *mockInstallationRepo) InstalledQtyByWorkOrder(ctx context.Context, workOrderID string) (map[string]int, error) {
	if m.installedQtyByWorkOrderFunc != nil {
		return m.installedQtyByWorkOrderFunc(ctx, workOrderID)
	}
	return map[string]int{}, nil
}

type mockUserRepo struct {
	existsFunc func(ctx context.Context, id string) (bool, error)
}

func (m *mockUserRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.existsFunc != nil {
		return m.existsFunc(ctx, id)
	}
	return true, nil
}

// Mock external collaborators

type mockTripService struct {
	getFinancialStatusFunc   func(ctx context.Context, tripID string) (entity.TripFinancialStatus, error)
	isAssignedSupervisorFunc func(ctx context.Context, tripID string, vehicleID *string, userID string) (bool, error)
	setFinancialStatusFunc   func(ctx context.Context, tripID string, status entity.TripFinancialStatus) error
}

func (m *mockTripService) GetFinancialStatus(ctx context.Context, tripID string) (entity.TripFinancialStatus, error) {
	if m.getFinancialStatusFunc != nil {
		return m.getFinancialStatusFunc(ctx, tripID)
	}
	return entity.TripFinanceOpen, nil
}

func (m *mockTripService) IsAssignedSupervisor(ctx context.Context, tripID string, vehicleID *string, userID string) (bool, error) {
	if m.isAssignedSupervisorFunc != nil {
		return m.isAssignedSupervisorFunc(ctx, tripID, vehicleID, userID)
	}
	return true, nil
}

func (m *mockTripService) SetFinancialStatus(ctx context.Context, tripID string, status entity.TripFinancialStatus) error {
	if m.setFinancialStatusFunc != nil {
		return m.setFinancialStatusFunc(ctx, tripID, status)
	}
	return nil
}

type mockPortfolioService struct {
	isInActivePortfolioFunc func(ctx context.Context, vehicleID, supervisorID string) (bool, error)
}

func (m *mockPortfolioService) IsInActivePortfolio(ctx context.Context, vehicleID, supervisorID string) (bool, error) {
	if m.isInActivePortfolioFunc != nil {
		return m.isInActivePortfolioFunc(ctx, vehicleID, supervisorID)
	}
	return true, nil
}

type mockWorkOrderService struct {
	getWorkOrderFunc   func(ctx context.Context, id string) (*entity.WorkOrder, error)
	markInProgressFunc func(ctx context.Context, id string) error
}

func (m *mockWorkOrderService) GetWorkOrder(ctx context.Context, id string) (*entity.WorkOrder, error) {
	if m.getWorkOrderFunc != nil {
		return m.getWorkOrderFunc(ctx, id)
	}
	return &entity.WorkOrder{ID: id, VehicleID: "VEH-1", Status: entity.WorkOrderOpen}, nil
}

func (m *mockWorkOrderService) MarkInProgress(ctx context.Context, id string) error {
	if m.markInProgressFunc != nil {
		return m.markInProgressFunc(ctx, id)
	}
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
