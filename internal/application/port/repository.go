package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// TransactionManager executes a function within a database transaction.
// Nested calls reuse the enclosing transaction.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AdvanceFilter narrows advance listings.
type AdvanceFilter struct {
	Status       *entity.AdvanceStatus
	SupervisorID *string
	Search       string
	Limit        int
	Offset       int
}

// AdvanceRepository persists cash advances
type AdvanceRepository interface {
	Create(ctx context.Context, advance *entity.CashAdvance) error
	GetByID(ctx context.Context, id string) (*entity.CashAdvance, error)
	List(ctx context.Context, filter AdvanceFilter) ([]*entity.CashAdvance, error)
	UpdateStatus(ctx context.Context, id string, status entity.AdvanceStatus) error
	// Close stamps every settlement field and sets status CLOSED in one update.
	Close(ctx context.Context, id string, settlement entity.Settlement) error
	// Reopen clears every settlement field and sets status IN_REVIEW.
	Reopen(ctx context.Context, id string) error
}

// ExpenseFilter narrows expense listings and aggregations.
type ExpenseFilter struct {
	Status        *entity.ApprovalStatus
	PaymentSource *entity.PaymentSource
	CreatedBy     *string
	AdvanceID     *string
	TripID        *string
	Search        string
	Limit         int
	Offset        int
}

// StatusTotal is one approval-status bucket of an expense aggregation.
type StatusTotal struct {
	Sum   decimal.Decimal
	Count int
}

// TripExpenseTotals is the per-trip aggregation the reconciliation reporter
// builds: totals by approval bucket, approved split by payment source.
type TripExpenseTotals struct {
	TotalRecorded   decimal.Decimal
	TotalApproved   decimal.Decimal
	TotalPending    decimal.Decimal
	TotalRejected   decimal.Decimal
	ApprovedAdvance decimal.Decimal
	ApprovedCompany decimal.Decimal
}

// ExpenseRepository persists cash expenses
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.CashExpense) error
	GetByID(ctx context.Context, id string) (*entity.CashExpense, error)
	List(ctx context.Context, filter ExpenseFilter) ([]*entity.CashExpense, error)
	// Update writes all mutable approval fields of the expense row.
	Update(ctx context.Context, expense *entity.CashExpense) error
	// CountOpenByAdvance counts PENDING and APPEALED expenses under an advance.
	CountOpenByAdvance(ctx context.Context, advanceID string) (int, error)
	// SumSettledByAdvance sums APPROVED and REAPPROVED expense amounts.
	SumSettledByAdvance(ctx context.Context, advanceID string) (decimal.Decimal, error)
	SumSettledByAdvanceIDs(ctx context.Context, advanceIDs []string) (map[string]decimal.Decimal, error)
	SumsByStatus(ctx context.Context, filter ExpenseFilter) (map[entity.ApprovalStatus]StatusTotal, error)
	TripTotals(ctx context.Context, tripID string) (*TripExpenseTotals, error)
}

// ExpenseAuditRepository persists the append-only expense audit trail
type ExpenseAuditRepository interface {
	Create(ctx context.Context, audit *entity.ExpenseAudit) error
	ListByExpense(ctx context.Context, expenseID string) ([]*entity.ExpenseAudit, error)
}

// RequestFilter narrows inventory request listings.
type RequestFilter struct {
	Status      *entity.RequestStatus
	WarehouseID *string
	WorkOrderID *string
}

// RequestRepository persists inventory requests with their lines
type RequestRepository interface {
	Create(ctx context.Context, request *entity.InventoryRequest) error
	GetByID(ctx context.Context, id string) (*entity.InventoryRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]*entity.InventoryRequest, error)
	UpdateStatus(ctx context.Context, id string, status entity.RequestStatus) error
	UpdateStatusNotes(ctx context.Context, id string, status entity.RequestStatus, notes *string) error
}

// ReservationRepository persists request-to-part-unit reservation rows
type ReservationRepository interface {
	CreateBatch(ctx context.Context, requestID string, partItemIDs []string) error
	ListByRequest(ctx context.Context, requestID string) ([]*entity.Reservation, error)
	CountByRequest(ctx context.Context, requestID string) (int, error)
	DeleteByRequest(ctx context.Context, requestID string) error
}

// PartItemRepository persists serialized part units
type PartItemRepository interface {
	GetByIDs(ctx context.Context, ids []string) ([]*entity.PartItem, error)
	// PickInStockFIFO selects up to limit IN_STOCK units of one part in one
	// warehouse, oldest received first.
	PickInStockFIFO(ctx context.Context, warehouseID, partID string, limit int) ([]*entity.PartItem, error)
	// UpdateStatusWhere flips status for every id currently in the expected
	// prior status and returns the affected-row count. Callers must treat a
	// count short of len(ids) as a concurrency conflict.
	UpdateStatusWhere(ctx context.Context, ids []string, from, to entity.PartItemStatus) (int64, error)
	// InstallWhereIssued flips ISSUED units to INSTALLED, stamping the vehicle
	// and install time, with the same affected-row-count contract.
	InstallWhereIssued(ctx context.Context, ids []string, vehicleID string, at time.Time) (int64, error)
}

// IssueFilter narrows inventory issue listings.
type IssueFilter struct {
	Status      *entity.IssueStatus
	WarehouseID *string
	RequestID   *string
	WorkOrderID *string
}

// IssueRepository persists inventory issue documents with their lines
type IssueRepository interface {
	Create(ctx context.Context, issue *entity.InventoryIssue) error
	GetByID(ctx context.Context, id string) (*entity.InventoryIssue, error)
	List(ctx context.Context, filter IssueFilter) ([]*entity.InventoryIssue, error)
	MarkPosted(ctx context.Context, id string, at time.Time) error
	// PostedQtyByWorkOrder returns part_id -> total qty on POSTED issues.
	PostedQtyByWorkOrder(ctx context.Context, workOrderID string) (map[string]int, error)
	// PostedItemIDsByWorkOrder returns the serial units issued to the work
	// order through POSTED issues.
	PostedItemIDsByWorkOrder(ctx context.Context, workOrderID string) (map[string]bool, error)
}

// InstallationRepository persists work order installations
type InstallationRepository interface {
	CreateBatch(ctx context.Context, installations []*entity.Installation) error
	ListByWorkOrder(ctx context.Context, workOrderID string) ([]*entity.Installation, error)
	// InstalledQtyByWorkOrder returns part_id -> total qty installed.
	InstalledQtyByWorkOrder(ctx context.Context, workOrderID string) (map[string]int, error)
}

// UserRepository resolves referenced user identities
type UserRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
}
