package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus is the lifecycle status of an inventory request
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
	RequestIssued   RequestStatus = "ISSUED"
)

var validRequestStatuses = map[RequestStatus]bool{
	RequestPending:  true,
	RequestApproved: true,
	RequestRejected: true,
	RequestIssued:   true,
}

// IsValid returns true if the status is a known request status
func (s RequestStatus) IsValid() bool {
	return validRequestStatuses[s]
}

// PartItemStatus is the lifecycle status of a serialized part unit.
// Transitions strictly follow IN_STOCK -> RESERVED -> ISSUED -> INSTALLED;
// RESERVED may return to IN_STOCK on unreserve, SCRAPPED is terminal.
type PartItemStatus string

const (
	PartInStock   PartItemStatus = "IN_STOCK"
	PartReserved  PartItemStatus = "RESERVED"
	PartIssued    PartItemStatus = "ISSUED"
	PartInstalled PartItemStatus = "INSTALLED"
	PartScrapped  PartItemStatus = "SCRAPPED"
)

var validPartItemStatuses = map[PartItemStatus]bool{
	PartInStock:   true,
	PartReserved:  true,
	PartIssued:    true,
	PartInstalled: true,
	PartScrapped:  true,
}

// IsValid returns true if the status is a known part item status
func (s PartItemStatus) IsValid() bool {
	return validPartItemStatuses[s]
}

// IssueStatus is the lifecycle status of an inventory issue document
type IssueStatus string

const (
	IssueDraft  IssueStatus = "DRAFT"
	IssuePosted IssueStatus = "POSTED"
)

var validIssueStatuses = map[IssueStatus]bool{
	IssueDraft:  true,
	IssuePosted: true,
}

// IsValid returns true if the status is a known issue status
func (s IssueStatus) IsValid() bool {
	return validIssueStatuses[s]
}

// RequestLine is one part ask inside an inventory request.
type RequestLine struct {
	ID        string  `json:"id"`
	RequestID string  `json:"request_id"`
	PartID    string  `json:"part_id"`
	NeededQty int     `json:"needed_qty"`
	Notes     *string `json:"notes,omitempty"`
}

// InventoryRequest is a maintenance-driven ask for parts from one warehouse
// for one work order. No reservations may exist while PENDING or REJECTED.
type InventoryRequest struct {
	ID          string        `json:"id"`
	WarehouseID string        `json:"warehouse_id"`
	WorkOrderID *string       `json:"work_order_id,omitempty"`
	RequestedBy string        `json:"requested_by"`
	Status      RequestStatus `json:"status"`
	Notes       *string       `json:"notes,omitempty"`
	Lines       []RequestLine `json:"lines,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// PartItem is a serialized stock unit tracked through its full lifecycle.
type PartItem struct {
	ID                 string         `json:"id"`
	PartID             string         `json:"part_id"`
	WarehouseID        string         `json:"warehouse_id"`
	InternalSerial     string         `json:"internal_serial"`
	ManufacturerSerial string         `json:"manufacturer_serial"`
	Status             PartItemStatus `json:"status"`
	InstalledVehicleID *string        `json:"installed_vehicle_id,omitempty"`
	InstalledAt        *time.Time     `json:"installed_at,omitempty"`
	ReceivedReceiptID  *string        `json:"received_receipt_id,omitempty"`
	ReceivedAt         time.Time      `json:"received_at"`
	LastMovedAt        *time.Time     `json:"last_moved_at,omitempty"`
}

// Reservation is the join row tying one reserved part unit to one request.
// Existence is the reservation; deleting it releases the unit.
type Reservation struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	PartItemID string    `json:"part_item_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// IssueLine is one serialized unit on an issue document. qty is always 1 for
// serial-tracked units.
type IssueLine struct {
	ID         string           `json:"id"`
	IssueID    string           `json:"issue_id"`
	PartID     string           `json:"part_id"`
	PartItemID string           `json:"part_item_id"`
	Qty        int              `json:"qty"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
}

// InventoryIssue is the act of physically handing out stock. A nil RequestID
// means a direct issue, which takes a different authorization path.
type InventoryIssue struct {
	ID          string      `json:"id"`
	WarehouseID string      `json:"warehouse_id"`
	WorkOrderID string      `json:"work_order_id"`
	RequestID   *string     `json:"request_id,omitempty"`
	IssuedBy    string      `json:"issued_by"`
	Status      IssueStatus `json:"status"`
	Notes       *string     `json:"notes,omitempty"`
	Lines       []IssueLine `json:"lines,omitempty"`
	PostedAt    *time.Time  `json:"posted_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Installation records one part (serial or bulk) installed on a work order's
// vehicle.
type Installation struct {
	ID                string     `json:"id"`
	WorkOrderID       string     `json:"work_order_id"`
	VehicleID         string     `json:"vehicle_id"`
	PartID            string     `json:"part_id"`
	PartItemID        *string    `json:"part_item_id,omitempty"`
	QtyInstalled      int        `json:"qty_installed"`
	InstalledBy       string     `json:"installed_by"`
	InstalledAt       time.Time  `json:"installed_at"`
	OdometerAtInstall *int64     `json:"odometer_at_install,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
}
