package entity

// WorkOrderStatus is the maintenance work order status as seen by this core
type WorkOrderStatus string

const (
	WorkOrderOpen       WorkOrderStatus = "OPEN"
	WorkOrderInProgress WorkOrderStatus = "IN_PROGRESS"
	WorkOrderCompleted  WorkOrderStatus = "COMPLETED"
	WorkOrderCanceled   WorkOrderStatus = "CANCELED"
)

// IsClosed reports whether the work order no longer accepts installations.
func (s WorkOrderStatus) IsClosed() bool {
	return s == WorkOrderCompleted || s == WorkOrderCanceled
}

// WorkOrder is the external maintenance entity this core reads, and flips to
// IN_PROGRESS on the first installation.
type WorkOrder struct {
	ID        string          `json:"id"`
	VehicleID string          `json:"vehicle_id"`
	Status    WorkOrderStatus `json:"status"`
}

// TripFinancialStatus is the trip finance lock consulted before accepting new
// expenses against a trip.
type TripFinancialStatus string

const (
	TripFinanceOpen     TripFinancialStatus = "OPEN"
	TripFinanceInReview TripFinancialStatus = "IN_REVIEW"
	TripFinanceClosed   TripFinancialStatus = "CLOSED"
)

// IsLocked reports whether the trip refuses further expenses.
func (s TripFinancialStatus) IsLocked() bool {
	return s == TripFinanceInReview || s == TripFinanceClosed
}
