package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentSource distinguishes expenses paid from an advance float from
// expenses paid directly by the company.
type PaymentSource string

const (
	PaymentAdvance PaymentSource = "ADVANCE"
	PaymentCompany PaymentSource = "COMPANY"
)

var validPaymentSources = map[PaymentSource]bool{
	PaymentAdvance: true,
	PaymentCompany: true,
}

// IsValid returns true if the payment source is known
func (p PaymentSource) IsValid() bool {
	return validPaymentSources[p]
}

// String returns the string representation of the payment source
func (p PaymentSource) String() string {
	return string(p)
}

// ApprovalStatus is the review status of a cash expense
type ApprovalStatus string

const (
	ExpensePending    ApprovalStatus = "PENDING"
	ExpenseApproved   ApprovalStatus = "APPROVED"
	ExpenseRejected   ApprovalStatus = "REJECTED"
	ExpenseAppealed   ApprovalStatus = "APPEALED"
	ExpenseReapproved ApprovalStatus = "REAPPROVED"
)

var validApprovalStatuses = map[ApprovalStatus]bool{
	ExpensePending:    true,
	ExpenseApproved:   true,
	ExpenseRejected:   true,
	ExpenseAppealed:   true,
	ExpenseReapproved: true,
}

// IsValid returns true if the status is a known approval status
func (s ApprovalStatus) IsValid() bool {
	return validApprovalStatuses[s]
}

// String returns the string representation of the status
func (s ApprovalStatus) String() string {
	return string(s)
}

// IsSettled reports whether the expense counts toward an advance's approved
// spend (APPROVED or REAPPROVED).
func (s ApprovalStatus) IsSettled() bool {
	return s == ExpenseApproved || s == ExpenseReapproved
}

// IsOpen reports whether the expense still blocks closing its advance
// (PENDING or APPEALED).
func (s ApprovalStatus) IsOpen() bool {
	return s == ExpensePending || s == ExpenseAppealed
}

// CashExpense is a single spend event, paid either from an advance (ADVANCE)
// or directly by the company (COMPANY). Invoice fields are COMPANY-only.
type CashExpense struct {
	ID            string          `json:"id"`
	PaymentSource PaymentSource   `json:"payment_source"`
	Amount        decimal.Decimal `json:"amount"`
	CashAdvanceID *string         `json:"cash_advance_id,omitempty"`
	TripID        *string         `json:"trip_id,omitempty"`
	VehicleID     *string         `json:"vehicle_id,omitempty"`
	WorkOrderID   *string         `json:"maintenance_work_order_id,omitempty"`
	ExpenseType   string          `json:"expense_type"`
	Notes         *string         `json:"notes,omitempty"`
	ReceiptURL    *string         `json:"receipt_url,omitempty"`

	ApprovalStatus  ApprovalStatus `json:"approval_status"`
	CreatedBy       string         `json:"created_by"`
	ApprovedBy      *string        `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	RejectedBy      *string        `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time     `json:"rejected_at,omitempty"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`
	AppealedBy      *string        `json:"appealed_by,omitempty"`
	AppealedAt      *time.Time     `json:"appealed_at,omitempty"`
	AppealReason    *string        `json:"appeal_reason,omitempty"`
	ResolvedBy      *string        `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`

	// COMPANY invoice fields
	VendorName   *string          `json:"vendor_name,omitempty"`
	InvoiceNo    *string          `json:"invoice_no,omitempty"`
	InvoiceDate  *time.Time       `json:"invoice_date,omitempty"`
	PaidMethod   *string          `json:"paid_method,omitempty"`
	PaymentRef   *string          `json:"payment_ref,omitempty"`
	VATAmount    *decimal.Decimal `json:"vat_amount,omitempty"`
	InvoiceTotal *decimal.Decimal `json:"invoice_total,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ExpenseAudit is an append-only record of one expense transition. Writes are
// best-effort telemetry: a failed audit insert is logged, never surfaced.
type ExpenseAudit struct {
	ID        string    `json:"id"`
	ExpenseID string    `json:"expense_id"`
	Action    string    `json:"action"`
	ActorID   string    `json:"actor_id"`
	Before    *string   `json:"before,omitempty"`
	After     *string   `json:"after,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Audit action constants
const (
	AuditActionApprove           = "APPROVE"
	AuditActionReapprove         = "REAPPROVE"
	AuditActionReject            = "REJECT"
	AuditActionAppeal            = "APPEAL"
	AuditActionResolveAppealOK   = "RESOLVE_APPEAL_APPROVE"
	AuditActionResolveAppealFail = "RESOLVE_APPEAL_REJECT"
	AuditActionReopen            = "REOPEN"
)
