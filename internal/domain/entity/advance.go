package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdvanceStatus is the lifecycle status of a cash advance
type AdvanceStatus string

const (
	AdvanceOpen     AdvanceStatus = "OPEN"
	AdvanceInReview AdvanceStatus = "IN_REVIEW"
	AdvanceClosed   AdvanceStatus = "CLOSED"
)

var validAdvanceStatuses = map[AdvanceStatus]bool{
	AdvanceOpen:     true,
	AdvanceInReview: true,
	AdvanceClosed:   true,
}

// IsValid returns true if the status is a known advance status
func (s AdvanceStatus) IsValid() bool {
	return validAdvanceStatuses[s]
}

// String returns the string representation of the status
func (s AdvanceStatus) String() string {
	return string(s)
}

// SettlementType describes how a closed advance was reconciled
type SettlementType string

const (
	SettlementReturn     SettlementType = "RETURN"
	SettlementShortage   SettlementType = "SHORTAGE"
	SettlementAdjustment SettlementType = "ADJUSTMENT"
)

var validSettlementTypes = map[SettlementType]bool{
	SettlementReturn:     true,
	SettlementShortage:   true,
	SettlementAdjustment: true,
}

// IsValid returns true if the settlement type is known
func (t SettlementType) IsValid() bool {
	return validSettlementTypes[t]
}

// CashAdvance is a cash float issued to one field supervisor by one issuer,
// reconciled on close. Settlement fields are all-or-nothing: set together on
// close, cleared together on reopen.
type CashAdvance struct {
	ID                  string           `json:"id"`
	Amount              decimal.Decimal  `json:"amount"`
	Status              AdvanceStatus    `json:"status"`
	FieldSupervisorID   string           `json:"field_supervisor_id"`
	IssuedBy            string           `json:"issued_by"`
	SettlementType      *SettlementType  `json:"settlement_type,omitempty"`
	SettlementAmount    *decimal.Decimal `json:"settlement_amount,omitempty"`
	SettlementReference *string          `json:"settlement_reference,omitempty"`
	SettlementNotes     *string          `json:"settlement_notes,omitempty"`
	SettledAt           *time.Time       `json:"settled_at,omitempty"`
	SettledBy           *string          `json:"settled_by,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}

// Settlement is the closing accounting record stamped on an advance.
type Settlement struct {
	Type      SettlementType
	Amount    decimal.Decimal
	Reference *string
	Notes     *string
	SettledAt time.Time
	SettledBy string
}
