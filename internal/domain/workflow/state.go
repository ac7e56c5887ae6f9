package workflow

// State represents a lifecycle state of one of the core entities
type State string

const (
	// Cash expense approval lifecycle
	StatePending    State = "PENDING"
	StateApproved   State = "APPROVED"
	StateRejected   State = "REJECTED"
	StateAppealed   State = "APPEALED"
	StateReapproved State = "REAPPROVED"

	// Cash advance lifecycle
	StateOpen     State = "OPEN"
	StateInReview State = "IN_REVIEW"
	StateClosed   State = "CLOSED"

	// Serialized part unit lifecycle
	StateInStock   State = "IN_STOCK"
	StateReserved  State = "RESERVED"
	StateIssued    State = "ISSUED"
	StateInstalled State = "INSTALLED"
	StateScrapped  State = "SCRAPPED"

	// Inventory issue document lifecycle
	StateDraft  State = "DRAFT"
	StatePosted State = "POSTED"
)

var validStates = map[State]bool{
	StatePending:    true,
	StateApproved:   true,
	StateRejected:   true,
	StateAppealed:   true,
	StateReapproved: true,
	StateOpen:       true,
	StateInReview:   true,
	StateClosed:     true,
	StateInStock:    true,
	StateReserved:   true,
	StateIssued:     true,
	StateInstalled:  true,
	StateScrapped:   true,
	StateDraft:      true,
	StatePosted:     true,
}

var terminalStates = map[State]bool{
	StateInstalled: true,
	StateScrapped:  true,
	StatePosted:    true,
}

// IsTerminal returns true if the state allows no further transitions
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}
