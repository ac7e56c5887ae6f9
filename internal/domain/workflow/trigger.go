package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	// Expense approval triggers
	TriggerApprove        Trigger = "APPROVE"
	TriggerReject         Trigger = "REJECT"
	TriggerAppeal         Trigger = "APPEAL"
	TriggerResolveApprove Trigger = "RESOLVE_APPROVE"
	TriggerResolveReject  Trigger = "RESOLVE_REJECT"
	TriggerReopen         Trigger = "REOPEN"

	// Advance triggers
	TriggerSubmitReview Trigger = "SUBMIT_REVIEW"
	TriggerClose        Trigger = "CLOSE"

	// Part unit triggers
	TriggerReserve   Trigger = "RESERVE"
	TriggerUnreserve Trigger = "UNRESERVE"
	TriggerIssue     Trigger = "ISSUE"
	TriggerInstall   Trigger = "INSTALL"
	TriggerScrap     Trigger = "SCRAP"

	// Issue document triggers
	TriggerPost Trigger = "POST"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
