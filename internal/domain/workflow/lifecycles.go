package workflow

// ExpenseLifecycle returns the builder for the cash expense approval state
// machine. REJECTED is recoverable via appeal or reopen; there is no terminal
// state in this lifecycle.
//
//	PENDING  --APPROVE-->         APPROVED
//	PENDING  --REJECT-->          REJECTED
//	REJECTED --APPEAL-->          APPEALED
//	REJECTED --REOPEN-->          PENDING
//	APPEALED --RESOLVE_APPROVE--> REAPPROVED
//	APPEALED --RESOLVE_REJECT-->  REJECTED
//	APPEALED --APPROVE-->         REAPPROVED   (approve doubles as resolve)
//	APPEALED --REJECT-->          REJECTED
func ExpenseLifecycle() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)
	b.Configure(StateRejected).
		Permit(TriggerAppeal, StateAppealed).
		Permit(TriggerReopen, StatePending)
	b.Configure(StateAppealed).
		Permit(TriggerApprove, StateReapproved).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerResolveApprove, StateReapproved).
		Permit(TriggerResolveReject, StateRejected)
	return b
}

// AdvanceLifecycle returns the builder for the cash advance state machine.
// Closed advances reopen to IN_REVIEW, never straight to OPEN.
func AdvanceLifecycle() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StateOpen).
		Permit(TriggerSubmitReview, StateInReview)
	b.Configure(StateInReview).
		Permit(TriggerClose, StateClosed)
	b.Configure(StateClosed).
		Permit(TriggerReopen, StateInReview)
	return b
}

// PartItemLifecycle returns the builder for the serialized part unit state
// machine. The only backward edge is RESERVED -> IN_STOCK on unreserve.
func PartItemLifecycle() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StateInStock).
		Permit(TriggerReserve, StateReserved).
		Permit(TriggerIssue, StateIssued).
		Permit(TriggerScrap, StateScrapped)
	b.Configure(StateReserved).
		Permit(TriggerUnreserve, StateInStock).
		Permit(TriggerIssue, StateIssued).
		Permit(TriggerScrap, StateScrapped)
	b.Configure(StateIssued).
		Permit(TriggerInstall, StateInstalled).
		Permit(TriggerScrap, StateScrapped)
	return b
}

// RequestLifecycle returns the builder for the inventory request state
// machine. Unreserve returns an APPROVED request to PENDING; REJECTED and
// ISSUED are terminal.
func RequestLifecycle() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)
	b.Configure(StateApproved).
		Permit(TriggerUnreserve, StatePending).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerIssue, StateIssued)
	return b
}

// IssueLifecycle returns the builder for the inventory issue document state
// machine.
func IssueLifecycle() StateMachineBuilder {
	b := NewBuilder()
	b.Configure(StateDraft).
		Permit(TriggerPost, StatePosted)
	return b
}
