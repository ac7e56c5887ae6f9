package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestExpenseLifecycle(t *testing.T) {
	tests := []struct {
		name      string
		from      State
		trigger   Trigger
		wantState State
		wantErr   bool
	}{
		{"approve pending", StatePending, TriggerApprove, StateApproved, false},
		{"reject pending", StatePending, TriggerReject, StateRejected, false},
		{"appeal rejected", StateRejected, TriggerAppeal, StateAppealed, false},
		{"reopen rejected", StateRejected, TriggerReopen, StatePending, false},
		{"resolve appeal approve", StateAppealed, TriggerResolveApprove, StateReapproved, false},
		{"resolve appeal reject", StateAppealed, TriggerResolveReject, StateRejected, false},
		{"approve appealed", StateAppealed, TriggerApprove, StateReapproved, false},
		{"reject appealed", StateAppealed, TriggerReject, StateRejected, false},
		{"approve approved", StateApproved, TriggerApprove, StateApproved, true},
		{"reject reapproved", StateReapproved, TriggerReject, StateReapproved, true},
		{"appeal pending", StatePending, TriggerAppeal, StatePending, true},
		{"reopen appealed", StateAppealed, TriggerReopen, StateAppealed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ExpenseLifecycle().Build(tt.from)
			err := m.Fire(context.Background(), tt.trigger)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error firing %s from %s", tt.trigger, tt.from)
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.State() != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, m.State())
			}
		})
	}
}

func TestAdvanceLifecycle(t *testing.T) {
	tests := []struct {
		name      string
		from      State
		trigger   Trigger
		wantState State
		wantErr   bool
	}{
		{"submit open for review", StateOpen, TriggerSubmitReview, StateInReview, false},
		{"close in-review", StateInReview, TriggerClose, StateClosed, false},
		{"reopen closed", StateClosed, TriggerReopen, StateInReview, false},
		{"close open directly", StateOpen, TriggerClose, StateOpen, true},
		{"reopen open", StateOpen, TriggerReopen, StateOpen, true},
		{"submit closed", StateClosed, TriggerSubmitReview, StateClosed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := AdvanceLifecycle().Build(tt.from)
			err := m.Fire(context.Background(), tt.trigger)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error firing %s from %s", tt.trigger, tt.from)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.State() != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, m.State())
			}
		})
	}
}

func TestPartItemLifecycle(t *testing.T) {
	tests := []struct {
		name      string
		from      State
		trigger   Trigger
		wantState State
		wantErr   bool
	}{
		{"reserve in-stock", StateInStock, TriggerReserve, StateReserved, false},
		{"direct issue in-stock", StateInStock, TriggerIssue, StateIssued, false},
		{"unreserve reserved", StateReserved, TriggerUnreserve, StateInStock, false},
		{"issue reserved", StateReserved, TriggerIssue, StateIssued, false},
		{"install issued", StateIssued, TriggerInstall, StateInstalled, false},
		{"scrap in-stock", StateInStock, TriggerScrap, StateScrapped, false},
		{"scrap issued", StateIssued, TriggerScrap, StateScrapped, false},
		{"install in-stock skips issue", StateInStock, TriggerInstall, StateInStock, true},
		{"install reserved skips issue", StateReserved, TriggerInstall, StateReserved, true},
		{"reserve reserved", StateReserved, TriggerReserve, StateReserved, true},
		{"unreserve issued reverses", StateIssued, TriggerUnreserve, StateIssued, true},
		{"issue installed", StateInstalled, TriggerIssue, StateInstalled, true},
		{"reserve scrapped", StateScrapped, TriggerReserve, StateScrapped, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := PartItemLifecycle().Build(tt.from)
			err := m.Fire(context.Background(), tt.trigger)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error firing %s from %s", tt.trigger, tt.from)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.State() != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, m.State())
			}
		})
	}
}

func TestRequestLifecycle(t *testing.T) {
	tests := []struct {
		name      string
		from      State
		trigger   Trigger
		wantState State
		wantErr   bool
	}{
		{"approve pending", StatePending, TriggerApprove, StateApproved, false},
		{"reject pending", StatePending, TriggerReject, StateRejected, false},
		{"unreserve approved", StateApproved, TriggerUnreserve, StatePending, false},
		{"reject approved", StateApproved, TriggerReject, StateRejected, false},
		{"issue approved", StateApproved, TriggerIssue, StateIssued, false},
		{"issue pending skips approval", StatePending, TriggerIssue, StatePending, true},
		{"approve approved", StateApproved, TriggerApprove, StateApproved, true},
		{"unreserve pending", StatePending, TriggerUnreserve, StatePending, true},
		{"approve rejected", StateRejected, TriggerApprove, StateRejected, true},
		{"unreserve issued", StateIssued, TriggerUnreserve, StateIssued, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := RequestLifecycle().Build(tt.from)
			err := m.Fire(context.Background(), tt.trigger)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error firing %s from %s", tt.trigger, tt.from)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.State() != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, m.State())
			}
		})
	}
}

func TestTerminalStates(t *testing.T) {
	if !StateInstalled.IsTerminal() {
		t.Error("INSTALLED should be terminal")
	}
	if !StateScrapped.IsTerminal() {
		t.Error("SCRAPPED should be terminal")
	}
	if !StatePosted.IsTerminal() {
		t.Error("POSTED should be terminal")
	}
	if StateRejected.IsTerminal() {
		t.Error("REJECTED must stay recoverable via appeal/reopen")
	}
}

func TestCanFireAndPermittedTriggers(t *testing.T) {
	m := ExpenseLifecycle().Build(StateRejected)

	if !m.CanFire(TriggerAppeal) {
		t.Error("REJECTED should permit APPEAL")
	}
	if !m.CanFire(TriggerReopen) {
		t.Error("REJECTED should permit REOPEN")
	}
	if m.CanFire(TriggerApprove) {
		t.Error("REJECTED should not permit APPROVE")
	}

	triggers := m.PermittedTriggers()
	if len(triggers) != 2 {
		t.Errorf("expected 2 permitted triggers, got %d", len(triggers))
	}
}
