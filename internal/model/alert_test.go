package model

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from AlertStatus
		to   AlertStatus
		want bool
	}{
		{name: "pending-approve", from: StatusPending, to: StatusApproved, want: true},
		{name: "pending-reject", from: StatusPending, to: StatusRejected, want: true},
		{name: "pending-expire", from: StatusPending, to: StatusExpired, want: true},
		{name: "approved-executing", from: StatusApproved, to: StatusExecuting, want: true},
		{name: "executing-completed", from: StatusExecuting, to: StatusCompleted, want: true},
		{name: "executing-failed", from: StatusExecuting, to: StatusFailed, want: true},

		{name: "pending-executing-skips-approval", from: StatusPending, to: StatusExecuting, want: false},
		{name: "approved-completed-skips-execution", from: StatusApproved, to: StatusCompleted, want: false},
		{name: "rejected-approved-reversal", from: StatusRejected, to: StatusApproved, want: false},
		{name: "completed-executing-reversal", from: StatusCompleted, to: StatusExecuting, want: false},
		{name: "failed-executing-no-retry", from: StatusFailed, to: StatusExecuting, want: false},
		{name: "expired-approved", from: StatusExpired, to: StatusApproved, want: false},
		{name: "approved-rejected-flip", from: StatusApproved, to: StatusRejected, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []AlertStatus{StatusRejected, StatusCompleted, StatusFailed, StatusExpired}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("%s must be terminal", s)
		}
	}

	active := []AlertStatus{StatusPending, StatusApproved, StatusExecuting}
	for _, s := range active {
		if s.IsTerminal() {
			t.Fatalf("%s must not be terminal", s)
		}
	}
}

func TestStatusForAction(t *testing.T) {
	if got, ok := StatusForAction(ActionApprove); !ok || got != StatusApproved {
		t.Fatalf("approve -> %s, %v", got, ok)
	}
	if got, ok := StatusForAction(ActionReject); !ok || got != StatusRejected {
		t.Fatalf("reject -> %s, %v", got, ok)
	}
	if _, ok := StatusForAction("escalate"); ok {
		t.Fatalf("unknown action must not map to a status")
	}
}

func TestWantsEvent(t *testing.T) {
	all := WebhookConfig{}
	if !all.WantsEvent(EventCreated) || !all.WantsEvent(EventCompleted) {
		t.Fatalf("empty events list must subscribe to everything")
	}

	created := WebhookConfig{Events: []string{"created"}}
	if !created.WantsEvent(EventCreated) {
		t.Fatalf("must want created")
	}
	if created.WantsEvent(EventDecided) {
		t.Fatalf("must not want decided")
	}
}
