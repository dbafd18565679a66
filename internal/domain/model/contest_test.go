package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestContestTransitions(t *testing.T) {
	tests := []struct {
		from, to ContestStatus
		ok       bool
	}{
		{ContestPending, ContestConfirmed, true},
		{ContestPending, ContestRejected, true},
		{ContestConfirmed, ContestEnded, true},
		{ContestPending, ContestEnded, false},
		{ContestConfirmed, ContestPending, false},
		{ContestConfirmed, ContestRejected, false},
		{ContestRejected, ContestConfirmed, false},
		{ContestEnded, ContestConfirmed, false},
		{ContestEnded, ContestPending, false},
	}
	for _, tt := range tests {
		got, err := NextContestStatus(tt.from, tt.to)
		if tt.ok {
			if err != nil || got != tt.to {
				t.Errorf("%s -> %s: expected success, got %s, %v", tt.from, tt.to, got, err)
			}
			continue
		}
		if err == nil {
			t.Errorf("%s -> %s: expected error", tt.from, tt.to)
		}
		if got != tt.from {
			t.Errorf("%s -> %s: failed transition must keep current state, got %s", tt.from, tt.to, got)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []ContestStatus{ContestPending, ContestConfirmed, ContestRejected, ContestEnded}
	for _, from := range []ContestStatus{ContestRejected, ContestEnded} {
		for _, to := range all {
			if CanTransition(from, to) {
				t.Fatalf("terminal state %s must not move to %s", from, to)
			}
		}
	}
}

func TestContestStatusIsValid(t *testing.T) {
	for _, s := range []ContestStatus{ContestPending, ContestConfirmed, ContestRejected, ContestEnded} {
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []ContestStatus{"", "approved", "Confirmed"} {
		if s.IsValid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestContestPatchApply(t *testing.T) {
	c := Contest{Title: "Old", Type: "design", PrizeMoney: decimal.NewFromInt(50)}
	title := "New"
	prize := decimal.NewFromInt(75)
	deadline := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	p := ContestPatch{Title: &title, PrizeMoney: &prize, Deadline: &deadline}

	if p.IsEmpty() {
		t.Fatal("patch should not be empty")
	}
	p.Apply(&c)
	if c.Title != "New" || !c.PrizeMoney.Equal(prize) || !c.Deadline.Equal(deadline) || c.Type != "design" {
		t.Fatalf("unexpected contest after patch: %+v", c)
	}
	if !(ContestPatch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
}
