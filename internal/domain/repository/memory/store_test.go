package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"

	"github.com/shopspring/decimal"
)

func seedContest(t *testing.T, s *Store, id string, status model.ContestStatus) {
	t.Helper()
	err := s.Contests().Create(context.Background(), &model.Contest{
		ID: id, Title: "T", Description: "D", Type: "design",
		Deadline: time.Now().Add(time.Hour), CreatorEmail: "c@example.com", Status: status,
	})
	if err != nil {
		t.Fatalf("seed contest: %v", err)
	}
}

func TestConditionalContestWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedContest(t, s, "c1", model.ContestPending)
	contests := s.Contests()

	if ok, _ := contests.TransitionStatus(ctx, "c1", model.ContestConfirmed, model.ContestEnded); ok {
		t.Fatal("transition with stale predicate must not match")
	}
	if ok, _ := contests.TransitionStatus(ctx, "c1", model.ContestPending, model.ContestConfirmed); !ok {
		t.Fatal("transition from pending should match")
	}
	if ok, _ := contests.Delete(ctx, "c1", true); ok {
		t.Fatal("pending-only delete must not remove a confirmed contest")
	}
	if ok, _ := contests.Close(ctx, "c1", "a@example.com", "s1"); !ok {
		t.Fatal("close of confirmed contest should match")
	}
	if ok, _ := contests.Close(ctx, "c1", "b@example.com", "s2"); ok {
		t.Fatal("second close must not match")
	}
	c, _ := contests.FindByID(ctx, "c1")
	if c.Status != model.ContestEnded || *c.WinnerEmail != "a@example.com" {
		t.Fatalf("unexpected contest %+v", c)
	}
	if _, err := contests.FindByID(ctx, "nope"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPaymentAndSubmissionUniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedContest(t, s, "c1", model.ContestConfirmed)

	p := &model.Payment{ID: "p1", ContestID: "c1", UserEmail: "a@example.com", Amount: decimal.NewFromInt(10), Currency: "usd"}
	if created, err := s.Payments().Create(ctx, p); err != nil || !created {
		t.Fatalf("first payment: created=%v err=%v", created, err)
	}
	dup := &model.Payment{ID: "p2", ContestID: "c1", UserEmail: "A@Example.com", Amount: decimal.NewFromInt(10), Currency: "usd"}
	if created, err := s.Payments().Create(ctx, dup); err != nil || created {
		t.Fatalf("duplicate payment: created=%v err=%v", created, err)
	}
	if n := len(s.PaymentsFor("c1")); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	if n, _ := s.Contests().RecountParticipants(ctx, "c1"); n != 1 {
		t.Fatalf("participants = %d, want 1", n)
	}
	orphan := &model.Payment{ID: "p3", ContestID: "gone", UserEmail: "a@example.com", Amount: decimal.NewFromInt(10), Currency: "usd"}
	if created, err := s.Payments().Create(ctx, orphan); err != nil || created {
		t.Fatalf("payment for missing contest: created=%v err=%v", created, err)
	}

	sub := &model.Submission{ID: "s1", ContestID: "c1", UserEmail: "a@example.com", SubmissionLink: "http://a"}
	if err := s.Submissions().Create(ctx, sub); err != nil {
		t.Fatalf("submission: %v", err)
	}
	again := &model.Submission{ID: "s2", ContestID: "c1", UserEmail: "a@example.com", SubmissionLink: "http://b"}
	if err := s.Submissions().Create(ctx, again); !errors.Is(err, common.ErrDuplicateSubmission) {
		t.Fatalf("expected duplicate submission, got %v", err)
	}
}

func TestMarkWinnerAllowsOnlyOne(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedContest(t, s, "c1", model.ContestConfirmed)
	for _, id := range []string{"s1", "s2"} {
		sub := &model.Submission{ID: id, ContestID: "c1", UserEmail: id + "@example.com", SubmissionLink: "http://x"}
		if err := s.Submissions().Create(ctx, sub); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	if ok, _ := s.Submissions().MarkWinner(ctx, "s1", "c2"); ok {
		t.Fatal("mark with wrong contest must not match")
	}
	if ok, _ := s.Submissions().MarkWinner(ctx, "s1", "c1"); !ok {
		t.Fatal("first mark should match")
	}
	if ok, _ := s.Submissions().MarkWinner(ctx, "s1", "c1"); !ok {
		t.Fatal("re-marking the winner should match")
	}
	if ok, _ := s.Submissions().MarkWinner(ctx, "s2", "c1"); ok {
		t.Fatal("second winner must be rejected")
	}
	winners, _ := s.Submissions().ListWinners(ctx, "c1")
	if len(winners) != 1 || winners[0].ID != "s1" {
		t.Fatalf("winners = %+v", winners)
	}
}

func TestDeleteKeepsPaymentsAndDropsSubmissions(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedContest(t, s, "c1", model.ContestConfirmed)

	p := &model.Payment{ID: "p1", ContestID: "c1", UserEmail: "a@example.com", Amount: decimal.NewFromInt(10), Currency: "usd"}
	if created, err := s.Payments().Create(ctx, p); err != nil || !created {
		t.Fatalf("payment: created=%v err=%v", created, err)
	}
	sub := &model.Submission{ID: "s1", ContestID: "c1", UserEmail: "a@example.com", SubmissionLink: "http://a"}
	if err := s.Submissions().Create(ctx, sub); err != nil {
		t.Fatalf("submission: %v", err)
	}

	if ok, _ := s.Contests().Delete(ctx, "c1", false); !ok {
		t.Fatal("admin delete should match")
	}
	if _, err := s.Submissions().FindByID(ctx, "s1"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("submission should go with its contest, got %v", err)
	}
	if n := len(s.PaymentsFor("c1")); n != 1 {
		t.Fatalf("payments = %d, want 1 after delete", n)
	}
	if _, err := s.Contests().RecountParticipants(ctx, "c1"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found recounting a deleted contest, got %v", err)
	}
}
