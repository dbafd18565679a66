package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"contest_hub/internal/domain/model"
	"contest_hub/internal/domain/policy"
	"contest_hub/internal/domain/repository/memory"
	"contest_hub/internal/platform/gateway"

	"github.com/shopspring/decimal"
)

var (
	admin   = policy.Actor{Email: "admin@example.com", Role: model.RoleAdmin}
	creator = policy.Actor{Email: "creator@example.com", Role: model.RoleCreator}
	userA   = policy.Actor{Email: "a@example.com", Role: model.RoleUser}
	userB   = policy.Actor{Email: "b@example.com", Role: model.RoleUser}
)

type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) Enqueue(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
	return nil
}

func (q *recordingQueue) Enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

type fixture struct {
	store       *memory.Store
	gw          *gateway.Sandbox
	queue       *recordingQueue
	contests    *ContestService
	settlement  *SettlementService
	submissions *SubmissionService
	winners     *WinnerService
	reconcile   *ReconcileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	gw := gateway.NewSandbox("http://app/success?session_id="+gateway.SessionIDPlaceholder, false)
	q := &recordingQueue{}
	contests := NewContestService(store.Contests())
	return &fixture{
		store:       store,
		gw:          gw,
		queue:       q,
		contests:    contests,
		settlement:  NewSettlementService(store.Contests(), store.Payments(), gw, q, "usd"),
		submissions: NewSubmissionService(store.Contests(), store.Submissions(), store.Payments()),
		winners:     NewWinnerService(contests, store.Contests(), store.Submissions()),
		reconcile:   NewReconcileService(store.Contests(), store.Submissions()),
	}
}

func contestRequest(title string) CreateContestRequest {
	return CreateContestRequest{
		Title:       title,
		Description: "Design a logo for the spring campaign",
		Type:        "design",
		PrizeMoney:  decimal.NewFromInt(500),
		EntryFee:    decimal.NewFromInt(10),
		Deadline:    time.Now().Add(72 * time.Hour),
	}
}

func (f *fixture) pendingContest(t *testing.T) *model.Contest {
	t.Helper()
	c, err := f.contests.Create(context.Background(), creator, contestRequest("Spring Logo"))
	if err != nil {
		t.Fatalf("create contest: %v", err)
	}
	return c
}

func (f *fixture) confirmedContest(t *testing.T) *model.Contest {
	t.Helper()
	c := f.pendingContest(t)
	c, err := f.contests.Transition(context.Background(), admin, c.ID, model.ContestConfirmed)
	if err != nil {
		t.Fatalf("confirm contest: %v", err)
	}
	return c
}

// pay runs checkout, settles the session at the gateway and verifies it.
func (f *fixture) pay(t *testing.T, actor policy.Actor, contestID string) (string, *VerifyResult) {
	t.Helper()
	ctx := context.Background()
	checkout, err := f.settlement.CreateCheckout(ctx, actor, contestID)
	if err != nil {
		t.Fatalf("checkout for %s: %v", actor.Email, err)
	}
	if err := f.gw.MarkPaid(checkout.SessionID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	res, err := f.settlement.Verify(ctx, checkout.SessionID)
	if err != nil {
		t.Fatalf("verify for %s: %v", actor.Email, err)
	}
	return checkout.SessionID, res
}

func (f *fixture) contest(t *testing.T, id string) *model.Contest {
	t.Helper()
	c, err := f.store.Contests().FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load contest %s: %v", id, err)
	}
	return c
}
