// Package memory is an in-process implementation of the repository interfaces. A single
// mutex stands in for the row-level atomicity the postgres store provides, so conditional
// writes keep their match-and-set semantics.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"
	"contest_hub/internal/domain/repository"
)

type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	users       map[string]model.User // by lower-cased email
	contests    map[string]model.Contest
	submissions map[string]model.Submission
	payments    map[string]model.Payment

	// FailRecount makes RecountParticipants fail, to exercise partial settlement.
	FailRecount error
	// BeforeRecount runs ahead of every RecountParticipants, outside the lock.
	BeforeRecount func(contestID string)
}

func NewStore() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		users:       make(map[string]model.User),
		contests:    make(map[string]model.Contest),
		submissions: make(map[string]model.Submission),
		payments:    make(map[string]model.Payment),
	}
}

func (s *Store) Users() repository.UserRepository             { return userRepo{s} }
func (s *Store) Contests() repository.ContestRepository       { return contestRepo{s} }
func (s *Store) Submissions() repository.SubmissionRepository { return submissionRepo{s} }
func (s *Store) Payments() repository.PaymentRepository       { return paymentRepo{s} }

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func pairKey(contestID, email string) string { return contestID + "|" + emailKey(email) }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := emailKey(user.Email)
	if _, ok := r.s.users[key]; ok {
		return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
	}
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[key] = *user
	return nil
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[emailKey(email)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, common.ErrNotFound)
	}
	return &u, nil
}

func (r userRepo) UpdateRole(_ context.Context, email, role string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := emailKey(email)
	u, ok := r.s.users[key]
	if !ok {
		return fmt.Errorf("user %s: %w", email, common.ErrNotFound)
	}
	u.Role = role
	u.UpdatedAt = r.s.now()
	r.s.users[key] = u
	return nil
}

type contestRepo struct{ s *Store }

func (r contestRepo) Create(_ context.Context, c *model.Contest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contests[c.ID]; ok {
		return fmt.Errorf("contest %s already exists: %w", c.ID, common.ErrConflict)
	}
	now := r.s.now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.contests[c.ID] = *c
	return nil
}

func (r contestRepo) FindByID(_ context.Context, id string) (*model.Contest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contests[id]
	if !ok {
		return nil, fmt.Errorf("contest %s: %w", id, common.ErrNotFound)
	}
	return &c, nil
}

func (r contestRepo) FindByIDs(_ context.Context, ids []string) ([]model.Contest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Contest{}
	for _, id := range ids {
		if c, ok := r.s.contests[id]; ok {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r contestRepo) ListIDs(_ context.Context) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]string, 0, len(r.s.contests))
	for id := range r.s.contests {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r contestRepo) TransitionStatus(_ context.Context, id string, from, to model.ContestStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contests[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.UpdatedAt = r.s.now()
	r.s.contests[id] = c
	return true, nil
}

func (r contestRepo) UpdateIfStatus(_ context.Context, c *model.Contest, status model.ContestStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.contests[c.ID]
	if !ok || cur.Status != status {
		return false, nil
	}
	cur.Title, cur.Slug, cur.Description, cur.Image, cur.Type = c.Title, c.Slug, c.Description, c.Image, c.Type
	cur.PrizeMoney, cur.EntryFee, cur.Deadline = c.PrizeMoney, c.EntryFee, c.Deadline
	cur.UpdatedAt = r.s.now()
	r.s.contests[c.ID] = cur
	return true, nil
}

func (r contestRepo) Delete(_ context.Context, id string, pendingOnly bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contests[id]
	if !ok || (pendingOnly && c.Status != model.ContestPending) {
		return false, nil
	}
	delete(r.s.contests, id)
	for subID, sub := range r.s.submissions {
		if sub.ContestID == id {
			delete(r.s.submissions, subID)
		}
	}
	return true, nil
}

func (r contestRepo) Close(_ context.Context, id, winnerEmail, winnerSubmissionID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contests[id]
	if !ok || c.Status != model.ContestConfirmed {
		return false, nil
	}
	c.Status = model.ContestEnded
	c.WinnerEmail = &winnerEmail
	c.WinnerSubmissionID = &winnerSubmissionID
	c.UpdatedAt = r.s.now()
	r.s.contests[id] = c
	return true, nil
}

func (r contestRepo) RecountParticipants(_ context.Context, id string) (int, error) {
	if hook := r.s.BeforeRecount; hook != nil {
		hook(id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailRecount != nil {
		return 0, common.StoreErr("memory.RecountParticipants", r.s.FailRecount)
	}
	c, ok := r.s.contests[id]
	if !ok {
		return 0, fmt.Errorf("contest %s: %w", id, common.ErrNotFound)
	}
	seen := make(map[string]struct{})
	for _, p := range r.s.payments {
		if p.ContestID == id {
			seen[emailKey(p.UserEmail)] = struct{}{}
		}
	}
	c.Participants = len(seen)
	c.UpdatedAt = r.s.now()
	r.s.contests[id] = c
	return c.Participants, nil
}

// SetParticipants overwrites the counter without looking at payments. Tests use it to model drift.
func (s *Store) SetParticipants(id string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contests[id]; ok {
		c.Participants = n
		s.contests[id] = c
	}
}

type submissionRepo struct{ s *Store }

func (r submissionRepo) Create(_ context.Context, sub *model.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.submissions {
		if pairKey(existing.ContestID, existing.UserEmail) == pairKey(sub.ContestID, sub.UserEmail) {
			return common.ErrDuplicateSubmission
		}
	}
	sub.CreatedAt = r.s.now()
	r.s.submissions[sub.ID] = *sub
	return nil
}

func (r submissionRepo) FindByID(_ context.Context, id string) (*model.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", id, common.ErrNotFound)
	}
	return &sub, nil
}

func (r submissionRepo) FindByContestAndUser(_ context.Context, contestID, email string) (*model.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sub := range r.s.submissions {
		if pairKey(sub.ContestID, sub.UserEmail) == pairKey(contestID, email) {
			return &sub, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r submissionRepo) list(contestID string, winnersOnly bool) []model.Submission {
	out := []model.Submission{}
	for _, sub := range r.s.submissions {
		if sub.ContestID == contestID && (!winnersOnly || sub.IsWinner) {
			out = append(out, sub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r submissionRepo) ListByContest(_ context.Context, contestID string) ([]model.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(contestID, false), nil
}

func (r submissionRepo) ListWinners(_ context.Context, contestID string) ([]model.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(contestID, true), nil
}

func (r submissionRepo) MarkWinner(_ context.Context, id, contestID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.submissions[id]
	if !ok || sub.ContestID != contestID {
		return false, nil
	}
	for _, other := range r.s.submissions {
		if other.ContestID == contestID && other.IsWinner && other.ID != id {
			return false, nil
		}
	}
	sub.IsWinner = true
	r.s.submissions[id] = sub
	return true, nil
}

type paymentRepo struct{ s *Store }

func (r paymentRepo) Create(_ context.Context, p *model.Payment) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contests[p.ContestID]; !ok {
		return false, nil
	}
	for _, existing := range r.s.payments {
		if pairKey(existing.ContestID, existing.UserEmail) == pairKey(p.ContestID, p.UserEmail) {
			return false, nil
		}
	}
	p.CreatedAt = r.s.now()
	r.s.payments[p.ID] = *p
	return true, nil
}

func (r paymentRepo) FindByContestAndUser(_ context.Context, contestID, email string) (*model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if pairKey(p.ContestID, p.UserEmail) == pairKey(contestID, email) {
			return &p, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r paymentRepo) ListByUser(_ context.Context, email string) ([]model.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Payment{}
	for _, p := range r.s.payments {
		if emailKey(p.UserEmail) == emailKey(email) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// InsertRawPayment writes a payment without any guard. Tests use it to model drift.
func (s *Store) InsertRawPayment(p model.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.payments[p.ID] = p
}

// PaymentsFor returns the payments recorded for a contest, in no particular order.
func (s *Store) PaymentsFor(contestID string) []model.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Payment{}
	for _, p := range s.payments {
		if p.ContestID == contestID {
			out = append(out, p)
		}
	}
	return out
}
