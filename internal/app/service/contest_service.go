package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"
	"contest_hub/internal/domain/policy"
	"contest_hub/internal/domain/repository"
	"contest_hub/internal/platform/logger"
	"contest_hub/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ContestService owns the contest state machine: pending -> confirmed|rejected, confirmed -> ended.
type ContestService struct {
	contestRepo repository.ContestRepository
}

func NewContestService(contestRepo repository.ContestRepository) *ContestService {
	return &ContestService{contestRepo: contestRepo}
}

type CreateContestRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Image       *string         `json:"image,omitempty"`
	Type        string          `json:"type"`
	PrizeMoney  decimal.Decimal `json:"prize_money"`
	EntryFee    decimal.Decimal `json:"entry_fee"`
	Deadline    time.Time       `json:"deadline"`
}

func validateContest(c *model.Contest) error {
	var missing []string
	if strings.TrimSpace(c.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(c.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(c.Type) == "" {
		missing = append(missing, "type")
	}
	if c.Deadline.IsZero() {
		missing = append(missing, "deadline")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s: %w", strings.Join(missing, ", "), common.ErrValidation)
	}
	if c.PrizeMoney.IsNegative() {
		return fmt.Errorf("prize_money must not be negative: %w", common.ErrValidation)
	}
	if c.EntryFee.IsNegative() {
		return fmt.Errorf("entry_fee must not be negative: %w", common.ErrValidation)
	}
	if !c.Deadline.After(time.Now()) {
		return fmt.Errorf("deadline must be in the future: %w", common.ErrValidation)
	}
	return nil
}

func (s *ContestService) Create(ctx context.Context, actor policy.Actor, req CreateContestRequest) (*model.Contest, error) {
	if !policy.CanPerform(actor, policy.OpCreateContest, policy.Resource{}) {
		return nil, fmt.Errorf("only creators may create contests: %w", common.ErrForbidden)
	}

	contest := &model.Contest{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Image:        req.Image,
		Type:         strings.TrimSpace(req.Type),
		PrizeMoney:   req.PrizeMoney,
		EntryFee:     req.EntryFee,
		Deadline:     req.Deadline.UTC(),
		CreatorEmail: normalizeEmail(actor.Email),
		Participants: 0,
		Status:       model.ContestPending,
	}
	if err := validateContest(contest); err != nil {
		return nil, err
	}
	contest.Slug = slug.Make(contest.Title)

	if err := s.contestRepo.Create(ctx, contest); err != nil {
		return nil, fmt.Errorf("failed to create contest: %w", err)
	}
	logger.InfoCtx(ctx, "contest created", zap.String("contest_id", contest.ID), zap.String("creator", contest.CreatorEmail))
	return contest, nil
}

func (s *ContestService) Get(ctx context.Context, id string) (*model.Contest, error) {
	return s.contestRepo.FindByID(ctx, id)
}

// Transition moves a pending contest to confirmed or rejected with a single conditional write.
// A concurrent request that lost the race gets ErrConflict.
func (s *ContestService) Transition(ctx context.Context, actor policy.Actor, id string, target model.ContestStatus) (*model.Contest, error) {
	if !policy.CanPerform(actor, policy.OpTransitionContest, policy.Resource{}) {
		return nil, fmt.Errorf("only admins may change contest status: %w", common.ErrForbidden)
	}
	if !target.IsValid() {
		return nil, fmt.Errorf("unknown contest status %q: %w", target, common.ErrValidation)
	}
	// Review decisions always start from pending; the write re-checks it.
	target, err := model.NextContestStatus(model.ContestPending, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", err, common.ErrValidation)
	}

	ok, err := s.contestRepo.TransitionStatus(ctx, id, model.ContestPending, target)
	if err != nil {
		return nil, fmt.Errorf("failed to update contest status: %w", err)
	}
	if !ok {
		if _, err := s.contestRepo.FindByID(ctx, id); err != nil {
			return nil, err
		}
		metrics.RecordTransition(string(target), "conflict")
		return nil, fmt.Errorf("contest already updated: %w", common.ErrConflict)
	}
	metrics.RecordTransition(string(target), "success")
	logger.InfoCtx(ctx, "contest status changed",
		zap.String("contest_id", id), zap.String("status", string(target)), zap.String("by", actor.Email))

	return s.contestRepo.FindByID(ctx, id)
}

// Edit applies patch while the contest is still pending.
func (s *ContestService) Edit(ctx context.Context, actor policy.Actor, id string, patch model.ContestPatch) (*model.Contest, error) {
	contest, err := s.contestRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanPerform(actor, policy.OpEditContest, policy.ContestResource(contest)) {
		return nil, fmt.Errorf("not allowed to edit contest %s: %w", id, common.ErrForbidden)
	}
	if patch.IsEmpty() {
		return nil, fmt.Errorf("no editable fields supplied: %w", common.ErrValidation)
	}
	if contest.Status != model.ContestPending {
		return nil, fmt.Errorf("contest is %s, only pending contests can be edited: %w", contest.Status, common.ErrConflict)
	}

	patch.Apply(contest)
	contest.Title = strings.TrimSpace(contest.Title)
	contest.Deadline = contest.Deadline.UTC()
	if err := validateContest(contest); err != nil {
		return nil, err
	}
	contest.Slug = slug.Make(contest.Title)

	ok, err := s.contestRepo.UpdateIfStatus(ctx, contest, model.ContestPending)
	if err != nil {
		return nil, fmt.Errorf("failed to update contest: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("contest changed state during edit: %w", common.ErrConflict)
	}
	return s.contestRepo.FindByID(ctx, id)
}

// Delete lets admins remove any contest and the owning creator remove a pending one.
func (s *ContestService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	contest, err := s.contestRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.OpDeleteContest, policy.ContestResource(contest)) {
		if strings.EqualFold(actor.Email, contest.CreatorEmail) && actor.Role == model.RoleCreator {
			return fmt.Errorf("contest %s not found or no longer pending: %w", id, common.ErrNotFound)
		}
		return fmt.Errorf("not allowed to delete contest %s: %w", id, common.ErrForbidden)
	}

	ok, err := s.contestRepo.Delete(ctx, id, !actor.IsAdmin())
	if err != nil {
		return fmt.Errorf("failed to delete contest: %w", err)
	}
	if !ok {
		return fmt.Errorf("contest %s not found or no longer pending: %w", id, common.ErrNotFound)
	}
	logger.InfoCtx(ctx, "contest deleted", zap.String("contest_id", id), zap.String("by", actor.Email))
	return nil
}

// Close ends a confirmed contest and records its winner. Repeating the call with the winner
// already recorded succeeds without writing.
func (s *ContestService) Close(ctx context.Context, id, winnerEmail, winnerSubmissionID string) error {
	ok, err := s.contestRepo.Close(ctx, id, winnerEmail, winnerSubmissionID)
	if err != nil {
		return fmt.Errorf("failed to close contest: %w", err)
	}
	if ok {
		metrics.RecordTransition(string(model.ContestEnded), "success")
		logger.InfoCtx(ctx, "contest closed", zap.String("contest_id", id), zap.String("winner", winnerEmail))
		return nil
	}

	contest, err := s.contestRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if closedWith(contest, winnerSubmissionID) {
		return nil
	}
	metrics.RecordTransition(string(model.ContestEnded), "conflict")
	if !model.CanTransition(contest.Status, model.ContestEnded) {
		return fmt.Errorf("contest is %s and cannot be closed: %w", contest.Status, common.ErrConflict)
	}
	return fmt.Errorf("contest changed state while closing: %w", common.ErrConflict)
}

// closedWith reports whether c already ended with submissionID as its winner.
func closedWith(c *model.Contest, submissionID string) bool {
	return c.Status == model.ContestEnded && c.WinnerSubmissionID != nil && *c.WinnerSubmissionID == submissionID
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrNotFound) }
