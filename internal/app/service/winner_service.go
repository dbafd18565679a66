package service

import (
	"context"
	"fmt"

	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"
	"contest_hub/internal/domain/policy"
	"contest_hub/internal/domain/repository"
	"contest_hub/internal/platform/logger"

	"go.uber.org/zap"
)

type WinnerService struct {
	contests       *ContestService
	contestRepo    repository.ContestRepository
	submissionRepo repository.SubmissionRepository
}

func NewWinnerService(contests *ContestService, contestRepo repository.ContestRepository, submissionRepo repository.SubmissionRepository) *WinnerService {
	return &WinnerService{contests: contests, contestRepo: contestRepo, submissionRepo: submissionRepo}
}

type DeclareWinnerRequest struct {
	SubmissionID string `json:"submission_id"`
}

// DeclareWinner flags the submission, then closes the contest. A failure between the two
// writes leaves a flagged winner on a confirmed contest, which reconciliation closes.
// Repeating a successful call returns the ended contest unchanged.
func (s *WinnerService) DeclareWinner(ctx context.Context, actor policy.Actor, contestID, submissionID string) (*model.Contest, error) {
	sub, err := s.submissionRepo.FindByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.ContestID != contestID {
		return nil, fmt.Errorf("submission %s in contest %s: %w", submissionID, contestID, common.ErrNotFound)
	}

	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if !policy.CanPerform(actor, policy.OpDeclareWinner, policy.ContestResource(contest)) {
		return nil, fmt.Errorf("only the contest creator or an admin may declare a winner: %w", common.ErrForbidden)
	}

	if !model.CanTransition(contest.Status, model.ContestEnded) {
		if closedWith(contest, submissionID) {
			return contest, nil
		}
		return nil, fmt.Errorf("contest is %s, a winner can only be declared for a confirmed contest: %w",
			contest.Status, common.ErrConflict)
	}

	ok, err := s.submissionRepo.MarkWinner(ctx, submissionID, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark winner: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another submission already won contest %s: %w", contestID, common.ErrConflict)
	}

	if err := s.contests.Close(ctx, contestID, sub.UserEmail, submissionID); err != nil {
		logger.ErrorCtx(ctx, "winner marked but contest not closed",
			zap.String("contest_id", contestID), zap.String("submission_id", submissionID), zap.Error(err))
		return nil, err
	}
	logger.InfoCtx(ctx, "winner declared",
		zap.String("contest_id", contestID), zap.String("submission_id", submissionID), zap.String("by", actor.Email))

	return s.contestRepo.FindByID(ctx, contestID)
}
