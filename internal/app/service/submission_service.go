package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"
	"contest_hub/internal/domain/policy"
	"contest_hub/internal/domain/repository"
	"contest_hub/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubmissionService struct {
	contestRepo    repository.ContestRepository
	submissionRepo repository.SubmissionRepository
	paymentRepo    repository.PaymentRepository
}

func NewSubmissionService(
	contestRepo repository.ContestRepository,
	submissionRepo repository.SubmissionRepository,
	paymentRepo repository.PaymentRepository,
) *SubmissionService {
	return &SubmissionService{
		contestRepo:    contestRepo,
		submissionRepo: submissionRepo,
		paymentRepo:    paymentRepo,
	}
}

type SubmitRequest struct {
	SubmissionLink string `json:"submission_link"`
}

func validateLink(link string) error {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("submission_link must be an http(s) URL: %w", common.ErrValidation)
	}
	return nil
}

// Submit records the one submission an enrolled user may make to a confirmed contest.
func (s *SubmissionService) Submit(ctx context.Context, actor policy.Actor, contestID, link string) (*model.Submission, error) {
	if actor.Email == "" {
		return nil, common.ErrUnauthorized
	}
	if err := validateLink(link); err != nil {
		return nil, err
	}
	email := normalizeEmail(actor.Email)

	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Status != model.ContestConfirmed {
		return nil, fmt.Errorf("contest is %s and not accepting submissions: %w", contest.Status, common.ErrConflict)
	}
	if !contest.Deadline.After(time.Now()) {
		return nil, fmt.Errorf("submission deadline for contest %s has passed: %w", contestID, common.ErrConflict)
	}

	if _, err := s.paymentRepo.FindByContestAndUser(ctx, contestID, email); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("registration for contest %s is required before submitting: %w", contestID, common.ErrForbidden)
		}
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}

	// fast path; the unique index still catches concurrent duplicates
	if _, err := s.submissionRepo.FindByContestAndUser(ctx, contestID, email); err == nil {
		return nil, common.ErrDuplicateSubmission
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}

	sub := &model.Submission{
		ID:             uuid.NewString(),
		ContestID:      contestID,
		UserEmail:      email,
		SubmissionLink: strings.TrimSpace(link),
		IsWinner:       false,
	}
	if err := s.submissionRepo.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	logger.InfoCtx(ctx, "submission created", zap.String("contest_id", contestID), zap.String("user", email))
	return sub, nil
}

func (s *SubmissionService) ListByContest(ctx context.Context, actor policy.Actor, contestID string) ([]model.Submission, error) {
	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if !policy.CanPerform(actor, policy.OpListSubmissions, policy.ContestResource(contest)) {
		return nil, fmt.Errorf("not allowed to list submissions of contest %s: %w", contestID, common.ErrForbidden)
	}
	subs, err := s.submissionRepo.ListByContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}
