package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"
	"contest_hub/internal/domain/policy"
	"contest_hub/internal/domain/repository"
	"contest_hub/internal/platform/logger"
	"contest_hub/internal/platform/metrics"

	"go.uber.org/zap"
)

// ReconcileService heals the drift left by partial failures. Participants is recomputed from
// the payment set and a confirmed contest with exactly one winning submission is closed.
// Every pass is idempotent.
type ReconcileService struct {
	contestRepo    repository.ContestRepository
	submissionRepo repository.SubmissionRepository
}

func NewReconcileService(contestRepo repository.ContestRepository, submissionRepo repository.SubmissionRepository) *ReconcileService {
	return &ReconcileService{contestRepo: contestRepo, submissionRepo: submissionRepo}
}

type ReconcileReport struct {
	ContestID          string              `json:"contest_id"`
	Status             model.ContestStatus `json:"status"`
	ParticipantsBefore int                 `json:"participants_before"`
	ParticipantsAfter  int                 `json:"participants_after"`
	Closed             bool                `json:"closed"`
	Issues             []string            `json:"issues,omitempty"`
}

func (r *ReconcileReport) Repaired() bool {
	return r.Closed || r.ParticipantsBefore != r.ParticipantsAfter
}

func (s *ReconcileService) ReconcileContest(ctx context.Context, contestID string) (*ReconcileReport, error) {
	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	report := &ReconcileReport{
		ContestID:          contest.ID,
		Status:             contest.Status,
		ParticipantsBefore: contest.Participants,
		ParticipantsAfter:  contest.Participants,
	}

	count, err := s.contestRepo.RecountParticipants(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to recount participants: %w", err)
	}
	report.ParticipantsAfter = count
	if count != contest.Participants {
		metrics.RecordRepair("participants")
		logger.WarnCtx(ctx, "participants drift repaired",
			zap.String("contest_id", contestID), zap.Int("was", contest.Participants), zap.Int("now", count))
	}

	winners, err := s.submissionRepo.ListWinners(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	switch {
	case len(winners) == 1 && model.CanTransition(contest.Status, model.ContestEnded):
		w := winners[0]
		ok, err := s.contestRepo.Close(ctx, contestID, w.UserEmail, w.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to close contest: %w", err)
		}
		if ok {
			report.Closed = true
			report.Status = model.ContestEnded
			metrics.RecordRepair("closed")
			logger.WarnCtx(ctx, "closed contest left open after winner was marked",
				zap.String("contest_id", contestID), zap.String("submission_id", w.ID))
		}
	case len(winners) > 1:
		report.Issues = append(report.Issues, fmt.Sprintf("%d winning submissions", len(winners)))
	case len(winners) == 0 && contest.Status == model.ContestEnded:
		report.Issues = append(report.Issues, "ended without a winning submission")
	case len(winners) == 1 && contest.Status == model.ContestEnded &&
		(contest.WinnerSubmissionID == nil || *contest.WinnerSubmissionID != winners[0].ID):
		report.Issues = append(report.Issues, "recorded winner differs from the winning submission")
	}
	for _, issue := range report.Issues {
		logger.WarnCtx(ctx, "reconcile found unrepairable drift", zap.String("contest_id", contestID), zap.String("issue", issue))
	}
	return report, nil
}

// ReconcileAll visits every contest. A failing contest does not stop the pass; its error is
// joined into the returned error.
func (s *ReconcileService) ReconcileAll(ctx context.Context) ([]ReconcileReport, error) {
	started := time.Now()
	defer metrics.RecordReconcile(started)

	ids, err := s.contestRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contests: %w", err)
	}

	reports := make([]ReconcileReport, 0, len(ids))
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report, err := s.ReconcileContest(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue // deleted mid-pass
			}
			errs = append(errs, fmt.Errorf("contest %s: %w", id, err))
			continue
		}
		reports = append(reports, *report)
	}
	return reports, errors.Join(errs...)
}

// RunForContest is the admin-triggered form of ReconcileContest.
func (s *ReconcileService) RunForContest(ctx context.Context, actor policy.Actor, contestID string) (*ReconcileReport, error) {
	if !policy.CanPerform(actor, policy.OpReconcile, policy.Resource{}) {
		return nil, fmt.Errorf("only admins may run reconciliation: %w", common.ErrForbidden)
	}
	return s.ReconcileContest(ctx, contestID)
}

func (s *ReconcileService) RunAll(ctx context.Context, actor policy.Actor) ([]ReconcileReport, error) {
	if !policy.CanPerform(actor, policy.OpReconcile, policy.Resource{}) {
		return nil, fmt.Errorf("only admins may run reconciliation: %w", common.ErrForbidden)
	}
	return s.ReconcileAll(ctx)
}
