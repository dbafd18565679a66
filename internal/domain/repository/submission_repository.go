package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"

	"github.com/jmoiron/sqlx"
)

type SubmissionRepository interface {
	Create(ctx context.Context, sub *model.Submission) error
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	FindByContestAndUser(ctx context.Context, contestID, email string) (*model.Submission, error)
	ListByContest(ctx context.Context, contestID string) ([]model.Submission, error)
	ListWinners(ctx context.Context, contestID string) ([]model.Submission, error)

	// MarkWinner flags the submission unless another submission of the contest already holds
	// the flag. Re-marking the current winner reports true.
	MarkWinner(ctx context.Context, id, contestID string) (bool, error)
}

type pgSubmissionRepository struct {
	db *sqlx.DB
}

func NewPgSubmissionRepository(db *sqlx.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `id, contest_id, user_email, submission_link, is_winner, created_at`

func (r *pgSubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	query := `INSERT INTO submissions (id, contest_id, user_email, submission_link, is_winner)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at`
	err := r.db.QueryRowxContext(ctx, query, sub.ID, sub.ContestID, sub.UserEmail, sub.SubmissionLink, sub.IsWinner).
		Scan(&sub.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return common.ErrDuplicateSubmission
		}
		return common.StoreErr("pgSubmissionRepository.Create", err)
	}
	return nil
}

func (r *pgSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	sub := &model.Submission{}
	err := r.db.GetContext(ctx, sub, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("submission %s: %w", id, common.ErrNotFound)
		}
		return nil, common.StoreErr("pgSubmissionRepository.FindByID", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) FindByContestAndUser(ctx context.Context, contestID, email string) (*model.Submission, error) {
	sub := &model.Submission{}
	err := r.db.GetContext(ctx, sub,
		`SELECT `+submissionColumns+` FROM submissions WHERE contest_id = $1 AND user_email = $2`, contestID, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StoreErr("pgSubmissionRepository.FindByContestAndUser", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) ListByContest(ctx context.Context, contestID string) ([]model.Submission, error) {
	subs := []model.Submission{}
	err := r.db.SelectContext(ctx, &subs,
		`SELECT `+submissionColumns+` FROM submissions WHERE contest_id = $1 ORDER BY created_at, id`, contestID)
	if err != nil {
		return nil, common.StoreErr("pgSubmissionRepository.ListByContest", err)
	}
	return subs, nil
}

func (r *pgSubmissionRepository) ListWinners(ctx context.Context, contestID string) ([]model.Submission, error) {
	subs := []model.Submission{}
	err := r.db.SelectContext(ctx, &subs,
		`SELECT `+submissionColumns+` FROM submissions WHERE contest_id = $1 AND is_winner ORDER BY created_at`, contestID)
	if err != nil {
		return nil, common.StoreErr("pgSubmissionRepository.ListWinners", err)
	}
	return subs, nil
}

func (r *pgSubmissionRepository) MarkWinner(ctx context.Context, id, contestID string) (bool, error) {
	// submissions_one_winner_idx backs the NOT EXISTS guard under concurrent declares.
	query := `UPDATE submissions SET is_winner = TRUE
	          WHERE id = $1 AND contest_id = $2
	            AND NOT EXISTS (
	                SELECT 1 FROM submissions o
	                WHERE o.contest_id = $2 AND o.is_winner AND o.id <> $1)`
	res, err := r.db.ExecContext(ctx, query, id, contestID)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return false, nil
		}
		return false, common.StoreErr("pgSubmissionRepository.MarkWinner", err)
	}
	return affected(res, "pgSubmissionRepository.MarkWinner")
}
