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

// ContestRepository persists contests. Every status change is a conditional write whose
// boolean result reports whether the predicate still matched.
type ContestRepository interface {
	Create(ctx context.Context, c *model.Contest) error
	FindByID(ctx context.Context, id string) (*model.Contest, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Contest, error)
	ListIDs(ctx context.Context) ([]string, error)

	TransitionStatus(ctx context.Context, id string, from, to model.ContestStatus) (bool, error)
	UpdateIfStatus(ctx context.Context, c *model.Contest, status model.ContestStatus) (bool, error)
	Delete(ctx context.Context, id string, pendingOnly bool) (bool, error)
	Close(ctx context.Context, id, winnerEmail, winnerSubmissionID string) (bool, error)

	// RecountParticipants sets participants to the number of distinct paying users and returns
	// it. The count only covers committed payments, so concurrent callers can under-count but
	// never over-count.
	RecountParticipants(ctx context.Context, id string) (int, error)
}

type pgContestRepository struct {
	db *sqlx.DB
}

func NewPgContestRepository(db *sqlx.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

const contestColumns = `id, title, slug, description, image, type, prize_money, entry_fee, deadline,
	creator_email, participants, status, winner_email, winner_submission_id, created_at, updated_at`

func (r *pgContestRepository) Create(ctx context.Context, c *model.Contest) error {
	query := `INSERT INTO contests (id, title, slug, description, image, type, prize_money, entry_fee, deadline,
	              creator_email, participants, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query,
		c.ID, c.Title, c.Slug, c.Description, c.Image, c.Type, c.PrizeMoney, c.EntryFee, c.Deadline,
		c.CreatorEmail, c.Participants, c.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("contest %s already exists: %w", c.ID, common.ErrConflict)
		}
		return common.StoreErr("pgContestRepository.Create", err)
	}
	return nil
}

func (r *pgContestRepository) FindByID(ctx context.Context, id string) (*model.Contest, error) {
	c := &model.Contest{}
	err := r.db.GetContext(ctx, c, `SELECT `+contestColumns+` FROM contests WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("contest %s: %w", id, common.ErrNotFound)
		}
		return nil, common.StoreErr("pgContestRepository.FindByID", err)
	}
	return c, nil
}

func (r *pgContestRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Contest, error) {
	if len(ids) == 0 {
		return []model.Contest{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+contestColumns+` FROM contests WHERE id IN (?) ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.FindByIDs: build query: %w", err)
	}
	contests := []model.Contest{}
	if err := r.db.SelectContext(ctx, &contests, r.db.Rebind(query), args...); err != nil {
		return nil, common.StoreErr("pgContestRepository.FindByIDs", err)
	}
	return contests, nil
}

func (r *pgContestRepository) ListIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM contests ORDER BY created_at`); err != nil {
		return nil, common.StoreErr("pgContestRepository.ListIDs", err)
	}
	return ids, nil
}

func (r *pgContestRepository) TransitionStatus(ctx context.Context, id string, from, to model.ContestStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contests SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2 AND status = $3`,
		to, id, from)
	if err != nil {
		return false, common.StoreErr("pgContestRepository.TransitionStatus", err)
	}
	return affected(res, "pgContestRepository.TransitionStatus")
}

func (r *pgContestRepository) UpdateIfStatus(ctx context.Context, c *model.Contest, status model.ContestStatus) (bool, error) {
	query := `UPDATE contests SET
	              title = $1, slug = $2, description = $3, image = $4, type = $5,
	              prize_money = $6, entry_fee = $7, deadline = $8, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $9 AND status = $10`
	res, err := r.db.ExecContext(ctx, query,
		c.Title, c.Slug, c.Description, c.Image, c.Type, c.PrizeMoney, c.EntryFee, c.Deadline, c.ID, status)
	if err != nil {
		return false, common.StoreErr("pgContestRepository.UpdateIfStatus", err)
	}
	return affected(res, "pgContestRepository.UpdateIfStatus")
}

func (r *pgContestRepository) Delete(ctx context.Context, id string, pendingOnly bool) (bool, error) {
	var (
		res sql.Result
		err error
	)
	if pendingOnly {
		res, err = r.db.ExecContext(ctx, `DELETE FROM contests WHERE id = $1 AND status = $2`, id, model.ContestPending)
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM contests WHERE id = $1`, id)
	}
	if err != nil {
		return false, common.StoreErr("pgContestRepository.Delete", err)
	}
	return affected(res, "pgContestRepository.Delete")
}

func (r *pgContestRepository) Close(ctx context.Context, id, winnerEmail, winnerSubmissionID string) (bool, error) {
	query := `UPDATE contests
	          SET status = $1, winner_email = $2, winner_submission_id = $3, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, model.ContestEnded, winnerEmail, winnerSubmissionID, id, model.ContestConfirmed)
	if err != nil {
		return false, common.StoreErr("pgContestRepository.Close", err)
	}
	return affected(res, "pgContestRepository.Close")
}

func (r *pgContestRepository) RecountParticipants(ctx context.Context, id string) (int, error) {
	query := `UPDATE contests
	          SET participants = (SELECT COUNT(DISTINCT user_email) FROM payments WHERE contest_id = $1),
	              updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1
	          RETURNING participants`
	var n int
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("contest %s: %w", id, common.ErrNotFound)
		}
		return 0, common.StoreErr("pgContestRepository.RecountParticipants", err)
	}
	return n, nil
}
