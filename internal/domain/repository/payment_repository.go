package repository

import (
	"context"
	"database/sql"
	"errors"

	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"

	"github.com/jmoiron/sqlx"
)

type PaymentRepository interface {
	// Create inserts the enrollment and reports false when (contest_id, user_email) already
	// exists or the contest is gone.
	Create(ctx context.Context, p *model.Payment) (bool, error)
	FindByContestAndUser(ctx context.Context, contestID, email string) (*model.Payment, error)
	ListByUser(ctx context.Context, email string) ([]model.Payment, error)
}

type pgPaymentRepository struct {
	db *sqlx.DB
}

func NewPgPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &pgPaymentRepository{db: db}
}

const paymentColumns = `id, contest_id, user_email, amount, currency, transaction_id, created_at`

func (r *pgPaymentRepository) Create(ctx context.Context, p *model.Payment) (bool, error) {
	query := `INSERT INTO payments (id, contest_id, user_email, amount, currency, transaction_id)
	          SELECT $1::text, $2::text, $3::text, $4::numeric, $5::text, $6::text
	          WHERE EXISTS (SELECT 1 FROM contests WHERE id = $2::text)
	          ON CONFLICT (contest_id, user_email) DO NOTHING
	          RETURNING created_at`
	err := r.db.QueryRowxContext(ctx, query, p.ID, p.ContestID, p.UserEmail, p.Amount, p.Currency, p.TransactionID).
		Scan(&p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, common.StoreErr("pgPaymentRepository.Create", err)
	}
	return true, nil
}

func (r *pgPaymentRepository) FindByContestAndUser(ctx context.Context, contestID, email string) (*model.Payment, error) {
	p := &model.Payment{}
	err := r.db.GetContext(ctx, p,
		`SELECT `+paymentColumns+` FROM payments WHERE contest_id = $1 AND user_email = $2`, contestID, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.StoreErr("pgPaymentRepository.FindByContestAndUser", err)
	}
	return p, nil
}

func (r *pgPaymentRepository) ListByUser(ctx context.Context, email string) ([]model.Payment, error) {
	payments := []model.Payment{}
	err := r.db.SelectContext(ctx, &payments,
		`SELECT `+paymentColumns+` FROM payments WHERE user_email = $1 ORDER BY created_at DESC`, email)
	if err != nil {
		return nil, common.StoreErr("pgPaymentRepository.ListByUser", err)
	}
	return payments, nil
}
