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

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateRole(ctx context.Context, email, role string) error
}

type pgUserRepository struct {
	db *sqlx.DB
}

func NewPgUserRepository(db *sqlx.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, email, name, photo_url, hashed_password, role, created_at, updated_at`

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, email, name, photo_url, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, query, user.ID, user.Email, user.Name, user.PhotoURL, user.HashedPassword, user.Role).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return common.StoreErr("pgUserRepository.Create", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.db.GetContext(ctx, user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", email, common.ErrNotFound)
		}
		return nil, common.StoreErr("pgUserRepository.FindByEmail", err)
	}
	return user, nil
}

func (r *pgUserRepository) UpdateRole(ctx context.Context, email, role string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = CURRENT_TIMESTAMP WHERE email = $2`, role, email)
	if err != nil {
		return common.StoreErr("pgUserRepository.UpdateRole", err)
	}
	return requireRow(res, "pgUserRepository.UpdateRole", fmt.Errorf("user %s: %w", email, common.ErrNotFound))
}

// requireRow turns a zero-row write into notFound.
func requireRow(res sql.Result, op string, notFound error) error {
	ok, err := affected(res, op)
	if err != nil {
		return err
	}
	if !ok {
		return notFound
	}
	return nil
}

func affected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, common.StoreErr(op, err)
	}
	return n > 0, nil
}
