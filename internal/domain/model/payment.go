package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the enrollment record of one user in one contest.
type Payment struct {
	ID            string          `json:"id" db:"id"`
	ContestID     string          `json:"contest_id" db:"contest_id"`
	UserEmail     string          `json:"user_email" db:"user_email"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Currency      string          `json:"currency" db:"currency"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
