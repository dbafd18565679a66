package model

import "time"

type Submission struct {
	ID             string    `json:"id" db:"id"`
	ContestID      string    `json:"contest_id" db:"contest_id"`
	UserEmail      string    `json:"user_email" db:"user_email"`
	SubmissionLink string    `json:"submission_link" db:"submission_link"`
	IsWinner       bool      `json:"is_winner" db:"is_winner"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
