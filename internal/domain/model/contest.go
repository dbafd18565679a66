package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ContestStatus string

const (
	ContestPending   ContestStatus = "pending"
	ContestConfirmed ContestStatus = "confirmed"
	ContestRejected  ContestStatus = "rejected"
	ContestEnded     ContestStatus = "ended"
)

// contestTransitions lists every legal move; anything absent is rejected.
var contestTransitions = map[ContestStatus][]ContestStatus{
	ContestPending:   {ContestConfirmed, ContestRejected},
	ContestConfirmed: {ContestEnded},
}

// CanTransition reports whether a contest may move from cur to next.
func CanTransition(cur, next ContestStatus) bool {
	for _, s := range contestTransitions[cur] {
		if s == next {
			return true
		}
	}
	return false
}

// NextContestStatus validates cur -> next and returns next, or an error naming the illegal move.
func NextContestStatus(cur, next ContestStatus) (ContestStatus, error) {
	if !CanTransition(cur, next) {
		return cur, fmt.Errorf("invalid contest transition: %s -> %s", cur, next)
	}
	return next, nil
}

func (s ContestStatus) IsValid() bool {
	switch s {
	case ContestPending, ContestConfirmed, ContestRejected, ContestEnded:
		return true
	}
	return false
}

type Contest struct {
	ID                 string          `json:"id" db:"id"`
	Title              string          `json:"title" db:"title"`
	Slug               string          `json:"slug" db:"slug"`
	Description        string          `json:"description" db:"description"`
	Image              *string         `json:"image,omitempty" db:"image"`
	Type               string          `json:"type" db:"type"`
	PrizeMoney         decimal.Decimal `json:"prize_money" db:"prize_money"`
	EntryFee           decimal.Decimal `json:"entry_fee" db:"entry_fee"`
	Deadline           time.Time       `json:"deadline" db:"deadline"`
	CreatorEmail       string          `json:"creator_email" db:"creator_email"`
	Participants       int             `json:"participants" db:"participants"`
	Status             ContestStatus   `json:"status" db:"status"`
	WinnerEmail        *string         `json:"winner_email,omitempty" db:"winner_email"`
	WinnerSubmissionID *string         `json:"winner_submission_id,omitempty" db:"winner_submission_id"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// ContestPatch carries the editable fields; nil means "leave unchanged".
type ContestPatch struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Image       *string          `json:"image,omitempty"`
	Type        *string          `json:"type,omitempty"`
	PrizeMoney  *decimal.Decimal `json:"prize_money,omitempty"`
	EntryFee    *decimal.Decimal `json:"entry_fee,omitempty"`
	Deadline    *time.Time       `json:"deadline,omitempty"`
}

func (p ContestPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Image == nil && p.Type == nil &&
		p.PrizeMoney == nil && p.EntryFee == nil && p.Deadline == nil
}

// Apply copies the set fields of p onto c.
func (p ContestPatch) Apply(c *Contest) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Image != nil {
		c.Image = p.Image
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.PrizeMoney != nil {
		c.PrizeMoney = *p.PrizeMoney
	}
	if p.EntryFee != nil {
		c.EntryFee = *p.EntryFee
	}
	if p.Deadline != nil {
		c.Deadline = *p.Deadline
	}
}
