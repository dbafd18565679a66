// Package policy decides who may perform which core operation, independently of HTTP.
package policy

import (
	"strings"

	"contest_hub/internal/domain/model"
)

type Operation string

const (
	OpCreateContest     Operation = "contest.create"
	OpTransitionContest Operation = "contest.transition"
	OpEditContest       Operation = "contest.edit"
	OpDeleteContest     Operation = "contest.delete"
	OpListSubmissions   Operation = "submission.list"
	OpDeclareWinner     Operation = "contest.declare_winner"
	OpViewEnrollments   Operation = "payment.view_enrollments"
	OpChangeRole        Operation = "user.change_role"
	OpReconcile         Operation = "contest.reconcile"
)

// Actor is the authenticated caller.
type Actor struct {
	Email string
	Role  string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// Resource is the entity an operation targets. OwnerEmail is the creator for contests and
// the user itself for user-scoped reads.
type Resource struct {
	OwnerEmail string
	Status     model.ContestStatus
}

func ContestResource(c *model.Contest) Resource {
	if c == nil {
		return Resource{}
	}
	return Resource{OwnerEmail: c.CreatorEmail, Status: c.Status}
}

func UserResource(email string) Resource {
	return Resource{OwnerEmail: email}
}

// CanPerform is evaluated before every mutating core operation.
func CanPerform(actor Actor, op Operation, res Resource) bool {
	if actor.Email == "" {
		return false
	}
	owner := res.OwnerEmail != "" && strings.EqualFold(actor.Email, res.OwnerEmail)

	switch op {
	case OpCreateContest:
		return actor.Role == model.RoleCreator
	case OpTransitionContest, OpChangeRole, OpReconcile:
		return actor.IsAdmin()
	case OpEditContest:
		return actor.IsAdmin() || (owner && actor.Role == model.RoleCreator)
	case OpDeleteContest:
		if actor.IsAdmin() {
			return true
		}
		return owner && actor.Role == model.RoleCreator && res.Status == model.ContestPending
	case OpListSubmissions, OpDeclareWinner:
		return actor.IsAdmin() || owner
	case OpViewEnrollments:
		return actor.IsAdmin() || owner
	}
	return false
}
