package policy

import (
	"testing"

	"contest_hub/internal/domain/model"
)

func TestCanPerform(t *testing.T) {
	admin := Actor{Email: "root@example.com", Role: model.RoleAdmin}
	creator := Actor{Email: "maker@example.com", Role: model.RoleCreator}
	otherCreator := Actor{Email: "rival@example.com", Role: model.RoleCreator}
	user := Actor{Email: "player@example.com", Role: model.RoleUser}

	pending := Resource{OwnerEmail: creator.Email, Status: model.ContestPending}
	confirmed := Resource{OwnerEmail: creator.Email, Status: model.ContestConfirmed}

	tests := []struct {
		name  string
		actor Actor
		op    Operation
		res   Resource
		want  bool
	}{
		{"creator creates", creator, OpCreateContest, Resource{}, true},
		{"user cannot create", user, OpCreateContest, Resource{}, false},
		{"admin transitions", admin, OpTransitionContest, pending, true},
		{"owner cannot transition", creator, OpTransitionContest, pending, false},
		{"owner edits", creator, OpEditContest, pending, true},
		{"other creator cannot edit", otherCreator, OpEditContest, pending, false},
		{"admin edits", admin, OpEditContest, confirmed, true},
		{"owner deletes pending", creator, OpDeleteContest, pending, true},
		{"owner cannot delete confirmed", creator, OpDeleteContest, confirmed, false},
		{"admin deletes confirmed", admin, OpDeleteContest, confirmed, true},
		{"user cannot delete", user, OpDeleteContest, pending, false},
		{"owner declares winner", creator, OpDeclareWinner, confirmed, true},
		{"admin declares winner", admin, OpDeclareWinner, confirmed, true},
		{"other creator cannot declare", otherCreator, OpDeclareWinner, confirmed, false},
		{"participant cannot declare", user, OpDeclareWinner, confirmed, false},
		{"owner lists submissions", creator, OpListSubmissions, confirmed, true},
		{"user lists own enrollments", user, OpViewEnrollments, UserResource("Player@Example.com"), true},
		{"user cannot list others", user, OpViewEnrollments, UserResource("else@example.com"), false},
		{"admin lists enrollments", admin, OpViewEnrollments, UserResource("else@example.com"), true},
		{"only admin changes roles", creator, OpChangeRole, UserResource(creator.Email), false},
		{"anonymous denied", Actor{}, OpViewEnrollments, UserResource(""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanPerform(tt.actor, tt.op, tt.res); got != tt.want {
				t.Fatalf("CanPerform = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContestResource(t *testing.T) {
	res := ContestResource(&model.Contest{CreatorEmail: "a@b.c", Status: model.ContestConfirmed})
	if res.OwnerEmail != "a@b.c" || res.Status != model.ContestConfirmed {
		t.Fatalf("unexpected resource %+v", res)
	}
	if (ContestResource(nil) != Resource{}) {
		t.Fatal("nil contest should map to zero resource")
	}
}
