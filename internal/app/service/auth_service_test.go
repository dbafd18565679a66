package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"contest_hub/internal/common"
	"contest_hub/internal/common/security"
	"contest_hub/internal/domain/model"
	"contest_hub/internal/domain/repository/memory"
)

func newAuthService(t *testing.T, admins ...string) *AuthService {
	t.Helper()
	security.InitJWT([]byte("test-secret"), time.Hour)
	return NewAuthService(memory.NewStore().Users(), admins)
}

func TestSignupAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, SignupRequest{Name: "Ann", Email: " Ann@Example.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if resp.User.Email != "ann@example.com" || resp.User.Role != model.RoleUser || resp.Token == "" {
		t.Fatalf("unexpected signup response %+v", resp.User)
	}

	if _, err := svc.Signup(ctx, SignupRequest{Name: "Ann", Email: "ann@example.com", Password: "secret1"}); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}

	if _, err := svc.Login(ctx, LoginRequest{Email: "ann@example.com", Password: "wrong-pass"}); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if _, err := svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret1"}); !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
	login, err := svc.Login(ctx, LoginRequest{Email: "ANN@example.com", Password: "secret1"})
	if err != nil || login.Token == "" {
		t.Fatalf("login: %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc := newAuthService(t)
	cases := []SignupRequest{
		{Name: "", Email: "a@example.com", Password: "secret1"},
		{Name: "A", Email: "not-an-email", Password: "secret1"},
		{Name: "A", Email: "a@example.com", Password: "123"},
	}
	for _, req := range cases {
		if _, err := svc.Signup(context.Background(), req); !errors.Is(err, common.ErrValidation) {
			t.Errorf("signup(%+v): expected validation error, got %v", req, err)
		}
	}
}

func TestChangeRole(t *testing.T) {
	svc := newAuthService(t, "root@example.com")
	ctx := context.Background()

	root, err := svc.Signup(ctx, SignupRequest{Name: "Root", Email: "root@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("signup admin: %v", err)
	}
	if root.User.Role != model.RoleAdmin {
		t.Fatalf("bootstrap admin got role %s", root.User.Role)
	}
	if _, err := svc.Signup(ctx, SignupRequest{Name: "Cat", Email: "cat@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.ChangeRole(ctx, userA, "cat@example.com", model.RoleCreator); !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected forbidden for non-admin, got %v", err)
	}
	if _, err := svc.ChangeRole(ctx, admin, "cat@example.com", "owner"); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error for unknown role, got %v", err)
	}
	if _, err := svc.ChangeRole(ctx, admin, "ghost@example.com", model.RoleCreator); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	u, err := svc.ChangeRole(ctx, admin, "cat@example.com", model.RoleCreator)
	if err != nil {
		t.Fatalf("change role: %v", err)
	}
	if u.Role != model.RoleCreator {
		t.Fatalf("role = %s, want creator", u.Role)
	}
}
