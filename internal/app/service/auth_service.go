package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"contest_hub/internal/common"
	"contest_hub/internal/common/security"
	"contest_hub/internal/domain/model"
	"contest_hub/internal/domain/policy"
	"contest_hub/internal/domain/repository"
	"contest_hub/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLen = 6

type AuthService struct {
	userRepo    repository.UserRepository
	adminEmails map[string]struct{}
}

func NewAuthService(userRepo repository.UserRepository, adminEmails []string) *AuthService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = struct{}{}
		}
	}
	return &AuthService{userRepo: userRepo, adminEmails: admins}
}

type SignupRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	PhotoURL *string `json:"photo_url,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if strings.TrimSpace(req.Name) == "" || email == "" || req.Password == "" {
		return nil, fmt.Errorf("name, email and password are required: %w", common.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("invalid email %q: %w", req.Email, common.ErrValidation)
	}
	if len(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, common.ErrValidation)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := model.RoleUser
	if _, ok := s.adminEmails[email]; ok {
		role = model.RoleAdmin
	}
	user := &model.User{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(req.Name),
		Email:          email,
		PhotoURL:       req.PhotoURL,
		HashedPassword: hashedPassword,
		Role:           role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := security.GenerateToken(user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	logger.InfoCtx(ctx, "user signed up", zap.String("email", user.Email), zap.String("role", user.Role))
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required: %w", common.ErrValidation)
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrUnauthorized
	}

	token, err := security.GenerateToken(user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{User: user, Token: token}, nil
}

// ChangeRole is admin only. Tokens issued before the change keep the old role until they expire.
func (s *AuthService) ChangeRole(ctx context.Context, actor policy.Actor, email, role string) (*model.User, error) {
	if !policy.CanPerform(actor, policy.OpChangeRole, policy.UserResource(email)) {
		return nil, fmt.Errorf("only admins may change roles: %w", common.ErrForbidden)
	}
	if !model.IsValidRole(role) {
		return nil, fmt.Errorf("unknown role %q: %w", role, common.ErrValidation)
	}
	email = normalizeEmail(email)
	if err := s.userRepo.UpdateRole(ctx, email, role); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	logger.InfoCtx(ctx, "user role changed",
		zap.String("email", email), zap.String("role", role), zap.String("by", actor.Email))
	return user, nil
}
