package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"
	"contest_hub/internal/domain/policy"
	"contest_hub/internal/domain/repository"
	"contest_hub/internal/platform/gateway"
	"contest_hub/internal/platform/logger"
	"contest_hub/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconcileEnqueuer receives contests whose participant counter may have drifted.
type ReconcileEnqueuer interface {
	Enqueue(ctx context.Context, contestID string) error
}

// SettlementService turns a paid checkout session into exactly one enrollment.
type SettlementService struct {
	contestRepo repository.ContestRepository
	paymentRepo repository.PaymentRepository
	gateway     gateway.Gateway
	reconcile   ReconcileEnqueuer // optional
	currency    string
}

func NewSettlementService(
	contestRepo repository.ContestRepository,
	paymentRepo repository.PaymentRepository,
	gw gateway.Gateway,
	reconcile ReconcileEnqueuer,
	currency string,
) *SettlementService {
	return &SettlementService{
		contestRepo: contestRepo,
		paymentRepo: paymentRepo,
		gateway:     gw,
		reconcile:   reconcile,
		currency:    strings.ToLower(currency),
	}
}

type CheckoutRequest struct {
	ContestID string `json:"contest_id"`
}

type VerifyRequest struct {
	SessionID string `json:"session_id"`
}

type VerifyResult struct {
	ContestID         string         `json:"contest_id"`
	UserEmail         string         `json:"user_email"`
	AlreadyRegistered bool           `json:"already_registered"`
	Payment           *model.Payment `json:"payment,omitempty"`
}

// CreateCheckout opens a gateway session priced at the contest entry fee. Gateway failures are
// returned as is; the redirect flow owns retries.
func (s *SettlementService) CreateCheckout(ctx context.Context, actor policy.Actor, contestID string) (*gateway.Checkout, error) {
	if actor.Email == "" {
		return nil, common.ErrUnauthorized
	}
	if strings.TrimSpace(contestID) == "" {
		return nil, fmt.Errorf("contest_id is required: %w", common.ErrValidation)
	}
	email := normalizeEmail(actor.Email)

	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Status != model.ContestConfirmed {
		return nil, fmt.Errorf("contest is %s and not open for registration: %w", contest.Status, common.ErrConflict)
	}
	if !contest.Deadline.After(time.Now()) {
		return nil, fmt.Errorf("registration for contest %s is closed: %w", contestID, common.ErrConflict)
	}

	if _, err := s.paymentRepo.FindByContestAndUser(ctx, contestID, email); err == nil {
		return nil, fmt.Errorf("already registered for contest %s: %w", contestID, common.ErrConflict)
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}

	checkout, err := s.gateway.CreateCheckout(ctx, gateway.CheckoutRequest{
		ContestName:     contest.Title,
		PriceMinorUnits: contest.EntryFee.Shift(2).Round(0).IntPart(),
		Currency:        s.currency,
		ContestID:       contest.ID,
		UserEmail:       email,
	})
	if err != nil {
		logger.ErrorCtx(ctx, "checkout session creation failed", zap.String("contest_id", contestID), zap.Error(err))
		return nil, err
	}
	logger.InfoCtx(ctx, "checkout session created",
		zap.String("contest_id", contestID), zap.String("user", email), zap.String("session_id", checkout.SessionID))
	return checkout, nil
}

// Verify settles a checkout session. It is safe to call repeatedly: once a payment exists for
// the (contest, user) pair later calls report AlreadyRegistered and write nothing.
func (s *SettlementService) Verify(ctx context.Context, sessionID string) (*VerifyResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session_id is required: %w", common.ErrValidation)
	}

	sess, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		metrics.RecordSettlement(metrics.SettlementFailed)
		return nil, err
	}
	if !sess.Paid {
		metrics.RecordSettlement(metrics.SettlementIncomplete)
		return nil, fmt.Errorf("session %s: %w", sessionID, common.ErrPaymentIncomplete)
	}

	contestID := sess.Metadata[gateway.MetaContestID]
	email := normalizeEmail(sess.Metadata[gateway.MetaUserEmail])
	if contestID == "" || email == "" {
		metrics.RecordSettlement(metrics.SettlementFailed)
		return nil, fmt.Errorf("session %s carries no enrollment metadata: %w", sessionID, common.ErrValidation)
	}
	result := &VerifyResult{ContestID: contestID, UserEmail: email}

	if _, err := s.contestRepo.FindByID(ctx, contestID); err != nil {
		metrics.RecordSettlement(metrics.SettlementFailed)
		return nil, err
	}

	existing, err := s.paymentRepo.FindByContestAndUser(ctx, contestID, email)
	if err == nil {
		metrics.RecordSettlement(metrics.SettlementAlreadyRegistered)
		result.AlreadyRegistered = true
		result.Payment = existing
		return result, nil
	}
	if !isNotFound(err) {
		metrics.RecordSettlement(metrics.SettlementFailed)
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}

	currency := sess.Currency
	if currency == "" {
		currency = s.currency
	}
	payment := &model.Payment{
		ID:            uuid.NewString(),
		ContestID:     contestID,
		UserEmail:     email,
		Amount:        decimal.New(sess.AmountMinorUnits, -2),
		Currency:      strings.ToLower(currency),
		TransactionID: sess.ID,
	}
	created, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		metrics.RecordSettlement(metrics.SettlementFailed)
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	if !created {
		// Either a concurrent verify of the same enrollment won, or the contest was deleted.
		winner, err := s.paymentRepo.FindByContestAndUser(ctx, contestID, email)
		if err != nil {
			metrics.RecordSettlement(metrics.SettlementFailed)
			if isNotFound(err) {
				return nil, fmt.Errorf("contest %s: %w", contestID, common.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to load payment: %w", err)
		}
		metrics.RecordSettlement(metrics.SettlementAlreadyRegistered)
		result.AlreadyRegistered = true
		result.Payment = winner
		return result, nil
	}
	result.Payment = payment

	// The counter is recomputed from the payment rows; a failed recount leaves an under-count
	// that reconciliation repairs.
	if _, err := s.contestRepo.RecountParticipants(ctx, contestID); err != nil {
		metrics.RecordSettlement(metrics.SettlementPartial)
		logger.ErrorCtx(ctx, "participant recount failed after payment insert",
			zap.String("contest_id", contestID), zap.String("user", email), zap.Error(err))
		s.enqueueReconcile(ctx, contestID)
		return result, nil
	}

	metrics.RecordSettlement(metrics.SettlementEnrolled)
	logger.InfoCtx(ctx, "enrollment recorded",
		zap.String("contest_id", contestID), zap.String("user", email), zap.String("amount", payment.Amount.String()))
	return result, nil
}

func (s *SettlementService) enqueueReconcile(ctx context.Context, contestID string) {
	if s.reconcile == nil {
		return
	}
	if err := s.reconcile.Enqueue(ctx, contestID); err != nil {
		logger.ErrorCtx(ctx, "failed to enqueue contest for reconciliation",
			zap.String("contest_id", contestID), zap.Error(err))
	}
}

// ParticipatedContests returns the contests email has paid for, newest first.
func (s *SettlementService) ParticipatedContests(ctx context.Context, actor policy.Actor, email string) ([]model.Contest, error) {
	if !policy.CanPerform(actor, policy.OpViewEnrollments, policy.UserResource(email)) {
		return nil, fmt.Errorf("not allowed to view enrollments of %s: %w", email, common.ErrForbidden)
	}

	payments, err := s.paymentRepo.ListByUser(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	seen := make(map[string]struct{}, len(payments))
	ids := make([]string, 0, len(payments))
	for _, p := range payments {
		if _, ok := seen[p.ContestID]; ok {
			continue
		}
		seen[p.ContestID] = struct{}{}
		ids = append(ids, p.ContestID)
	}

	contests, err := s.contestRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load contests: %w", err)
	}
	return contests, nil
}
