package handler

import (
	"net/http"
	"strings"

	"contest_hub/internal/api/middleware"
	"contest_hub/internal/app/service"
	"contest_hub/internal/common"
	"contest_hub/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	settlementService *service.SettlementService
}

func NewPaymentHandler(ss *service.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlementService: ss}
}

func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	// The gateway redirect lands on the client, which calls back here with the session id.
	r.Post("/verify-payment", h.verifyPayment)

	r.Group(func(authRouter chi.Router) {
		authRouter.Use(middleware.Authenticator)
		authRouter.Post("/create-checkout-session", h.createCheckoutSession)
		authRouter.Get("/participated-contests/{email}", h.participatedContests)
	})
}

func (h *PaymentHandler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req service.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	checkout, err := h.settlementService.CreateCheckout(r.Context(), actor, req.ContestID)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, checkout)
}

func (h *PaymentHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req service.VerifyRequest
	if sid := r.URL.Query().Get("session_id"); sid != "" {
		req.SessionID = sid
	} else if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.settlementService.Verify(r.Context(), strings.TrimSpace(req.SessionID))
	if err != nil {
		logger.WarnCtx(r.Context(), "payment verification failed", zap.String("session_id", req.SessionID), zap.Error(err))
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) participatedContests(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	contests, err := h.settlementService.ParticipatedContests(r.Context(), actor, chi.URLParam(r, "email"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contests)
}
