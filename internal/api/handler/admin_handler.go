package handler

import (
	"net/http"

	"contest_hub/internal/api/middleware"
	"contest_hub/internal/app/service"
	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"
	"contest_hub/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AdminHandler struct {
	reconcileService *service.ReconcileService
}

func NewAdminHandler(rs *service.ReconcileService) *AdminHandler {
	return &AdminHandler{reconcileService: rs}
}

type reconcileAllResponse struct {
	Reports []service.ReconcileReport `json:"reports"`
	Error   string                    `json:"error,omitempty"`
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Use(middleware.RequireRole(model.RoleAdmin))
	r.Post("/reconcile", h.reconcileAll)
	r.Post("/reconcile/{contestId}", h.reconcileContest)
}

func (h *AdminHandler) reconcileContest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	report, err := h.reconcileService.RunForContest(r.Context(), actor, chi.URLParam(r, "contestId"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, report)
}

// reconcileAll returns the reports it managed to produce even when some contests failed.
func (h *AdminHandler) reconcileAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	reports, err := h.reconcileService.RunAll(r.Context(), actor)
	if err != nil && reports == nil {
		common.RespondWithErr(w, err)
		return
	}
	resp := reconcileAllResponse{Reports: reports}
	if err != nil {
		logger.ErrorCtx(r.Context(), "reconcile pass finished with errors", zap.Error(err))
		resp.Error = err.Error()
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
