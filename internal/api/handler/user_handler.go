package handler

import (
	"net/http"

	"contest_hub/internal/api/middleware"
	"contest_hub/internal/app/service"
	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	authService *service.AuthService
}

func NewUserHandler(authService *service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Authenticator)
		adminRouter.Use(middleware.RequireRole(model.RoleAdmin))
		adminRouter.Patch("/{email}/role", h.changeRole)
	})
}

func (h *UserHandler) changeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req changeRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.authService.ChangeRole(r.Context(), actor, chi.URLParam(r, "email"), req.Role)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}
