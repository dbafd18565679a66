package handler

import (
	"net/http"

	"contest_hub/internal/api/middleware"
	"contest_hub/internal/app/service"
	"contest_hub/internal/common"
	"contest_hub/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ContestHandler struct {
	contestService *service.ContestService
	winnerService  *service.WinnerService
}

func NewContestHandler(cs *service.ContestService, ws *service.WinnerService) *ContestHandler {
	return &ContestHandler{contestService: cs, winnerService: ws}
}

type transitionRequest struct {
	Status model.ContestStatus `json:"status"`
}

func (h *ContestHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.getContest) // GET /contests/{id}

	r.Group(func(authRouter chi.Router) {
		authRouter.Use(middleware.Authenticator)

		authRouter.With(middleware.RequireRole(model.RoleCreator)).Post("/", h.createContest)
		authRouter.With(middleware.RequireRole(model.RoleAdmin)).Patch("/{id}", h.transitionContest)
		authRouter.With(middleware.RequireRole(model.RoleCreator, model.RoleAdmin)).Patch("/edit/{id}", h.editContest)
		authRouter.With(middleware.RequireRole(model.RoleCreator, model.RoleAdmin)).Delete("/{id}", h.deleteContest)
		authRouter.Post("/{id}/declare-winner", h.declareWinner)
	})
}

func (h *ContestHandler) getContest(w http.ResponseWriter, r *http.Request) {
	contest, err := h.contestService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) createContest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req service.CreateContestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	contest, err := h.contestService.Create(r.Context(), actor, req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, contest)
}

func (h *ContestHandler) transitionContest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	contest, err := h.contestService.Transition(r.Context(), actor, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) editContest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var patch model.ContestPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	contest, err := h.contestService.Edit(r.Context(), actor, chi.URLParam(r, "id"), patch)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) deleteContest(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.contestService.Delete(r.Context(), actor, id); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "contest " + id + " deleted"})
}

func (h *ContestHandler) declareWinner(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req service.DeclareWinnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SubmissionID == "" {
		common.RespondWithError(w, http.StatusBadRequest, "submission_id is required")
		return
	}
	contest, err := h.winnerService.DeclareWinner(r.Context(), actor, chi.URLParam(r, "id"), req.SubmissionID)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}
