package handler

import (
	"encoding/json"
	"net/http"

	"contest_hub/internal/api/middleware"
	"contest_hub/internal/common"
	"contest_hub/internal/domain/policy"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	return true
}

func requireActor(w http.ResponseWriter, r *http.Request) (policy.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
	}
	return actor, ok
}
