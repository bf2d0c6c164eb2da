/*
Package handler provides HTTP handler functions for the read-only room query and health checks.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dojo/internal/app/arena"
	"dojo/internal/pkg/errs"
	"dojo/internal/pkg/randx"
	"dojo/internal/pkg/resp"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	arena.Stats
}

// HandleHealth reports liveness with the live room and online user counts.
func HandleHealth(hub *arena.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondJSON(w, r, http.StatusOK, HealthResponse{
			Status: "ok",
			Stats:  hub.Stats(),
		})
	}
}

// HandleGetRoom returns the redacted snapshot of a room. The code is case-insensitive.
func HandleGetRoom(hub *arena.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := randx.NormalizeRoomCode(chi.URLParam(r, "code"))
		if !randx.IsValidRoomCode(code) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
			return
		}

		summary, found := hub.Summary(code)
		if !found {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
			return
		}

		resp.RespondJSON(w, r, http.StatusOK, summary)
	}
}
