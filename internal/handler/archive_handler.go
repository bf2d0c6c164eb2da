/*
Package handler provides the HTTP handler that redirects to archived battle transcripts.
*/
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"dojo/internal/app/storage"
	"dojo/internal/pkg/errs"
	"dojo/internal/pkg/logx"
	"dojo/internal/pkg/randx"
	"dojo/internal/pkg/resp"
)

// PresignedURLDuration is how long an archive download link stays valid.
const PresignedURLDuration = 5 * time.Minute

// HandleArchiveDownload creates an HTTP HandlerFunc that redirects to a time-limited,
// pre-signed URL of the transcript archived for a room at a finish time (unix ms).
func HandleArchiveDownload(archive storage.ArchiveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := randx.NormalizeRoomCode(chi.URLParam(r, "code"))
		finishedAt, err := strconv.ParseInt(chi.URLParam(r, "finishedAt"), 10, 64)
		if !randx.IsValidRoomCode(code) || err != nil || finishedAt <= 0 {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		exists, err := archive.Exists(r.Context(), code, finishedAt)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrArchiveUnavailable))
			return
		}
		if !exists {
			resp.RespondError(w, r, errs.NewError(errs.ErrArchiveNotFound))
			return
		}

		url, err := archive.PresignDownload(r.Context(), code, finishedAt, PresignedURLDuration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrArchiveUnavailable))
			return
		}

		logx.Debug("Archive download redirected.", "room_code", code, "finished_at", finishedAt)
		http.Redirect(w, r, url, http.StatusFound)
	}
}
