/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

Identity travels inside each command, so the upgrade only applies the connection rate limit.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"dojo/internal/app/arena"
	"dojo/internal/pkg/errs"
	"dojo/internal/pkg/limiter"
	"dojo/internal/pkg/logx"
	"dojo/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(hub *arena.Hub, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)

		if !rateLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", logx.AnonymizeIP(ip))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := arena.NewClient(hub, conn)
		hub.Connect(client)

		go client.WritePump()

		logx.Info("WebSocket connection established.", "session_id", client.SessionID())

		client.ReadPump()
	}
}
