/*
Package handler provides the HTTP handlers and routing setup for the battle server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"dojo/internal/pkg/limiter"
	"dojo/internal/pkg/logx"
)

const (
	ConnectRate  = 1
	ConnectBurst = 10
	APIRate      = 5
	APIBurst     = 20
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)
	apiLimiter := limiter.NewIPRateLimiter(rate.Limit(APIRate), APIBurst)

	origins := NewOriginPolicy(deps.Config)

	r := chi.NewRouter()

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origins.Allowed(origin) {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	c := cors.New(cors.Options{
		AllowOriginFunc:  origins.Allowed,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps.Hub))

	r.Route("/api", func(api chi.Router) {
		api.Use(apiLimiter.Middleware)

		api.Get("/room/{code}", HandleGetRoom(deps.Hub))

		if deps.Archive != nil {
			api.Get("/archives/{code}/{finishedAt}", HandleArchiveDownload(deps.Archive))
		}
	})

	r.Get("/ws", HandleWebSocket(deps.Hub, wsUpgrader, connectLimiter))

	return r
}
