package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"filmsage-backend/internal/handlers"
	"filmsage-backend/internal/logging"
	"filmsage-backend/internal/middleware"
	"filmsage-backend/internal/websocket"
)

// Limits holds the per-minute request budgets.
type Limits struct {
	// API applies per client IP to everything under /api/v1.
	API int
	// Chat applies per user on the chat endpoint.
	Chat int
}

func New(
	jwtAuth *middleware.JWTAuth,
	chatHandler *handlers.ChatHandler,
	conversationHandler *handlers.ConversationHandler,
	movieHandler *handlers.MovieHandler,
	healthHandler *handlers.HealthHandler,
	wsHub *websocket.Hub,
	limits Limits,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(logging.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", logging.RequestIDHeader},
		ExposedHeaders:   []string{logging.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if limits.API > 0 {
			r.Use(httprate.LimitByIP(limits.API, time.Minute))
		}
		r.Use(jwtAuth.Middleware)

		// ──── Chat ────
		r.Group(func(r chi.Router) {
			if limits.Chat > 0 {
				r.Use(middleware.ChatRateLimit(limits.Chat, time.Minute))
			}
			r.Post("/chat", chatHandler.Chat)
		})

		// ──── Conversations ────
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Post("/", conversationHandler.Create)
			r.Get("/{id}", conversationHandler.Get)
			r.Put("/{id}", conversationHandler.Update)
			r.Delete("/{id}", conversationHandler.Delete)
		})

		// ──── Movies ────
		r.Route("/movies", func(r chi.Router) {
			r.Get("/trending", movieHandler.Trending)
			r.Get("/search", movieHandler.Search)
			r.Get("/{id}", movieHandler.Get)
			r.Get("/{id}/trailer", movieHandler.Trailer)
			r.Get("/{id}/providers", movieHandler.Providers)
		})
	})

	// WebSocket authenticates through ?token=
	r.Get("/ws", wsHub.HandleWebSocket)

	return r
}
