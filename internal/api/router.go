package api

import (
	"net/http"
	"time"

	"github.com/Latte72R/typing-backend/internal/api/handler"
	"github.com/Latte72R/typing-backend/internal/app/realtime"
	"github.com/Latte72R/typing-backend/internal/app/service"
	"github.com/Latte72R/typing-backend/internal/common/security"
	"github.com/Latte72R/typing-backend/internal/platform/config"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

// NewRouter wires the full HTTP surface: auth, contest/prompt admin,
// session start/finish, leaderboard reads, and the leaderboard WebSocket.
func NewRouter(
	authService *service.AuthService,
	contestService *service.ContestService,
	promptService *service.PromptService,
	typingStore *service.TypingStore,
	hub *realtime.Hub,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AppConfig.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// JWT Auth Middleware Setup
	// This makes jwtauth.Verifier and jwtauth.Authenticator work with the token found in context.
	// It will search for a token in "Authorization: Bearer T".
	r.Use(jwtauth.Verifier(security.TokenAuth)) // Verifies token, puts claims in context

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// API v1 Routes
	r.Route("/api/v1", func(v1 chi.Router) {
		// Auth routes (mostly public; logout requires a token)
		authHandler := handler.NewAuthHandler(authService)
		v1.Route("/auth", authHandler.RegisterRoutes)

		// Contest routes (public reads, admin-only writes)
		contestHandler := handler.NewContestHandler(contestService)
		v1.Route("/contests", func(contests chi.Router) {
			contestHandler.RegisterRoutes(contests)
			handler.NewPromptHandler(promptService).RegisterContestRoutes(contests)
		})

		// Prompt routes (public reads, admin-only writes)
		promptHandler := handler.NewPromptHandler(promptService)
		v1.Route("/prompts", promptHandler.RegisterRoutes)

		// Session routes (authenticated)
		sessionHandler := handler.NewSessionHandler(typingStore)
		v1.Route("/sessions", sessionHandler.RegisterRoutes)

		// Leaderboard routes (public)
		leaderboardHandler := handler.NewLeaderboardHandler(typingStore)
		v1.Route("/leaderboard", leaderboardHandler.RegisterRoutes)

		// Real-time leaderboard fan-out
		wsHandler := handler.NewWebsocketHandler(hub, logger)
		v1.Route("/ws/leaderboard", wsHandler.RegisterRoutes)
	})

	return r
}
