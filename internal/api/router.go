package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/edulite/backend/internal/auth"
	"github.com/edulite/backend/internal/middleware"
	"go.uber.org/zap"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Health        *HealthHandler
	FriendRequest *FriendRequestHandler
	Profile       *ProfileHandler
	Chat          *ChatHandler
	Notification  *NotificationHandler
}

// Router holds all handlers and creates the chi router
type Router struct {
	handlers       Handlers
	jwtManager     *auth.JWTManager
	allowedOrigins []string
	logger         *zap.Logger
}

// NewRouter creates a new router
func NewRouter(handlers Handlers, jwtManager *auth.JWTManager, allowedOrigins []string, logger *zap.Logger) *Router {
	return &Router{
		handlers:       handlers,
		jwtManager:     jwtManager,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// Setup configures and returns the chi router. Trailing slashes are optional
// on every route.
func (rt *Router) Setup() *chi.Mux {
	h := rt.handlers
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware(rt.allowedOrigins))

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.Health.Health)
		r.Get("/ready", h.Health.Ready)
		r.Get("/live", h.Health.Live)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(rt.jwtManager))

		// Upgraded connections must not pass through Compress
		r.Get("/ws", h.Chat.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5))

			r.Route("/friend-requests", func(r chi.Router) {
				r.Post("/send", h.FriendRequest.Send)
				r.Get("/pending", h.FriendRequest.Pending)
				r.Post("/{id}/accept", h.FriendRequest.Accept)
				r.Post("/{id}/decline", h.FriendRequest.Decline)
			})

			r.Route("/profiles", func(r chi.Router) {
				r.Get("/me", h.Profile.Me)
				r.Get("/search", h.Profile.Search)
				r.Get("/{id}", h.Profile.Get)
				r.Get("/{id}/friends", h.Profile.Friends)
				r.Get("/{id}/mutual-friends", h.Profile.MutualFriends)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Get("/rooms", h.Chat.GetRooms)
				r.Post("/rooms", h.Chat.CreateRoom)
				r.Get("/rooms/{roomID}", h.Chat.GetRoom)
				r.Get("/rooms/{roomID}/messages", h.Chat.GetMessages)
				r.Post("/rooms/{roomID}/messages", h.Chat.SendMessage)
				r.Patch("/messages/{messageID}", h.Chat.UpdateMessage)
				r.Delete("/messages/{messageID}", h.Chat.DeleteMessage)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.GetNotifications)
				r.Post("/{id}/read", h.Notification.MarkRead)
				r.Post("/fcm-token", h.Notification.UpdateFCMToken)
			})
		})
	})

	return r
}
