package routes

import (
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/auth"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/handlers"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/middleware"
	"github.com/dobbygotcheva/recipe-theme-forum-sub001/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes. The session middleware
// runs on every route so a presented credential is always verified, even
// where anonymous access would be allowed; the per-route guards only decide
// whether anonymous is acceptable.
func RegisterRoutes(
	router chi.Router,
	session *auth.SessionMiddleware,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	router.Group(func(r chi.Router) {
		r.Use(session.Authenticate)

		// Credential endpoints, throttled per source IP
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(rateLimitConfig))
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/register", authHandler.Register)
		})

		// Session endpoints
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuthenticated)
			r.Post("/auth/logout", authHandler.Logout)
			r.Get("/auth/me", authHandler.Me)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Get("/users", userHandler.ListUsers)
		})
	})
}
