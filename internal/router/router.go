package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/warta-go-api/internal/config"
	"github.com/noah-isme/warta-go-api/internal/handler"
	"github.com/noah-isme/warta-go-api/internal/middleware"
	"github.com/noah-isme/warta-go-api/internal/models"
	"github.com/noah-isme/warta-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	MagicLinkHandler *handler.MagicLinkHandler
	AdminUserHandler *handler.AdminUserHandler
	AuditHandler     *handler.AuditHandler
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	signInLimiter := middleware.RateLimit("sign_in", cfg.LoginRateLimit, cfg.LoginRateWindow)

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		auth.Use("/login", signInLimiter)
		deps.AuthHandler.RegisterPublic(auth)

		// Change-password, logout and expiry checks stay reachable behind
		// the gate so an expired credential can still be rotated.
		session := auth.Group("", jwtMiddleware)
		deps.AuthHandler.RegisterProtected(session)
	}

	if deps.MagicLinkHandler != nil {
		magicLink := api.Group("/auth/magic-link")
		magicLink.Use("/request", signInLimiter)
		deps.MagicLinkHandler.Register(magicLink)
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(models.RoleAdmin), middleware.PasswordGate())

	if deps.AdminUserHandler != nil {
		deps.AdminUserHandler.Register(admin.Group("/users"))
	}

	if deps.AuditHandler != nil {
		deps.AuditHandler.Register(admin.Group("/audit-logs"))
	}
}
