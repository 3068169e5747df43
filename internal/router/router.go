package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/skolar-lms/skolar-api/internal/config"
	"github.com/skolar-lms/skolar-api/internal/handler"
	"github.com/skolar-lms/skolar-api/internal/middleware"
	"github.com/skolar-lms/skolar-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AttemptHandler         *handler.AttemptHandler
	ResultsHandler         *handler.ResultsHandler
	ContentHandler         *handler.ContentHandler
	AdminAssignmentHandler *handler.AdminAssignmentHandler
	MonitorHandler         *handler.MonitorHandler
	JWTMiddleware          fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Student surface: attempts, results, content browsing. The attempt
	// routes carry a per-user limiter sized for heartbeat traffic.
	if deps.AttemptHandler != nil {
		assignments := api.Group("/assignments", jwtMiddleware, middleware.RequireRole("student"),
			middleware.RateLimit("attempts", 60, time.Minute))
		deps.AttemptHandler.Register(assignments)
	}
	if deps.ResultsHandler != nil {
		results := api.Group("/results", jwtMiddleware, middleware.RequireRole("student"))
		deps.ResultsHandler.Register(results)
	}
	if deps.ContentHandler != nil {
		content := api.Group("/content", jwtMiddleware)
		deps.ContentHandler.Register(content)
	}

	// Teacher surface: assignment configuration, question bank, monitoring
	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole("admin", "teacher"))
	if deps.AdminAssignmentHandler != nil {
		deps.AdminAssignmentHandler.Register(admin.Group("/assignments"))
	}
	if deps.ContentHandler != nil {
		deps.ContentHandler.RegisterAdmin(admin.Group("/content"))
	}
	if deps.MonitorHandler != nil {
		deps.MonitorHandler.Register(admin)
	}
}
