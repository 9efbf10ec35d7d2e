package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/config"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/novel-moderation/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	healthHandler *handlers.HealthHandler,
	reportHandler *handlers.ReportHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", healthHandler.Check)

	// Readers file reports (JWT required)
	api.Post("/reports", middleware.JWTProtected(cfg), reportHandler.CreateReport)

	// Admin moderation console
	admin := api.Group("/admin", middleware.AdminJWT(cfg), middleware.AdminRequired(db, cfg))
	admin.Get("/reports", reportHandler.ListReports)
	admin.Get("/reports/counts", reportHandler.Counts)
	admin.Get("/reports/:id", reportHandler.GetReport)
	admin.Put("/reports/:id", reportHandler.ResolveReport)
}
