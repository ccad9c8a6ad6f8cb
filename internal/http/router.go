package http

import (
	"time"

	"github.com/detomata-com/kamclient/internal/config"
	"github.com/detomata-com/kamclient/internal/http/handlers"
	"github.com/detomata-com/kamclient/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	deviceHandler *handlers.DeviceHandler,
	pairingHandler *handlers.PairingHandler,
	purchaseHandler *handlers.PurchaseHandler,
	accountHandler *handlers.AccountHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Rate-limited public endpoints. Token issuance is the abuse surface
	// here, so the limiter sits in front of everything public.
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	// Magic-link auth (public)
	api.Post("/auth/magic-link/request", authHandler.RequestMagicLink)
	api.Post("/auth/magic-link/verify", authHandler.VerifyMagicLink)

	// Device registration (public: driven by the game client before any
	// session exists)
	api.Post("/device/register", deviceHandler.Register)
	api.Post("/device/verify-registration", deviceHandler.VerifyRegistration)
	api.Get("/device/check-registration", deviceHandler.CheckRegistration)

	// Pairing (request + poll are public, completion needs a session)
	api.Post("/pairing/request", pairingHandler.Request)
	api.Get("/pairing/status", pairingHandler.Status)

	// Stateless signature check (public)
	api.Post("/purchases/verify-signature", purchaseHandler.VerifySignature)

	// Game-client boundary: session optional, explicit accountId accepted
	gameClient := api.Group("", middleware.OptionalAuthMiddleware(cfg, log))
	gameClient.Get("/purchases", purchaseHandler.ListPending)
	gameClient.Put("/purchases/claim", purchaseHandler.Claim)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))
	protected.Get("/me", accountHandler.Me)
	protected.Post("/purchases", purchaseHandler.Capture)
	protected.Post("/pairing/complete", pairingHandler.Complete)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
